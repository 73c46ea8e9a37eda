package services

import (
	"fmt"

	"profilex/internal/models"
	"profilex/internal/repositories"
)

// AuthService handles login against the account store.
type AuthService struct {
	accounts repositories.AccountStore
	info     repositories.ExtendedInfoStore
}

// NewAuthService creates a new AuthService.
func NewAuthService(accounts repositories.AccountStore, info repositories.ExtendedInfoStore) *AuthService {
	return &AuthService{
		accounts: accounts,
		info:     info,
	}
}

// Login checks the submitted credentials against the account store and, on
// success, returns the merged profile. An unknown email and a wrong
// password are indistinguishable to the caller. The comparison is plain
// string equality because passwords are stored as received.
func (s *AuthService) Login(email, password string) (*models.Profile, error) {
	accounts, err := s.accounts.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	account := findAccountByEmail(accounts, email)
	if account == nil || account.Password != password {
		return nil, ErrInvalidCredentials
	}

	records, err := s.info.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load extended info: %w", err)
	}
	info := models.ExtendedInfo{Email: email}
	if found := findInfoByEmail(records, email); found != nil {
		info = *found
	}

	profile := models.MergeProfile(*account, info)
	return &profile, nil
}

// Identity is a verified caller identity.
type Identity struct {
	Email string
}

// IdentityVerifier turns a raw identity claim into an Identity. The
// production implementation trusts a bare header value: simulated
// authentication with no signature and no expiry. Any real deployment
// must replace it with a credentialed scheme.
type IdentityVerifier interface {
	Verify(claim string) (Identity, error)
}

// HeaderIdentityVerifier accepts any non-empty claim as the caller's email.
type HeaderIdentityVerifier struct{}

// Verify fails closed on an empty claim and otherwise trusts it verbatim.
func (HeaderIdentityVerifier) Verify(claim string) (Identity, error) {
	if claim == "" {
		return Identity{}, ErrMissingClaim
	}
	return Identity{Email: claim}, nil
}
