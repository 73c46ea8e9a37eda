package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"profilex/internal/models"
	"profilex/internal/repositories"
)

// Profile lifecycle event types published after successful mutations.
const (
	EventProfileCreated = "profile.created"
	EventProfileUpdated = "profile.updated"
	EventProfileDeleted = "profile.deleted"
)

// EventPublisher is the subset of the message-queue client the profile
// service needs. A nil publisher disables event publication entirely.
type EventPublisher interface {
	PublishProfileEvent(eventType string, body []byte) error
}

// ProfileService owns the join between the account store and the
// extended-info store: it merges the two records into the single logical
// profile every external operation works with, and splits incoming updates
// back into the two stores. It is the only component that writes to either
// store as a result of a profile-level operation.
type ProfileService struct {
	accounts repositories.AccountStore
	info     repositories.ExtendedInfoStore
	events   EventPublisher

	// One mutex per store serializes the load-mutate-replace cycles so two
	// concurrent writers cannot silently clobber each other's Replace.
	// Lock order is always accounts before info. There is still no
	// transaction spanning the two stores; two-store writes go account
	// first, then extended info, and an extended-info failure surfaces as
	// ErrExtendedInfoPending with the account write kept.
	accountsMu sync.Mutex
	infoMu     sync.Mutex
}

// NewProfileService creates a ProfileService over the two stores. events
// may be nil.
func NewProfileService(accounts repositories.AccountStore, info repositories.ExtendedInfoStore, events EventPublisher) *ProfileService {
	return &ProfileService{
		accounts: accounts,
		info:     info,
		events:   events,
	}
}

// GetProfileByEmail returns the merged owner-view profile for email.
func (s *ProfileService) GetProfileByEmail(email string) (*models.Profile, error) {
	accounts, err := s.accounts.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	account := findAccountByEmail(accounts, email)
	if account == nil {
		return nil, ErrAccountNotFound
	}

	info, err := s.loadInfoFor(email)
	if err != nil {
		return nil, err
	}
	profile := models.MergeProfile(*account, info)
	return &profile, nil
}

// GetPublicProfileByUsername returns the profile for username with the
// public-view redaction applied on top of the usual password stripping.
func (s *ProfileService) GetPublicProfileByUsername(username string) (*models.Profile, error) {
	accounts, err := s.accounts.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	var account *models.Account
	for i := range accounts {
		if accounts[i].Username == username {
			account = &accounts[i]
			break
		}
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	info, err := s.loadInfoFor(account.Email)
	if err != nil {
		return nil, err
	}
	profile := models.MergeProfile(*account, info).Public()
	return &profile, nil
}

// ListPublicProfiles returns every profile in account-store order with the
// public-view redaction applied.
func (s *ProfileService) ListPublicProfiles() ([]models.Profile, error) {
	accounts, err := s.accounts.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	records, err := s.info.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load extended info: %w", err)
	}

	infoByEmail := make(map[string]models.ExtendedInfo, len(records))
	for _, rec := range records {
		infoByEmail[rec.Email] = rec
	}

	profiles := make([]models.Profile, 0, len(accounts))
	for _, account := range accounts {
		info, ok := infoByEmail[account.Email]
		if !ok {
			info = models.ExtendedInfo{Email: account.Email}
		}
		profiles = append(profiles, models.MergeProfile(account, info).Public())
	}
	return profiles, nil
}

// CreateProfile registers a new user: one account record plus one
// extended-info record built from the recognized optional signup fields.
// Email and username collisions are rejected before anything is written.
func (s *ProfileService) CreateProfile(req models.SignupRequest) (*models.Profile, error) {
	account := models.Account{
		Email:       req.Email,
		Username:    req.Username,
		Name:        req.Name,
		Password:    req.Password,
		IsAdmin:     req.IsAdmin,
		PhotoURL:    req.PhotoURL,
		Location:    req.Location,
		Description: req.Description,
		DateOfBirth: req.DateOfBirth,
		CreatedAt:   time.Now().UTC(),
	}
	if account.Location == "" {
		account.Location = models.DefaultLocation
	}
	if account.Description == "" {
		account.Description = models.DefaultDescription
	}

	s.accountsMu.Lock()
	accounts, err := s.accounts.Load()
	if err != nil {
		s.accountsMu.Unlock()
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	for _, existing := range accounts {
		if existing.Email == account.Email {
			s.accountsMu.Unlock()
			return nil, ErrEmailTaken
		}
	}
	for _, existing := range accounts {
		if existing.Username == account.Username {
			s.accountsMu.Unlock()
			return nil, ErrUsernameTaken
		}
	}

	accounts = append(accounts, account)
	if err := s.accounts.Replace(accounts); err != nil {
		s.accountsMu.Unlock()
		return nil, fmt.Errorf("failed to save accounts: %w", err)
	}
	s.accountsMu.Unlock()

	info := models.ExtendedInfo{
		Email:       req.Email,
		Gender:      req.Gender,
		Nationality: req.Nationality,
		Category:    req.Category,
		BloodGroup:  req.BloodGroup,
		TShirtSize:  req.TShirtSize,
	}

	s.infoMu.Lock()
	records, err := s.info.Load()
	if err == nil {
		if existing := findInfoByEmail(records, req.Email); existing == nil {
			records = append(records, info)
			err = s.info.Replace(records)
		} else {
			info = *existing
		}
	}
	s.infoMu.Unlock()
	if err != nil {
		// The account record is already committed and stays committed.
		return nil, fmt.Errorf("%w: %v", ErrExtendedInfoPending, err)
	}

	s.publishEvent(EventProfileCreated, account.Email)
	profile := models.MergeProfile(account, info)
	return &profile, nil
}

// UpdateOwnProfile applies a partial update to the caller's own records.
// The admin flag cannot be changed through this path.
func (s *ProfileService) UpdateOwnProfile(email string, patch models.ProfileUpdate) (*models.Profile, error) {
	patch.IsAdmin = nil
	return s.update(email, patch, nil)
}

// AdminUpdateUser applies a partial update to targetEmail's records on
// behalf of actorEmail, who must hold the admin flag. Admins may also
// promote or demote accounts via the isAdmin field.
func (s *ProfileService) AdminUpdateUser(actorEmail, targetEmail string, patch models.ProfileUpdate) (*models.Profile, error) {
	return s.update(targetEmail, patch, &actorEmail)
}

// update is the shared partial-update path. When actorEmail is non-nil the
// actor's account must carry the admin flag; the check re-reads the account
// store so a demoted admin loses privilege on the very next call. A
// username collision aborts the whole operation before anything is written.
func (s *ProfileService) update(targetEmail string, patch models.ProfileUpdate, actorEmail *string) (*models.Profile, error) {
	s.accountsMu.Lock()
	accounts, err := s.accounts.Load()
	if err != nil {
		s.accountsMu.Unlock()
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	if actorEmail != nil {
		actor := findAccountByEmail(accounts, *actorEmail)
		if actor == nil || !actor.IsAdmin {
			s.accountsMu.Unlock()
			return nil, ErrAdminRequired
		}
	}

	idx := -1
	for i := range accounts {
		if accounts[i].Email == targetEmail {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.accountsMu.Unlock()
		return nil, ErrAccountNotFound
	}

	if patch.Username != nil && *patch.Username != accounts[idx].Username {
		for _, other := range accounts {
			if other.Username == *patch.Username && other.Email != targetEmail {
				s.accountsMu.Unlock()
				return nil, ErrUsernameTaken
			}
		}
	}

	accountChanged := applyAccountPatch(&accounts[idx], patch, actorEmail != nil)
	if accountChanged {
		if err := s.accounts.Replace(accounts); err != nil {
			s.accountsMu.Unlock()
			return nil, fmt.Errorf("failed to save accounts: %w", err)
		}
	}
	account := accounts[idx]
	s.accountsMu.Unlock()

	info, infoChanged, err := s.patchInfo(targetEmail, patch, accountChanged)
	if err != nil {
		return nil, err
	}

	if accountChanged || infoChanged {
		s.publishEvent(EventProfileUpdated, targetEmail)
	}
	profile := models.MergeProfile(account, info)
	return &profile, nil
}

// AdminDeleteUser removes targetEmail's account record and, if present,
// its extended-info record. The actor must be an admin and cannot delete
// their own account through this path.
func (s *ProfileService) AdminDeleteUser(actorEmail, targetEmail string) error {
	s.accountsMu.Lock()
	accounts, err := s.accounts.Load()
	if err != nil {
		s.accountsMu.Unlock()
		return fmt.Errorf("failed to load accounts: %w", err)
	}

	actor := findAccountByEmail(accounts, actorEmail)
	if actor == nil || !actor.IsAdmin {
		s.accountsMu.Unlock()
		return ErrAdminRequired
	}
	if actorEmail == targetEmail {
		s.accountsMu.Unlock()
		return ErrSelfDelete
	}

	remaining := make([]models.Account, 0, len(accounts))
	removed := false
	for _, account := range accounts {
		if account.Email == targetEmail {
			removed = true
			continue
		}
		remaining = append(remaining, account)
	}
	if !removed {
		s.accountsMu.Unlock()
		return ErrAccountNotFound
	}
	if err := s.accounts.Replace(remaining); err != nil {
		s.accountsMu.Unlock()
		return fmt.Errorf("failed to save accounts: %w", err)
	}
	s.accountsMu.Unlock()

	s.infoMu.Lock()
	records, err := s.info.Load()
	if err == nil {
		kept := make([]models.ExtendedInfo, 0, len(records))
		changed := false
		for _, rec := range records {
			if rec.Email == targetEmail {
				changed = true
				continue
			}
			kept = append(kept, rec)
		}
		if changed {
			err = s.info.Replace(kept)
		}
	}
	s.infoMu.Unlock()
	if err != nil {
		// The account deletion is already committed; the orphaned
		// extended-info record is cleaned up on the next successful write.
		return fmt.Errorf("%w: %v", ErrExtendedInfoPending, err)
	}

	s.publishEvent(EventProfileDeleted, targetEmail)
	return nil
}

// patchInfo applies the extended-info side of a patch, creating the record
// lazily if absent. accountCommitted marks whether an account write already
// went through, which turns a write failure here into a degraded success
// instead of a plain storage failure.
func (s *ProfileService) patchInfo(email string, patch models.ProfileUpdate, accountCommitted bool) (models.ExtendedInfo, bool, error) {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()

	records, err := s.info.Load()
	if err != nil {
		return models.ExtendedInfo{}, false, fmt.Errorf("failed to load extended info: %w", err)
	}

	idx := -1
	for i := range records {
		if records[i].Email == email {
			idx = i
			break
		}
	}
	info := models.ExtendedInfo{Email: email}
	if idx >= 0 {
		info = records[idx]
	}

	if !applyInfoPatch(&info, patch) {
		return info, false, nil
	}

	if idx >= 0 {
		records[idx] = info
	} else {
		records = append(records, info)
	}
	if err := s.info.Replace(records); err != nil {
		if accountCommitted {
			return info, false, fmt.Errorf("%w: %v", ErrExtendedInfoPending, err)
		}
		return info, false, fmt.Errorf("failed to save extended info: %w", err)
	}
	return info, true, nil
}

// loadInfoFor returns the extended-info record for email, or an all-empty
// record when none exists.
func (s *ProfileService) loadInfoFor(email string) (models.ExtendedInfo, error) {
	records, err := s.info.Load()
	if err != nil {
		return models.ExtendedInfo{}, fmt.Errorf("failed to load extended info: %w", err)
	}
	if info := findInfoByEmail(records, email); info != nil {
		return *info, nil
	}
	return models.ExtendedInfo{Email: email}, nil
}

// publishEvent publishes a profile lifecycle event. Publication is
// best-effort: failures are logged and never fail the operation.
func (s *ProfileService) publishEvent(eventType, email string) {
	if s.events == nil {
		return
	}
	body, err := json.Marshal(map[string]interface{}{
		"eventId":    uuid.New().String(),
		"type":       eventType,
		"email":      email,
		"occurredAt": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("Failed to marshal %s event for %s: %v", eventType, email, err)
		return
	}
	if err := s.events.PublishProfileEvent(eventType, body); err != nil {
		log.Printf("Warning: failed to publish %s event for %s: %v", eventType, email, err)
	}
}

func applyAccountPatch(account *models.Account, patch models.ProfileUpdate, allowAdminFlag bool) bool {
	changed := false
	if patch.Name != nil && *patch.Name != account.Name {
		account.Name = *patch.Name
		changed = true
	}
	if patch.Username != nil && *patch.Username != account.Username {
		account.Username = *patch.Username
		changed = true
	}
	if patch.PhotoURL != nil && *patch.PhotoURL != account.PhotoURL {
		account.PhotoURL = *patch.PhotoURL
		changed = true
	}
	if patch.Location != nil && *patch.Location != account.Location {
		account.Location = *patch.Location
		changed = true
	}
	if patch.Description != nil && *patch.Description != account.Description {
		account.Description = *patch.Description
		changed = true
	}
	if patch.DateOfBirth != nil && (account.DateOfBirth == nil || *account.DateOfBirth != *patch.DateOfBirth) {
		dob := *patch.DateOfBirth
		account.DateOfBirth = &dob
		changed = true
	}
	if allowAdminFlag && patch.IsAdmin != nil && *patch.IsAdmin != account.IsAdmin {
		account.IsAdmin = *patch.IsAdmin
		changed = true
	}
	return changed
}

func applyInfoPatch(info *models.ExtendedInfo, patch models.ProfileUpdate) bool {
	changed := false
	if patch.Gender != nil && *patch.Gender != info.Gender {
		info.Gender = *patch.Gender
		changed = true
	}
	if patch.Nationality != nil && *patch.Nationality != info.Nationality {
		info.Nationality = *patch.Nationality
		changed = true
	}
	if patch.Category != nil && *patch.Category != info.Category {
		info.Category = *patch.Category
		changed = true
	}
	if patch.BloodGroup != nil && *patch.BloodGroup != info.BloodGroup {
		info.BloodGroup = *patch.BloodGroup
		changed = true
	}
	if patch.TShirtSize != nil && *patch.TShirtSize != info.TShirtSize {
		info.TShirtSize = *patch.TShirtSize
		changed = true
	}
	return changed
}

func findAccountByEmail(accounts []models.Account, email string) *models.Account {
	for i := range accounts {
		if accounts[i].Email == email {
			return &accounts[i]
		}
	}
	return nil
}

func findInfoByEmail(records []models.ExtendedInfo, email string) *models.ExtendedInfo {
	for i := range records {
		if records[i].Email == email {
			return &records[i]
		}
	}
	return nil
}
