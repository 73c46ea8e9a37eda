package repositories

import (
	"sync"

	"profilex/internal/models"
)

// MockAccountRepository is an in-memory implementation of AccountStore for
// tests and local development. Records are held in a slice so insertion
// order survives, matching file-store iteration order. LoadErr and
// ReplaceErr let tests inject storage failures.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts []models.Account

	LoadErr    error
	ReplaceErr error
}

// NewMockAccountRepository creates a new empty MockAccountRepository.
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{accounts: []models.Account{}}
}

// Load returns a copy of the stored accounts in insertion order.
func (r *MockAccountRepository) Load() ([]models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.LoadErr != nil {
		return nil, r.LoadErr
	}
	out := make([]models.Account, len(r.accounts))
	copy(out, r.accounts)
	return out, nil
}

// Replace overwrites the stored collection.
func (r *MockAccountRepository) Replace(accounts []models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ReplaceErr != nil {
		return r.ReplaceErr
	}
	r.accounts = make([]models.Account, len(accounts))
	copy(r.accounts, accounts)
	return nil
}
