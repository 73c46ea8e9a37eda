package repositories

import (
	"sync"

	"profilex/internal/models"
)

// MockExtendedInfoRepository is an in-memory implementation of
// ExtendedInfoStore for tests and local development. LoadErr and
// ReplaceErr let tests inject storage failures.
type MockExtendedInfoRepository struct {
	mu      sync.RWMutex
	records []models.ExtendedInfo

	LoadErr    error
	ReplaceErr error
}

// NewMockExtendedInfoRepository creates a new empty
// MockExtendedInfoRepository.
func NewMockExtendedInfoRepository() *MockExtendedInfoRepository {
	return &MockExtendedInfoRepository{records: []models.ExtendedInfo{}}
}

// Load returns a copy of the stored records in insertion order.
func (r *MockExtendedInfoRepository) Load() ([]models.ExtendedInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.LoadErr != nil {
		return nil, r.LoadErr
	}
	out := make([]models.ExtendedInfo, len(r.records))
	copy(out, r.records)
	return out, nil
}

// Replace overwrites the stored collection.
func (r *MockExtendedInfoRepository) Replace(records []models.ExtendedInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ReplaceErr != nil {
		return r.ReplaceErr
	}
	r.records = make([]models.ExtendedInfo, len(records))
	copy(r.records, records)
	return nil
}
