package repositories

import "profilex/internal/models"

// AccountStore is durable storage for the full account collection. The
// designed access pattern is load-everything, mutate in memory, replace
// everything; there is no incremental update. Load against storage that
// does not exist yet (first run) returns an empty slice, not an error.
type AccountStore interface {
	Load() ([]models.Account, error)
	Replace(accounts []models.Account) error
}

// ExtendedInfoStore is the same contract applied to extended-info records,
// keyed by email.
type ExtendedInfoStore interface {
	Load() ([]models.ExtendedInfo, error)
	Replace(records []models.ExtendedInfo) error
}
