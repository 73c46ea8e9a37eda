package repositories

import "profilex/internal/models"

// FileAccountRepository is a flat JSON file implementation of AccountStore.
type FileAccountRepository struct {
	path string
}

// NewFileAccountRepository creates an AccountStore backed by the JSON file
// at path. The file is created on the first Replace; it does not have to
// exist up front.
func NewFileAccountRepository(path string) *FileAccountRepository {
	return &FileAccountRepository{path: path}
}

// Load returns every account record in file order.
func (r *FileAccountRepository) Load() ([]models.Account, error) {
	return readCollection[models.Account](r.path)
}

// Replace overwrites the entire backing collection.
func (r *FileAccountRepository) Replace(accounts []models.Account) error {
	return writeCollection(r.path, accounts)
}
