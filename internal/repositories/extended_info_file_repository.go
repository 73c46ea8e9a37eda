package repositories

import "profilex/internal/models"

// FileExtendedInfoRepository is a flat JSON file implementation of
// ExtendedInfoStore.
type FileExtendedInfoRepository struct {
	path string
}

// NewFileExtendedInfoRepository creates an ExtendedInfoStore backed by the
// JSON file at path.
func NewFileExtendedInfoRepository(path string) *FileExtendedInfoRepository {
	return &FileExtendedInfoRepository{path: path}
}

// Load returns every extended-info record in file order.
func (r *FileExtendedInfoRepository) Load() ([]models.ExtendedInfo, error) {
	return readCollection[models.ExtendedInfo](r.path)
}

// Replace overwrites the entire backing collection.
func (r *FileExtendedInfoRepository) Replace(records []models.ExtendedInfo) error {
	return writeCollection(r.path, records)
}
