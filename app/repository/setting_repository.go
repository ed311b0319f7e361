package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ManuelReschke/QuizFox/app/models"
)

// settingRepository implements the SettingRepository interface
type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a new setting repository instance
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

// ProgramSettings reads the settings on every call so admin changes apply
// to the next purchase or withdrawal without a restart.
func (r *settingRepository) ProgramSettings(ctx context.Context) (models.ProgramSettings, error) {
	return models.LoadProgramSettings(r.db.WithContext(ctx))
}

// SaveProgramSettings stores the settings and returns them with the new version.
func (r *settingRepository) SaveProgramSettings(ctx context.Context, settings models.ProgramSettings) (models.ProgramSettings, error) {
	return models.SaveProgramSettings(r.db.WithContext(ctx), settings)
}
