package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SettingCommissionPercentage       = "commission_percentage"
	SettingReferralDiscountPercentage = "referral_discount_percentage"
	SettingMinWithdrawal              = "min_withdrawal"
	SettingVersion                    = "settings_version"
)

// Setting represents a system setting
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key" validate:"required,min=1,max=255"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null" json:"type" validate:"required"` // string, integer, float
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgramSettings holds the referral program knobs an admin can change at runtime.
// Readers load them at the moment of use; nothing caches them in process.
type ProgramSettings struct {
	CommissionPercentage       float64 `json:"commission_percentage" validate:"gte=0,lte=100"`
	ReferralDiscountPercentage float64 `json:"referral_discount_percentage" validate:"gte=0,lte=100"`
	MinWithdrawal              int64   `json:"min_withdrawal" validate:"gte=0"`
	Version                    int64   `json:"version"`
}

// DefaultProgramSettings is used for keys that have never been written.
func DefaultProgramSettings() ProgramSettings {
	return ProgramSettings{
		CommissionPercentage:       10,
		ReferralDiscountPercentage: 10,
		MinWithdrawal:              50000,
		Version:                    0,
	}
}

// Validate validates the settings
func (s ProgramSettings) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

// ApplySettingRows overlays stored rows onto the defaults. Unparseable values are reported.
func ApplySettingRows(rows []Setting) (ProgramSettings, error) {
	s := DefaultProgramSettings()
	for _, row := range rows {
		var err error
		switch row.Key {
		case SettingCommissionPercentage:
			s.CommissionPercentage, err = strconv.ParseFloat(row.Value, 64)
		case SettingReferralDiscountPercentage:
			s.ReferralDiscountPercentage, err = strconv.ParseFloat(row.Value, 64)
		case SettingMinWithdrawal:
			s.MinWithdrawal, err = strconv.ParseInt(row.Value, 10, 64)
		case SettingVersion:
			s.Version, err = strconv.ParseInt(row.Value, 10, 64)
		}
		if err != nil {
			return s, fmt.Errorf("invalid value for setting %s: %w", row.Key, err)
		}
	}
	return s, nil
}

// settingRows converts settings to database format
func (s ProgramSettings) settingRows() []Setting {
	return []Setting{
		{Key: SettingCommissionPercentage, Value: strconv.FormatFloat(s.CommissionPercentage, 'f', -1, 64), Type: "float"},
		{Key: SettingReferralDiscountPercentage, Value: strconv.FormatFloat(s.ReferralDiscountPercentage, 'f', -1, 64), Type: "float"},
		{Key: SettingMinWithdrawal, Value: strconv.FormatInt(s.MinWithdrawal, 10), Type: "integer"},
		{Key: SettingVersion, Value: strconv.FormatInt(s.Version, 10), Type: "integer"},
	}
}

// LoadProgramSettings reads the referral program settings from the settings table.
func LoadProgramSettings(db *gorm.DB) (ProgramSettings, error) {
	var rows []Setting
	keys := []string{SettingCommissionPercentage, SettingReferralDiscountPercentage, SettingMinWithdrawal, SettingVersion}
	if err := db.Where("setting_key IN ?", keys).Find(&rows).Error; err != nil {
		return DefaultProgramSettings(), fmt.Errorf("failed to load settings: %w", err)
	}
	return ApplySettingRows(rows)
}

// SaveProgramSettings validates and stores the settings, bumping the version by one.
// The stored version is returned in the result.
func SaveProgramSettings(db *gorm.DB, settings ProgramSettings) (ProgramSettings, error) {
	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("validation failed: %w", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		current, err := LoadProgramSettings(tx.Clauses(clause.Locking{Strength: "UPDATE"}))
		if err != nil {
			return err
		}
		settings.Version = current.Version + 1

		for _, row := range settings.settingRows() {
			row := row
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "setting_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "type", "updated_at"}),
			}).Create(&row)
			if result.Error != nil {
				return fmt.Errorf("failed to save setting %s: %w", row.Key, result.Error)
			}
		}
		return nil
	})
	if err != nil {
		return settings, err
	}
	return settings, nil
}
