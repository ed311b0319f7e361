package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ManuelReschke/QuizFox/app/models"
)

// UserRepository resolves API callers. Accounts and keys are provisioned
// outside this service.
type UserRepository interface {
	GetByAPIKeyHash(hash string) (*models.User, error)
}

// SettingRepository reads and writes the referral program settings
type SettingRepository interface {
	ProgramSettings(ctx context.Context) (models.ProgramSettings, error)
	SaveProgramSettings(ctx context.Context, settings models.ProgramSettings) (models.ProgramSettings, error)
}

// NotificationRepository stores in-app notifications
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id uint) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Setting      SettingRepository
	Notification NotificationRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Setting:      NewSettingRepository(db),
		Notification: NewNotificationRepository(db),
	}
}
