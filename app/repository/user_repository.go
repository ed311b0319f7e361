package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/ManuelReschke/QuizFox/app/models"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByAPIKeyHash resolves an API key hash to its active user. Unknown and
// blank hashes report gorm.ErrRecordNotFound.
func (r *userRepository) GetByAPIKeyHash(hash string) (*models.User, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user models.User
	if err := r.db.Where("api_key_hash = ? AND status = ?", hash, models.STATUS_ACTIVE).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
