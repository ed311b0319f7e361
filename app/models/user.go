package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email         string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Role          string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status        string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	Plan          string         `gorm:"type:varchar(20);not null;default:'FREE';index" json:"plan" validate:"oneof=FREE PRO PREMIUM"`
	PlanExpiresAt *time.Time     `gorm:"type:timestamp;default:null;index" json:"plan_expires_at,omitempty"`
	APIKeyHash    string         `gorm:"type:char(64);index" json:"-"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN
}

func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// HasPaidPlan reports whether the user holds a non-free plan that has not expired at now.
func (u *User) HasPaidPlan(now time.Time) bool {
	if u.Plan == "" || u.Plan == "FREE" {
		return false
	}
	return u.PlanExpiresAt == nil || u.PlanExpiresAt.After(now)
}

// HashAPIKey returns the SHA-256 hash for the provided API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}
