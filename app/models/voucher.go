package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type Voucher struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Code            string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"code" validate:"required,alphanum,min=3,max=50"`
	DiscountPercent float64   `gorm:"not null" json:"discount_percent" validate:"gt=0,lte=100"`
	LimitUser       int       `gorm:"not null" json:"limit_user" validate:"gte=1"`
	UsedCount       int       `gorm:"not null;default:0" json:"used_count" validate:"gte=0"`
	ExpiresAt       time.Time `gorm:"type:timestamp;not null" json:"expires_at" validate:"required"`
	IsActive        bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (v *Voucher) Validate() error {
	return validator.New().Struct(v)
}

// IsRedeemable reports whether the voucher can still be applied to a new purchase at now.
func (v *Voucher) IsRedeemable(now time.Time) bool {
	return v.IsActive && now.Before(v.ExpiresAt) && v.UsedCount < v.LimitUser
}
