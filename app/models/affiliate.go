package models

import "time"

type Affiliate struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	ReferralCode   string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"referral_code"`
	IsActive       bool      `gorm:"not null;default:false" json:"is_active"`
	Balance        int64     `gorm:"not null;default:0" json:"balance"`
	TotalEarned    int64     `gorm:"not null;default:0" json:"total_earned"`
	TotalReferrals int64     `gorm:"not null;default:0" json:"total_referrals"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

const ReferralStatusCredited = "credited"

// ReferralTransaction is the per-payment commission record. PaymentID is unique,
// so a payment credits its referrer at most once.
type ReferralTransaction struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	AffiliateID       uint      `gorm:"not null;index" json:"affiliate_id"`
	ReferredUserID    uint      `gorm:"not null;index" json:"referred_user_id"`
	PaymentID         uint      `gorm:"not null;uniqueIndex" json:"payment_id"`
	OrderAmount       int64     `gorm:"not null" json:"order_amount"`
	DiscountGiven     int64     `gorm:"not null;default:0" json:"discount_given"`
	CommissionEarned  int64     `gorm:"not null" json:"commission_earned"`
	CommissionPercent string    `gorm:"type:varchar(16);not null" json:"commission_percent"`
	Status            string    `gorm:"type:varchar(16);not null;default:'credited'" json:"status"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}
