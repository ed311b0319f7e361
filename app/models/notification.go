package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	NotificationAudienceUser  = "user"
	NotificationAudienceAdmin = "admin"
)

const (
	NotificationTypePaymentSettled     = "payment_settled"
	NotificationTypeCommissionEarned   = "commission_earned"
	NotificationTypeWithdrawalRequest  = "withdrawal_requested"
	NotificationTypeWithdrawalApproved = "withdrawal_approved"
	NotificationTypeWithdrawalRejected = "withdrawal_rejected"
)

type Notification struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index" json:"user_id"` // 0 for admin broadcasts
	Audience    string         `gorm:"type:varchar(16);not null;default:'user';index" json:"audience" validate:"oneof=user admin"`
	Type        string         `gorm:"type:varchar(50)" json:"type"`
	Content     string         `gorm:"type:text" json:"content"`
	IsRead      bool           `gorm:"default:false" json:"is_read"`
	ReferenceID uint           `json:"reference_id"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// CreateNotification stores a new unread notification.
func CreateNotification(db *gorm.DB, userID uint, audience, notificationType, content string, referenceID uint) error {
	notification := Notification{
		UserID:      userID,
		Audience:    audience,
		Type:        notificationType,
		Content:     content,
		ReferenceID: referenceID,
		IsRead:      false,
	}

	return db.Create(&notification).Error
}
