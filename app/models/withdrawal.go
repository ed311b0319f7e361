package models

import "time"

const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
	WithdrawalStatusRejected = "rejected"
)

const (
	WithdrawalActionApprove = "approve"
	WithdrawalActionReject  = "reject"
)

type Withdrawal struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	AffiliateID   uint       `gorm:"not null;index:idx_withdrawals_affiliate_status,priority:1" json:"affiliate_id"`
	Amount        int64      `gorm:"not null" json:"amount"`
	PaymentMethod string     `gorm:"type:varchar(50);not null" json:"payment_method"`
	AccountName   string     `gorm:"type:varchar(150);not null" json:"account_name"`
	AccountNumber string     `gorm:"type:varchar(64);not null" json:"account_number"`
	Status        string     `gorm:"type:varchar(16);not null;default:'pending';index:idx_withdrawals_affiliate_status,priority:2" json:"status"`
	AdminNotes    string     `gorm:"type:text" json:"admin_notes,omitempty"`
	ProcessedAt   *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessedBy   *uint      `json:"processed_by,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (w *Withdrawal) IsPending() bool {
	return w.Status == WithdrawalStatusPending
}
