package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PaymentStatusPending    = "pending"
	PaymentStatusSettlement = "settlement"
	PaymentStatusCancel     = "cancel"
	PaymentStatusDeny       = "deny"
	PaymentStatusExpire     = "expire"
)

// PaymentMetadata is the purchase-time snapshot stored alongside a payment.
// Settlement side effects read the referrer and the commission rate from here,
// never from the request that triggers settlement.
type PaymentMetadata struct {
	ReferrerAffiliateID uint   `json:"referrer_affiliate_id,omitempty"`
	ReferrerUserID      uint   `json:"referrer_user_id,omitempty"`
	ReferralCode        string `json:"referral_code,omitempty"`
	VoucherCode         string `json:"voucher_code,omitempty"`
	OriginalPrice       int64  `json:"original_price"`
	ReferralDiscount    int64  `json:"referral_discount"`
	VoucherDiscount     int64  `json:"voucher_discount"`
	CommissionPercent   string `json:"commission_percent,omitempty"`
	SettingsVersion     int64  `json:"settings_version,omitempty"`
}

func (m PaymentMetadata) HasReferrer() bool {
	return m.ReferrerAffiliateID != 0
}

type Payment struct {
	ID              uint                                `gorm:"primaryKey" json:"id"`
	OrderID         string                              `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_id"`
	UserID          uint                                `gorm:"not null;index" json:"user_id"`
	Plan            string                              `gorm:"type:varchar(20);not null" json:"plan"`
	Amount          int64                               `gorm:"not null" json:"amount"`
	OriginalAmount  int64                               `gorm:"not null" json:"original_amount"`
	VoucherID       *uint                               `gorm:"index" json:"voucher_id,omitempty"`
	VoucherDiscount int64                               `gorm:"not null;default:0" json:"voucher_discount"`
	GatewayMetadata datatypes.JSONType[PaymentMetadata] `gorm:"type:json" json:"gateway_metadata"`
	Status          string                              `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	PaymentType     string                              `gorm:"type:varchar(50);default:null" json:"payment_type,omitempty"`
	TransactionID   string                              `gorm:"type:varchar(100);default:null" json:"transaction_id,omitempty"`
	SnapToken       string                              `gorm:"type:varchar(255)" json:"-"`
	PaidAt          *time.Time                          `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	ExpiresAt       *time.Time                          `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	CreatedAt       time.Time                           `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time                           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Payment) Metadata() PaymentMetadata {
	return p.GatewayMetadata.Data()
}

func (p *Payment) IsTerminal() bool {
	return IsTerminalPaymentStatus(p.Status)
}

// IsTerminalPaymentStatus reports whether status is one a payment can never leave.
func IsTerminalPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusSettlement, PaymentStatusCancel, PaymentStatusDeny, PaymentStatusExpire:
		return true
	}
	return false
}
