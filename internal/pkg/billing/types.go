package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Notification is the gateway's report about one transaction. The webhook body
// and the status endpoint response share this shape.
type Notification struct {
	OrderID           string `json:"order_id" validate:"required"`
	TransactionStatus string `json:"transaction_status" validate:"required"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code" validate:"required"`
	GrossAmount       string `json:"gross_amount" validate:"required"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type"`
	TransactionID     string `json:"transaction_id"`
	StatusMessage     string `json:"status_message,omitempty"`
}

// EventKey identifies a delivery for deduplication in the webhook audit log.
func (n Notification) EventKey() string {
	sum := sha256.Sum256([]byte(n.OrderID + "|" + n.TransactionStatus + "|" + n.StatusCode + "|" + n.TransactionID))
	return hex.EncodeToString(sum[:])
}

// CheckoutInput is the buyer's purchase request.
type CheckoutInput struct {
	Plan         string `json:"plan" validate:"required"`
	ReferralCode string `json:"referral_code" validate:"omitempty,max=32"`
	VoucherCode  string `json:"voucher_code" validate:"omitempty,max=50"`
}

type CheckoutResult struct {
	OrderID          string `json:"order_id"`
	Token            string `json:"token"`
	RedirectURL      string `json:"redirect_url"`
	Plan             string `json:"plan"`
	OriginalPrice    int64  `json:"original_price"`
	ReferralDiscount int64  `json:"referral_discount"`
	VoucherDiscount  int64  `json:"voucher_discount"`
	Amount           int64  `json:"amount"`
}

// Outcome describes what a notification or verification did to a payment.
type Outcome string

const (
	OutcomeApplied      Outcome = "applied"
	OutcomeReplayed     Outcome = "replayed"
	OutcomeStale        Outcome = "stale"
	OutcomeIgnored      Outcome = "ignored"
	OutcomePending      Outcome = "pending"
	OutcomeUnknownOrder Outcome = "unknown_order"
)

type TransitionResult struct {
	OrderID       string     `json:"order_id"`
	Outcome       Outcome    `json:"outcome"`
	Status        string     `json:"status"`
	Plan          string     `json:"plan,omitempty"`
	PlanExpiresAt *time.Time `json:"plan_expires_at,omitempty"`
}
