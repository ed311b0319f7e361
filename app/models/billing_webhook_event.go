package models

import "time"

const BillingProviderMidtrans = "midtrans"

const (
	WebhookOutcomeApplied  = "applied"
	WebhookOutcomeReplayed = "replayed"
	WebhookOutcomeStale    = "stale"
	WebhookOutcomeIgnored  = "ignored"
	WebhookOutcomeUnknown  = "unknown_order"
)

// BillingWebhookEvent stores gateway notification payloads with deduplication
// metadata. A redelivery of the same notification maps to the same EventKey.
type BillingWebhookEvent struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Provider          string     `gorm:"type:varchar(20);not null;index:ux_billing_webhook_events_provider_event,unique,priority:1" json:"provider"`
	EventKey          string     `gorm:"type:char(64);not null;index:ux_billing_webhook_events_provider_event,unique,priority:2" json:"event_key"`
	OrderID           string     `gorm:"type:varchar(64);not null;index" json:"order_id"`
	TransactionStatus string     `gorm:"type:varchar(32);not null" json:"transaction_status"`
	PayloadJSON       string     `gorm:"type:longtext;not null" json:"payload_json"`
	SignatureValid    bool       `gorm:"default:false;index" json:"signature_valid"`
	Outcome           string     `gorm:"type:varchar(32);default:null" json:"outcome,omitempty"`
	ProcessedAt       *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError   string     `gorm:"type:text" json:"processing_error"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
