package billing

import (
	"strings"

	"github.com/ManuelReschke/QuizFox/app/models"
)

// Gateway transaction statuses as reported in notifications and status queries.
const (
	gatewayStatusCapture    = "capture"
	gatewayStatusSettlement = "settlement"
	gatewayStatusPending    = "pending"
	gatewayStatusCancel     = "cancel"
	gatewayStatusDeny       = "deny"
	gatewayStatusExpire     = "expire"

	fraudStatusAccept = "accept"
)

// Resolution is what a reported gateway status means for a local payment.
type Resolution int

const (
	// ResolveIgnore leaves the payment untouched and logs the report.
	ResolveIgnore Resolution = iota
	// ResolvePending is a valid report that does not move the payment.
	ResolvePending
	// ResolveTerminal moves a pending payment into the resolved status.
	ResolveTerminal
)

// ResolveOutcome maps a gateway transaction_status/fraud_status pair onto a
// local payment status. The returned status is only meaningful for ResolveTerminal.
func ResolveOutcome(transactionStatus, fraudStatus string) (string, Resolution) {
	ts := strings.ToLower(strings.TrimSpace(transactionStatus))
	fs := strings.ToLower(strings.TrimSpace(fraudStatus))

	switch ts {
	case gatewayStatusSettlement:
		return models.PaymentStatusSettlement, ResolveTerminal
	case gatewayStatusCapture:
		if fs == fraudStatusAccept {
			return models.PaymentStatusSettlement, ResolveTerminal
		}
		return "", ResolveIgnore
	case gatewayStatusCancel:
		return models.PaymentStatusCancel, ResolveTerminal
	case gatewayStatusDeny:
		return models.PaymentStatusDeny, ResolveTerminal
	case gatewayStatusExpire:
		return models.PaymentStatusExpire, ResolveTerminal
	case gatewayStatusPending:
		return models.PaymentStatusPending, ResolvePending
	default:
		return "", ResolveIgnore
	}
}

type transition int

const (
	transitionApply transition = iota
	transitionReplay
	transitionStale
	transitionNone
)

// decideTransition applies the terminal-finality rule: only pending payments
// move, a repeat of the current terminal status is a replay, and any other
// report against a terminal payment is stale.
func decideTransition(current, target string) transition {
	if current == models.PaymentStatusPending {
		if target == models.PaymentStatusPending {
			return transitionNone
		}
		return transitionApply
	}
	if current == target {
		return transitionReplay
	}
	return transitionStale
}
