package billing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/QuizFox/internal/pkg/entitlements"
)

const orderIDPrefix = "QF"

// OrderRef is the information encoded in an order id.
type OrderRef struct {
	UserID    uint
	Plan      entitlements.Plan
	CreatedAt time.Time
}

// NewOrderID formats QF-<userID>-<PLAN>-<unixMillis>.
func NewOrderID(userID uint, plan entitlements.Plan, at time.Time) string {
	return fmt.Sprintf("%s-%d-%s-%d", orderIDPrefix, userID, plan, at.UnixMilli())
}

// ParseOrderID decodes an order id produced by NewOrderID.
func ParseOrderID(orderID string) (OrderRef, error) {
	parts := strings.Split(strings.TrimSpace(orderID), "-")
	if len(parts) != 4 || parts[0] != orderIDPrefix {
		return OrderRef{}, Describe(ErrMalformedOrderID, fmt.Sprintf("order id %q is malformed", orderID))
	}

	userID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil || userID == 0 {
		return OrderRef{}, Describe(ErrMalformedOrderID, fmt.Sprintf("order id %q has an invalid user id", orderID))
	}

	plan, ok := entitlements.Normalize(parts[2])
	if !ok || !plan.Purchasable() || string(plan) != parts[2] {
		return OrderRef{}, Describe(ErrMalformedOrderID, fmt.Sprintf("order id %q has an invalid plan", orderID))
	}

	millis, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil || millis <= 0 {
		return OrderRef{}, Describe(ErrMalformedOrderID, fmt.Sprintf("order id %q has an invalid timestamp", orderID))
	}

	return OrderRef{
		UserID:    uint(userID),
		Plan:      plan,
		CreatedAt: time.UnixMilli(millis).UTC(),
	}, nil
}
