package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/QuizFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/QuizFox/internal/pkg/ledger"
)

// GrantPlan sets the user's plan and returns the new expiry. It must only be
// called on the pending to settlement edge, inside the settlement transaction.
func GrantPlan(tx ledger.Tx, userID uint, plan entitlements.Plan, now time.Time) (time.Time, error) {
	if !plan.Purchasable() {
		return time.Time{}, Describe(ErrInvalidPlan, fmt.Sprintf("plan %q cannot be granted", plan))
	}
	if _, err := tx.GetUser(userID); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return time.Time{}, Describe(ErrUserNotFound, fmt.Sprintf("user %d not found", userID))
		}
		return time.Time{}, fmt.Errorf("load user %d: %w", userID, err)
	}

	expiresAt := plan.ExpiryFrom(now)
	if err := tx.UpdateUserPlan(userID, string(plan), &expiresAt); err != nil {
		return time.Time{}, fmt.Errorf("update plan for user %d: %w", userID, err)
	}
	return expiresAt, nil
}
