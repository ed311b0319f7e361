package entitlements

import (
	"strings"
	"time"
)

type Plan string

const (
	PlanFree    Plan = "FREE"
	PlanPro     Plan = "PRO"
	PlanPremium Plan = "PREMIUM"
)

// Normalize maps user input onto a known plan. Unknown values report ok=false.
func Normalize(plan string) (Plan, bool) {
	switch Plan(strings.ToUpper(strings.TrimSpace(plan))) {
	case PlanFree:
		return PlanFree, true
	case PlanPro:
		return PlanPro, true
	case PlanPremium:
		return PlanPremium, true
	default:
		return "", false
	}
}

// Purchasable reports whether the plan can be bought through checkout.
func (p Plan) Purchasable() bool {
	return p == PlanPro || p == PlanPremium
}

// TermMonths returns how many calendar months one purchase of the plan grants.
func (p Plan) TermMonths() int {
	switch p {
	case PlanPro:
		return 1
	case PlanPremium:
		return 12
	default:
		return 0
	}
}

// ExpiryFrom returns the entitlement end for a purchase settled at now.
// The term starts at now; any remaining time on a previous plan is not carried over.
func (p Plan) ExpiryFrom(now time.Time) time.Time {
	return now.AddDate(0, p.TermMonths(), 0)
}

// Rank orders plans by tier, higher is better.
func Rank(p Plan) int {
	switch p {
	case PlanPremium:
		return 2
	case PlanPro:
		return 1
	default:
		return 0
	}
}

// Effective returns the plan a user is entitled to at now, falling back to free
// once the stored expiry has passed.
func Effective(plan string, expiresAt *time.Time, now time.Time) Plan {
	p, ok := Normalize(plan)
	if !ok || p == PlanFree {
		return PlanFree
	}
	if expiresAt != nil && !expiresAt.After(now) {
		return PlanFree
	}
	return p
}
