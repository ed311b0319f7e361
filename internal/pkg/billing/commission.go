package billing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// percentOf returns floor(amount * percent / 100) in the smallest currency unit.
func percentOf(amount int64, percent decimal.Decimal) int64 {
	if amount <= 0 || !percent.IsPositive() {
		return 0
	}
	return decimal.NewFromInt(amount).Mul(percent).Div(hundred).Floor().IntPart()
}

// ComputeCommission is the referrer's share of the pre-discount order amount.
func ComputeCommission(originalAmount int64, percent decimal.Decimal) int64 {
	return percentOf(originalAmount, percent)
}

// parsePercent reads a percentage snapshot stored as a decimal string.
func parsePercent(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() || d.GreaterThan(hundred) {
		return decimal.Zero, false
	}
	return d, true
}

// Quote is the price breakdown of a checkout.
type Quote struct {
	OriginalPrice    int64
	ReferralDiscount int64
	VoucherDiscount  int64
	Amount           int64
}

// quotePrice applies the referral discount to the original price and the
// voucher discount to what remains.
func quotePrice(original int64, referralPercent, voucherPercent decimal.Decimal) Quote {
	q := Quote{OriginalPrice: original}
	q.ReferralDiscount = percentOf(original, referralPercent)
	afterReferral := original - q.ReferralDiscount
	q.VoucherDiscount = percentOf(afterReferral, voucherPercent)
	q.Amount = afterReferral - q.VoucherDiscount
	return q
}
