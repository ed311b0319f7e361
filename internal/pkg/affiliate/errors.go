package affiliate

import "github.com/ManuelReschke/QuizFox/internal/pkg/billing"

var (
	ErrAffiliateNotFound     = billing.NewError(billing.KindNotFound, "affiliate_not_found", "affiliate account not found")
	ErrAffiliateInactive     = billing.NewError(billing.KindValidation, "affiliate_inactive", "affiliate account is not active")
	ErrBelowMinimum          = billing.NewError(billing.KindValidation, "below_min_withdrawal", "amount is below the minimum withdrawal")
	ErrInsufficientFunds     = billing.NewError(billing.KindInsufficientFunds, "insufficient_funds", "amount exceeds the available balance")
	ErrWithdrawalNotFound    = billing.NewError(billing.KindNotFound, "withdrawal_not_found", "withdrawal not found")
	ErrAlreadyProcessed      = billing.NewError(billing.KindConflict, "withdrawal_already_processed", "withdrawal was already processed")
	ErrInvalidAction         = billing.NewError(billing.KindValidation, "invalid_action", "action must be approve or reject")
	ErrDuplicateReferralCode = billing.NewError(billing.KindConflict, "duplicate_referral_code", "referral code is already taken")
)
