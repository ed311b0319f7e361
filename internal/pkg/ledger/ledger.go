// Package ledger is the relational store behind settlement and the affiliate
// balance. Every write a settlement or withdrawal performs goes through one
// Store.Transaction so that either all of it commits or none of it does.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/ManuelReschke/QuizFox/app/models"
)

var (
	ErrNotFound  = errors.New("ledger: record not found")
	ErrDuplicate = errors.New("ledger: duplicate record")
	// ErrGuardFailed is returned when a guarded update matched no row: the
	// payment was no longer pending, the balance was too low, or the
	// withdrawal had already been processed.
	ErrGuardFailed = errors.New("ledger: guarded update matched no rows")
)

// Store runs fn inside a single database transaction. A non-nil error from fn
// rolls back every write fn made.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of reads and writes available inside a transaction.
// Lock* methods take a row lock that is held until the transaction ends.
type Tx interface {
	CreatePayment(p *models.Payment) error
	GetPayment(orderID string) (*models.Payment, error)
	LockPayment(orderID string) (*models.Payment, error)
	// TransitionPayment persists status, payment type, transaction id, paid_at
	// and expires_at, but only while the stored status still equals from.
	TransitionPayment(p *models.Payment, from string) error
	ListPaymentsByUser(userID uint) ([]models.Payment, error)
	ListPendingPayments(createdBefore time.Time, limit int) ([]models.Payment, error)

	GetUser(id uint) (*models.User, error)
	UpdateUserPlan(userID uint, plan string, expiresAt *time.Time) error
	DowngradeExpiredPlans(now time.Time) (int64, error)

	CreateAffiliate(a *models.Affiliate) error
	GetAffiliate(id uint) (*models.Affiliate, error)
	GetAffiliateByUserID(userID uint) (*models.Affiliate, error)
	GetAffiliateByCode(code string) (*models.Affiliate, error)
	LockAffiliate(id uint) (*models.Affiliate, error)
	SetAffiliateActive(id uint, active bool) error
	UpdateReferralCode(id uint, code string) error
	// CreditAffiliate adds a commission: balance and total_earned grow by
	// amount, total_referrals by one.
	CreditAffiliate(id uint, amount int64) error
	// DebitAffiliate subtracts amount only while balance >= amount.
	DebitAffiliate(id uint, amount int64) error
	RestoreAffiliateBalance(id uint, amount int64) error

	HasReferralTransaction(paymentID uint) (bool, error)
	CreateReferralTransaction(rt *models.ReferralTransaction) error

	GetVoucher(id uint) (*models.Voucher, error)
	GetVoucherByCode(code string) (*models.Voucher, error)
	CreateVoucher(v *models.Voucher) error
	// IncrementVoucherUsage bumps used_count while it is below limit_user and
	// reports whether the increment happened.
	IncrementVoucherUsage(id uint) (bool, error)

	CreateWithdrawal(w *models.Withdrawal) error
	LockWithdrawal(id uint) (*models.Withdrawal, error)
	// FinalizeWithdrawal writes status, notes and processing fields while the
	// stored status is still pending.
	FinalizeWithdrawal(w *models.Withdrawal) error
	ListWithdrawalsByAffiliate(affiliateID uint) ([]models.Withdrawal, error)

	// RecordWebhookEvent inserts the event unless (provider, event_key) exists.
	// It reports whether a new row was created; e always ends up populated.
	RecordWebhookEvent(e *models.BillingWebhookEvent) (bool, error)
	MarkWebhookProcessed(id uint, outcome, processingError string, at time.Time) error
}
