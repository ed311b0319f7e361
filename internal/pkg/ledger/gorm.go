package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/ManuelReschke/QuizFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store backed by GORM. The database must be opened
// with TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) forUpdate() *gorm.DB {
	return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func guarded(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrGuardFailed
	}
	return nil
}

// Payments

func (t *gormTx) CreatePayment(p *models.Payment) error {
	return translate(t.db.Create(p).Error)
}

func (t *gormTx) GetPayment(orderID string) (*models.Payment, error) {
	var p models.Payment
	if err := t.db.Where("order_id = ?", orderID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (t *gormTx) LockPayment(orderID string) (*models.Payment, error) {
	var p models.Payment
	if err := t.forUpdate().Where("order_id = ?", orderID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (t *gormTx) TransitionPayment(p *models.Payment, from string) error {
	updates := map[string]interface{}{
		"status":         p.Status,
		"payment_type":   p.PaymentType,
		"transaction_id": p.TransactionID,
		"paid_at":        p.PaidAt,
		"expires_at":     p.ExpiresAt,
	}
	return guarded(t.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", p.ID, from).
		Updates(updates))
}

func (t *gormTx) ListPaymentsByUser(userID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := t.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

func (t *gormTx) ListPendingPayments(createdBefore time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := t.db.Where("status = ? AND created_at < ?", models.PaymentStatusPending, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

// Users

func (t *gormTx) GetUser(id uint) (*models.User, error) {
	var u models.User
	if err := t.db.First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (t *gormTx) UpdateUserPlan(userID uint, plan string, expiresAt *time.Time) error {
	return t.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"plan": plan, "plan_expires_at": expiresAt}).Error
}

func (t *gormTx) DowngradeExpiredPlans(now time.Time) (int64, error) {
	res := t.db.Model(&models.User{}).
		Where("plan <> ? AND plan_expires_at IS NOT NULL AND plan_expires_at <= ?", "FREE", now).
		Updates(map[string]interface{}{"plan": "FREE", "plan_expires_at": nil})
	return res.RowsAffected, res.Error
}

// Affiliates

func (t *gormTx) CreateAffiliate(a *models.Affiliate) error {
	return translate(t.db.Create(a).Error)
}

func (t *gormTx) GetAffiliate(id uint) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := t.db.First(&a, id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (t *gormTx) GetAffiliateByUserID(userID uint) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := t.db.Where("user_id = ?", userID).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (t *gormTx) GetAffiliateByCode(code string) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := t.db.Where("referral_code = ?", code).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (t *gormTx) LockAffiliate(id uint) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := t.forUpdate().First(&a, id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (t *gormTx) SetAffiliateActive(id uint, active bool) error {
	res := t.db.Model(&models.Affiliate{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return translate(res.Error)
	}
	return nil
}

func (t *gormTx) UpdateReferralCode(id uint, code string) error {
	return translate(t.db.Model(&models.Affiliate{}).Where("id = ?", id).Update("referral_code", code).Error)
}

func (t *gormTx) CreditAffiliate(id uint, amount int64) error {
	return guarded(t.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"balance":         gorm.Expr("balance + ?", amount),
			"total_earned":    gorm.Expr("total_earned + ?", amount),
			"total_referrals": gorm.Expr("total_referrals + 1"),
		}))
}

func (t *gormTx) DebitAffiliate(id uint, amount int64) error {
	return guarded(t.db.Model(&models.Affiliate{}).
		Where("id = ? AND balance >= ?", id, amount).
		Update("balance", gorm.Expr("balance - ?", amount)))
}

func (t *gormTx) RestoreAffiliateBalance(id uint, amount int64) error {
	return guarded(t.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", amount)))
}

// Referral transactions

func (t *gormTx) HasReferralTransaction(paymentID uint) (bool, error) {
	var count int64
	err := t.db.Model(&models.ReferralTransaction{}).Where("payment_id = ?", paymentID).Count(&count).Error
	return count > 0, err
}

func (t *gormTx) CreateReferralTransaction(rt *models.ReferralTransaction) error {
	res := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payment_id"}},
		DoNothing: true,
	}).Create(rt)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

// Vouchers

func (t *gormTx) GetVoucher(id uint) (*models.Voucher, error) {
	var v models.Voucher
	if err := t.db.First(&v, id).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (t *gormTx) GetVoucherByCode(code string) (*models.Voucher, error) {
	var v models.Voucher
	if err := t.db.Where("code = ?", code).First(&v).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (t *gormTx) CreateVoucher(v *models.Voucher) error {
	return translate(t.db.Create(v).Error)
}

func (t *gormTx) IncrementVoucherUsage(id uint) (bool, error) {
	res := t.db.Model(&models.Voucher{}).
		Where("id = ? AND used_count < limit_user", id).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Withdrawals

func (t *gormTx) CreateWithdrawal(w *models.Withdrawal) error {
	return translate(t.db.Create(w).Error)
}

func (t *gormTx) LockWithdrawal(id uint) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := t.forUpdate().First(&w, id).Error; err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

func (t *gormTx) FinalizeWithdrawal(w *models.Withdrawal) error {
	return guarded(t.db.Model(&models.Withdrawal{}).
		Where("id = ? AND status = ?", w.ID, models.WithdrawalStatusPending).
		Updates(map[string]interface{}{
			"status":       w.Status,
			"admin_notes":  w.AdminNotes,
			"processed_at": w.ProcessedAt,
			"processed_by": w.ProcessedBy,
		}))
}

func (t *gormTx) ListWithdrawalsByAffiliate(affiliateID uint) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := t.db.Where("affiliate_id = ?", affiliateID).Order("created_at DESC").Find(&withdrawals).Error
	return withdrawals, err
}

// Webhook events

func (t *gormTx) RecordWebhookEvent(e *models.BillingWebhookEvent) (bool, error) {
	res := t.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "event_key"},
		},
		DoNothing: true,
	}).Create(e)
	if res.Error != nil {
		return false, res.Error
	}

	created := res.RowsAffected > 0
	if err := t.db.Where("provider = ? AND event_key = ?", e.Provider, e.EventKey).First(e).Error; err != nil {
		return false, translate(err)
	}
	return created, nil
}

func (t *gormTx) MarkWebhookProcessed(id uint, outcome, processingError string, at time.Time) error {
	updates := map[string]interface{}{
		"outcome":          outcome,
		"processed_at":     &at,
		"processing_error": processingError,
	}
	return t.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
