package ledgertest

import (
	"time"

	"github.com/ManuelReschke/QuizFox/app/models"
	"github.com/ManuelReschke/QuizFox/internal/pkg/ledger"
)

type memTx struct {
	st       *state
	failures map[string]error
}

var _ ledger.Tx = (*memTx)(nil)

func (t *memTx) fail(method string) error {
	return t.failures[method]
}

func (t *memTx) CreatePayment(p *models.Payment) error {
	if err := t.fail("CreatePayment"); err != nil {
		return err
	}
	for _, existing := range t.st.payments {
		if existing.OrderID == p.OrderID {
			return ledger.ErrDuplicate
		}
	}
	p.ID = t.st.id()
	if p.Status == "" {
		p.Status = models.PaymentStatusPending
	}
	stamp(&p.CreatedAt)
	p.UpdatedAt = p.CreatedAt
	t.st.payments[p.ID] = *p
	return nil
}

func (t *memTx) GetPayment(orderID string) (*models.Payment, error) {
	if err := t.fail("GetPayment"); err != nil {
		return nil, err
	}
	for _, p := range t.st.payments {
		if p.OrderID == orderID {
			return &p, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (t *memTx) LockPayment(orderID string) (*models.Payment, error) {
	if err := t.fail("LockPayment"); err != nil {
		return nil, err
	}
	return t.GetPayment(orderID)
}

func (t *memTx) TransitionPayment(p *models.Payment, from string) error {
	if err := t.fail("TransitionPayment"); err != nil {
		return err
	}
	stored, ok := t.st.payments[p.ID]
	if !ok || stored.Status != from {
		return ledger.ErrGuardFailed
	}
	stored.Status = p.Status
	stored.PaymentType = p.PaymentType
	stored.TransactionID = p.TransactionID
	stored.PaidAt = p.PaidAt
	stored.ExpiresAt = p.ExpiresAt
	stored.UpdatedAt = time.Now()
	t.st.payments[p.ID] = stored
	return nil
}

func (t *memTx) ListPaymentsByUser(userID uint) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range sortedValues(t.st.payments, func(p models.Payment) uint { return p.ID }) {
		if p.UserID == userID {
			out = append([]models.Payment{p}, out...)
		}
	}
	return out, nil
}

func (t *memTx) ListPendingPayments(createdBefore time.Time, limit int) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range sortedValues(t.st.payments, func(p models.Payment) uint { return p.ID }) {
		if p.Status == models.PaymentStatusPending && p.CreatedAt.Before(createdBefore) {
			out = append(out, p)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (t *memTx) GetUser(id uint) (*models.User, error) {
	if err := t.fail("GetUser"); err != nil {
		return nil, err
	}
	u, ok := t.st.users[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &u, nil
}

func (t *memTx) UpdateUserPlan(userID uint, plan string, expiresAt *time.Time) error {
	if err := t.fail("UpdateUserPlan"); err != nil {
		return err
	}
	u, ok := t.st.users[userID]
	if !ok {
		return nil
	}
	u.Plan = plan
	u.PlanExpiresAt = expiresAt
	t.st.users[userID] = u
	return nil
}

func (t *memTx) DowngradeExpiredPlans(now time.Time) (int64, error) {
	var n int64
	for id, u := range t.st.users {
		if u.Plan != "FREE" && u.PlanExpiresAt != nil && !u.PlanExpiresAt.After(now) {
			u.Plan = "FREE"
			u.PlanExpiresAt = nil
			t.st.users[id] = u
			n++
		}
	}
	return n, nil
}

func (t *memTx) CreateAffiliate(a *models.Affiliate) error {
	if err := t.fail("CreateAffiliate"); err != nil {
		return err
	}
	for _, existing := range t.st.affiliates {
		if existing.UserID == a.UserID || existing.ReferralCode == a.ReferralCode {
			return ledger.ErrDuplicate
		}
	}
	a.ID = t.st.id()
	stamp(&a.CreatedAt)
	t.st.affiliates[a.ID] = *a
	return nil
}

func (t *memTx) GetAffiliate(id uint) (*models.Affiliate, error) {
	a, ok := t.st.affiliates[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &a, nil
}

func (t *memTx) GetAffiliateByUserID(userID uint) (*models.Affiliate, error) {
	for _, a := range t.st.affiliates {
		if a.UserID == userID {
			return &a, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (t *memTx) GetAffiliateByCode(code string) (*models.Affiliate, error) {
	for _, a := range t.st.affiliates {
		if a.ReferralCode == code {
			return &a, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (t *memTx) LockAffiliate(id uint) (*models.Affiliate, error) {
	if err := t.fail("LockAffiliate"); err != nil {
		return nil, err
	}
	return t.GetAffiliate(id)
}

func (t *memTx) SetAffiliateActive(id uint, active bool) error {
	a, ok := t.st.affiliates[id]
	if !ok {
		return nil
	}
	a.IsActive = active
	t.st.affiliates[id] = a
	return nil
}

func (t *memTx) UpdateReferralCode(id uint, code string) error {
	for _, existing := range t.st.affiliates {
		if existing.ID != id && existing.ReferralCode == code {
			return ledger.ErrDuplicate
		}
	}
	a, ok := t.st.affiliates[id]
	if !ok {
		return nil
	}
	a.ReferralCode = code
	t.st.affiliates[id] = a
	return nil
}

func (t *memTx) CreditAffiliate(id uint, amount int64) error {
	if err := t.fail("CreditAffiliate"); err != nil {
		return err
	}
	a, ok := t.st.affiliates[id]
	if !ok {
		return ledger.ErrGuardFailed
	}
	a.Balance += amount
	a.TotalEarned += amount
	a.TotalReferrals++
	t.st.affiliates[id] = a
	return nil
}

func (t *memTx) DebitAffiliate(id uint, amount int64) error {
	if err := t.fail("DebitAffiliate"); err != nil {
		return err
	}
	a, ok := t.st.affiliates[id]
	if !ok || a.Balance < amount {
		return ledger.ErrGuardFailed
	}
	a.Balance -= amount
	t.st.affiliates[id] = a
	return nil
}

func (t *memTx) RestoreAffiliateBalance(id uint, amount int64) error {
	if err := t.fail("RestoreAffiliateBalance"); err != nil {
		return err
	}
	a, ok := t.st.affiliates[id]
	if !ok {
		return ledger.ErrGuardFailed
	}
	a.Balance += amount
	t.st.affiliates[id] = a
	return nil
}

func (t *memTx) HasReferralTransaction(paymentID uint) (bool, error) {
	for _, r := range t.st.referrals {
		if r.PaymentID == paymentID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CreateReferralTransaction(rt *models.ReferralTransaction) error {
	if err := t.fail("CreateReferralTransaction"); err != nil {
		return err
	}
	if exists, _ := t.HasReferralTransaction(rt.PaymentID); exists {
		return ledger.ErrDuplicate
	}
	rt.ID = t.st.id()
	stamp(&rt.CreatedAt)
	t.st.referrals[rt.ID] = *rt
	return nil
}

func (t *memTx) GetVoucher(id uint) (*models.Voucher, error) {
	v, ok := t.st.vouchers[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &v, nil
}

func (t *memTx) GetVoucherByCode(code string) (*models.Voucher, error) {
	for _, v := range t.st.vouchers {
		if v.Code == code {
			return &v, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (t *memTx) CreateVoucher(v *models.Voucher) error {
	if _, err := t.GetVoucherByCode(v.Code); err == nil {
		return ledger.ErrDuplicate
	}
	v.ID = t.st.id()
	stamp(&v.CreatedAt)
	t.st.vouchers[v.ID] = *v
	return nil
}

func (t *memTx) IncrementVoucherUsage(id uint) (bool, error) {
	if err := t.fail("IncrementVoucherUsage"); err != nil {
		return false, err
	}
	v, ok := t.st.vouchers[id]
	if !ok || v.UsedCount >= v.LimitUser {
		return false, nil
	}
	v.UsedCount++
	t.st.vouchers[id] = v
	return true, nil
}

func (t *memTx) CreateWithdrawal(w *models.Withdrawal) error {
	if err := t.fail("CreateWithdrawal"); err != nil {
		return err
	}
	w.ID = t.st.id()
	stamp(&w.CreatedAt)
	t.st.withdrawals[w.ID] = *w
	return nil
}

func (t *memTx) LockWithdrawal(id uint) (*models.Withdrawal, error) {
	w, ok := t.st.withdrawals[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &w, nil
}

func (t *memTx) FinalizeWithdrawal(w *models.Withdrawal) error {
	if err := t.fail("FinalizeWithdrawal"); err != nil {
		return err
	}
	stored, ok := t.st.withdrawals[w.ID]
	if !ok || stored.Status != models.WithdrawalStatusPending {
		return ledger.ErrGuardFailed
	}
	stored.Status = w.Status
	stored.AdminNotes = w.AdminNotes
	stored.ProcessedAt = w.ProcessedAt
	stored.ProcessedBy = w.ProcessedBy
	t.st.withdrawals[w.ID] = stored
	return nil
}

func (t *memTx) ListWithdrawalsByAffiliate(affiliateID uint) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	for _, w := range sortedValues(t.st.withdrawals, func(w models.Withdrawal) uint { return w.ID }) {
		if w.AffiliateID == affiliateID {
			out = append([]models.Withdrawal{w}, out...)
		}
	}
	return out, nil
}

func (t *memTx) RecordWebhookEvent(e *models.BillingWebhookEvent) (bool, error) {
	if err := t.fail("RecordWebhookEvent"); err != nil {
		return false, err
	}
	for _, existing := range t.st.events {
		if existing.Provider == e.Provider && existing.EventKey == e.EventKey {
			*e = existing
			return false, nil
		}
	}
	e.ID = t.st.id()
	stamp(&e.CreatedAt)
	t.st.events[e.ID] = *e
	return true, nil
}

func (t *memTx) MarkWebhookProcessed(id uint, outcome, processingError string, at time.Time) error {
	e, ok := t.st.events[id]
	if !ok {
		return nil
	}
	e.Outcome = outcome
	e.ProcessingError = processingError
	e.ProcessedAt = &at
	t.st.events[id] = e
	return nil
}
