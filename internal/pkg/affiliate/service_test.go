package affiliate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/QuizFox/app/models"
	"github.com/ManuelReschke/QuizFox/internal/pkg/billing"
	"github.com/ManuelReschke/QuizFox/internal/pkg/ledger/ledgertest"
	"github.com/ManuelReschke/QuizFox/internal/pkg/notify"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	store    *ledgertest.Store
	settings *ledgertest.Settings

	mu    sync.Mutex
	notes []notify.Message
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:    ledgertest.New(),
		settings: ledgertest.NewSettings(models.ProgramSettings{CommissionPercentage: 10, ReferralDiscountPercentage: 10, MinWithdrawal: 50000, Version: 1}),
	}
	opts = append([]Option{
		WithClock(func() time.Time { return testNow }),
		WithNotifier(notify.Func(func(ctx context.Context, msg notify.Message) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.notes = append(f.notes, msg)
		})),
	}, opts...)
	f.svc = NewService(f.store, f.settings, opts...)
	return f
}

func (f *fixture) messages() []notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Message(nil), f.notes...)
}

func (f *fixture) seedAffiliate(balance int64, active bool) (models.User, models.Affiliate) {
	u := f.store.AddUser(models.User{Name: "affiliate", Email: "aff@example.com"})
	a := f.store.AddAffiliate(models.Affiliate{UserID: u.ID, ReferralCode: fmt.Sprintf("CODE%d", u.ID), IsActive: active, Balance: balance, TotalEarned: balance})
	return u, a
}

func bankTransfer(amount int64) WithdrawalInput {
	return WithdrawalInput{Amount: amount, PaymentMethod: "bank_transfer", AccountName: "Jo Doe", AccountNumber: "1234567890"}
}

func TestWithdrawalRejectRestoresBalance(t *testing.T) {
	f := newFixture(t)
	u, aff := f.seedAffiliate(100000, true)

	w, err := f.svc.RequestWithdrawal(context.Background(), u.ID, bankTransfer(80000))
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusPending, w.Status)
	assert.Equal(t, int64(20000), f.store.Affiliate(aff.ID).Balance)

	requested := f.messages()
	require.Len(t, requested, 1)
	assert.Equal(t, models.NotificationAudienceAdmin, requested[0].Audience)
	assert.Equal(t, models.NotificationTypeWithdrawalRequest, requested[0].Type)

	processed, err := f.svc.ProcessWithdrawal(context.Background(), 7, w.ID, models.WithdrawalActionReject, "account name mismatch")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusRejected, processed.Status)

	stored := f.store.Withdrawal(w.ID)
	assert.Equal(t, models.WithdrawalStatusRejected, stored.Status)
	assert.Equal(t, "account name mismatch", stored.AdminNotes)
	require.NotNil(t, stored.ProcessedAt)
	assert.True(t, stored.ProcessedAt.Equal(testNow))
	require.NotNil(t, stored.ProcessedBy)
	assert.Equal(t, uint(7), *stored.ProcessedBy)

	after := f.store.Affiliate(aff.ID)
	assert.Equal(t, int64(100000), after.Balance)
	assert.Equal(t, int64(100000), after.TotalEarned)

	msgs := f.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, u.ID, msgs[1].UserID)
	assert.Equal(t, models.NotificationTypeWithdrawalRejected, msgs[1].Type)
	assert.Contains(t, msgs[1].Content, "account name mismatch")
}

func TestWithdrawalApproveKeepsDebit(t *testing.T) {
	f := newFixture(t)
	u, aff := f.seedAffiliate(100000, true)

	w, err := f.svc.RequestWithdrawal(context.Background(), u.ID, bankTransfer(60000))
	require.NoError(t, err)

	_, err = f.svc.ProcessWithdrawal(context.Background(), 7, w.ID, models.WithdrawalActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusApproved, f.store.Withdrawal(w.ID).Status)
	assert.Equal(t, int64(40000), f.store.Affiliate(aff.ID).Balance)

	msgs := f.messages()
	assert.Equal(t, models.NotificationTypeWithdrawalApproved, msgs[len(msgs)-1].Type)
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	u, aff := f.seedAffiliate(100000, true)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failures  []error
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RequestWithdrawal(context.Background(), u.ID, bankTransfer(60000))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			succeeded++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], ErrInsufficientFunds)
	assert.Equal(t, billing.KindInsufficientFunds, billing.KindOf(failures[0]))
	assert.Equal(t, int64(40000), f.store.Affiliate(aff.ID).Balance)
	assert.Len(t, f.store.Withdrawals(), 1)
}

func TestRequestWithdrawalRejections(t *testing.T) {
	f := newFixture(t)
	active, _ := f.seedAffiliate(100000, true)
	inactive, _ := f.seedAffiliate(100000, false)
	stranger := f.store.AddUser(models.User{Name: "stranger", Email: "s@example.com"})

	tests := []struct {
		name   string
		userID uint
		in     WithdrawalInput
		want   error
	}{
		{"missing account", active.ID, WithdrawalInput{Amount: 60000, PaymentMethod: "bank_transfer"}, billing.ErrInvalidRequest},
		{"zero amount", active.ID, bankTransfer(0), billing.ErrInvalidRequest},
		{"below minimum", active.ID, bankTransfer(49999), ErrBelowMinimum},
		{"above balance", active.ID, bankTransfer(100001), ErrInsufficientFunds},
		{"inactive affiliate", inactive.ID, bankTransfer(60000), ErrAffiliateInactive},
		{"no affiliate account", stranger.ID, bankTransfer(60000), ErrAffiliateNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RequestWithdrawal(context.Background(), tt.userID, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Empty(t, f.store.Withdrawals())
	assert.Empty(t, f.messages())
}

func TestRequestWithdrawalRollsBackDebit(t *testing.T) {
	f := newFixture(t)
	u, aff := f.seedAffiliate(100000, true)
	f.store.FailOn("CreateWithdrawal", errors.New("disk full"))

	_, err := f.svc.RequestWithdrawal(context.Background(), u.ID, bankTransfer(60000))
	require.Error(t, err)
	assert.Equal(t, int64(100000), f.store.Affiliate(aff.ID).Balance)
	assert.Empty(t, f.messages())
}

func TestProcessWithdrawalOnlyOnce(t *testing.T) {
	f := newFixture(t)
	u, aff := f.seedAffiliate(100000, true)
	w, err := f.svc.RequestWithdrawal(context.Background(), u.ID, bankTransfer(80000))
	require.NoError(t, err)

	_, err = f.svc.ProcessWithdrawal(context.Background(), 7, w.ID, models.WithdrawalActionReject, "first")
	require.NoError(t, err)

	_, err = f.svc.ProcessWithdrawal(context.Background(), 7, w.ID, models.WithdrawalActionReject, "second")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, billing.KindConflict, billing.KindOf(err))

	_, err = f.svc.ProcessWithdrawal(context.Background(), 7, w.ID, models.WithdrawalActionApprove, "")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	assert.Equal(t, int64(100000), f.store.Affiliate(aff.ID).Balance)
	assert.Equal(t, "first", f.store.Withdrawal(w.ID).AdminNotes)
}

func TestProcessWithdrawalRejections(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProcessWithdrawal(context.Background(), 7, 1, "hold", "")
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = f.svc.ProcessWithdrawal(context.Background(), 7, 404, models.WithdrawalActionApprove, "")
	assert.ErrorIs(t, err, ErrWithdrawalNotFound)
}

func TestGetOrCreateAffiliate(t *testing.T) {
	codes := []string{"taken", "fresh01"}
	f := newFixture(t, WithCodeGenerator(func() (string, error) {
		if len(codes) == 0 {
			return "unused", nil
		}
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}))
	other, _ := f.seedAffiliate(0, true)
	f.store.AddAffiliate(models.Affiliate{UserID: other.ID + 100, ReferralCode: "TAKEN"})
	u := f.store.AddUser(models.User{Name: "new", Email: "new@example.com"})

	aff, err := f.svc.GetOrCreateAffiliate(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "FRESH01", aff.ReferralCode)
	assert.False(t, aff.IsActive)
	assert.Zero(t, aff.Balance)

	again, err := f.svc.GetOrCreateAffiliate(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, aff.ID, again.ID)

	_, err = f.svc.GetOrCreateAffiliate(context.Background(), 9999)
	assert.ErrorIs(t, err, billing.ErrUserNotFound)
}

func TestRandomCode(t *testing.T) {
	code, err := randomCode()
	require.NoError(t, err)
	assert.Len(t, code, 8)
	assert.Equal(t, billing.NormalizeCode(code), code)
}

func TestActivateAffiliate(t *testing.T) {
	f := newFixture(t)
	_, aff := f.seedAffiliate(0, false)

	updated, err := f.svc.ActivateAffiliate(context.Background(), aff.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
	assert.True(t, f.store.Affiliate(aff.ID).IsActive)

	_, err = f.svc.ActivateAffiliate(context.Background(), 404, true)
	assert.ErrorIs(t, err, ErrAffiliateNotFound)
}

func TestUpdateReferralCode(t *testing.T) {
	f := newFixture(t)
	u, aff := f.seedAffiliate(0, true)
	_, other := f.seedAffiliate(0, true)
	idle, _ := f.seedAffiliate(0, false)

	updated, err := f.svc.UpdateReferralCode(context.Background(), u.ID, ReferralCodeInput{Code: "quizmaster"})
	require.NoError(t, err)
	assert.Equal(t, "QUIZMASTER", updated.ReferralCode)
	assert.Equal(t, "QUIZMASTER", f.store.Affiliate(aff.ID).ReferralCode)

	_, err = f.svc.UpdateReferralCode(context.Background(), u.ID, ReferralCodeInput{Code: other.ReferralCode})
	assert.ErrorIs(t, err, ErrDuplicateReferralCode)

	_, err = f.svc.UpdateReferralCode(context.Background(), u.ID, ReferralCodeInput{Code: "no spaces"})
	assert.ErrorIs(t, err, billing.ErrInvalidRequest)

	_, err = f.svc.UpdateReferralCode(context.Background(), idle.ID, ReferralCodeInput{Code: "IDLECODE"})
	assert.ErrorIs(t, err, ErrAffiliateInactive)
}

func TestListWithdrawals(t *testing.T) {
	f := newFixture(t)
	u, aff := f.seedAffiliate(200000, true)
	f.store.AddWithdrawal(models.Withdrawal{AffiliateID: aff.ID, Amount: 50000, PaymentMethod: "bank_transfer", AccountName: "Jo", AccountNumber: "1"})
	second := f.store.AddWithdrawal(models.Withdrawal{AffiliateID: aff.ID, Amount: 70000, PaymentMethod: "bank_transfer", AccountName: "Jo", AccountNumber: "1"})

	list, err := f.svc.ListWithdrawals(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	stranger := f.store.AddUser(models.User{Name: "stranger", Email: "s@example.com"})
	empty, err := f.svc.ListWithdrawals(context.Background(), stranger.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)
}
