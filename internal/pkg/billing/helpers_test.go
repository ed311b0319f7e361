package billing

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/ManuelReschke/QuizFox/app/models"
	"github.com/ManuelReschke/QuizFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/QuizFox/internal/pkg/ledger/ledgertest"
	"github.com/ManuelReschke/QuizFox/internal/pkg/notify"
)

const testServerKey = "SB-Mid-server-test"

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeGateway struct {
	mu          sync.Mutex
	token       TransactionToken
	createErr   error
	statuses    map[string]Notification
	statusErr   error
	requests    []TransactionRequest
	statusCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		token:    TransactionToken{Token: "snap-token", RedirectURL: "https://pay.example/snap-token"},
		statuses: map[string]Notification{},
	}
}

func (g *fakeGateway) CreateTransaction(ctx context.Context, req TransactionRequest) (*TransactionToken, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.createErr != nil {
		return nil, g.createErr
	}
	token := g.token
	return &token, nil
}

func (g *fakeGateway) TransactionStatus(ctx context.Context, orderID string) (*Notification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	status, ok := g.statuses[orderID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return &status, nil
}

func (g *fakeGateway) setStatus(orderID, transactionStatus, fraudStatus string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[orderID] = Notification{
		OrderID:           orderID,
		TransactionStatus: transactionStatus,
		FraudStatus:       fraudStatus,
		StatusCode:        "200",
		GrossAmount:       "299000.00",
		PaymentType:       "bank_transfer",
		TransactionID:     "tx-" + orderID,
	}
}

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recorder) notifier() notify.Notifier {
	return notify.Func(func(ctx context.Context, msg notify.Message) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.msgs = append(r.msgs, msg)
	})
}

func (r *recorder) ofType(typ string) []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Message
	for _, m := range r.msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

type archiveRecorder struct {
	mu     sync.Mutex
	orders []string
}

func (a *archiveRecorder) ArchiveNotification(ctx context.Context, orderID string, payload []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.orders = append(a.orders, orderID)
	return nil
}

type fixture struct {
	svc      *Service
	store    *ledgertest.Store
	gateway  *fakeGateway
	settings *ledgertest.Settings
	notes    *recorder
	archive  *archiveRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    ledgertest.New(),
		gateway:  newFakeGateway(),
		settings: ledgertest.NewSettings(models.ProgramSettings{CommissionPercentage: 10, ReferralDiscountPercentage: 10, MinWithdrawal: 50000, Version: 1}),
		notes:    &recorder{},
		archive:  &archiveRecorder{},
	}
	cfg := Config{
		ServerKey: testServerKey,
		Prices: map[entitlements.Plan]int64{
			entitlements.PlanPro:     299000,
			entitlements.PlanPremium: 2990000,
		},
		GatewayTimeout: time.Second,
	}
	f.svc = NewService(f.store, f.gateway, f.settings, cfg,
		WithNotifier(f.notes.notifier()),
		WithArchiver(f.archive),
		WithClock(func() time.Time { return testNow }),
	)
	return f
}

// seedReferredPayment creates a buyer, a referrer with an active affiliate
// account and a pending PRO payment that records the referral.
func (f *fixture) seedReferredPayment(commissionPercent string) (models.User, models.Affiliate, models.Payment) {
	buyer := f.store.AddUser(models.User{Name: "buyer", Email: "buyer@example.com"})
	referrer := f.store.AddUser(models.User{Name: "referrer", Email: "ref@example.com"})
	aff := f.store.AddAffiliate(models.Affiliate{UserID: referrer.ID, ReferralCode: "REFER1", IsActive: true})

	orderID := NewOrderID(buyer.ID, entitlements.PlanPro, testNow.Add(-time.Hour))
	p := f.store.AddPayment(models.Payment{
		OrderID:        orderID,
		UserID:         buyer.ID,
		Plan:           "PRO",
		Amount:         269100,
		OriginalAmount: 299000,
		Status:         models.PaymentStatusPending,
		CreatedAt:      testNow.Add(-time.Hour),
		GatewayMetadata: datatypes.NewJSONType(models.PaymentMetadata{
			ReferrerAffiliateID: aff.ID,
			ReferrerUserID:      referrer.ID,
			ReferralCode:        aff.ReferralCode,
			OriginalPrice:       299000,
			ReferralDiscount:    29900,
			CommissionPercent:   commissionPercent,
		}),
	})
	return buyer, aff, p
}

func signedNotification(orderID, transactionStatus, fraudStatus string) Notification {
	n := Notification{
		OrderID:           orderID,
		TransactionStatus: transactionStatus,
		FraudStatus:       fraudStatus,
		StatusCode:        "200",
		GrossAmount:       "269100.00",
		PaymentType:       "bank_transfer",
		TransactionID:     "tx-" + orderID,
	}
	n.SignatureKey = NotificationSignature(n.OrderID, n.StatusCode, n.GrossAmount, testServerKey)
	return n
}

func payloadOf(n Notification) []byte {
	b, _ := json.Marshal(n)
	return b
}
