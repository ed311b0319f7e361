// Package ledgertest provides an in-memory ledger.Store for tests. Transactions
// run one at a time against a copy of the data and are only committed when the
// callback returns nil, so rollback and uniqueness behave like the database.
package ledgertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ManuelReschke/QuizFox/app/models"
	"github.com/ManuelReschke/QuizFox/internal/pkg/ledger"
)

type state struct {
	nextID      uint
	users       map[uint]models.User
	payments    map[uint]models.Payment
	affiliates  map[uint]models.Affiliate
	referrals   map[uint]models.ReferralTransaction
	vouchers    map[uint]models.Voucher
	withdrawals map[uint]models.Withdrawal
	events      map[uint]models.BillingWebhookEvent
}

func newState() *state {
	return &state{
		users:       map[uint]models.User{},
		payments:    map[uint]models.Payment{},
		affiliates:  map[uint]models.Affiliate{},
		referrals:   map[uint]models.ReferralTransaction{},
		vouchers:    map[uint]models.Voucher{},
		withdrawals: map[uint]models.Withdrawal{},
		events:      map[uint]models.BillingWebhookEvent{},
	}
}

func cloneMap[V any](in map[uint]V) map[uint]V {
	out := make(map[uint]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		nextID:      s.nextID,
		users:       cloneMap(s.users),
		payments:    cloneMap(s.payments),
		affiliates:  cloneMap(s.affiliates),
		referrals:   cloneMap(s.referrals),
		vouchers:    cloneMap(s.vouchers),
		withdrawals: cloneMap(s.withdrawals),
		events:      cloneMap(s.events),
	}
}

func (s *state) id() uint {
	s.nextID++
	return s.nextID
}

// assign gives seeded rows an ID and keeps later IDs from colliding with explicit ones.
func (s *state) assign(id *uint) {
	if *id == 0 {
		*id = s.id()
		return
	}
	if *id > s.nextID {
		s.nextID = *id
	}
}

// Store is an in-memory ledger.Store.
type Store struct {
	mu       sync.Mutex
	st       *state
	failures map[string]error
	txCount  int
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState(), failures: map[string]error{}}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txCount++
	work := s.st.clone()
	if err := fn(&memTx{st: work, failures: s.failures}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// FailOn makes every call to the named Tx method return err until cleared with a nil err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

// Transactions returns how many transactions have been started.
func (s *Store) Transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCount
}

func (s *Store) seed(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

func (s *Store) AddUser(u models.User) models.User {
	s.seed(func(st *state) {
		st.assign(&u.ID)
		if u.Plan == "" {
			u.Plan = "FREE"
		}
		if u.Role == "" {
			u.Role = models.ROLE_USER
		}
		if u.Status == "" {
			u.Status = models.STATUS_ACTIVE
		}
		st.users[u.ID] = u
	})
	return u
}

func (s *Store) AddAffiliate(a models.Affiliate) models.Affiliate {
	s.seed(func(st *state) {
		st.assign(&a.ID)
		st.affiliates[a.ID] = a
	})
	return a
}

func (s *Store) AddVoucher(v models.Voucher) models.Voucher {
	s.seed(func(st *state) {
		st.assign(&v.ID)
		st.vouchers[v.ID] = v
	})
	return v
}

func (s *Store) AddPayment(p models.Payment) models.Payment {
	s.seed(func(st *state) {
		st.assign(&p.ID)
		if p.Status == "" {
			p.Status = models.PaymentStatusPending
		}
		st.payments[p.ID] = p
	})
	return p
}

func (s *Store) AddWithdrawal(w models.Withdrawal) models.Withdrawal {
	s.seed(func(st *state) {
		st.assign(&w.ID)
		if w.Status == "" {
			w.Status = models.WithdrawalStatusPending
		}
		st.withdrawals[w.ID] = w
	})
	return w
}

func (s *Store) User(id uint) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.users[id]
}

func (s *Store) Payment(orderID string) (models.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.st.payments {
		if p.OrderID == orderID {
			return p, true
		}
	}
	return models.Payment{}, false
}

func (s *Store) Affiliate(id uint) models.Affiliate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.affiliates[id]
}

func (s *Store) Voucher(id uint) models.Voucher {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.vouchers[id]
}

func (s *Store) Withdrawal(id uint) models.Withdrawal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.withdrawals[id]
}

func (s *Store) ReferralTransactions() []models.ReferralTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.st.referrals, func(r models.ReferralTransaction) uint { return r.ID })
}

func (s *Store) WebhookEvents() []models.BillingWebhookEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.st.events, func(e models.BillingWebhookEvent) uint { return e.ID })
}

func (s *Store) Withdrawals() []models.Withdrawal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.st.withdrawals, func(w models.Withdrawal) uint { return w.ID })
}

func sortedValues[V any](in map[uint]V, id func(V) uint) []V {
	out := make([]V, 0, len(in))
	for _, v := range in {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out
}

// Settings is a mutable in-memory source of program settings.
type Settings struct {
	mu       sync.Mutex
	settings models.ProgramSettings
	err      error
}

func NewSettings(s models.ProgramSettings) *Settings {
	return &Settings{settings: s}
}

func (s *Settings) ProgramSettings(ctx context.Context) (models.ProgramSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, s.err
}

func (s *Settings) Set(settings models.ProgramSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings.Version = s.settings.Version + 1
	s.settings = settings
}

func (s *Settings) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}
