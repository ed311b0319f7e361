package billing

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/QuizFox/app/models"
	"github.com/ManuelReschke/QuizFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/QuizFox/internal/pkg/env"
	"github.com/ManuelReschke/QuizFox/internal/pkg/ledger"
	"github.com/ManuelReschke/QuizFox/internal/pkg/notify"
)

var validate = validator.New()

// SettingsSource returns the current referral program settings.
type SettingsSource interface {
	ProgramSettings(ctx context.Context) (models.ProgramSettings, error)
}

// Archiver keeps a copy of raw gateway notifications.
type Archiver interface {
	ArchiveNotification(ctx context.Context, orderID string, payload []byte) error
}

// Config holds gateway credentials and the plan price list.
type Config struct {
	ServerKey      string
	Prices         map[entitlements.Plan]int64
	GatewayTimeout time.Duration
}

func ConfigFromEnv() Config {
	mt := MidtransConfigFromEnv()
	return Config{
		ServerKey: mt.ServerKey,
		Prices: map[entitlements.Plan]int64{
			entitlements.PlanPro:     env.GetInt64("PLAN_PRICE_PRO", 49000),
			entitlements.PlanPremium: env.GetInt64("PLAN_PRICE_PREMIUM", 399000),
		},
		GatewayTimeout: mt.Timeout,
	}
}

// Service settles gateway payments and applies their side effects.
type Service struct {
	store    ledger.Store
	gateway  Gateway
	settings SettingsSource
	notifier notify.Notifier
	archiver Archiver
	cfg      Config
	now      func() time.Time
}

type Option func(*Service)

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a billing service.
func NewService(store ledger.Store, gateway Gateway, settings SettingsSource, cfg Config, opts ...Option) *Service {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 15 * time.Second
	}
	s := &Service{
		store:    store,
		gateway:  gateway,
		settings: settings,
		notifier: notify.Log{},
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Price returns the configured list price of a plan.
func (s *Service) Price(plan entitlements.Plan) (int64, bool) {
	p, ok := s.cfg.Prices[plan]
	return p, ok && p > 0
}

func (s *Service) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.GatewayTimeout)
}
