// Package affiliate manages affiliate accounts, their commission balance and
// the withdrawal workflow. Commission credits are written by the billing
// package during settlement; this package owns debits and restores.
package affiliate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/QuizFox/app/models"
	"github.com/ManuelReschke/QuizFox/internal/pkg/billing"
	"github.com/ManuelReschke/QuizFox/internal/pkg/ledger"
	"github.com/ManuelReschke/QuizFox/internal/pkg/notify"
	"github.com/ManuelReschke/QuizFox/internal/pkg/refcode"
)

const codeAttempts = 5

var validate = validator.New()

type Service struct {
	store    ledger.Store
	settings billing.SettingsSource
	notifier notify.Notifier
	now      func() time.Time
	newCode  func() (string, error)
}

type Option func(*Service)

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCodeGenerator replaces the random referral code generator.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newCode = gen }
}

func NewService(store ledger.Store, settings billing.SettingsSource, opts ...Option) *Service {
	s := &Service{
		store:    store,
		settings: settings,
		notifier: notify.Log{},
		now:      time.Now,
		newCode:  randomCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// randomCode returns an 8 character upper case referral code.
func randomCode() (string, error) {
	return refcode.New()
}

// GetOrCreateAffiliate returns the user's affiliate account, registering an
// inactive one with a fresh referral code on first use.
func (s *Service) GetOrCreateAffiliate(ctx context.Context, userID uint) (*models.Affiliate, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate referral code: %w", err)
		}

		var aff *models.Affiliate
		err = s.store.Transaction(ctx, func(tx ledger.Tx) error {
			if _, err := tx.GetUser(userID); err != nil {
				if errors.Is(err, ledger.ErrNotFound) {
					return billing.ErrUserNotFound
				}
				return fmt.Errorf("load user %d: %w", userID, err)
			}

			existing, err := tx.GetAffiliateByUserID(userID)
			if err == nil {
				aff = existing
				return nil
			}
			if !errors.Is(err, ledger.ErrNotFound) {
				return fmt.Errorf("load affiliate of user %d: %w", userID, err)
			}

			created := &models.Affiliate{UserID: userID, ReferralCode: billing.NormalizeCode(code)}
			if err := tx.CreateAffiliate(created); err != nil {
				return err
			}
			aff = created
			log.Infof("[Affiliate] Registered affiliate %d for user %d", created.ID, userID)
			return nil
		})
		if errors.Is(err, ledger.ErrDuplicate) {
			// code collision or a concurrent registration; the next attempt sees either
			continue
		}
		if err != nil {
			return nil, err
		}
		return aff, nil
	}
	return nil, fmt.Errorf("register affiliate for user %d: no free referral code after %d attempts", userID, codeAttempts)
}

// ActivateAffiliate switches an affiliate account on or off. Inactive
// affiliates neither earn commission nor withdraw.
func (s *Service) ActivateAffiliate(ctx context.Context, affiliateID uint, active bool) (*models.Affiliate, error) {
	var aff *models.Affiliate
	err := s.store.Transaction(ctx, func(tx ledger.Tx) error {
		var err error
		aff, err = tx.LockAffiliate(affiliateID)
		if errors.Is(err, ledger.ErrNotFound) {
			return ErrAffiliateNotFound
		}
		if err != nil {
			return fmt.Errorf("lock affiliate %d: %w", affiliateID, err)
		}
		if err := tx.SetAffiliateActive(affiliateID, active); err != nil {
			return fmt.Errorf("update affiliate %d: %w", affiliateID, err)
		}
		aff.IsActive = active
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Infof("[Affiliate] Affiliate %d active=%t", affiliateID, active)
	return aff, nil
}

type ReferralCodeInput struct {
	Code string `json:"code" validate:"required,alphanum,min=4,max=32"`
}

// UpdateReferralCode lets an active affiliate pick a custom referral code.
func (s *Service) UpdateReferralCode(ctx context.Context, userID uint, in ReferralCodeInput) (*models.Affiliate, error) {
	if err := validate.Struct(in); err != nil {
		return nil, billing.Wrap(billing.ErrInvalidRequest, err)
	}
	code := billing.NormalizeCode(in.Code)

	var aff *models.Affiliate
	err := s.store.Transaction(ctx, func(tx ledger.Tx) error {
		var err error
		aff, err = tx.GetAffiliateByUserID(userID)
		if errors.Is(err, ledger.ErrNotFound) {
			return ErrAffiliateNotFound
		}
		if err != nil {
			return fmt.Errorf("load affiliate of user %d: %w", userID, err)
		}
		if !aff.IsActive {
			return ErrAffiliateInactive
		}
		if aff.ReferralCode == code {
			return nil
		}
		if err := tx.UpdateReferralCode(aff.ID, code); err != nil {
			if errors.Is(err, ledger.ErrDuplicate) {
				return ErrDuplicateReferralCode
			}
			return fmt.Errorf("update referral code of affiliate %d: %w", aff.ID, err)
		}
		aff.ReferralCode = code
		return nil
	})
	if err != nil {
		return nil, err
	}
	return aff, nil
}

// ListWithdrawals returns the user's withdrawals, newest first. Users without
// an affiliate account get an empty list.
func (s *Service) ListWithdrawals(ctx context.Context, userID uint) ([]models.Withdrawal, error) {
	withdrawals := []models.Withdrawal{}
	err := s.store.Transaction(ctx, func(tx ledger.Tx) error {
		aff, err := tx.GetAffiliateByUserID(userID)
		if errors.Is(err, ledger.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		list, err := tx.ListWithdrawalsByAffiliate(aff.ID)
		if err != nil {
			return err
		}
		if list != nil {
			withdrawals = list
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list withdrawals of user %d: %w", userID, err)
	}
	return withdrawals, nil
}
