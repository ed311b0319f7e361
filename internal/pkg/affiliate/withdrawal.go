package affiliate

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/QuizFox/app/models"
	"github.com/ManuelReschke/QuizFox/internal/pkg/billing"
	"github.com/ManuelReschke/QuizFox/internal/pkg/ledger"
	"github.com/ManuelReschke/QuizFox/internal/pkg/notify"
)

type WithdrawalInput struct {
	Amount        int64  `json:"amount" validate:"gt=0"`
	PaymentMethod string `json:"payment_method" validate:"required,max=50"`
	AccountName   string `json:"account_name" validate:"required,max=150"`
	AccountNumber string `json:"account_number" validate:"required,max=64"`
}

// RequestWithdrawal reserves amount from the affiliate's balance and records a
// pending withdrawal. The balance check and the debit happen under a row lock
// in the same transaction, so concurrent requests can never overdraw it.
func (s *Service) RequestWithdrawal(ctx context.Context, userID uint, in WithdrawalInput) (*models.Withdrawal, error) {
	if err := validate.Struct(in); err != nil {
		return nil, billing.Wrap(billing.ErrInvalidRequest, err)
	}
	settings, err := s.settings.ProgramSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load program settings: %w", err)
	}
	if in.Amount < settings.MinWithdrawal {
		return nil, billing.Describe(ErrBelowMinimum, fmt.Sprintf("minimum withdrawal is %d", settings.MinWithdrawal))
	}

	var w *models.Withdrawal
	err = s.store.Transaction(ctx, func(tx ledger.Tx) error {
		found, err := tx.GetAffiliateByUserID(userID)
		if errors.Is(err, ledger.ErrNotFound) {
			return ErrAffiliateNotFound
		}
		if err != nil {
			return fmt.Errorf("load affiliate of user %d: %w", userID, err)
		}
		aff, err := tx.LockAffiliate(found.ID)
		if err != nil {
			return fmt.Errorf("lock affiliate %d: %w", found.ID, err)
		}
		if !aff.IsActive {
			return ErrAffiliateInactive
		}
		if in.Amount > aff.Balance {
			return ErrInsufficientFunds
		}
		if err := tx.DebitAffiliate(aff.ID, in.Amount); err != nil {
			if errors.Is(err, ledger.ErrGuardFailed) {
				return ErrInsufficientFunds
			}
			return fmt.Errorf("debit affiliate %d: %w", aff.ID, err)
		}

		w = &models.Withdrawal{
			AffiliateID:   aff.ID,
			Amount:        in.Amount,
			PaymentMethod: in.PaymentMethod,
			AccountName:   in.AccountName,
			AccountNumber: in.AccountNumber,
			Status:        models.WithdrawalStatusPending,
		}
		if err := tx.CreateWithdrawal(w); err != nil {
			return fmt.Errorf("create withdrawal for affiliate %d: %w", aff.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("[Affiliate] Withdrawal %d of %d requested by affiliate %d", w.ID, w.Amount, w.AffiliateID)
	notify.Dispatch(ctx, s.notifier, notify.Message{
		Audience:    models.NotificationAudienceAdmin,
		Type:        models.NotificationTypeWithdrawalRequest,
		Content:     fmt.Sprintf("Affiliate %d requested a withdrawal of %d via %s.", w.AffiliateID, w.Amount, w.PaymentMethod),
		ReferenceID: w.ID,
	})
	return w, nil
}

// ProcessWithdrawal approves or rejects a pending withdrawal. Rejection returns
// the reserved amount to the affiliate's balance.
func (s *Service) ProcessWithdrawal(ctx context.Context, adminID, withdrawalID uint, action, notes string) (*models.Withdrawal, error) {
	var status string
	switch action {
	case models.WithdrawalActionApprove:
		status = models.WithdrawalStatusApproved
	case models.WithdrawalActionReject:
		status = models.WithdrawalStatusRejected
	default:
		return nil, billing.Describe(ErrInvalidAction, fmt.Sprintf("unknown action %q", action))
	}

	var (
		w           *models.Withdrawal
		affiliateOf uint
	)
	err := s.store.Transaction(ctx, func(tx ledger.Tx) error {
		var err error
		w, err = tx.LockWithdrawal(withdrawalID)
		if errors.Is(err, ledger.ErrNotFound) {
			return ErrWithdrawalNotFound
		}
		if err != nil {
			return fmt.Errorf("lock withdrawal %d: %w", withdrawalID, err)
		}
		if !w.IsPending() {
			return billing.Describe(ErrAlreadyProcessed, fmt.Sprintf("withdrawal %d is already %s", w.ID, w.Status))
		}

		now := s.now()
		w.Status = status
		w.AdminNotes = notes
		w.ProcessedAt = &now
		w.ProcessedBy = &adminID
		if err := tx.FinalizeWithdrawal(w); err != nil {
			if errors.Is(err, ledger.ErrGuardFailed) {
				return ErrAlreadyProcessed
			}
			return fmt.Errorf("finalize withdrawal %d: %w", w.ID, err)
		}

		if status == models.WithdrawalStatusRejected {
			if err := tx.RestoreAffiliateBalance(w.AffiliateID, w.Amount); err != nil {
				return fmt.Errorf("restore balance of affiliate %d: %w", w.AffiliateID, err)
			}
		}

		aff, err := tx.GetAffiliate(w.AffiliateID)
		if err != nil {
			return fmt.Errorf("load affiliate %d: %w", w.AffiliateID, err)
		}
		affiliateOf = aff.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("[Affiliate] Withdrawal %d %s by admin %d", w.ID, w.Status, adminID)
	msg := notify.Message{
		UserID:      affiliateOf,
		Audience:    models.NotificationAudienceUser,
		Type:        models.NotificationTypeWithdrawalApproved,
		Content:     fmt.Sprintf("Your withdrawal of %d was approved.", w.Amount),
		ReferenceID: w.ID,
	}
	if status == models.WithdrawalStatusRejected {
		msg.Type = models.NotificationTypeWithdrawalRejected
		msg.Content = fmt.Sprintf("Your withdrawal of %d was rejected and returned to your balance.", w.Amount)
		if notes != "" {
			msg.Content += " Note: " + notes
		}
	}
	notify.Dispatch(ctx, s.notifier, msg)
	return w, nil
}
