package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/QuizFox/app/models"
	"github.com/ManuelReschke/QuizFox/internal/pkg/ledger"
)

// HandleNotification authenticates and applies an asynchronous gateway
// notification. payload is the raw body, kept for the audit log and archive.
// Replays and stale reports succeed without changes.
func (s *Service) HandleNotification(ctx context.Context, n Notification, payload []byte) (*TransitionResult, error) {
	if !VerifyNotificationSignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey, s.cfg.ServerKey) {
		log.Warnf("[Billing] Rejected notification for order %q: signature mismatch", n.OrderID)
		return nil, ErrInvalidSignature
	}
	if err := validate.Struct(n); err != nil {
		return nil, Wrap(ErrInvalidRequest, err)
	}
	if _, err := ParseOrderID(n.OrderID); err != nil {
		return nil, err
	}

	event := &models.BillingWebhookEvent{
		Provider:          models.BillingProviderMidtrans,
		EventKey:          n.EventKey(),
		OrderID:           n.OrderID,
		TransactionStatus: n.TransactionStatus,
		PayloadJSON:       string(payload),
		SignatureValid:    true,
	}
	var created bool
	err := s.store.Transaction(ctx, func(tx ledger.Tx) error {
		var err error
		created, err = tx.RecordWebhookEvent(event)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("record webhook event for order %s: %w", n.OrderID, err)
	}
	if created {
		s.archive(ctx, n.OrderID, payload)
	} else {
		log.Infof("[Billing] Redelivered notification for order %s (event %d)", n.OrderID, event.ID)
	}

	result, applyErr := s.applyReport(ctx, n, "webhook")

	outcome, processingError := "", ""
	if applyErr != nil {
		processingError = applyErr.Error()
	} else {
		outcome = string(result.Outcome)
	}
	markErr := s.store.Transaction(ctx, func(tx ledger.Tx) error {
		return tx.MarkWebhookProcessed(event.ID, outcome, processingError, s.now())
	})
	if markErr != nil {
		log.Errorf("[Billing] Failed to mark webhook event %d processed: %v", event.ID, markErr)
	}

	return result, applyErr
}

func (s *Service) archive(ctx context.Context, orderID string, payload []byte) {
	if s.archiver == nil || len(payload) == 0 {
		return
	}
	if err := s.archiver.ArchiveNotification(ctx, orderID, payload); err != nil {
		log.Warnf("[Billing] Failed to archive notification for order %s: %v", orderID, err)
	}
}

// VerifyAndUpgrade is the synchronous path: the buyer asks for their order to
// be checked against the gateway right away. The order must belong to userID.
func (s *Service) VerifyAndUpgrade(ctx context.Context, userID uint, orderID string) (*TransitionResult, error) {
	if _, err := ParseOrderID(orderID); err != nil {
		return nil, err
	}

	var payment *models.Payment
	err := s.store.Transaction(ctx, func(tx ledger.Tx) error {
		var err error
		payment, err = tx.GetPayment(orderID)
		return err
	})
	if errors.Is(err, ledger.ErrNotFound) || (err == nil && payment.UserID != userID) {
		return nil, Describe(ErrPaymentNotFound, fmt.Sprintf("order %s not found", orderID))
	}
	if err != nil {
		return nil, fmt.Errorf("load payment %s: %w", orderID, err)
	}
	if payment.IsTerminal() {
		return s.snapshot(ctx, orderID, OutcomeReplayed)
	}

	gctx, cancel := s.gatewayContext(ctx)
	status, err := s.gateway.TransactionStatus(gctx, orderID)
	cancel()
	if errors.Is(err, ErrTransactionNotFound) {
		return s.snapshot(ctx, orderID, OutcomePending)
	}
	if err != nil {
		log.Errorf("[Billing] Status query for order %s failed: %v", orderID, err)
		return nil, Wrap(ErrGatewayUnavailable, err)
	}
	if status.OrderID != orderID {
		return nil, Describe(ErrGatewayUnavailable, fmt.Sprintf("gateway answered for order %q instead of %q", status.OrderID, orderID))
	}

	result, err := s.applyReport(ctx, *status, "verify")
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, orderID, result.Outcome)
}

// snapshot reads the payment and its owner's plan after a transition attempt.
func (s *Service) snapshot(ctx context.Context, orderID string, outcome Outcome) (*TransitionResult, error) {
	result := &TransitionResult{OrderID: orderID, Outcome: outcome}
	err := s.store.Transaction(ctx, func(tx ledger.Tx) error {
		p, err := tx.GetPayment(orderID)
		if err != nil {
			return err
		}
		result.Status = p.Status

		u, err := tx.GetUser(p.UserID)
		if errors.Is(err, ledger.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		result.Plan = u.Plan
		result.PlanExpiresAt = u.PlanExpiresAt
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load payment %s: %w", orderID, err)
	}
	return result, nil
}
