package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/QuizFox/app/models"
	"github.com/ManuelReschke/QuizFox/internal/pkg/ledger"
)

// ReconcilePending asks the gateway about payments that have been pending for
// longer than olderThan and applies whatever it reports. It recovers orders
// whose webhook never arrived. The number of payments that changed is returned.
func (s *Service) ReconcilePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	cutoff := s.now().Add(-olderThan)

	var pending []models.Payment
	err := s.store.Transaction(ctx, func(tx ledger.Tx) error {
		var err error
		pending, err = tx.ListPendingPayments(cutoff, limit)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("list pending payments: %w", err)
	}

	applied := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return applied, err
		}

		gctx, cancel := s.gatewayContext(ctx)
		status, err := s.gateway.TransactionStatus(gctx, p.OrderID)
		cancel()
		if errors.Is(err, ErrTransactionNotFound) {
			continue
		}
		if err != nil {
			log.Warnf("[Billing] Reconcile: status query for order %s failed: %v", p.OrderID, err)
			continue
		}
		status.OrderID = p.OrderID

		result, err := s.applyReport(ctx, *status, "reconcile")
		if err != nil {
			log.Errorf("[Billing] Reconcile: applying status for order %s failed: %v", p.OrderID, err)
			continue
		}
		if result.Outcome == OutcomeApplied {
			applied++
		}
	}

	if applied > 0 {
		log.Infof("[Billing] Reconcile: %d of %d pending payments resolved", applied, len(pending))
	}
	return applied, nil
}

// ExpirePlans downgrades every user whose paid plan has run out to FREE.
func (s *Service) ExpirePlans(ctx context.Context) (int64, error) {
	var n int64
	err := s.store.Transaction(ctx, func(tx ledger.Tx) error {
		var err error
		n, err = tx.DowngradeExpiredPlans(s.now())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("downgrade expired plans: %w", err)
	}
	if n > 0 {
		log.Infof("[Billing] Downgraded %d expired plans to FREE", n)
	}
	return n, nil
}
