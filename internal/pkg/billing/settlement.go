package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/QuizFox/app/models"
	"github.com/ManuelReschke/QuizFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/QuizFox/internal/pkg/ledger"
	"github.com/ManuelReschke/QuizFox/internal/pkg/notify"
)

// applyReport runs the payment state machine for one gateway report. The
// status write and every settlement side effect share one transaction;
// notifications are sent only after it commits.
func (s *Service) applyReport(ctx context.Context, report Notification, source string) (*TransitionResult, error) {
	result := &TransitionResult{OrderID: report.OrderID}

	target, resolution := ResolveOutcome(report.TransactionStatus, report.FraudStatus)
	if resolution == ResolveIgnore {
		log.Warnf("[Billing] Ignoring %s report for order %s: transaction_status=%q fraud_status=%q",
			source, report.OrderID, report.TransactionStatus, report.FraudStatus)
		result.Outcome = OutcomeIgnored
		return result, nil
	}

	var notices []notify.Message
	err := s.store.Transaction(ctx, func(tx ledger.Tx) error {
		notices = nil

		p, err := tx.LockPayment(report.OrderID)
		if errors.Is(err, ledger.ErrNotFound) {
			log.Warnf("[Billing] %s report for unknown order %s acknowledged without changes", source, report.OrderID)
			result.Outcome = OutcomeUnknownOrder
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock payment %s: %w", report.OrderID, err)
		}
		result.Status = p.Status

		switch decideTransition(p.Status, target) {
		case transitionNone:
			result.Outcome = OutcomePending
			return nil
		case transitionReplay:
			result.Outcome = OutcomeReplayed
			return nil
		case transitionStale:
			log.Warnf("[Billing] Discarding stale %s report for order %s: payment is %s, report says %s",
				source, p.OrderID, p.Status, target)
			result.Outcome = OutcomeStale
			return nil
		}

		now := s.now()
		p.Status = target
		if report.PaymentType != "" {
			p.PaymentType = report.PaymentType
		}
		if report.TransactionID != "" {
			p.TransactionID = report.TransactionID
		}

		var plan entitlements.Plan
		if target == models.PaymentStatusSettlement {
			var ok bool
			plan, ok = entitlements.Normalize(p.Plan)
			if !ok || !plan.Purchasable() {
				return Describe(ErrInvalidPlan, fmt.Sprintf("payment %s carries unknown plan %q", p.OrderID, p.Plan))
			}
			expiresAt := plan.ExpiryFrom(now)
			p.PaidAt = &now
			p.ExpiresAt = &expiresAt
		}

		if err := tx.TransitionPayment(p, models.PaymentStatusPending); err != nil {
			return fmt.Errorf("transition payment %s to %s: %w", p.OrderID, target, err)
		}

		if target == models.PaymentStatusSettlement {
			msgs, err := s.settle(ctx, tx, p, plan, now)
			if err != nil {
				return err
			}
			notices = msgs
		}

		result.Status = p.Status
		result.Outcome = OutcomeApplied
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Outcome == OutcomeApplied {
		log.Infof("[Billing] Order %s moved to %s via %s", report.OrderID, result.Status, source)
		notify.Dispatch(ctx, s.notifier, notices...)
	}
	return result, nil
}

// settle applies the side effects of a pending to settlement transition.
func (s *Service) settle(ctx context.Context, tx ledger.Tx, p *models.Payment, plan entitlements.Plan, now time.Time) ([]notify.Message, error) {
	if _, err := GrantPlan(tx, p.UserID, plan, now); err != nil {
		return nil, err
	}

	notices := []notify.Message{
		{
			UserID:      p.UserID,
			Audience:    models.NotificationAudienceUser,
			Type:        models.NotificationTypePaymentSettled,
			Content:     fmt.Sprintf("Your %s plan is active until %s.", plan, p.ExpiresAt.Format("2006-01-02")),
			ReferenceID: p.ID,
		},
		{
			Audience:    models.NotificationAudienceAdmin,
			Type:        models.NotificationTypePaymentSettled,
			Content:     fmt.Sprintf("Order %s settled: %s for %d.", p.OrderID, plan, p.Amount),
			ReferenceID: p.ID,
		},
	}

	msg, err := s.creditReferralCommission(ctx, tx, p)
	if err != nil {
		return nil, err
	}
	if msg != nil {
		notices = append(notices, *msg)
	}

	if err := trackVoucherUsage(tx, p); err != nil {
		return nil, err
	}
	return notices, nil
}

// creditReferralCommission credits the referrer recorded at purchase time.
// A payment credits at most once; a missing or inactive affiliate is skipped.
func (s *Service) creditReferralCommission(ctx context.Context, tx ledger.Tx, p *models.Payment) (*notify.Message, error) {
	md := p.Metadata()
	if !md.HasReferrer() {
		return nil, nil
	}

	exists, err := tx.HasReferralTransaction(p.ID)
	if err != nil {
		return nil, fmt.Errorf("check referral transaction for payment %d: %w", p.ID, err)
	}
	if exists {
		log.Infof("[Billing] Commission for payment %d already credited", p.ID)
		return nil, nil
	}

	aff, err := tx.LockAffiliate(md.ReferrerAffiliateID)
	if errors.Is(err, ledger.ErrNotFound) {
		log.Warnf("[Billing] Referrer affiliate %d of order %s no longer exists, skipping commission", md.ReferrerAffiliateID, p.OrderID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock affiliate %d: %w", md.ReferrerAffiliateID, err)
	}
	if !aff.IsActive {
		log.Warnf("[Billing] Referrer affiliate %d of order %s is inactive, skipping commission", aff.ID, p.OrderID)
		return nil, nil
	}
	if aff.UserID == p.UserID {
		log.Warnf("[Billing] Order %s was referred by its own buyer, skipping commission", p.OrderID)
		return nil, nil
	}

	percent, err := s.commissionPercent(ctx, md)
	if err != nil {
		return nil, err
	}
	base := md.OriginalPrice
	if base <= 0 {
		base = p.OriginalAmount
	}
	commission := ComputeCommission(base, percent)

	rt := &models.ReferralTransaction{
		AffiliateID:       aff.ID,
		ReferredUserID:    p.UserID,
		PaymentID:         p.ID,
		OrderAmount:       base,
		DiscountGiven:     md.ReferralDiscount,
		CommissionEarned:  commission,
		CommissionPercent: percent.String(),
		Status:            models.ReferralStatusCredited,
	}
	if err := tx.CreateReferralTransaction(rt); err != nil {
		if errors.Is(err, ledger.ErrDuplicate) {
			log.Infof("[Billing] Commission for payment %d already credited", p.ID)
			return nil, nil
		}
		return nil, fmt.Errorf("create referral transaction for payment %d: %w", p.ID, err)
	}
	if err := tx.CreditAffiliate(aff.ID, commission); err != nil {
		return nil, fmt.Errorf("credit affiliate %d: %w", aff.ID, err)
	}

	return &notify.Message{
		UserID:      aff.UserID,
		Audience:    models.NotificationAudienceUser,
		Type:        models.NotificationTypeCommissionEarned,
		Content:     fmt.Sprintf("You earned a commission of %d from a referral.", commission),
		ReferenceID: rt.ID,
	}, nil
}

// commissionPercent prefers the rate captured at purchase time and falls back
// to the current setting for payments created without a snapshot.
func (s *Service) commissionPercent(ctx context.Context, md models.PaymentMetadata) (decimal.Decimal, error) {
	if pct, ok := parsePercent(md.CommissionPercent); ok {
		return pct, nil
	}
	settings, err := s.settings.ProgramSettings(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load program settings: %w", err)
	}
	return decimal.NewFromFloat(settings.CommissionPercentage), nil
}

// trackVoucherUsage counts one redemption of the payment's voucher. At the
// usage limit the increment is skipped and the payment still settles.
func trackVoucherUsage(tx ledger.Tx, p *models.Payment) error {
	if p.VoucherID == nil {
		return nil
	}
	ok, err := tx.IncrementVoucherUsage(*p.VoucherID)
	if err != nil {
		return fmt.Errorf("increment usage of voucher %d: %w", *p.VoucherID, err)
	}
	if !ok {
		log.Warnf("[Billing] Voucher %d reached its usage limit before order %s settled", *p.VoucherID, p.OrderID)
	}
	return nil
}
