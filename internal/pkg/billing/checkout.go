package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/ManuelReschke/QuizFox/app/models"
	"github.com/ManuelReschke/QuizFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/QuizFox/internal/pkg/ledger"
)

// NormalizeCode canonicalises referral and voucher codes.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateTransaction prices a plan purchase, obtains a payment token from the
// gateway and records the pending payment. The gateway is called before
// anything is written, so a failed call leaves no local state behind.
func (s *Service) CreateTransaction(ctx context.Context, userID uint, in CheckoutInput) (*CheckoutResult, error) {
	if err := validate.Struct(in); err != nil {
		return nil, Wrap(ErrInvalidRequest, err)
	}
	plan, ok := entitlements.Normalize(in.Plan)
	if !ok || !plan.Purchasable() {
		return nil, Describe(ErrInvalidPlan, fmt.Sprintf("plan %q cannot be purchased", in.Plan))
	}
	price, ok := s.Price(plan)
	if !ok {
		return nil, Describe(ErrInvalidPlan, fmt.Sprintf("plan %q has no price", plan))
	}

	settings, err := s.settings.ProgramSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load program settings: %w", err)
	}

	now := s.now()
	referralCode := NormalizeCode(in.ReferralCode)
	voucherCode := NormalizeCode(in.VoucherCode)

	var (
		user      *models.User
		affiliate *models.Affiliate
		voucher   *models.Voucher
	)
	err = s.store.Transaction(ctx, func(tx ledger.Tx) error {
		var err error
		user, err = tx.GetUser(userID)
		if errors.Is(err, ledger.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("load user %d: %w", userID, err)
		}

		if referralCode != "" {
			affiliate, err = tx.GetAffiliateByCode(referralCode)
			if errors.Is(err, ledger.ErrNotFound) || (err == nil && !affiliate.IsActive) {
				return ErrInvalidReferral
			}
			if err != nil {
				return fmt.Errorf("load referral code: %w", err)
			}
			if affiliate.UserID == userID {
				return ErrSelfReferral
			}
		}

		if voucherCode != "" {
			voucher, err = tx.GetVoucherByCode(voucherCode)
			if errors.Is(err, ledger.ErrNotFound) || (err == nil && !voucher.IsRedeemable(now)) {
				return ErrVoucherUnavailable
			}
			if err != nil {
				return fmt.Errorf("load voucher: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	referralPercent, voucherPercent := decimal.Zero, decimal.Zero
	if affiliate != nil {
		referralPercent = decimal.NewFromFloat(settings.ReferralDiscountPercentage)
	}
	if voucher != nil {
		voucherPercent = decimal.NewFromFloat(voucher.DiscountPercent)
	}
	quote := quotePrice(price, referralPercent, voucherPercent)
	if quote.Amount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	orderID := NewOrderID(userID, plan, now)
	gctx, cancel := s.gatewayContext(ctx)
	token, err := s.gateway.CreateTransaction(gctx, TransactionRequest{
		OrderID:       orderID,
		Amount:        quote.Amount,
		ItemID:        string(plan),
		ItemName:      fmt.Sprintf("QuizFox %s", plan),
		CustomerName:  user.Name,
		CustomerEmail: user.Email,
	})
	cancel()
	if err != nil {
		log.Errorf("[Billing] Gateway token request for order %s failed: %v", orderID, err)
		return nil, Wrap(ErrGatewayUnavailable, err)
	}

	md := models.PaymentMetadata{
		OriginalPrice:     quote.OriginalPrice,
		ReferralDiscount:  quote.ReferralDiscount,
		VoucherDiscount:   quote.VoucherDiscount,
		CommissionPercent: decimal.NewFromFloat(settings.CommissionPercentage).String(),
		SettingsVersion:   settings.Version,
	}
	if affiliate != nil {
		md.ReferrerAffiliateID = affiliate.ID
		md.ReferrerUserID = affiliate.UserID
		md.ReferralCode = affiliate.ReferralCode
	}
	payment := &models.Payment{
		OrderID:         orderID,
		UserID:          userID,
		Plan:            string(plan),
		Amount:          quote.Amount,
		OriginalAmount:  quote.OriginalPrice,
		VoucherDiscount: quote.VoucherDiscount,
		Status:          models.PaymentStatusPending,
		SnapToken:       token.Token,
	}
	if voucher != nil {
		md.VoucherCode = voucher.Code
		payment.VoucherID = &voucher.ID
	}
	payment.GatewayMetadata = datatypes.NewJSONType(md)

	err = s.store.Transaction(ctx, func(tx ledger.Tx) error {
		return tx.CreatePayment(payment)
	})
	if errors.Is(err, ledger.ErrDuplicate) {
		return nil, Describe(ErrDuplicateOrder, fmt.Sprintf("order %s already exists", orderID))
	}
	if err != nil {
		return nil, fmt.Errorf("create payment %s: %w", orderID, err)
	}

	log.Infof("[Billing] Created order %s for user %d (%s, amount %d)", orderID, userID, plan, quote.Amount)
	return &CheckoutResult{
		OrderID:          orderID,
		Token:            token.Token,
		RedirectURL:      token.RedirectURL,
		Plan:             string(plan),
		OriginalPrice:    quote.OriginalPrice,
		ReferralDiscount: quote.ReferralDiscount,
		VoucherDiscount:  quote.VoucherDiscount,
		Amount:           quote.Amount,
	}, nil
}

// ListPayments returns the user's payments, newest first.
func (s *Service) ListPayments(ctx context.Context, userID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.store.Transaction(ctx, func(tx ledger.Tx) error {
		var err error
		payments, err = tx.ListPaymentsByUser(userID)
		return err
	})
	return payments, err
}
