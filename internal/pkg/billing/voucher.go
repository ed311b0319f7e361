package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/QuizFox/app/models"
	"github.com/ManuelReschke/QuizFox/internal/pkg/ledger"
)

type VoucherInput struct {
	Code            string    `json:"code" validate:"required,alphanum,min=3,max=50"`
	DiscountPercent float64   `json:"discount_percent" validate:"gt=0,lte=100"`
	LimitUser       int       `json:"limit_user" validate:"gte=1"`
	ExpiresAt       time.Time `json:"expires_at" validate:"required"`
}

// CreateVoucher adds a new active voucher.
func (s *Service) CreateVoucher(ctx context.Context, in VoucherInput) (*models.Voucher, error) {
	if err := validate.Struct(in); err != nil {
		return nil, Wrap(ErrInvalidRequest, err)
	}
	if !in.ExpiresAt.After(s.now()) {
		return nil, Describe(ErrInvalidRequest, "expires_at must be in the future")
	}

	v := &models.Voucher{
		Code:            NormalizeCode(in.Code),
		DiscountPercent: in.DiscountPercent,
		LimitUser:       in.LimitUser,
		ExpiresAt:       in.ExpiresAt,
		IsActive:        true,
	}
	err := s.store.Transaction(ctx, func(tx ledger.Tx) error {
		return tx.CreateVoucher(v)
	})
	if errors.Is(err, ledger.ErrDuplicate) {
		return nil, Describe(ErrDuplicateVoucher, fmt.Sprintf("voucher %s already exists", v.Code))
	}
	if err != nil {
		return nil, fmt.Errorf("create voucher %s: %w", v.Code, err)
	}
	return v, nil
}
