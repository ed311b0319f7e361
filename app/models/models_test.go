package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestHashAPIKeyTrimsWhitespace(t *testing.T) {
	assert.Equal(t, HashAPIKey("abc"), HashAPIKey("  abc\n"))
	assert.Len(t, HashAPIKey("abc"), 64)
	assert.NotEqual(t, HashAPIKey("abc"), HashAPIKey("abd"))
}

func TestUserHasPaidPlan(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		user User
		want bool
	}{
		{"free", User{Plan: "FREE"}, false},
		{"empty", User{}, false},
		{"pro active", User{Plan: "PRO", PlanExpiresAt: &future}, true},
		{"pro expired", User{Plan: "PRO", PlanExpiresAt: &past}, false},
		{"premium without expiry", User{Plan: "PREMIUM"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.HasPaidPlan(now))
		})
	}
}

func TestIsTerminalPaymentStatus(t *testing.T) {
	assert.False(t, IsTerminalPaymentStatus(PaymentStatusPending))
	assert.False(t, IsTerminalPaymentStatus("capture"))
	for _, s := range []string{PaymentStatusSettlement, PaymentStatusCancel, PaymentStatusDeny, PaymentStatusExpire} {
		assert.True(t, IsTerminalPaymentStatus(s), s)
	}
}

func TestPaymentMetadata(t *testing.T) {
	p := &Payment{GatewayMetadata: datatypes.NewJSONType(PaymentMetadata{
		ReferrerAffiliateID: 7,
		OriginalPrice:       100000,
		CommissionPercent:   "10",
	})}

	md := p.Metadata()
	assert.True(t, md.HasReferrer())
	assert.Equal(t, int64(100000), md.OriginalPrice)
	assert.False(t, PaymentMetadata{}.HasReferrer())
}

func TestVoucherIsRedeemable(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	base := Voucher{Code: "SPRING", DiscountPercent: 20, LimitUser: 2, UsedCount: 1, ExpiresAt: now.Add(24 * time.Hour), IsActive: true}

	assert.True(t, base.IsRedeemable(now))

	capped := base
	capped.UsedCount = 2
	assert.False(t, capped.IsRedeemable(now))

	expired := base
	expired.ExpiresAt = now.Add(-time.Second)
	assert.False(t, expired.IsRedeemable(now))

	inactive := base
	inactive.IsActive = false
	assert.False(t, inactive.IsRedeemable(now))
}

func TestVoucherValidate(t *testing.T) {
	v := Voucher{Code: "SPRING", DiscountPercent: 20, LimitUser: 5, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, v.Validate())

	v.DiscountPercent = 120
	assert.Error(t, v.Validate())
}

func TestApplySettingRows(t *testing.T) {
	s, err := ApplySettingRows([]Setting{
		{Key: SettingCommissionPercentage, Value: "12.5"},
		{Key: SettingMinWithdrawal, Value: "75000"},
		{Key: SettingVersion, Value: "4"},
		{Key: "site_title", Value: "ignored"},
	})
	require.NoError(t, err)

	assert.Equal(t, 12.5, s.CommissionPercentage)
	assert.Equal(t, DefaultProgramSettings().ReferralDiscountPercentage, s.ReferralDiscountPercentage)
	assert.Equal(t, int64(75000), s.MinWithdrawal)
	assert.Equal(t, int64(4), s.Version)

	_, err = ApplySettingRows([]Setting{{Key: SettingMinWithdrawal, Value: "lots"}})
	assert.Error(t, err)
}

func TestProgramSettingsValidate(t *testing.T) {
	s := DefaultProgramSettings()
	require.NoError(t, s.Validate())

	s.CommissionPercentage = 101
	assert.Error(t, s.Validate())

	s = DefaultProgramSettings()
	s.MinWithdrawal = -1
	assert.Error(t, s.Validate())
}

func TestProgramSettingsRowsRoundTrip(t *testing.T) {
	in := ProgramSettings{CommissionPercentage: 7.5, ReferralDiscountPercentage: 5, MinWithdrawal: 10000, Version: 3}
	out, err := ApplySettingRows(in.settingRows())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
