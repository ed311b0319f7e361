package entitlements

import (
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in     string
		want   Plan
		wantOK bool
	}{
		{in: "FREE", want: PlanFree, wantOK: true},
		{in: "pro", want: PlanPro, wantOK: true},
		{in: " Premium ", want: PlanPremium, wantOK: true},
		{in: "enterprise", want: "", wantOK: false},
		{in: "", want: "", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := Normalize(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Fatalf("Normalize(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPurchasable(t *testing.T) {
	if PlanFree.Purchasable() {
		t.Fatalf("expected free plan to be non-purchasable")
	}
	if !PlanPro.Purchasable() || !PlanPremium.Purchasable() {
		t.Fatalf("expected paid plans to be purchasable")
	}
}

func TestExpiryFrom(t *testing.T) {
	now := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)

	if got, want := PlanPro.ExpiryFrom(now), now.AddDate(0, 1, 0); !got.Equal(want) {
		t.Fatalf("PRO expiry = %s, want %s", got, want)
	}
	if got, want := PlanPremium.ExpiryFrom(now), time.Date(2027, 1, 31, 10, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("PREMIUM expiry = %s, want %s", got, want)
	}
}

func TestRank(t *testing.T) {
	if Rank(PlanFree) >= Rank(PlanPro) {
		t.Fatalf("expected pro to outrank free")
	}
	if Rank(PlanPro) >= Rank(PlanPremium) {
		t.Fatalf("expected premium to outrank pro")
	}
}

func TestEffective(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	if got := Effective("PRO", &future, now); got != PlanPro {
		t.Fatalf("active PRO resolved to %q", got)
	}
	if got := Effective("PRO", &past, now); got != PlanFree {
		t.Fatalf("expired PRO resolved to %q", got)
	}
	if got := Effective("bogus", nil, now); got != PlanFree {
		t.Fatalf("unknown plan resolved to %q", got)
	}
}
