package billing

import (
	"testing"

	"github.com/ManuelReschke/QuizFox/app/models"
)

func TestResolveOutcome(t *testing.T) {
	tests := []struct {
		status, fraud string
		want          string
		wantRes       Resolution
	}{
		{"settlement", "", models.PaymentStatusSettlement, ResolveTerminal},
		{"capture", "accept", models.PaymentStatusSettlement, ResolveTerminal},
		{"CAPTURE", "Accept", models.PaymentStatusSettlement, ResolveTerminal},
		{"capture", "challenge", "", ResolveIgnore},
		{"capture", "", "", ResolveIgnore},
		{"cancel", "", models.PaymentStatusCancel, ResolveTerminal},
		{"deny", "", models.PaymentStatusDeny, ResolveTerminal},
		{"expire", "", models.PaymentStatusExpire, ResolveTerminal},
		{"pending", "", models.PaymentStatusPending, ResolvePending},
		{"refund", "", "", ResolveIgnore},
		{"", "", "", ResolveIgnore},
	}

	for _, tt := range tests {
		got, res := ResolveOutcome(tt.status, tt.fraud)
		if got != tt.want || res != tt.wantRes {
			t.Fatalf("ResolveOutcome(%q, %q) = (%q, %d), want (%q, %d)", tt.status, tt.fraud, got, res, tt.want, tt.wantRes)
		}
	}
}

func TestDecideTransition(t *testing.T) {
	terminal := []string{
		models.PaymentStatusSettlement,
		models.PaymentStatusCancel,
		models.PaymentStatusDeny,
		models.PaymentStatusExpire,
	}

	if decideTransition(models.PaymentStatusPending, models.PaymentStatusPending) != transitionNone {
		t.Fatalf("pending report against pending payment must not move it")
	}
	for _, current := range terminal {
		if decideTransition(models.PaymentStatusPending, current) != transitionApply {
			t.Fatalf("pending -> %s must apply", current)
		}
		if decideTransition(current, models.PaymentStatusPending) != transitionStale {
			t.Fatalf("%s must never return to pending", current)
		}
		for _, target := range terminal {
			got := decideTransition(current, target)
			if current == target && got != transitionReplay {
				t.Fatalf("%s -> %s must be a replay, got %d", current, target, got)
			}
			if current != target && got != transitionStale {
				t.Fatalf("%s -> %s must be stale, got %d", current, target, got)
			}
		}
	}
}
