package billing

import (
	"strings"
	"testing"
)

func TestVerifyNotificationSignature(t *testing.T) {
	const key = "SB-Mid-server-abc"
	sig := NotificationSignature("QF-1-PRO-1700000000000", "200", "299000.00", key)

	if len(sig) != 128 {
		t.Fatalf("expected 128 hex chars, got %d", len(sig))
	}
	if !VerifyNotificationSignature("QF-1-PRO-1700000000000", "200", "299000.00", sig, key) {
		t.Fatalf("expected signature to verify")
	}
	if !VerifyNotificationSignature("QF-1-PRO-1700000000000", "200", "299000.00", strings.ToUpper(sig), key) {
		t.Fatalf("expected upper-case hex signature to verify")
	}

	tests := []struct {
		name                            string
		orderID, code, amount, sig, key string
	}{
		{"tampered amount", "QF-1-PRO-1700000000000", "200", "1.00", sig, key},
		{"tampered status code", "QF-1-PRO-1700000000000", "201", "299000.00", sig, key},
		{"wrong key", "QF-1-PRO-1700000000000", "200", "299000.00", sig, "other"},
		{"empty signature", "QF-1-PRO-1700000000000", "200", "299000.00", "", key},
		{"empty key", "QF-1-PRO-1700000000000", "200", "299000.00", sig, ""},
	}
	for _, tt := range tests {
		if VerifyNotificationSignature(tt.orderID, tt.code, tt.amount, tt.sig, tt.key) {
			t.Fatalf("%s: expected signature to be rejected", tt.name)
		}
	}
}
