package billing

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// NotificationSignature computes the gateway signature for a notification:
// hex(SHA-512(order_id + status_code + gross_amount + server_key)).
func NotificationSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifyNotificationSignature reports whether signatureKey matches the expected
// signature. The comparison is constant time.
func VerifyNotificationSignature(orderID, statusCode, grossAmount, signatureKey, serverKey string) bool {
	sig := strings.ToLower(strings.TrimSpace(signatureKey))
	if sig == "" || serverKey == "" {
		return false
	}
	expected := NotificationSignature(orderID, statusCode, grossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) == 1
}
