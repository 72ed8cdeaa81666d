package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignConfirmation computes the callback signature over the gateway order id
// and payment id with the shared signing secret.
func SignConfirmation(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyConfirmation checks the supplied signature in constant time. An empty
// secret skips verification; callers decide whether that dev-mode fallback is
// acceptable and must log when they rely on it.
func VerifyConfirmation(secret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	if secret == "" {
		return true
	}
	expected := SignConfirmation(secret, gatewayOrderID, gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
