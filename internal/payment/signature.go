package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks the gateway's checkout callback signature:
// hex(HMAC-SHA256(secret, orderID + "|" + paymentID)). The algorithm is
// fixed by the gateway's documented scheme and must match bit for bit.
// The comparison is constant-time.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
