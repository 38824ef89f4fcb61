package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Hmac256 is a function to generate HMAC256 hash.
func Hmac256(body, key []byte) string {
	hash := hmac.New(sha256.New, key)
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}

// PaymentSignature is what the gateway signs after checkout:
// HMAC-SHA256 over "order_id|payment_id" keyed by the account secret.
func PaymentSignature(orderID, paymentID, secret string) string {
	return Hmac256([]byte(orderID+"|"+paymentID), []byte(secret))
}

// VerifyPaymentSignature compares in constant time.
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	expected := PaymentSignature(orderID, paymentID, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}
