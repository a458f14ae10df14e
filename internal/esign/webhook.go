package esign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the provider's hex-encoded HMAC-SHA256 of the raw
// webhook body.
const SignatureHeader = "X-Signature"

// VerifyWebhookSignature checks the provider's HMAC over the raw body.
// Comparison is constant-time; an empty secret never verifies.
func VerifyWebhookSignature(secret string, rawBody []byte, signatureHex string) bool {
	if secret == "" || signatureHex == "" {
		return false
	}

	provided, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hmac.Equal(mac.Sum(nil), provided)
}
