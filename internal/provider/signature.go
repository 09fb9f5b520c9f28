package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Signature computes the hex HMAC-SHA256 of a raw payload.
func Signature(raw []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the provider's HMAC header against the raw body
// using constant-time comparison.
func VerifySignature(raw []byte, header, secret string) bool {
	header = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), "sha256="))
	if header == "" {
		return false
	}
	want := Signature(raw, secret)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(header)))
}
