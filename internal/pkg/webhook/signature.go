// Package webhook verifies keyed-hash signatures on inbound webhook requests.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// VerifyChatSignature checks the chat-platform signature header: the
// base64-encoded HMAC-SHA256 of the exact raw request body. It returns false
// on a missing header, missing secret or any mismatch; it never errors.
func VerifyChatSignature(payload []byte, signatureHeader, secret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" || strings.TrimSpace(secret) == "" {
		return false
	}

	decodedSig, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false
	}

	return verifyHMAC(payload, decodedSig, []byte(secret))
}

// VerifyOrderSignature checks the shop order webhook signature header, which
// carries the same HMAC-SHA256 but hex-encoded.
func VerifyOrderSignature(payload []byte, signatureHeader, secret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" || strings.TrimSpace(secret) == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	return verifyHMAC(payload, decodedSig, []byte(secret))
}

// verifyHMAC compares in constant time so signature checks don't leak timing.
func verifyHMAC(payload, expectedSig, secret []byte) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expectedSig)
}

// SignChat produces the base64 signature for a payload. Used by tests and by
// tooling that replays captured webhook bodies.
func SignChat(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignOrder produces the hex signature for an order payload.
func SignOrder(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
