package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
)

// WebhookAuth signs outbound webhook deliveries so receivers can verify that
// a notification really came from this deployment.
type WebhookAuth struct {
	Secret string
}

// Headers returns the signature headers for a webhook delivery. The
// signature is HMAC-SHA256(secret, timestamp+body) encoded as base64.
//
// Returned header keys:
//   - X-Worth-Timestamp
//   - X-Worth-Signature
func (w *WebhookAuth) Headers(body []byte) map[string]string {
	return w.HeadersAt(body, time.Now().Unix())
}

// HeadersAt is like Headers but lets the caller supply the Unix timestamp
// (useful for deterministic testing).
func (w *WebhookAuth) HeadersAt(body []byte, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)
	return map[string]string{
		"X-Worth-Timestamp": ts,
		"X-Worth-Signature": hmacSHA256Base64([]byte(w.Secret), append([]byte(ts), body...)),
	}
}

// Verify checks a received signature against the body and timestamp. It
// uses hmac.Equal for constant-time comparison.
func (w *WebhookAuth) Verify(body []byte, timestamp, signature string) bool {
	expected := hmacSHA256Base64([]byte(w.Secret), append([]byte(timestamp), body...))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// hmacSHA256Base64 computes HMAC-SHA256 of message using key and returns the
// result as a base64 standard-encoded string.
func hmacSHA256Base64(key, message []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// String returns a redacted representation suitable for logging.
func (w *WebhookAuth) String() string {
	if len(w.Secret) <= 4 {
		return "WebhookAuth{secret=****}"
	}
	return fmt.Sprintf("WebhookAuth{secret=%s****}", w.Secret[:4])
}
