package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureVerifier checks the Paddle-Signature header of webhook deliveries.
type SignatureVerifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewSignatureVerifier creates a verifier for the shared webhook secret.
// A positive tolerance rejects signatures whose ts is further than that from now.
func NewSignatureVerifier(secret string, tolerance time.Duration) *SignatureVerifier {
	return &SignatureVerifier{
		secret:    []byte(strings.TrimSpace(secret)),
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Verify reports whether header (ts=<unix>;h1=<hex>[;h1=<hex>...]) signs rawBody.
// rawBody must be the bytes as received; re-encoded JSON will not match.
func (v *SignatureVerifier) Verify(header string, rawBody []byte) bool {
	return v.Check(header, rawBody) == nil
}

// Check is Verify with the reason. Every failure wraps ErrInvalidSignature.
// Any one of several h1 values may match, as sent while a secret is rotated.
func (v *SignatureVerifier) Check(header string, rawBody []byte) error {
	if v == nil || len(v.secret) == 0 {
		return fmt.Errorf("%w: no webhook secret configured", ErrInvalidSignature)
	}

	ts, signatures := parseSignatureHeader(header)
	if ts == "" || len(signatures) == 0 {
		return fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}

	if v.tolerance > 0 {
		unix, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
		}
		diff := v.now().Sub(time.Unix(unix, 0))
		if diff < 0 {
			diff = -diff
		}
		if diff > v.tolerance {
			return fmt.Errorf("%w: timestamp outside %s window", ErrInvalidSignature, v.tolerance)
		}
	}

	expected := []byte(Sign(v.secret, ts, rawBody))
	matched := 0
	for _, h1 := range signatures {
		got := []byte(strings.ToLower(h1))
		if len(got) == len(expected) {
			matched |= subtle.ConstantTimeCompare(expected, got)
		}
	}
	if matched != 1 {
		return fmt.Errorf("%w: no matching h1", ErrInvalidSignature)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 of "<ts>:<body>".
func Sign(secret []byte, ts string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(ts))
	mac.Write([]byte(":"))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader builds a Paddle-Signature value. Used by tests and the
// admin test trigger.
func SignatureHeader(secret string, ts int64, body []byte) string {
	t := strconv.FormatInt(ts, 10)
	return "ts=" + t + ";h1=" + Sign([]byte(secret), t, body)
}

func parseSignatureHeader(header string) (ts string, h1 []string) {
	for _, part := range strings.Split(strings.TrimSpace(header), ";") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		value := strings.TrimSpace(kv[1])
		switch kv[0] {
		case "ts":
			ts = value
		case "h1":
			if value != "" {
				h1 = append(h1, value)
			}
		}
	}
	return ts, h1
}
