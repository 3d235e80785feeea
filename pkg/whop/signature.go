package whop

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// Header names carried by Whop webhook deliveries.
const (
	SignatureHeader = "webhook-signature"
	TimestampHeader = "webhook-timestamp"
)

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrMissingTimestamp = errors.New("missing webhook timestamp")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidTimestamp = errors.New("invalid webhook timestamp")
	ErrExpiredTimestamp = errors.New("webhook timestamp outside tolerance")
)

// Verifier checks webhook signatures.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier creates a verifier for the shared webhook secret. tolerance bounds
// how far the timestamp may drift from now; zero disables the check.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{
		secret:    []byte(secret),
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Sign returns base64(HMAC-SHA256(secret, timestamp + "." + body)).
func (v *Verifier) Sign(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify validates a delivery. signatureHeader may hold several space-separated
// signatures, each optionally prefixed with a version ("v1,<sig>"); any match is accepted.
func (v *Verifier) Verify(signatureHeader, timestamp string, body []byte) error {
	signatureHeader = strings.TrimSpace(signatureHeader)
	timestamp = strings.TrimSpace(timestamp)

	if signatureHeader == "" {
		return ErrMissingSignature
	}
	if timestamp == "" {
		return ErrMissingTimestamp
	}

	if v.tolerance > 0 {
		if err := v.checkTimestamp(timestamp); err != nil {
			return err
		}
	}

	expected := []byte(v.Sign(timestamp, body))
	for _, candidate := range strings.Fields(signatureHeader) {
		if _, sig, ok := strings.Cut(candidate, ","); ok {
			candidate = sig
		}
		if hmac.Equal([]byte(candidate), expected) {
			return nil
		}
	}

	return ErrInvalidSignature
}

func (v *Verifier) checkTimestamp(timestamp string) error {
	secs, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}

	drift := v.now().Sub(time.Unix(secs, 0))
	if math.Abs(float64(drift)) > float64(v.tolerance) {
		return ErrExpiredTimestamp
	}
	return nil
}
