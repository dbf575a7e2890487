package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSignature is returned when a webhook signature does not verify.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Options tunes signature verification.
type Options struct {
	// Tolerance bounds the age of the signed timestamp. Zero accepts any age.
	Tolerance time.Duration
}

// SignatureVerifier checks Mercado Pago `x-signature` headers.
type SignatureVerifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewSignatureVerifier builds a verifier for secret. An empty secret disables verification.
func NewSignatureVerifier(secret string, opts Options) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret), tolerance: opts.Tolerance, now: time.Now}
}

// Enabled reports whether a secret is configured.
func (v *SignatureVerifier) Enabled() bool {
	return v != nil && len(v.secret) > 0
}

// Verify validates header ("ts=<ts>,v1=<hex>") against the request id and the notified resource id.
func (v *SignatureVerifier) Verify(header, requestID, dataID string) error {
	if !v.Enabled() {
		return nil
	}

	ts, sig := parseSignatureHeader(header)
	if ts == "" || sig == "" {
		return ErrInvalidSignature
	}
	expected := v.Sign(dataID, requestID, ts)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(sig))) {
		return ErrInvalidSignature
	}

	if v.tolerance > 0 {
		signedAt, err := parseTimestamp(ts)
		if err != nil {
			return ErrInvalidSignature
		}
		if age := v.now().Sub(signedAt); age > v.tolerance || age < -v.tolerance {
			return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
		}
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of the signed manifest.
func (v *SignatureVerifier) Sign(dataID, requestID, ts string) string {
	var manifest strings.Builder
	if dataID != "" {
		manifest.WriteString("id:" + strings.ToLower(dataID) + ";")
	}
	if requestID != "" {
		manifest.WriteString("request-id:" + requestID + ";")
	}
	manifest.WriteString("ts:" + ts + ";")

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(manifest.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (ts, sig string) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			sig = strings.TrimSpace(value)
		}
	}
	return ts, sig
}

// parseTimestamp accepts unix seconds or milliseconds.
func parseTimestamp(ts string) (time.Time, error) {
	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	if n > 1e12 {
		return time.UnixMilli(n), nil
	}
	return time.Unix(n, 0), nil
}
