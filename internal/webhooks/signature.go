package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrSignatureInvalid indicates the payload could not be attributed to the
	// claimed provider. Callers must not leak the specific reason in responses.
	ErrSignatureInvalid = errors.New("webhook signature invalid")
)

// MediaSignatureTolerance bounds how old a media webhook timestamp may be
// before it is rejected as a replay.
const MediaSignatureTolerance = 5 * time.Minute

// VerifyMediaSignature checks the media provider's signature header against the
// exact raw request body. The header has the form "t=<unix>,v1=<hex>" where the
// hex value is an HMAC-SHA256 of "<unix>.<body>" under the shared secret.
// Verification must run over the unparsed body bytes; a re-serialized body does
// not survive byte-for-byte comparison.
func VerifyMediaSignature(rawBody []byte, header, secret string, now func() time.Time) error {
	if secret == "" || strings.TrimSpace(header) == "" {
		return ErrSignatureInvalid
	}
	if now == nil {
		now = time.Now
	}

	var timestamp string
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "t="):
			timestamp = strings.TrimPrefix(part, "t=")
		case strings.HasPrefix(part, "v1="):
			candidates = append(candidates, strings.TrimPrefix(part, "v1="))
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return ErrSignatureInvalid
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	issued := time.Unix(unix, 0)
	if drift := now().Sub(issued); drift > MediaSignatureTolerance || drift < -MediaSignatureTolerance {
		return ErrSignatureInvalid
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range candidates {
		if hmac.Equal([]byte(expected), []byte(strings.ToLower(candidate))) {
			return nil
		}
	}
	return ErrSignatureInvalid
}

// VerifyCallbackSignature checks the enrichment queue's callback signature: a
// base64-encoded HMAC-SHA256 over the raw body under the callback secret.
func VerifyCallbackSignature(rawBody []byte, header, secret string) error {
	if secret == "" || strings.TrimSpace(header) == "" {
		return ErrSignatureInvalid
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(header))) {
		return ErrSignatureInvalid
	}
	return nil
}

// VerifyIdentitySignature checks the identity provider's scheme: the signed
// content is "<msgID>.<timestamp>.<body>", the secret is base64 after a
// "whsec_" prefix, and the signature header carries space-separated
// "v1,<base64>" candidates.
func VerifyIdentitySignature(rawBody []byte, msgID, timestamp, header, secret string) error {
	if secret == "" || msgID == "" || timestamp == "" || strings.TrimSpace(header) == "" {
		return ErrSignatureInvalid
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return fmt.Errorf("decode identity webhook secret: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, candidate := range strings.Fields(header) {
		version, sig, found := strings.Cut(candidate, ",")
		if !found || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrSignatureInvalid
}
