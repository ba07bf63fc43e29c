// Package signature implements the HMAC scheme shared by the outbound
// dispatcher and the inbound vendor webhook verifier: the signing input is the
// exact string "<unix_seconds>.<body>" and the header value is
// "t=<unix_seconds>,v1=<hex_hmac>".
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrMalformedHeader indicates the signature header is missing the t= or v1= component
	ErrMalformedHeader = errors.New("malformed signature header")
	// ErrSignatureMismatch indicates the recomputed HMAC does not match the received one
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// Compute returns the lowercase hex HMAC-SHA256 of "<timestamp>.<body>".
// The timestamp is passed as a string so verification can reuse the exact
// bytes received on the wire instead of a reformatted integer.
func Compute(secret string, timestamp string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(timestamp))
	h.Write([]byte("."))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// BuildHeader signs body at the given unix-seconds timestamp and returns the
// full header value "t=<ts>,v1=<hex>".
func BuildHeader(secret string, timestamp int64, body []byte) string {
	ts := strconv.FormatInt(timestamp, 10)
	return "t=" + ts + ",v1=" + Compute(secret, ts, body)
}

// ParseHeader splits a "t=...,v1=..." header value into its timestamp and
// signature components. Component order is not significant. Returns
// ErrMalformedHeader if either component is absent.
func ParseHeader(header string) (timestamp, sig string, err error) {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "t="):
			timestamp = strings.TrimPrefix(part, "t=")
		case strings.HasPrefix(part, "v1="):
			sig = strings.TrimPrefix(part, "v1=")
		}
	}
	if timestamp == "" || sig == "" {
		return "", "", ErrMalformedHeader
	}
	return timestamp, sig, nil
}

// VerifyHeader parses the header, recomputes the HMAC over the exact raw body
// received, and compares in constant time. Format and mismatch failures are
// distinct errors internally; HTTP callers must collapse both to a generic
// unauthorized response.
func VerifyHeader(secret, header string, body []byte) error {
	timestamp, sig, err := ParseHeader(header)
	if err != nil {
		return err
	}
	expected := Compute(secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrSignatureMismatch
	}
	return nil
}
