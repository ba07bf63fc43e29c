package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// independent reconstruction of the signing input, to catch any drift in how
// Compute assembles "<timestamp>.<body>"
func referenceSignature(secret, timestamp string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(timestamp + "." + string(body)))
	return hex.EncodeToString(h.Sum(nil))
}

func TestCompute_SigningInputReconstruction(t *testing.T) {
	secret := "whsec_0000"
	body := []byte(`{"versionId":"v1"}`)

	got := Compute(secret, "1000000000", body)
	want := referenceSignature(secret, "1000000000", body)

	assert.Equal(t, want, got)
}

func TestVerifyHeader_RoundTrip(t *testing.T) {
	secret := "whsec_roundtrip"
	body := []byte(`{"event":"model_canvas.version_created","payload":{"versionId":"v1"}}`)

	header := BuildHeader(secret, 1700000000, body)

	assert.NoError(t, VerifyHeader(secret, header, body))
}

func TestVerifyHeader_TamperedBody(t *testing.T) {
	secret := "whsec_tamper"
	body := []byte(`{"versionId":"v1"}`)
	header := BuildHeader(secret, 1700000000, body)

	tampered := append([]byte(nil), body...)
	tampered[2] ^= 0x01

	assert.ErrorIs(t, VerifyHeader(secret, header, tampered), ErrSignatureMismatch)
}

func TestVerifyHeader_TamperedTimestamp(t *testing.T) {
	secret := "whsec_tamper_ts"
	body := []byte(`{"versionId":"v1"}`)

	sig := Compute(secret, "1700000000", body)
	header := "t=1700000001,v1=" + sig

	assert.ErrorIs(t, VerifyHeader(secret, header, body), ErrSignatureMismatch)
}

func TestVerifyHeader_WrongSecret(t *testing.T) {
	body := []byte(`{"versionId":"v1"}`)
	header := BuildHeader("whsec_a", 1700000000, body)

	assert.ErrorIs(t, VerifyHeader("whsec_b", header, body), ErrSignatureMismatch)
}

func TestVerifyHeader_TruncatedSignature(t *testing.T) {
	secret := "whsec_trunc"
	body := []byte(`{}`)
	header := BuildHeader(secret, 1700000000, body)

	assert.ErrorIs(t, VerifyHeader(secret, header[:len(header)-2], body), ErrSignatureMismatch)
}

func TestParseHeader_ComponentOrder(t *testing.T) {
	ts, sig, err := ParseHeader("v1=deadbeef,t=1000000000")
	require.NoError(t, err)
	assert.Equal(t, "1000000000", ts)
	assert.Equal(t, "deadbeef", sig)
}

func TestParseHeader_Malformed(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"empty", ""},
		{"missing signature", "t=1000000000"},
		{"missing timestamp", "v1=deadbeef"},
		{"wrong scheme", "sha256=deadbeef"},
		{"bare values", "1000000000,deadbeef"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseHeader(tc.header)
			assert.ErrorIs(t, err, ErrMalformedHeader)
		})
	}
}

func TestVerifyHeader_KnownMismatch(t *testing.T) {
	// the real signature for this body under this secret is not deadbeef
	err := VerifyHeader("whsec_secret", "t=1000000000,v1=deadbeef", []byte(`{"event":"x"}`))
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}
