package internal

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintMatchesHmacSha512(t *testing.T) {
	seed := "abc123shop1ORDER-1"
	secret := "abc123"

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(seed))
	expected := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, expected, Fingerprint(seed, secret))
}

func TestFingerprintFormat(t *testing.T) {
	digest := Fingerprint("some seed", "secret")

	require.Len(t, digest, 128)
	assert.Equal(t, strings.ToLower(digest), digest)
	_, err := hex.DecodeString(digest)
	assert.NoError(t, err)
}

func TestFingerprintRoundTrip(t *testing.T) {
	seed := "secret-value49.99EURen"
	secret := "abc123"

	first := Fingerprint(seed, secret)
	second := Fingerprint(seed, secret)

	assert.True(t, VerifyFingerprint(first, second))
}

func TestFingerprintSensitivity(t *testing.T) {
	secret := "abc123"
	seed := "49.99EURenORDER-1"
	digest := Fingerprint(seed, secret)

	// flipping any single character of a signed value must change the digest
	for i := 0; i < len(seed); i++ {
		flipped := []byte(seed)
		flipped[i] ^= 0x01
		assert.NotEqual(t, digest, Fingerprint(string(flipped), secret), "flip at %d", i)
	}

	assert.NotEqual(t, digest, Fingerprint(seed, "abc124"))
}

func TestVerifyFingerprintExactMatch(t *testing.T) {
	digest := Fingerprint("seed", "secret")

	assert.True(t, VerifyFingerprint(digest, digest))
	assert.False(t, VerifyFingerprint(digest, strings.ToUpper(digest)))
	assert.False(t, VerifyFingerprint(digest, digest+" "))
	assert.False(t, VerifyFingerprint(digest, ""))
}
