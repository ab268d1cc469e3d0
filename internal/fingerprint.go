package internal

import (
	"gitee.com/golang-module/dongle"
)

// Fingerprint computes the keyed digest proving a parameter set was produced
// by the holder of the shared secret: HMAC-SHA-512 over the seed with the
// secret as key, lowercase hex encoded. Note that the protocol also places
// the secret as the first token of the seed itself; both usages are required.
func Fingerprint(seed, secret string) string {
	return dongle.Encrypt.FromString(seed).ByHmacSha512(secret).ToHexString()
}

// VerifyFingerprint compares the locally computed digest against the one
// supplied by the gateway. The comparison is an exact string match; no
// normalization of case or whitespace is applied.
func VerifyFingerprint(computed, supplied string) bool {
	return computed == supplied
}
