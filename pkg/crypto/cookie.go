package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrBadSignature is returned when a signed value fails verification.
var ErrBadSignature = errors.New("invalid cookie signature")

// SignCookie appends an HMAC-SHA256 signature to value so the cookie cannot
// be altered client-side. The value stays readable; only integrity is added.
func SignCookie(secret, value string) string {
	return value + "." + signature(secret, value)
}

// VerifyCookie checks the signature on a signed cookie value and returns the
// original value.
func VerifyCookie(secret, signed string) (string, error) {
	idx := strings.LastIndexByte(signed, '.')
	if idx < 0 {
		return "", ErrBadSignature
	}
	value, provided := signed[:idx], signed[idx+1:]
	expected := signature(secret, value)
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return "", ErrBadSignature
	}
	return value, nil
}

func signature(secret, value string) string {
	hasher := hmac.New(sha256.New, []byte(secret))
	hasher.Write([]byte(value))
	return hex.EncodeToString(hasher.Sum(nil))
}
