package crypto

import "golang.org/x/crypto/bcrypt"

// passwordCost is the fixed bcrypt work factor used for all credentials.
const passwordCost = 10

// HashPassword hashes plaintext using bcrypt.
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), passwordCost)
}

// VerifyPassword reports whether plaintext matches the stored digest.
// Any bcrypt failure, including a malformed digest, reads as a mismatch.
func VerifyPassword(hash []byte, plain string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain)) == nil
}
