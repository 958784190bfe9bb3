package crypto

import "testing"

func TestHashPasswordProducesVerifiableDigest(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if string(hash) == "secret" {
		t.Fatalf("digest must not equal the plaintext")
	}
	if !VerifyPassword(hash, "secret") {
		t.Fatalf("expected digest to verify against original plaintext")
	}
	if VerifyPassword(hash, "not-the-secret") {
		t.Fatalf("expected mismatch for wrong plaintext")
	}
}

func TestHashPasswordIsSalted(t *testing.T) {
	first, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	second, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if string(first) == string(second) {
		t.Fatalf("two digests of the same plaintext should differ")
	}
}

func TestVerifyPasswordMalformedDigest(t *testing.T) {
	if VerifyPassword([]byte("not-a-bcrypt-digest"), "secret") {
		t.Fatalf("malformed digest must read as a mismatch, not verify")
	}
}
