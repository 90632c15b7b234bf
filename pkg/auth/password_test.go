package auth

import (
	"strings"
	"testing"
)

func TestHashPasswordAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("qwJdKcbRzt")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if hash == "qwJdKcbRzt" {
		t.Fatalf("hash must not equal the plaintext password")
	}
	if !CheckPassword("qwJdKcbRzt", hash) {
		t.Fatalf("expected bcrypt password check to pass")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("expected bcrypt password check to fail")
	}
}

func TestHashPasswordProducesDistinctHashes(t *testing.T) {
	first, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("first hash: %v", err)
	}
	second, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("second hash: %v", err)
	}
	if first == second {
		t.Fatalf("expected salted hashes to differ")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("lettersOnly"); err != nil {
		t.Fatalf("plain letter passwords must be accepted, got: %v", err)
	}
	if err := ValidatePassword(""); err == nil {
		t.Fatalf("expected empty password to fail")
	}
	if err := ValidatePassword(strings.Repeat("a", 73)); err == nil {
		t.Fatalf("expected over-length password to fail")
	}
}
