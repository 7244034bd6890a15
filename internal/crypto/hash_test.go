package crypto

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	SetCost(bcrypt.MinCost)
	defer SetCost(bcrypt.DefaultCost)

	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash must not equal the password")
	}

	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Errorf("CheckPassword() error = %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrMismatch) {
		t.Errorf("CheckPassword(wrong) error = %v, want ErrMismatch", err)
	}
	if err := CheckPassword("not-a-hash", "x"); err == nil || errors.Is(err, ErrMismatch) {
		t.Errorf("CheckPassword(bad hash) error = %v, want a non-mismatch error", err)
	}
}

func TestEqualSecret(t *testing.T) {
	if !EqualSecret("abc", "abc") {
		t.Error("equal secrets should match")
	}
	if EqualSecret("abc", "abd") || EqualSecret("", "abc") {
		t.Error("different secrets should not match")
	}
}
