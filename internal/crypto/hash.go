// Package crypto provides password and secret hashing helpers.
package crypto

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned when a password does not match its hash.
var ErrMismatch = errors.New("password mismatch")

// bcrypt cost for stored passwords. Tests lower it through SetCost.
var cost = bcrypt.DefaultCost

// SetCost changes the bcrypt cost used by HashPassword. Costs below
// bcrypt.MinCost fall back to bcrypt.DefaultCost.
func SetCost(c int) {
	if c < bcrypt.MinCost {
		c = bcrypt.DefaultCost
	}
	cost = c
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash failed: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares password with a hash from HashPassword.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}

// EqualSecret compares two shared secrets in constant time.
func EqualSecret(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
