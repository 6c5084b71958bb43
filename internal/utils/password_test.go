package utils

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !VerifyPassword(hash, "s3cret-pass") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(hash, "wrong-pass") {
		t.Fatal("wrong password accepted")
	}
}

func TestHashPasswordLengthLimit(t *testing.T) {
	if _, err := HashPassword(strings.Repeat("a", 72), bcrypt.MinCost); err != nil {
		t.Fatalf("72-byte password rejected: %v", err)
	}
	_, err := HashPassword(strings.Repeat("a", 73), bcrypt.MinCost)
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("error = %v, want ErrPasswordTooLong", err)
	}
}
