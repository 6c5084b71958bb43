package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores everything past 72 bytes, so two long passwords
// sharing a prefix would verify as each other.  Reject long input
// instead of truncating it.
const maxPasswordBytes = 72

// ErrPasswordTooLong is returned by HashPassword for passwords longer
// than the hashable limit.  Handlers translate it into a validation
// error rather than a server fault.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// HashPassword returns the bcrypt hash of plain using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	if len(plain) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt hash.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
