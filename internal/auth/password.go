package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"society/internal/core"
)

const MinPasswordLength = 6

// HashPassword validates and bcrypt-hashes a password.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", core.NewValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if len(password) > 72 {
		return "", core.NewValidationError("password", "must be at most 72 bytes")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.Is(err, bcrypt.ErrHashTooShort) {
		return fmt.Errorf("wrong credentials: %w", core.ErrUnauthorized)
	}
	if err != nil {
		return fmt.Errorf("compare password: %w", err)
	}
	return nil
}
