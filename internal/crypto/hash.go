package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the cost factor used when callers pass a
// non-positive cost.
const DefaultBcryptCost = 10

var ErrEmptyPassword = errors.New("password cannot be empty")

// HashPassword hashes a password with bcrypt using the given cost factor.
// A cost outside bcrypt's supported range falls back to DefaultBcryptCost.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	return string(hash), nil
}

// CheckPassword reports whether a password matches the given bcrypt hash.
// An empty or malformed hash counts as a mismatch, never an error; callers
// treat "no hash on file" as invalid credentials.
func CheckPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
