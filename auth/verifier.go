// Package auth implements the secret verifier over bcrypt salted hashes.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// BcryptVerifier hashes and verifies user secrets with bcrypt
type BcryptVerifier struct {
	cost int
}

// NewBcryptVerifier creates a verifier with the production cost factor
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{cost: bcryptCost}
}

// NewBcryptVerifierWithCost creates a verifier with a custom cost factor.
// Tests use the minimum cost to keep hashing fast.
func NewBcryptVerifierWithCost(cost int) *BcryptVerifier {
	return &BcryptVerifier{cost: cost}
}

// Hash returns the salted hash of a secret
func (v *BcryptVerifier) Hash(ctx context.Context, secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), v.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether secret matches the stored hash. A mismatch is a
// normal false return; only unexpected hash states surface as errors.
func (v *BcryptVerifier) Verify(ctx context.Context, secret, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("failed to compare secret hash: %w", err)
}
