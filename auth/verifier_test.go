package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptVerifier_HashAndVerify(t *testing.T) {
	ctx := context.Background()
	v := NewBcryptVerifierWithCost(bcrypt.MinCost)

	hash, err := v.Hash(ctx, "1234")
	require.NoError(t, err)
	assert.NotEqual(t, "1234", hash)

	ok, err := v.Verify(ctx, "1234", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBcryptVerifier_Mismatch(t *testing.T) {
	ctx := context.Background()
	v := NewBcryptVerifierWithCost(bcrypt.MinCost)

	hash, err := v.Hash(ctx, "1234")
	require.NoError(t, err)

	ok, err := v.Verify(ctx, "4321", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptVerifier_UniqueSalts(t *testing.T) {
	ctx := context.Background()
	v := NewBcryptVerifierWithCost(bcrypt.MinCost)

	first, err := v.Hash(ctx, "123456")
	require.NoError(t, err)
	second, err := v.Hash(ctx, "123456")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestBcryptVerifier_GarbageHash(t *testing.T) {
	ctx := context.Background()
	v := NewBcryptVerifier()

	_, err := v.Verify(ctx, "1234", "not-a-bcrypt-hash")
	assert.Error(t, err)
}
