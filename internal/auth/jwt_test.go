package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_CreateAndVerify(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Create("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestTokenIssuer_RejectsTamperedToken(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Create("alice")
	require.NoError(t, err)

	_, err = issuer.Verify(token + "tampered")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsWrongSecret(t *testing.T) {
	issuer1, err := NewTokenIssuer("secret-one", time.Hour)
	require.NoError(t, err)
	issuer2, err := NewTokenIssuer("secret-two", time.Hour)
	require.NoError(t, err)

	token, err := issuer1.Create("alice")
	require.NoError(t, err)

	_, err = issuer2.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsExpiredToken(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	// NewTokenIssuer replaces a non-positive expiry with the 24h default,
	// so the already-expired lifetime is set on the issuer directly.
	issuer.expiry = -time.Hour

	token, err := issuer.Create("alice")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
}
