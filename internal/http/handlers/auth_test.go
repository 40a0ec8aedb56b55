package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/dashgate/internal/auth"
	"github.com/jmylchreest/dashgate/internal/config"
)

func newTestAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()
	issuer, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	users := NewStaticUserStore([]config.UserCredential{{Username: "alice", Password: "wonderland"}})
	return NewAuthHandler(issuer, users, "auth")
}

func TestAuthHandler_LoginSucceedsWithValidCredentials(t *testing.T) {
	h := newTestAuthHandler(t)

	out, err := h.Login(context.Background(), &LoginInput{Body: LoginRequest{Username: "alice", Password: "wonderland"}})
	require.NoError(t, err)
	assert.NotEmpty(t, out.SetCookie)
	assert.Contains(t, out.SetCookie, "auth=")
}

func TestAuthHandler_LoginRejectsWrongPassword(t *testing.T) {
	h := newTestAuthHandler(t)

	_, err := h.Login(context.Background(), &LoginInput{Body: LoginRequest{Username: "alice", Password: "wrong"}})
	require.Error(t, err)
}

func TestAuthHandler_LoginRejectsUnknownUser(t *testing.T) {
	h := newTestAuthHandler(t)

	_, err := h.Login(context.Background(), &LoginInput{Body: LoginRequest{Username: "bob", Password: "anything"}})
	require.Error(t, err)
}

func TestStaticUserStore_UnknownUserNotFound(t *testing.T) {
	store := NewStaticUserStore([]config.UserCredential{{Username: "alice", Password: "wonderland"}})

	_, ok := store.Password("bob")
	assert.False(t, ok)
}
