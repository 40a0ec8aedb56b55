// Package handlers provides HTTP API handlers for dashgate.
package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/dashgate/internal/auth"
	"github.com/jmylchreest/dashgate/internal/config"
)

// UserStore looks up a configured user's password by username.
type UserStore interface {
	Password(username string) (string, bool)
}

// staticUserStore implements UserStore over the declarative users.yaml
// table loaded at startup.
type staticUserStore struct {
	byUsername map[string]string
}

// NewStaticUserStore builds a UserStore from the declarative user table.
func NewStaticUserStore(users []config.UserCredential) UserStore {
	byUsername := make(map[string]string, len(users))
	for _, u := range users {
		byUsername[u.Username] = u.Password
	}
	return &staticUserStore{byUsername: byUsername}
}

func (s *staticUserStore) Password(username string) (string, bool) {
	password, ok := s.byUsername[username]
	return password, ok
}

// AuthHandler handles login and session issuance.
type AuthHandler struct {
	issuer     *auth.TokenIssuer
	users      UserStore
	cookieName string
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(issuer *auth.TokenIssuer, users UserStore, cookieName string) *AuthHandler {
	return &AuthHandler{issuer: issuer, users: users, cookieName: cookieName}
}

// Register registers the login route with the API.
func (h *AuthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      "POST",
		Path:        "/login",
		Summary:     "Authenticate",
		Description: "Verifies a username/password pair and issues a session cookie.",
		Tags:        []string{"Auth"},
	}, h.Login)
}

// LoginRequest is the login endpoint's request body.
type LoginRequest struct {
	Username string `json:"username" doc:"Account username"`
	Password string `json:"password" doc:"Account password"`
}

// LoginInput is the input for the login endpoint.
type LoginInput struct {
	Body LoginRequest
}

// LoginOutput is the output for the login endpoint. The session cookie is
// attached via SetCookie rather than the JSON body.
type LoginOutput struct {
	SetCookie string `header:"Set-Cookie"`
	Body      struct {
		Message string `json:"message"`
	}
}

// Login verifies credentials against the declarative user table and, on
// success, issues a signed session cookie. Failure is reported uniformly
// as 401 regardless of whether the username or the password was wrong, so
// a caller cannot enumerate valid usernames.
func (h *AuthHandler) Login(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	password, ok := h.users.Password(input.Body.Username)
	if !ok || password != input.Body.Password {
		return nil, huma.Error401Unauthorized("Invalid credentials")
	}

	token, err := h.issuer.Create(input.Body.Username)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to issue session", err)
	}

	cookie := auth.SessionCookie(h.cookieName, token, int(h.issuer.Expiry().Seconds()))

	out := &LoginOutput{SetCookie: cookie.String()}
	out.Body.Message = "login successful"
	return out, nil
}
