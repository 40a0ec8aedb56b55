package auth

import (
	"context"
	"net/http"
)

type contextKey int

const usernameContextKey contextKey = iota

// CookieGuard returns middleware that rejects requests without a valid
// session cookie. On success the authenticated username is attached to
// the request context, retrievable with UsernameFromContext.
func CookieGuard(issuer *TokenIssuer, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil {
				http.Error(w, "Invalid or missing token", http.StatusUnauthorized)
				return
			}

			claims, err := issuer.Verify(cookie.Value)
			if err != nil {
				http.Error(w, "Invalid or missing token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), usernameContextKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CookieGuardExcept wraps CookieGuard but lets requests for any path in
// exempt through unauthenticated, for routes like login that must be
// reachable before a session exists.
func CookieGuardExcept(issuer *TokenIssuer, cookieName string, exempt ...string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(exempt))
	for _, path := range exempt {
		skip[path] = true
	}

	guard := CookieGuard(issuer, cookieName)
	return func(next http.Handler) http.Handler {
		guarded := guard(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			guarded.ServeHTTP(w, r)
		})
	}
}

// UsernameFromContext returns the authenticated username attached by
// CookieGuard, or "" if the request was not authenticated.
func UsernameFromContext(ctx context.Context) string {
	username, _ := ctx.Value(usernameContextKey).(string)
	return username
}

// SessionCookie builds the HttpOnly, SameSite=Lax cookie carrying token.
func SessionCookie(name, token string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   false,
		MaxAge:   maxAge,
	}
}
