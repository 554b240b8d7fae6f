package auth

import (
	"context"
	"net/http"
	"strings"
)

// SessionCookie is the HttpOnly cookie that carries the session JWT.
const SessionCookie = "token"

// contextKey is an unexported type used for context keys in this package.
//
// context.WithValue accepts any key. A package-private type means only this
// package can create a key of type contextKey, so no other package can read
// or shadow the user ID by accident.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the JWT from the "token" cookie (or an Authorization: Bearer
// header), validates it, and stores the userID in the request context. If
// the token is missing or invalid, it returns 401 and stops the chain.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"Not authenticated"}`))
				return
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the user identity if a valid token is present, but
// does NOT block the request if it's missing or invalid.
//
// The OAuth callback uses it: a logged-in user completing the GitHub flow
// links GitHub to the existing account instead of signing in as someone new.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, tokens); err == nil && userID != "" {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
//
// Returns ("", false) if the request is anonymous.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// TokenFromRequest returns the raw session token: the "token" cookie first,
// then an "Authorization: Bearer <jwt>" header.
func TokenFromRequest(r *http.Request) (string, bool) {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, true
	}

	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		if tok := strings.TrimSpace(h[7:]); tok != "" {
			return tok, true
		}
	}
	return "", false
}

func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	tok, ok := TokenFromRequest(r)
	if !ok {
		return "", http.ErrNoCookie
	}
	return tokens.Validate(tok)
}
