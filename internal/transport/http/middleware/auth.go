package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/cliptube/identity-api/internal/domain"
	jwtinfra "github.com/cliptube/identity-api/internal/infrastructure/jwt"
)

type contextKey string

const userKey contextKey = "user"

// AccessTokenCookie is the cookie the login endpoint sets and this
// middleware reads.
const AccessTokenCookie = "accessToken"

// maxPeekBody caps how much of the request body the middleware will read
// when looking for an inline access token.
const maxPeekBody = 1 << 20

type userLoader interface {
	GetProjection(ctx context.Context, userID string) (*domain.User, error)
}

// Auth returns middleware that authenticates the request and injects the
// sanitized user record into the context. The token is taken from the first
// non-empty source in order: the accessToken cookie, an accessToken field in
// a JSON body, then the Authorization Bearer header. Every failure mode
// produces the same 401 so callers cannot probe which check rejected them.
func Auth(provider *jwtinfra.Provider, users userLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				writeUnauthorized(w)
				return
			}
			claims, err := provider.VerifyAccess(token)
			if err != nil {
				writeUnauthorized(w)
				return
			}
			u, err := users.GetProjection(r.Context(), claims.UserID)
			if err != nil {
				// A valid token for a deleted user is still a rejection.
				writeUnauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext extracts the authenticated user placed by Auth.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userKey).(*domain.User)
	return u, ok
}

// WithUser returns a context carrying u the way Auth injects it.
func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func extractToken(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if t := tokenFromBody(r); t != "" {
		return t
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// tokenFromBody peeks into a JSON body for an accessToken field and restores
// the body so downstream handlers can still decode it.
func tokenFromBody(r *http.Request) string {
	if r.Body == nil || !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBody))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	var body struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.AccessToken
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}
