package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/expense-ledger/internal/model"
)

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow the identity stored here.
type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller, taken from a validated access token.
type Identity struct {
	UserID string
	Role   model.Role
}

// IsAdmin reports whether the caller holds the Admin role.
func (i Identity) IsAdmin() bool { return i.Role == model.RoleAdmin }

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the bearer token from the Authorization header, validates it, and
// stores the caller's Identity in the request context. If the token is
// missing or invalid, it returns 401 Unauthorized and stops the chain.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := BearerToken(r.Header)
			if err != nil {
				unauthorized(w)
				return
			}

			claims, err := tokens.ValidateAccessToken(raw)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := WithIdentity(r.Context(), Identity{
				UserID: claims.UserID(),
				Role:   model.Role(claims.Role),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}` + "\n"))
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the caller set by RequireAuth.
// Returns false if the request is anonymous.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// UserIDFromContext is shorthand for IdentityFromContext(ctx).UserID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := IdentityFromContext(ctx)
	return id.UserID, ok
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(headers http.Header) (string, error) {
	value := headers.Get("Authorization")
	if value == "" {
		return "", errors.New("auth: authorization header missing")
	}
	scheme, token, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", errors.New("auth: authorization scheme must be Bearer")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("auth: bearer presented without token")
	}
	return token, nil
}
