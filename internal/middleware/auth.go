package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/expohall/expohall/internal/access"
	"github.com/expohall/expohall/internal/auth"
)

// identityKey is the context key for the caller identity.
type identityKey struct{}

// WithIdentity attaches the caller identity to the context.
func WithIdentity(ctx context.Context, identity access.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// GetIdentity retrieves the caller identity from context.
// A zero Identity means the request is anonymous.
func GetIdentity(ctx context.Context) access.Identity {
	if id, ok := ctx.Value(identityKey{}).(access.Identity); ok {
		return id
	}
	return access.Identity{}
}

// writeUnauthorized writes a 401 in the envelope format. The middleware
// cannot use the api package's writer without an import cycle.
func writeUnauthorized(w http.ResponseWriter, ctx context.Context, message string) {
	UpdateResponseContext(w, SetErrorCode(ctx, "auth_failed"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"success":false,"error":{"code":"auth_failed","message":%q}}`, message)
}

// Authenticate validates a Bearer token when one is present and attaches the
// caller identity to the context. Requests without a token pass through as
// anonymous; requests with an invalid token are rejected with 401.
// Per-route access decisions stay with the handlers.
func Authenticate(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				writeUnauthorized(w, r.Context(), "Invalid Authorization header")
				return
			}

			claims, err := jwtService.ValidateToken(tokenString)
			if err != nil {
				writeUnauthorized(w, r.Context(), "Invalid or expired token")
				return
			}

			identity := access.Identity{
				ID:   claims.Subject,
				Role: access.Role(claims.Role),
			}
			ctx := WithIdentity(r.Context(), identity)
			ctx = SetUserID(ctx, identity.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests with 401. It assumes Authenticate
// runs earlier in the chain.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetIdentity(r.Context()).Anonymous() {
			writeUnauthorized(w, r.Context(), "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
