package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mmynk/campusbuy/internal/apperr"
	"github.com/mmynk/campusbuy/internal/auth"
	"github.com/mmynk/campusbuy/internal/models"
	"github.com/mmynk/campusbuy/internal/response"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// principalKey is the context key for the authenticated principal.
const principalKey contextKey = "principal"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Email  string
	Role   models.Role
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the principal stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	p, _ := PrincipalFrom(ctx)
	return p.UserID
}

// TokenValidator validates access tokens.
type TokenValidator interface {
	Validate(tokenString string) (*auth.Claims, error)
}

// RequireAuth returns a middleware that validates JWT tokens and requires authentication.
// It extracts the token from the Authorization header, validates it, and adds
// the principal to the request context.
func RequireAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				response.Error(w, r, apperr.Unauthenticated("Authentication required"))
				return
			}

			claims, err := validator.Validate(tokenString)
			if err != nil {
				response.Error(w, r, apperr.Unauthenticated("Invalid or expired token"))
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{
				UserID: claims.UserID,
				Email:  claims.Email,
				Role:   claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth adds the principal to the context when a valid token is
// present and passes every request through.
func OptionalAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString, err := bearerToken(r); err == nil {
				if claims, err := validator.Validate(tokenString); err == nil {
					r = r.WithContext(WithPrincipal(r.Context(), Principal{
						UserID: claims.UserID,
						Email:  claims.Email,
						Role:   claims.Role,
					}))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken parses "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", auth.ErrMissingToken
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("malformed authorization header")
	}
	return parts[1], nil
}
