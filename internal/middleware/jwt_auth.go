package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/UjraaTech/Ujraa-API/internal/models"
)

type contextKey string

const ctxUserKey contextKey = "user"

// TokenValidator checks a bearer token and returns the subject and role;
// satisfied by auth.Service.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

// JWTAuth authenticates requests by validating the Bearer token. On success
// it sets the user's identity and role into request context; handlers read
// it back with UserFromCtx.
func JWTAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}

			userID, role, err := validator.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserKey, &models.User{ID: userID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromCtx returns the authenticated user or nil. Only ID and Role are
// populated; anything else needs a lookup.
func UserFromCtx(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxUserKey).(*models.User)
	return u
}

// WithUser returns a context carrying the given user.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxUserKey, u)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
