package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

type contextKey string

const storeKey contextKey = "store_id"

// StoreID extracts the authenticated store from the request context.
func StoreID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(storeKey).(uuid.UUID)
	return id, ok
}

// WithStore returns a context carrying the given store. Intended for tests
// and internal callers that bypass the HTTP middleware.
func WithStore(ctx context.Context, storeID uuid.UUID) context.Context {
	return context.WithValue(ctx, storeKey, storeID)
}

// RequireStore parses the bearer token and injects the caller's store into
// the request context. Every tenant-scoped handler sits behind this.
func RequireStore(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return key, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, `{"error":"invalid token claims"}`, http.StatusUnauthorized)
				return
			}
			storeID, err := uuid.Parse(fmt.Sprint(claims["store_id"]))
			if err != nil {
				http.Error(w, `{"error":"token has no store context"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithStore(r.Context(), storeID)))
		})
	}
}
