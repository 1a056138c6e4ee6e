package controllers

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
)

// RequireAuth rejects requests without a valid bearer token signed with
// secret.
func RequireAuth(secret string) mux.MiddlewareFunc {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(raw, "Bearer ") {
				writeAPIError(w, r, http.StatusUnauthorized, "AUTH_MISSING_TOKEN", "missing bearer token")
				return
			}
			raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))

			token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return key, nil
			})
			if err != nil || !token.Valid {
				writeAPIError(w, r, http.StatusUnauthorized, "AUTH_INVALID_TOKEN", "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
