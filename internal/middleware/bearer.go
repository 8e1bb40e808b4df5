// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"net/http"
	"strings"
)

// BearerAuth enforces a static bearer credential on every request, the
// way the real API authenticates callers. Requests without a matching
// Authorization header are rejected.
func BearerAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			if token != key {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
