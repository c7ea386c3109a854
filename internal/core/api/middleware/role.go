package middleware

import (
	"net/http"
	"slices"
)

// RequireRole rejects any request whose Principal (set by Auth) does
// not carry role among its Roles. Auth must run before this middleware.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if !slices.Contains(principal.Roles, role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
