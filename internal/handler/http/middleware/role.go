package middleware

import (
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/user"
	"github.com/cmlabs-hris/attendance-tracker/internal/handler/http/response"
)

// RequireAdmin requires admin role
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			response.HandleError(w, user.ErrInvalidToken)
			return
		}

		if !caller.IsAdmin() {
			response.HandleError(w, user.ErrAdminPrivilegeRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequirePermission checks if user has specific permission
func RequirePermission(permission user.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFromContext(r.Context())
			if !ok {
				response.HandleError(w, user.ErrInvalidToken)
				return
			}

			if !user.HasPermission(caller.Role, permission) {
				response.Forbidden(w, fmt.Sprintf("Insufficient permissions: required '%s', but user role is '%s'", permission, caller.Role))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
