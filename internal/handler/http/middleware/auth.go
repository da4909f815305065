package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/user"
	"github.com/cmlabs-hris/attendance-tracker/internal/handler/http/response"
	jwtpkg "github.com/cmlabs-hris/attendance-tracker/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

type callerKey struct{}

// AuthRequired rejects requests without a verified access token and stores
// the resolved caller in the request context. It runs after jwtauth.Verifier.
func AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			response.HandleError(w, user.ErrInvalidToken)
			return
		}

		caller, err := jwtpkg.CallerFromClaims(claims)
		if err != nil {
			response.HandleError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

// WithCaller returns a copy of ctx carrying caller.
func WithCaller(ctx context.Context, caller user.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the caller stored by AuthRequired.
func CallerFromContext(ctx context.Context) (user.Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(user.Caller)
	return caller, ok
}
