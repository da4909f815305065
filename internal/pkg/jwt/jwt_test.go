package jwt

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// verifyCaller checks token the way the router's verifier does and maps its claims.
func verifyCaller(t *testing.T, svc Service, token string) (user.Caller, error) {
	t.Helper()
	verified, err := jwtauth.VerifyToken(svc.JWTAuth(), token)
	if err != nil {
		return user.Caller{}, err
	}
	claims, err := verified.AsMap(context.Background())
	require.NoError(t, err)
	return CallerFromClaims(claims)
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc, err := NewJWTService("test-secret", "15m")
	require.NoError(t, err)

	token, expiresAt, err := svc.GenerateAccessToken("u1", user.RoleAdmin)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Positive(t, expiresAt)

	caller, err := verifyCaller(t, svc, token)
	require.NoError(t, err)
	assert.Equal(t, user.Caller{ID: "u1", Role: user.RoleAdmin}, caller)
}

func TestJWTService_RejectsForeignSignature(t *testing.T) {
	issuer, err := NewJWTService("secret-a", "15m")
	require.NoError(t, err)
	verifier, err := NewJWTService("secret-b", "15m")
	require.NoError(t, err)

	token, _, err := issuer.GenerateAccessToken("u1", user.RoleEmployee)
	require.NoError(t, err)

	_, err = verifyCaller(t, verifier, token)
	assert.Error(t, err)
}

func TestNewJWTService_InvalidExpiration(t *testing.T) {
	_, err := NewJWTService("secret", "soon")
	assert.Error(t, err)

	_, err = NewJWTService("secret", "-1m")
	assert.Error(t, err)
}

func TestGenerateAccessToken_UnknownRole(t *testing.T) {
	svc, err := NewJWTService("secret", "15m")
	require.NoError(t, err)

	_, _, err = svc.GenerateAccessToken("u1", user.Role("owner"))
	assert.Error(t, err)
}

func TestCallerFromClaims(t *testing.T) {
	tests := []struct {
		name    string
		claims  map[string]interface{}
		want    user.Caller
		wantErr error
	}{
		{
			name:   "employee",
			claims: map[string]interface{}{"type": "access", "user_id": "u2", "role": "employee"},
			want:   user.Caller{ID: "u2", Role: user.RoleEmployee},
		},
		{
			name:    "refresh token type",
			claims:  map[string]interface{}{"type": "refresh", "user_id": "u2", "role": "employee"},
			wantErr: user.ErrInvalidToken,
		},
		{
			name:    "missing user id",
			claims:  map[string]interface{}{"type": "access", "role": "employee"},
			wantErr: user.ErrMissingIdentity,
		},
		{
			name:    "unknown role",
			claims:  map[string]interface{}{"type": "access", "user_id": "u2", "role": "owner"},
			wantErr: user.ErrInsufficientPermissions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CallerFromClaims(tt.claims)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
