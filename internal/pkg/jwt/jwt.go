package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const tokenTypeAccess = "access"

type Service interface {
	GenerateAccessToken(userID string, role user.Role) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpiration time.Duration
	tokenAuth             *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// NewJWTService builds an HS256 token service. accessTokenExpirationTime uses
// time.ParseDuration syntax, e.g. "15m".
func NewJWTService(secretKey string, accessTokenExpirationTime string) (Service, error) {
	expiration, err := time.ParseDuration(accessTokenExpirationTime)
	if err != nil {
		return nil, fmt.Errorf("invalid access token expiration %q: %w", accessTokenExpirationTime, err)
	}
	if expiration <= 0 {
		return nil, errors.New("access token expiration must be positive")
	}
	return &JWTService{
		accessTokenExpiration: expiration,
		tokenAuth:             jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}, nil
}

func (j *JWTService) GenerateAccessToken(userID string, role user.Role) (token string, expiresAt int64, err error) {
	if !role.IsValid() {
		return "", 0, fmt.Errorf("unknown role %q", role)
	}
	expiresAt = time.Now().Add(j.accessTokenExpiration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id": userID,
		"role":    string(role),
		"type":    tokenTypeAccess,
		"exp":     expiresAt,
	})
	return tokenString, expiresAt, err
}

// CallerFromClaims maps verified access token claims to a caller.
func CallerFromClaims(claims map[string]interface{}) (user.Caller, error) {
	if tokenType, _ := claims["type"].(string); tokenType != tokenTypeAccess {
		return user.Caller{}, user.ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return user.Caller{}, user.ErrMissingIdentity
	}

	roleStr, _ := claims["role"].(string)
	role := user.Role(roleStr)
	if !role.IsValid() {
		return user.Caller{}, user.ErrInsufficientPermissions
	}

	return user.Caller{ID: userID, Role: role}, nil
}
