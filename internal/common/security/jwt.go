package security

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the role claim required on the admin routes.
const RoleAdmin = "admin"

// NewTokenAuth returns the HS256 verifier/encoder for admin tokens.
func NewTokenAuth(secret []byte) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", secret, nil)
}

// GenerateToken issues a token for subject with the given role, valid for ttl.
func GenerateToken(auth *jwtauth.JWTAuth, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}
	_, tokenString, err := auth.Encode(claims)
	return tokenString, err
}

func GetSubjectFromClaims(claims jwt.MapClaims) (string, error) {
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("sub claim is missing or not a string")
	}
	return sub, nil
}

func GetRoleFromClaims(claims jwt.MapClaims) (string, error) {
	role, ok := claims["role"].(string)
	if !ok {
		return "", errors.New("role claim is missing or not a string")
	}
	return role, nil
}
