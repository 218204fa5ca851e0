package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
)

// AuthService validates the access tokens Supabase Auth issues to the
// frontend. Sign-up, login and refresh stay on Supabase.
type AuthService struct {
	jwtSecret []byte
}

// NewAuthService creates a validator for tokens signed with jwtSecret.
func NewAuthService(jwtSecret string) *AuthService {
	return &AuthService{jwtSecret: []byte(jwtSecret)}
}

// JWTClaims are the claims of a Supabase access token.
type JWTClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// ValidateAccessToken checks the signature and expiry of tokenString and
// returns its claims. The subject is the user id.
func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	if len(s.jwtSecret) == 0 {
		return nil, &domain.ErrUnavailable{Component: "auth"}
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido o expirado"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}
	if claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "Token sin usuario"}
	}
	if claims.Role == "anon" {
		return nil, &domain.ErrUnauthorized{Message: "Se requiere una sesión de usuario"}
	}

	return claims, nil
}
