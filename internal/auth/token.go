package auth

import (
	"errors"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/lexhub/comms-audit/internal/domain"
)

// TokenManager validates operator JWTs issued by the platform's identity
// service. This service never issues tokens; it only shares the secret.
type TokenManager struct {
	secret []byte
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// Claims describes the operator JWT payload.
type Claims struct {
	OperatorID string           `json:"sub"`
	Name       string           `json:"name"`
	Role       domain.AgentRole `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
