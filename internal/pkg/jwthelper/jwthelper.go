package jwthelper

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "gate-api"

var ErrMissingOperator = errors.New("token has no operator")

// OperatorClaims identifies the gate operator a token was issued to.
type OperatorClaims struct {
	jwt.RegisteredClaims
	Operator string `json:"operator"`
	Role     string `json:"role,omitempty"`
}

// GenerateToken signs an HS256 token for operator. A zero ttl issues a token
// without expiry.
func GenerateToken(key []byte, operator, role string, ttl time.Duration) (string, error) {
	if operator == "" {
		return "", ErrMissingOperator
	}

	now := time.Now()
	claims := OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  operator,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Operator: operator,
		Role:     role,
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("token.SignedString -> %w", err)
	}

	return signed, nil
}

func ParseToken(key []byte, tokenString string) (*OperatorClaims, error) {
	claims := &OperatorClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("jwt.ParseWithClaims -> %w", err)
	}

	if claims.Operator == "" {
		return nil, ErrMissingOperator
	}

	return claims, nil
}
