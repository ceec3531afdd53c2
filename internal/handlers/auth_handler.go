package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shield-backend/internal/dto"
)

const tokenIssuer = "shield-backend"

var ErrMissingSecret = errors.New("jwt secret not configured")

// GenerateOperatorToken mints an HS256 operator token valid for ttl.
func GenerateOperatorToken(secret []byte, operator string, ttl time.Duration) (string, *dto.OperatorClaims, error) {
	if len(secret) == 0 {
		return "", nil, ErrMissingSecret
	}
	now := time.Now()
	claims := &dto.OperatorClaims{
		Operator: operator,
		Scope:    "transfers",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   operator,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, claims, nil
}

// ValidateOperatorToken verifies signature, expiry and issuer.
func ValidateOperatorToken(secret []byte, tokenString string) (*dto.OperatorClaims, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &dto.OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(*dto.OperatorClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token claims")
}
