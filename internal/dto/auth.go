package dto

import "github.com/golang-jwt/jwt/v5"

// ==================== Auth DTOs ====================

// OperatorClaims JWT claims carried by operator API tokens
type OperatorClaims struct {
	Operator string `json:"operator"` // free-form operator name, also the subject
	Scope    string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// TokenResponse minted token
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}
