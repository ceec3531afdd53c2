package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"shield-backend/internal/handlers"
)

// AuthMiddleware JWT bearer authentication for operator endpoints
type AuthMiddleware struct {
	secret []byte
	logger *logrus.Logger
}

// NewAuthMiddleware create JWT middleware for secret
func NewAuthMiddleware(secret string, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secret: []byte(secret),
		logger: logger,
	}
}

func (a *AuthMiddleware) reject(c *gin.Context, reason, message, code string) {
	a.logger.WithFields(logrus.Fields{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
		"reason": reason,
	}).Warn("JWT authentication failed")

	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   reason,
		"message": message,
		"code":    code,
	})
	c.Abort()
}

// RequireAuth rejects requests without a valid operator token
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			a.reject(c, "Authentication required", "Missing Authorization header. Please provide a valid JWT token.", "MISSING_AUTH_HEADER")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			a.reject(c, "Invalid authorization format", "Authorization header must be in format: Bearer <token>", "INVALID_AUTH_FORMAT")
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" {
			a.reject(c, "Empty token", "Token cannot be empty", "EMPTY_TOKEN")
			return
		}

		claims, err := handlers.ValidateOperatorToken(a.secret, tokenString)
		if err != nil {
			a.reject(c, "Invalid or expired token", err.Error(), "INVALID_TOKEN")
			return
		}

		c.Set("operator", claims.Operator)
		a.logger.WithFields(logrus.Fields{
			"path":     c.Request.URL.Path,
			"method":   c.Request.Method,
			"operator": claims.Operator,
		}).Debug("JWT authentication succeeded")

		c.Next()
	}
}
