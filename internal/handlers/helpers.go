package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"shield-backend/internal/encryption"
	"shield-backend/internal/services"
)

// ============ Unified utility functions ============

// respondWithError unified error response function
func respondWithError(c *gin.Context, statusCode int, errorType, message string, details interface{}) {
	response := gin.H{
		"success": false,
		"error":   errorType,
		"message": message,
	}
	if details != nil {
		response["details"] = details
	}
	c.JSON(statusCode, response)
}

// validateRequestBinding unified request binding validation function
func validateRequestBinding(c *gin.Context, logger *logrus.Logger, req interface{}, operation string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		logger.WithFields(logrus.Fields{
			"operation": operation,
			"error":     err.Error(),
		}).Warn("[API] request validation failed")
		respondWithError(c, http.StatusBadRequest, "Invalid request parameters", err.Error(), nil)
		return false
	}
	return true
}

// respondWithServiceError maps orchestrator errors onto HTTP statuses.
func respondWithServiceError(c *gin.Context, err error, details gin.H) {
	var insufficient *services.InsufficientBalanceError
	var failed *services.TransferFailedError

	switch {
	case errors.As(err, &insufficient):
		if details == nil {
			details = gin.H{}
		}
		details["requested_amount_lamports"] = insufficient.RequestedLamports
		details["available_lamports"] = insufficient.AvailableLamports
		details["suggested_amount_lamports"] = insufficient.SuggestedLamports
		respondWithError(c, http.StatusUnprocessableEntity, "Insufficient private balance", err.Error(), details)
	case errors.Is(err, services.ErrBelowMinimumWithdrawal):
		respondWithError(c, http.StatusBadRequest, "Amount below minimum", err.Error(), details)
	case services.IsNotFound(err):
		respondWithError(c, http.StatusNotFound, "Transfer not found", err.Error(), details)
	case errors.Is(err, services.ErrTransferNotRecoverable):
		respondWithError(c, http.StatusConflict, "Transfer not recoverable", err.Error(), details)
	case errors.Is(err, encryption.ErrKeyNotInitialized):
		respondWithError(c, http.StatusServiceUnavailable, "Session keys not initialized", err.Error(), details)
	case errors.As(err, &failed):
		respondWithError(c, http.StatusBadGateway, "Transfer failed", err.Error(), details)
	default:
		respondWithError(c, http.StatusInternalServerError, "Internal error", err.Error(), details)
	}
}
