package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"shield-backend/internal/dto"
	"shield-backend/internal/interfaces"
	"shield-backend/internal/solana"
	"shield-backend/internal/utils"
)

// TransferHandler operator endpoints for balances and private transfers
type TransferHandler struct {
	transfers interfaces.TransferServiceInterface
	logger    *logrus.Logger
}

// NewTransferHandler creates a new TransferHandler instance
func NewTransferHandler(transfers interfaces.TransferServiceInterface, logger *logrus.Logger) *TransferHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TransferHandler{transfers: transfers, logger: logger}
}

// GetBalanceHandler private balance of the session
// GET /api/balance
func (h *TransferHandler) GetBalanceHandler(c *gin.Context) {
	lamports, err := h.transfers.GetPrivateBalance(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("[API] balance lookup failed")
		respondWithServiceError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, dto.BalanceResponse{
		Lamports: lamports,
		SOL:      utils.LamportsToSOL(lamports),
	})
}

// GetMaxWithdrawalHandler advisory maximum for a single withdrawal
// GET /api/withdraw/max
func (h *TransferHandler) GetMaxWithdrawalHandler(c *gin.Context) {
	lamports, err := h.transfers.GetMaxWithdrawalAmount(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("[API] max withdrawal lookup failed")
		respondWithServiceError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"max_amount_lamports": lamports,
		"max_amount_sol":      utils.FormatSOL(lamports),
	})
}

// CreateTransferHandler runs a private transfer to completion
// POST /api/transfers
func (h *TransferHandler) CreateTransferHandler(c *gin.Context) {
	var req dto.TransferRequest
	if !validateRequestBinding(c, h.logger, &req, "CreateTransfer") {
		return
	}
	amount, err := requestedLamports(&req)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid amount", err.Error(), nil)
		return
	}
	recipient, err := solana.PublicKeyFromBase58(req.Recipient)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid recipient", err.Error(), nil)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"amount_lamports": amount,
		"recipient":       req.Recipient,
		"operator":        c.GetString("operator"),
	}).Info("[API] private transfer requested")

	record, err := h.transfers.PrivateTransfer(c.Request.Context(), amount, recipient)
	if err != nil {
		var details gin.H
		if record != nil {
			details = gin.H{"transfer": dto.NewTransferResponse(record)}
		}
		respondWithServiceError(c, err, details)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"transfer": dto.NewTransferResponse(record),
	})
}

// ListRecoverableHandler transfers whose deposit landed without a withdrawal
// GET /api/transfers/recoverable
func (h *TransferHandler) ListRecoverableHandler(c *gin.Context) {
	records, err := h.transfers.ListRecoverable(c.Request.Context())
	if err != nil {
		respondWithServiceError(c, err, nil)
		return
	}
	out := make([]dto.TransferResponse, 0, len(records))
	for _, r := range records {
		out = append(out, dto.NewTransferResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{
		"transfers": out,
		"total":     len(out),
	})
}

// GetTransferHandler
// GET /api/transfers/:id
func (h *TransferHandler) GetTransferHandler(c *gin.Context) {
	record, err := h.transfers.GetTransfer(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithServiceError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, dto.NewTransferResponse(record))
}

// ResumeTransferHandler retries the withdrawal of a recoverable transfer
// POST /api/transfers/:id/resume
func (h *TransferHandler) ResumeTransferHandler(c *gin.Context) {
	id := c.Param("id")
	record, err := h.transfers.ResumeTransfer(c.Request.Context(), id)
	if err != nil {
		var details gin.H
		if record != nil {
			details = gin.H{"transfer": dto.NewTransferResponse(record)}
		}
		respondWithServiceError(c, err, details)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"transfer_id": id,
		"attempts":    record.Attempts,
	}).Info("[API] transfer resumed")
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"transfer": dto.NewTransferResponse(record),
	})
}

func requestedLamports(req *dto.TransferRequest) (uint64, error) {
	switch {
	case req.AmountLamports > 0 && req.AmountSOL != "":
		return 0, errors.New("set amount_lamports or amount_sol, not both")
	case req.AmountLamports > 0:
		return req.AmountLamports, nil
	case req.AmountSOL != "":
		lamports, err := utils.ParseSOL(req.AmountSOL)
		if err != nil {
			return 0, err
		}
		if lamports == 0 {
			return 0, errors.New("amount must be positive")
		}
		return lamports, nil
	default:
		return 0, errors.New("amount_lamports or amount_sol is required")
	}
}
