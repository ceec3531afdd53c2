package dto

import (
	"time"

	"shield-backend/internal/models"
)

// ==================== Transfer DTOs ====================

// TransferRequest POST /api/transfers body; exactly one of the amounts is set
type TransferRequest struct {
	AmountLamports uint64 `json:"amount_lamports"`
	// AmountSOL is a decimal string, e.g. "0.1"
	AmountSOL      string `json:"amount_sol"`
	Recipient      string `json:"recipient" binding:"required"` // base58 address
}

// TransferResponse transfer record as exposed over HTTP
type TransferResponse struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	Stage             string     `json:"stage,omitempty"`
	Recipient         string     `json:"recipient"`
	AmountLamports    uint64     `json:"amount_lamports"`
	DepositLamports   uint64     `json:"deposit_lamports,omitempty"`
	DepositSignature  string     `json:"deposit_signature,omitempty"`
	WithdrawSignature string     `json:"withdraw_signature,omitempty"`
	WithdrawFee       uint64     `json:"withdraw_fee_lamports,omitempty"`
	Attempts          int        `json:"attempts"`
	Recoverable       bool       `json:"recoverable"`
	LastError         string     `json:"last_error,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// NewTransferResponse converts a stored record.
func NewTransferResponse(r *models.TransferRecord) TransferResponse {
	return TransferResponse{
		ID:                r.ID,
		Status:            string(r.Status),
		Stage:             string(r.Stage),
		Recipient:         r.Recipient,
		AmountLamports:    r.AmountLamports,
		DepositLamports:   r.DepositLamports,
		DepositSignature:  r.DepositSignature,
		WithdrawSignature: r.WithdrawSignature,
		WithdrawFee:       r.WithdrawFee,
		Attempts:          r.Attempts,
		Recoverable:       r.Recoverable(),
		LastError:         r.LastError,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		CompletedAt:       r.CompletedAt,
	}
}

// BalanceResponse private balance
type BalanceResponse struct {
	Lamports uint64  `json:"lamports"`
	SOL      float64 `json:"sol"`
}
