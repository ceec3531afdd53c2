package services

import (
	"errors"
	"fmt"

	"shield-backend/internal/models"
)

var (
	ErrInsufficientBalance    = errors.New("insufficient private balance")
	ErrBelowMinimumWithdrawal = errors.New("amount below minimum withdrawal")
	ErrTransferNotRecoverable = errors.New("transfer is not recoverable")
)

// InsufficientBalanceError carries a reduced amount the caller can retry with.
type InsufficientBalanceError struct {
	RequestedLamports uint64
	AvailableLamports uint64
	SuggestedLamports uint64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient private balance: requested %d lamports, spendable %d, max withdrawable %d",
		e.RequestedLamports, e.AvailableLamports, e.SuggestedLamports)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// TransferFailedError reports the stage a private transfer stopped at.
type TransferFailedError struct {
	Stage      models.TransferStage
	TransferID string
	Cause      error
}

func (e *TransferFailedError) Error() string {
	return fmt.Sprintf("transfer %s failed at %s: %v", e.TransferID, e.Stage, e.Cause)
}

func (e *TransferFailedError) Unwrap() error {
	return e.Cause
}
