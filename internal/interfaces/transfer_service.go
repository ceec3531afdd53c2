package interfaces

import (
	"context"

	"shield-backend/internal/models"
	"shield-backend/internal/solana"
)

// TransferServiceInterface is what the HTTP layer needs from the transfer
// orchestrator. It keeps handlers free of the services package's wiring.
type TransferServiceInterface interface {
	GetPrivateBalance(ctx context.Context) (uint64, error)
	GetMaxWithdrawalAmount(ctx context.Context) (uint64, error)
	PrivateTransfer(ctx context.Context, amountLamports uint64, recipient solana.PublicKey) (*models.TransferRecord, error)
	ResumeTransfer(ctx context.Context, id string) (*models.TransferRecord, error)
	GetTransfer(ctx context.Context, id string) (*models.TransferRecord, error)
	ListRecoverable(ctx context.Context) ([]*models.TransferRecord, error)
}
