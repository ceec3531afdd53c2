package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shield-backend/internal/models"
)

func TestMemoryTransferRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTransferRepository()

	base := time.Now().Add(-time.Hour)
	records := []*models.TransferRecord{
		{ID: "a", Status: models.TransferStatusDone, DepositSignature: "d", WithdrawSignature: "w", CreatedAt: base},
		{ID: "b", Status: models.TransferStatusFailed, Stage: models.TransferStageWithdraw, DepositSignature: "d", CreatedAt: base.Add(time.Minute)},
		{ID: "c", Status: models.TransferStatusDeposited, DepositSignature: "d", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "d", Status: models.TransferStatusFailed, Stage: models.TransferStageDeposit, CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, r := range records {
		require.NoError(t, repo.Create(ctx, r))
	}
	require.Error(t, repo.Create(ctx, &models.TransferRecord{ID: "a"}))

	recoverable, err := repo.ListRecoverable(ctx)
	require.NoError(t, err)
	require.Len(t, recoverable, 2)
	assert.Equal(t, "b", recoverable[0].ID)
	assert.Equal(t, "c", recoverable[1].ID)

	recent, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "d", recent[0].ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrTransferNotFound)
}

func TestMemoryTransferRepositoryCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTransferRepository()
	r := &models.TransferRecord{ID: "x", Status: models.TransferStatusCheckingBalance}
	require.NoError(t, repo.Create(ctx, r))

	r.Status = models.TransferStatusDone
	got, err := repo.GetByID(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusCheckingBalance, got.Status)

	require.NoError(t, repo.Save(ctx, r))
	got, err = repo.GetByID(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusDone, got.Status)
}
