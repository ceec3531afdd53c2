// Package events defines the transfer state-change notifications that are
// published to NATS.
package events

import (
	"context"
	"time"

	"shield-backend/internal/models"
)

// TransferEvent is published on every transfer state transition.
type TransferEvent struct {
	TransferID        string                `json:"transfer_id"`
	Status            models.TransferStatus `json:"status"`
	Stage             models.TransferStage  `json:"stage,omitempty"`
	Recipient         string                `json:"recipient"`
	AmountLamports    uint64                `json:"amount_lamports"`
	DepositLamports   uint64                `json:"deposit_lamports,omitempty"`
	DepositSignature  string                `json:"deposit_signature,omitempty"`
	WithdrawSignature string                `json:"withdraw_signature,omitempty"`
	Recoverable       bool                  `json:"recoverable"`
	Error             string                `json:"error,omitempty"`
	Timestamp         time.Time             `json:"timestamp"`
}

// NewTransferEvent snapshots record.
func NewTransferEvent(record *models.TransferRecord) *TransferEvent {
	return &TransferEvent{
		TransferID:        record.ID,
		Status:            record.Status,
		Stage:             record.Stage,
		Recipient:         record.Recipient,
		AmountLamports:    record.AmountLamports,
		DepositLamports:   record.DepositLamports,
		DepositSignature:  record.DepositSignature,
		WithdrawSignature: record.WithdrawSignature,
		Recoverable:       record.Recoverable(),
		Error:             record.LastError,
		Timestamp:         time.Now().UTC(),
	}
}

// Publisher delivers transfer events.
type Publisher interface {
	PublishTransferEvent(ctx context.Context, event *TransferEvent) error
}

// NoopPublisher is used when NATS is not configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishTransferEvent(context.Context, *TransferEvent) error { return nil }
