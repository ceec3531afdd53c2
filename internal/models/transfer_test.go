package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransferRecordRecoverable(t *testing.T) {
	tests := []struct {
		name   string
		record TransferRecord
		want   bool
	}{
		{"no deposit", TransferRecord{Status: TransferStatusFailed, Stage: TransferStageWithdraw}, false},
		{"deposit failed", TransferRecord{Status: TransferStatusFailed, Stage: TransferStageDeposit}, false},
		{"deposited checkpoint", TransferRecord{Status: TransferStatusDeposited, DepositSignature: "sig"}, true},
		{"crashed while withdrawing", TransferRecord{Status: TransferStatusWithdrawing, DepositSignature: "sig"}, true},
		{"withdraw failed after deposit", TransferRecord{Status: TransferStatusFailed, Stage: TransferStageWithdraw, DepositSignature: "sig"}, true},
		{"done", TransferRecord{Status: TransferStatusDone, DepositSignature: "sig", WithdrawSignature: "w"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.record.Recoverable())
		})
	}
}

func TestTransferRecordTransition(t *testing.T) {
	r := &TransferRecord{}
	r.Transition(TransferStatusWithdrawing)
	assert.Nil(t, r.CompletedAt)
	assert.False(t, r.IsTerminal())

	r.Transition(TransferStatusDone)
	assert.NotNil(t, r.CompletedAt)
	assert.True(t, r.IsTerminal())
	assert.Equal(t, "shielded_transfers", r.TableName())
}
