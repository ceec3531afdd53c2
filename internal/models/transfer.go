package models

import (
	"time"
)

// TransferStatus private transfer saga state
type TransferStatus string

const (
	TransferStatusCheckingBalance TransferStatus = "checking_balance"
	TransferStatusDepositing      TransferStatus = "depositing"
	TransferStatusDeposited       TransferStatus = "deposited" // checkpoint between phases
	TransferStatusWithdrawing     TransferStatus = "withdrawing"
	TransferStatusDone            TransferStatus = "done"
	TransferStatusFailed          TransferStatus = "failed"
)

// TransferStage names the step a failed transfer stopped at.
type TransferStage string

const (
	TransferStageBalance  TransferStage = "balance"
	TransferStageDeposit  TransferStage = "deposit"
	TransferStageWithdraw TransferStage = "withdraw"
)

// TransferRecord durable checkpoint of one private transfer
type TransferRecord struct {
	ID        string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Status    TransferStatus `json:"status" gorm:"type:varchar(32);not null;index"`
	Stage     TransferStage  `json:"stage,omitempty" gorm:"type:varchar(16)"` // set when failed
	Recipient string         `json:"recipient" gorm:"type:varchar(44);not null"`

	AmountLamports   uint64 `json:"amount_lamports"`
	RequiredLamports uint64 `json:"required_lamports"` // amount plus safety margin
	BalanceLamports  uint64 `json:"balance_lamports"`  // private balance seen at start

	DepositLamports   uint64 `json:"deposit_lamports"`
	DepositSignature  string `json:"deposit_signature,omitempty" gorm:"type:varchar(88);index"`
	WithdrawSignature string `json:"withdraw_signature,omitempty" gorm:"type:varchar(88)"`
	WithdrawFee       uint64 `json:"withdraw_fee_lamports"`

	Attempts  int    `json:"attempts" gorm:"default:0"`
	LastError string `json:"last_error,omitempty" gorm:"type:text"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (TransferRecord) TableName() string {
	return "shielded_transfers"
}

// Recoverable reports whether a deposit landed but the withdrawal did not,
// so phase two can be re-run against the pool balance.
func (t *TransferRecord) Recoverable() bool {
	if t.DepositSignature == "" || t.WithdrawSignature != "" {
		return false
	}
	switch t.Status {
	case TransferStatusDeposited, TransferStatusWithdrawing, TransferStatusFailed:
		return true
	}
	return false
}

// IsTerminal done or failed
func (t *TransferRecord) IsTerminal() bool {
	return t.Status == TransferStatusDone || t.Status == TransferStatusFailed
}

// Transition moves the record to status and stamps completion time.
func (t *TransferRecord) Transition(status TransferStatus) {
	t.Status = status
	if t.IsTerminal() {
		now := time.Now()
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
}
