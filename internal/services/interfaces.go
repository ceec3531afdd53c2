package services

import (
	"context"
	"time"

	"shield-backend/internal/clients"
	"shield-backend/internal/interfaces"
	"shield-backend/internal/note"
	"shield-backend/internal/solana"
)

// OutputSource pages encrypted note outputs.
type OutputSource interface {
	GetEncryptedOutputs(ctx context.Context, start, end int64) (*clients.EncryptedOutputsPage, error)
}

// AccountChecker reports which accounts exist on chain.
type AccountChecker interface {
	GetAccountsExist(ctx context.Context, keys []solana.PublicKey) ([]bool, error)
}

// MerkleSource serves roots and inclusion paths.
type MerkleSource interface {
	GetMerkleRoot(ctx context.Context, mint solana.PublicKey) (*clients.MerkleRoot, error)
	GetMerkleProof(ctx context.Context, commitment string, mint solana.PublicKey) (*clients.MerkleProof, error)
}

type FeeSource interface {
	GetFeeConfig(ctx context.Context) (*clients.FeeConfig, error)
}

type Relayer interface {
	RelayWithdraw(ctx context.Context, req *clients.RelayWithdrawRequest) (*clients.RelayWithdrawResponse, error)
}

// Indexer is everything the pool needs from the indexer service.
type Indexer interface {
	OutputSource
	MerkleSource
	FeeSource
	Relayer
}

type Prover interface {
	Prove(ctx context.Context, witness *clients.TransactWitness) (*clients.ProofResponse, error)
}

// ChainClient submits and confirms transactions.
type ChainClient interface {
	AccountChecker
	GetLatestBlockhash(ctx context.Context) (solana.Hash, uint64, error)
	SendTransaction(ctx context.Context, tx []byte) (string, error)
	ConfirmTransaction(ctx context.Context, signature string, timeout time.Duration) error
}

// NoteSource lists the session's unspent notes, largest first.
type NoteSource interface {
	UnspentNotes(ctx context.Context) ([]*note.Note, error)
	Balance(ctx context.Context) (uint64, error)
}

// DepositResult outcome of a deposit
type DepositResult struct {
	Signature      string
	AmountLamports uint64
}

// WithdrawResult outcome of a withdrawal
type WithdrawResult struct {
	Signature      string
	AmountLamports uint64
	FeeLamports    uint64
	Recipient      solana.PublicKey
}

// ShieldedPool is the deposit/withdraw capability the orchestrator drives.
// Deposit returns a non-nil result alongside an error when the transaction
// was broadcast but not confirmed; it may still land.
type ShieldedPool interface {
	Deposit(ctx context.Context, amountLamports uint64) (*DepositResult, error)
	Withdraw(ctx context.Context, amountLamports uint64, recipient solana.PublicKey) (*WithdrawResult, error)
}

var (
	_ Indexer     = (*clients.IndexerClient)(nil)
	_ Prover      = (*clients.ProverClient)(nil)
	_ ChainClient = (*clients.RPCClient)(nil)

	_ interfaces.TransferServiceInterface = (*TransferService)(nil)
)
