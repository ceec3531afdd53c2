package services

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shield-backend/internal/clients"
	"shield-backend/internal/config"
	"shield-backend/internal/encryption"
	"shield-backend/internal/note"
	"shield-backend/internal/program"
	"shield-backend/internal/solana"
	"shield-backend/internal/wallet"
)

type fakeIndexer struct {
	pagedOutputs
	mu         sync.Mutex
	feeCfg     *clients.FeeConfig
	feeErr     error
	relayErr   error
	proofReqs  []string
	relayed    []*clients.RelayWithdrawRequest
	rootCalled int
}

func (f *fakeIndexer) GetMerkleRoot(context.Context, solana.PublicKey) (*clients.MerkleRoot, error) {
	f.rootCalled++
	return &clients.MerkleRoot{Root: "12345", NextIndex: 10}, nil
}

func (f *fakeIndexer) GetMerkleProof(_ context.Context, commitment string, _ solana.PublicKey) (*clients.MerkleProof, error) {
	f.mu.Lock()
	f.proofReqs = append(f.proofReqs, commitment)
	f.mu.Unlock()
	path := make([]string, MerkleTreeDepth)
	for i := range path {
		path[i] = "7"
	}
	return &clients.MerkleProof{PathElements: path, PathIndices: make([]int, MerkleTreeDepth)}, nil
}

func (f *fakeIndexer) GetFeeConfig(context.Context) (*clients.FeeConfig, error) {
	if f.feeErr != nil {
		return nil, f.feeErr
	}
	return f.feeCfg, nil
}

func (f *fakeIndexer) RelayWithdraw(_ context.Context, req *clients.RelayWithdrawRequest) (*clients.RelayWithdrawResponse, error) {
	f.relayed = append(f.relayed, req)
	if f.relayErr != nil {
		return nil, f.relayErr
	}
	return &clients.RelayWithdrawResponse{Success: true, Signature: "relayed-sig"}, nil
}

type fakeProver struct {
	witnesses []*clients.TransactWitness
}

func (f *fakeProver) Prove(_ context.Context, w *clients.TransactWitness) (*clients.ProofResponse, error) {
	f.witnesses = append(f.witnesses, w)
	return &clients.ProofResponse{
		Success: true,
		ProofA:  "0x" + strings.Repeat("11", 64),
		ProofB:  "0x" + strings.Repeat("22", 128),
		ProofC:  "0x" + strings.Repeat("33", 64),
	}, nil
}

type fakeChain struct {
	sent       [][]byte
	confirmed  []string
	sendErr    error
	confirmErr error
}

func (f *fakeChain) GetAccountsExist(_ context.Context, keys []solana.PublicKey) ([]bool, error) {
	return make([]bool, len(keys)), nil
}

func (f *fakeChain) GetLatestBlockhash(context.Context) (solana.Hash, uint64, error) {
	return solana.Hash{0xbe, 0xef}, 300, nil
}

func (f *fakeChain) SendTransaction(_ context.Context, tx []byte) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, tx)
	return "deposit-sig", nil
}

func (f *fakeChain) ConfirmTransaction(_ context.Context, signature string, _ time.Duration) error {
	f.confirmed = append(f.confirmed, signature)
	return f.confirmErr
}

type poolFixture struct {
	pool    *PoolService
	enc     *encryption.Service
	notes   *fakeNotes
	indexer *fakeIndexer
	prover  *fakeProver
	chain   *fakeChain
	wallet  *wallet.LocalWallet
}

func newPoolFixture(t *testing.T) *poolFixture {
	t.Helper()
	w, err := wallet.NewLocalWallet(ed25519.NewKeyFromSeed(bytes.Repeat([]byte{7}, ed25519.SeedSize)))
	require.NoError(t, err)

	f := &poolFixture{
		enc:     newTestEnc(t, 1),
		notes:   &fakeNotes{},
		indexer: &fakeIndexer{feeErr: errors.New("relayer config unavailable")},
		prover:  &fakeProver{},
		chain:   &fakeChain{},
		wallet:  w,
	}
	cfg := config.Default()
	cfg.Program.ProgramID = testProgramID.String()
	f.pool, err = NewPoolService(PoolDeps{
		Notes:   f.notes,
		Indexer: f.indexer,
		Prover:  f.prover,
		Chain:   f.chain,
		Wallet:  w,
		Enc:     f.enc,
		Deriver: newTestDeriver(t),
	}, cfg.Program, cfg.Solana, cfg.Transfer, quietLogger())
	require.NoError(t, err)
	return f
}

func decodeOutput(t *testing.T, enc *encryption.Service, b64 string) *note.Note {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	n, err := enc.DecryptNote(raw)
	require.NoError(t, err)
	return n
}

func TestDepositSubmitsSignedTransact(t *testing.T) {
	f := newPoolFixture(t)

	res, err := f.pool.Deposit(context.Background(), 52_000_000)
	require.NoError(t, err)
	assert.Equal(t, "deposit-sig", res.Signature)
	assert.Equal(t, []string{"deposit-sig"}, f.chain.confirmed)
	require.Len(t, f.chain.sent, 1)

	raw := f.chain.sent[0]
	// one signature slot, filled
	require.Equal(t, byte(1), raw[0])
	assert.NotEqual(t, make([]byte, 64), raw[1:65])

	// the transact instruction is last, so its data runs to the end
	at := bytes.Index(raw, program.TransactDiscriminator[:])
	require.Greater(t, at, 0)
	tx, err := program.DecodeTransact(raw[at:])
	require.NoError(t, err)
	assert.Equal(t, int64(52_000_000), tx.ExtAmount)
	assert.Zero(t, tx.Fee)
	assert.Equal(t, bytes.Repeat([]byte{0x11}, 64), tx.Proof.A[:])

	change, err := f.enc.DecryptNote(tx.EncryptedOutput1)
	require.NoError(t, err)
	assert.Equal(t, uint64(52_000_000), change.Lamports())
	pad, err := f.enc.DecryptNote(tx.EncryptedOutput2)
	require.NoError(t, err)
	assert.True(t, pad.IsZero())
	// outputs take the next two leaves of the tree
	assert.Equal(t, int64(10), change.Index)
	assert.Equal(t, int64(11), pad.Index)

	// padding inputs never ask the indexer for a path
	assert.Empty(t, f.indexer.proofReqs)
	require.Len(t, f.prover.witnesses, 1)
	w := f.prover.witnesses[0]
	assert.Equal(t, "12345", w.Root)
	assert.Equal(t, "52000000", w.PublicAmount)
	assert.Equal(t, []string{"52000000", "0"}, w.OutAmount)
	assert.Equal(t, zeroPath(), w.InPathElements[0])
}

func TestDepositOutputsAreSpendableOnRescan(t *testing.T) {
	f := newPoolFixture(t)

	_, err := f.pool.Deposit(context.Background(), 52_000_000)
	require.NoError(t, err)
	raw := f.chain.sent[0]
	tx, err := program.DecodeTransact(raw[bytes.Index(raw, program.TransactDiscriminator[:]):])
	require.NoError(t, err)

	outputs := &pagedOutputs{}
	outputs.add(tx.EncryptedOutput1)
	outputs.add(tx.EncryptedOutput2)
	scanner := NewNoteService(outputs, &nullifierAccounts{}, f.enc, newTestDeriver(t), 0, quietLogger())

	balance, err := scanner.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(52_000_000), balance)

	// the rescanned change note feeds the next withdrawal
	notes, err := scanner.UnspentNotes(context.Background())
	require.NoError(t, err)
	f.notes.notes = notes
	_, err = f.pool.Withdraw(context.Background(), 20_000_000, recipientX)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 0}, f.prover.witnesses[1].InPathIndices)
}

func TestDepositConsolidatesExistingNotes(t *testing.T) {
	f := newPoolFixture(t)
	f.notes.notes = []*note.Note{ownedNote(t, f.enc, note.V2, 30_000_000, 3)}

	_, err := f.pool.Deposit(context.Background(), 20_000_000)
	require.NoError(t, err)

	w := f.prover.witnesses[0]
	assert.Equal(t, []string{"30000000", "0"}, w.InAmount)
	assert.Equal(t, []string{"50000000", "0"}, w.OutAmount)
	assert.Len(t, f.indexer.proofReqs, 1)
}

func TestDepositSendFailure(t *testing.T) {
	f := newPoolFixture(t)
	f.chain.sendErr = errors.New("blockhash not found")

	_, err := f.pool.Deposit(context.Background(), 52_000_000)
	assert.ErrorContains(t, err, "send transaction")
	assert.Empty(t, f.chain.confirmed)
}

func TestDepositUnconfirmedReturnsSignature(t *testing.T) {
	f := newPoolFixture(t)
	f.chain.confirmErr = errors.New("confirmation timed out")

	res, err := f.pool.Deposit(context.Background(), 52_000_000)
	assert.ErrorContains(t, err, "confirm transaction")
	require.NotNil(t, res)
	assert.Equal(t, "deposit-sig", res.Signature)
	assert.Len(t, f.chain.sent, 1)
}

func TestWithdrawRelaysWithFallbackFees(t *testing.T) {
	f := newPoolFixture(t)
	big1 := ownedNote(t, f.enc, note.V2, 600_000_000, 5)
	big2 := ownedNote(t, f.enc, note.V2, 500_000_000, 9)
	f.notes.notes = []*note.Note{big1, big2}

	res, err := f.pool.Withdraw(context.Background(), 100_000_000, recipientX)
	require.NoError(t, err)
	assert.Equal(t, "relayed-sig", res.Signature)
	assert.Equal(t, uint64(1_100_000), res.FeeLamports)

	require.Len(t, f.indexer.relayed, 1)
	req := f.indexer.relayed[0]
	assert.Equal(t, recipientX.String(), req.Recipient)
	assert.Equal(t, int64(-100_000_000), req.ExtAmount)
	assert.Equal(t, uint64(1_100_000), req.Fee)
	assert.Equal(t, f.wallet.PublicKey().String(), req.SenderAddress)
	assert.Empty(t, req.MintAddress)

	data, err := base64.StdEncoding.DecodeString(req.SerializedProof)
	require.NoError(t, err)
	tx, err := program.DecodeTransact(data)
	require.NoError(t, err)
	assert.Equal(t, int64(-100_000_000), tx.ExtAmount)
	assert.Equal(t, uint64(1_100_000), tx.Fee)

	change := decodeOutput(t, f.enc, req.EncryptedOutput1)
	assert.Equal(t, uint64(998_900_000), change.Lamports())
	assert.Equal(t, int64(10), change.Index)

	nf, err := big1.Nullifier()
	require.NoError(t, err)
	n0, err := newTestDeriver(t).NullifierAddress(note.FieldBytes(nf), 0)
	require.NoError(t, err)
	assert.Equal(t, n0.String(), req.Nullifier0PDA)

	w := f.prover.witnesses[0]
	assert.Equal(t, []int64{5, 9}, w.InPathIndices)
	assert.Equal(t, "7", w.InPathElements[1][25])
	assert.Len(t, f.indexer.proofReqs, 2)
	assert.Empty(t, f.chain.sent, "withdrawals go through the relayer")
}

func TestWithdrawUsesRelayerFees(t *testing.T) {
	f := newPoolFixture(t)
	f.indexer.feeErr = nil
	f.indexer.feeCfg = &clients.FeeConfig{WithdrawFeeRate: 0.0035, WithdrawRentFee: 0.006}
	f.notes.notes = []*note.Note{ownedNote(t, f.enc, note.V2, 200_000_000, 1)}

	res, err := f.pool.Withdraw(context.Background(), 100_000_000, recipientX)
	require.NoError(t, err)
	assert.Equal(t, uint64(6_350_000), res.FeeLamports)

	change := decodeOutput(t, f.enc, f.indexer.relayed[0].EncryptedOutput1)
	assert.Equal(t, uint64(93_650_000), change.Lamports())
}

func TestWithdrawInsufficientSuggestsMaximum(t *testing.T) {
	f := newPoolFixture(t)
	f.notes.notes = []*note.Note{
		ownedNote(t, f.enc, note.V2, 600_000_000, 5),
		ownedNote(t, f.enc, note.V2, 500_000_000, 9),
	}

	_, err := f.pool.Withdraw(context.Background(), 1_090_000_000, recipientX)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	var ibe *InsufficientBalanceError
	require.True(t, errors.As(err, &ibe))
	assert.Equal(t, uint64(1_100_000_000), ibe.AvailableLamports)
	assert.Equal(t, uint64(1_089_009_900), ibe.SuggestedLamports)

	assert.Empty(t, f.prover.witnesses)
	assert.Empty(t, f.indexer.relayed)
}

func TestWithdrawWithoutNotes(t *testing.T) {
	f := newPoolFixture(t)

	_, err := f.pool.Withdraw(context.Background(), 100_000_000, recipientX)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestWithdrawRelayRejected(t *testing.T) {
	f := newPoolFixture(t)
	f.indexer.relayErr = errors.New("relayer rejected withdrawal: nullifier already used")
	f.notes.notes = []*note.Note{ownedNote(t, f.enc, note.V2, 200_000_000, 1)}

	_, err := f.pool.Withdraw(context.Background(), 100_000_000, recipientX)
	assert.ErrorContains(t, err, "nullifier already used")
}
