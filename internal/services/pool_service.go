package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"

	"shield-backend/internal/clients"
	"shield-backend/internal/config"
	"shield-backend/internal/encryption"
	"shield-backend/internal/extdata"
	"shield-backend/internal/metrics"
	"shield-backend/internal/note"
	"shield-backend/internal/pda"
	"shield-backend/internal/program"
	"shield-backend/internal/solana"
	"shield-backend/internal/wallet"
)

// PoolService builds, proves and submits shielded pool transactions.
type PoolService struct {
	notes            NoteSource
	indexer          Indexer
	prover           Prover
	chain            ChainClient
	wallet           wallet.Wallet
	enc              *encryption.Service
	deriver          *pda.Deriver
	mint             solana.PublicKey
	feeRecipient     solana.PublicKey
	computeUnitLimit uint32
	confirmTimeout   time.Duration
	transferCfg      config.TransferConfig
	logger           *logrus.Logger
}

var _ ShieldedPool = (*PoolService)(nil)

// PoolDeps collects PoolService collaborators.
type PoolDeps struct {
	Notes   NoteSource
	Indexer Indexer
	Prover  Prover
	Chain   ChainClient
	Wallet  wallet.Wallet
	Enc     *encryption.Service
	Deriver *pda.Deriver
}

// NewPoolService Create pool service for the native pool
func NewPoolService(deps PoolDeps, programCfg config.ProgramConfig, solanaCfg config.SolanaConfig, transferCfg config.TransferConfig, logger *logrus.Logger) (*PoolService, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	feeRecipient := deps.Wallet.PublicKey()
	if programCfg.FeeRecipient != "" {
		pk, err := solana.PublicKeyFromBase58(programCfg.FeeRecipient)
		if err != nil {
			return nil, fmt.Errorf("fee recipient: %w", err)
		}
		feeRecipient = pk
	}
	confirmTimeout := 60 * time.Second
	if solanaCfg.ConfirmTimeoutSec > 0 {
		confirmTimeout = time.Duration(solanaCfg.ConfirmTimeoutSec) * time.Second
	}
	cu := programCfg.ComputeUnitLimit
	if cu == 0 {
		cu = 1_000_000
	}
	return &PoolService{
		notes:            deps.Notes,
		indexer:          deps.Indexer,
		prover:           deps.Prover,
		chain:            deps.Chain,
		wallet:           deps.Wallet,
		enc:              deps.Enc,
		deriver:          deps.Deriver,
		mint:             solana.NativeMint,
		feeRecipient:     feeRecipient,
		computeUnitLimit: cu,
		confirmTimeout:   confirmTimeout,
		transferCfg:      transferCfg,
		logger:           logger,
	}, nil
}

// Deposit moves amountLamports from the wallet into the pool. Existing notes
// (at most two) are consolidated into the single change note.
func (p *PoolService) Deposit(ctx context.Context, amountLamports uint64) (*DepositResult, error) {
	if amountLamports == 0 || amountLamports > math.MaxInt64 {
		return nil, fmt.Errorf("invalid deposit amount %d", amountLamports)
	}
	start := time.Now()
	defer func() {
		metrics.TransferStageDuration.WithLabelValues("deposit").Observe(time.Since(start).Seconds())
	}()

	kp, err := p.enc.Keypair(note.V2)
	if err != nil {
		return nil, err
	}
	existing, err := p.notes.UnspentNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	inputs, err := padInputs(existing, kp, p.mint)
	if err != nil {
		return nil, err
	}

	total := new(big.Int).SetUint64(amountLamports)
	for _, in := range inputs {
		total.Add(total, in.Amount)
	}
	outputs, err := p.outputs(total, kp)
	if err != nil {
		return nil, err
	}

	signer := p.wallet.PublicKey()
	built, err := p.buildTransact(ctx, inputs, outputs, extdata.ExtData{
		Recipient:    signer,
		ExtAmount:    int64(amountLamports),
		Fee:          0,
		FeeRecipient: p.feeRecipient,
		MintAddress:  p.mint,
	})
	if err != nil {
		return nil, err
	}

	accounts, err := program.TransactAccounts(p.deriver, program.AccountParams{
		Recipient:    signer,
		FeeRecipient: p.feeRecipient,
		Signer:       signer,
		Mint:         p.mint,
		Nullifiers:   built.nullifiers,
	})
	if err != nil {
		return nil, err
	}
	ix := program.NewTransactInstruction(p.deriver.ProgramID(), accounts, built.data)

	signature, err := p.submit(ctx, []solana.Instruction{solana.SetComputeUnitLimit(p.computeUnitLimit), ix})
	if err != nil {
		if signature != "" {
			p.logger.WithFields(logrus.Fields{
				"signature": signature,
				"error":     err,
			}).Warn("[Pool] deposit sent but not confirmed")
			return &DepositResult{Signature: signature, AmountLamports: amountLamports}, err
		}
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"signature":       signature,
		"amount_lamports": amountLamports,
		"inputs_used":     len(existing),
	}).Info("[Pool] deposit confirmed")
	return &DepositResult{Signature: signature, AmountLamports: amountLamports}, nil
}

func (p *PoolService) submit(ctx context.Context, instructions []solana.Instruction) (string, error) {
	blockhash, _, err := p.chain.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("latest blockhash: %w", err)
	}
	tx, err := solana.NewTransaction(p.wallet.PublicKey(), instructions, blockhash)
	if err != nil {
		return "", err
	}
	if err := p.wallet.SignTransaction(ctx, tx); err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	raw, err := tx.Serialize()
	if err != nil {
		return "", err
	}
	signature, err := p.chain.SendTransaction(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	if err := p.chain.ConfirmTransaction(ctx, signature, p.confirmTimeout); err != nil {
		return signature, fmt.Errorf("confirm transaction: %w", err)
	}
	return signature, nil
}

// Withdraw pays amountLamports to recipient through the relayer, spending
// the two largest notes.
func (p *PoolService) Withdraw(ctx context.Context, amountLamports uint64, recipient solana.PublicKey) (*WithdrawResult, error) {
	if amountLamports == 0 || amountLamports > math.MaxInt64 {
		return nil, fmt.Errorf("invalid withdrawal amount %d", amountLamports)
	}
	start := time.Now()
	defer func() {
		metrics.TransferStageDuration.WithLabelValues("withdraw").Observe(time.Since(start).Seconds())
	}()

	kp, err := p.enc.Keypair(note.V2)
	if err != nil {
		return nil, err
	}
	existing, err := p.notes.UnspentNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	if len(existing) == 0 {
		return nil, &InsufficientBalanceError{RequestedLamports: amountLamports}
	}
	inputs, err := padInputs(existing, kp, p.mint)
	if err != nil {
		return nil, err
	}
	available := sumLamports(inputs)

	fees := resolveFees(ctx, p.indexer, p.transferCfg, p.logger)
	fee := fees.Fee(amountLamports)
	if amountLamports+fee > available {
		return nil, &InsufficientBalanceError{
			RequestedLamports: amountLamports,
			AvailableLamports: available,
			SuggestedLamports: fees.MaxWithdrawal(available),
		}
	}

	change := new(big.Int).SetUint64(available - amountLamports - fee)
	outputs, err := p.outputs(change, kp)
	if err != nil {
		return nil, err
	}

	built, err := p.buildTransact(ctx, inputs, outputs, extdata.ExtData{
		Recipient:    recipient,
		ExtAmount:    -int64(amountLamports),
		Fee:          fee,
		FeeRecipient: p.feeRecipient,
		MintAddress:  p.mint,
	})
	if err != nil {
		return nil, err
	}

	req, err := p.relayRequest(built, recipient)
	if err != nil {
		return nil, err
	}
	resp, err := p.indexer.RelayWithdraw(ctx, req)
	if err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"signature":        resp.Signature,
		"amount_lamports":  amountLamports,
		"fee_lamports":     fee,
		"fee_from_relayer": fees.Authoritative,
		"recipient":        recipient.String(),
	}).Info("[Pool] withdrawal relayed")
	return &WithdrawResult{
		Signature:      resp.Signature,
		AmountLamports: amountLamports,
		FeeLamports:    fee,
		Recipient:      recipient,
	}, nil
}

// outputs = change note + zero note, both owned by the v2 keypair.
func (p *PoolService) outputs(change *big.Int, kp *note.Keypair) ([]*note.Note, error) {
	changeNote, err := note.New(change, kp, p.mint, note.V2)
	if err != nil {
		return nil, err
	}
	zero, err := note.NewZero(kp, p.mint)
	if err != nil {
		return nil, err
	}
	return []*note.Note{changeNote, zero}, nil
}

func (p *PoolService) relayRequest(built *builtTransact, recipient solana.PublicKey) (*clients.RelayWithdrawRequest, error) {
	tree, err := p.deriver.TreeAccountForMint(p.mint)
	if err != nil {
		return nil, err
	}
	treeToken, err := p.deriver.TreeTokenAccountForMint(p.mint)
	if err != nil {
		return nil, err
	}
	globalConfig, err := p.deriver.GlobalConfigAccount()
	if err != nil {
		return nil, err
	}
	req := &clients.RelayWithdrawRequest{
		SerializedProof:  base64.StdEncoding.EncodeToString(built.data),
		TreeAccount:      tree.String(),
		Nullifier0PDA:    built.nullifiers.N0.String(),
		Nullifier1PDA:    built.nullifiers.N1.String(),
		Nullifier2PDA:    built.nullifiers.N2.String(),
		Nullifier3PDA:    built.nullifiers.N3.String(),
		TreeTokenAccount: treeToken.String(),
		GlobalConfig:     globalConfig.String(),
		Recipient:        recipient.String(),
		FeeRecipient:     p.feeRecipient.String(),
		ExtAmount:        built.ext.ExtAmount,
		EncryptedOutput1: base64.StdEncoding.EncodeToString(built.ext.EncryptedOutput1),
		EncryptedOutput2: base64.StdEncoding.EncodeToString(built.ext.EncryptedOutput2),
		Fee:              built.ext.Fee,
		SenderAddress:    p.wallet.PublicKey().String(),
	}
	if p.mint != solana.NativeMint {
		req.MintAddress = p.mint.String()
	}
	return req, nil
}
