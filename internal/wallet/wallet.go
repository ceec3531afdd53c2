// Package wallet provides the signing capability the pool operations and
// key derivation consume.
package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"shield-backend/internal/solana"
)

var ErrInvalidKeypair = errors.New("wallet: invalid keypair")

// Wallet signs messages and transactions for one account.
type Wallet interface {
	PublicKey() solana.PublicKey
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
	SignAllTransactions(ctx context.Context, txs []*solana.Transaction) error
}

// LocalWallet holds an ed25519 key in memory.
type LocalWallet struct {
	key    ed25519.PrivateKey
	pubkey solana.PublicKey
}

var _ Wallet = (*LocalWallet)(nil)

// NewLocalWallet wraps a 64-byte ed25519 private key.
func NewLocalWallet(key ed25519.PrivateKey) (*LocalWallet, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeypair, ed25519.PrivateKeySize, len(key))
	}
	derived := ed25519.NewKeyFromSeed(key.Seed())
	if !derived.Equal(key) {
		return nil, fmt.Errorf("%w: public half does not match seed", ErrInvalidKeypair)
	}
	pk, err := solana.PublicKeyFromBytes(key.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &LocalWallet{key: key, pubkey: pk}, nil
}

// GenerateLocalWallet creates a wallet with a fresh random key.
func GenerateLocalWallet() (*LocalWallet, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return NewLocalWallet(key)
}

// LoadKeypairFile reads a Solana CLI keypair file (JSON array of 64 bytes).
func LoadKeypairFile(path string) (*LocalWallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}
	return ParseKeypairJSON(data)
}

func ParseKeypairJSON(data []byte) (*LocalWallet, error) {
	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
	}
	key := make([]byte, len(raw))
	for i, v := range raw {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("%w: byte %d out of range", ErrInvalidKeypair, i)
		}
		key[i] = byte(v)
	}
	return NewLocalWallet(ed25519.PrivateKey(key))
}

// MarshalKeypairJSON renders the key in Solana CLI format.
func (w *LocalWallet) MarshalKeypairJSON() ([]byte, error) {
	raw := make([]int, len(w.key))
	for i, b := range w.key {
		raw[i] = int(b)
	}
	return json.Marshal(raw)
}

func (w *LocalWallet) PublicKey() solana.PublicKey {
	return w.pubkey
}

func (w *LocalWallet) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ed25519.Sign(w.key, message), nil
}

// SignTransaction fills this wallet's signature slot.
func (w *LocalWallet) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := tx.Message.Serialize()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}
	var sig solana.Signature
	copy(sig[:], ed25519.Sign(w.key, msg))
	return tx.SetSignature(w.pubkey, sig)
}

func (w *LocalWallet) SignAllTransactions(ctx context.Context, txs []*solana.Transaction) error {
	for i, tx := range txs {
		if err := w.SignTransaction(ctx, tx); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return nil
}
