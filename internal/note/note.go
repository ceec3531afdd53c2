// Package note models shielded-pool UTXOs: amount, blinding, tree index,
// mint and the note keypair that owns them.
package note

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"shield-backend/internal/solana"
)

// Version identifies which derived key generation sealed a note.
type Version string

const (
	V1 Version = "v1"
	V2 Version = "v2"
)

// UnsetIndex marks a note that is not yet in the commitment tree.
const UnsetIndex int64 = -1

const plaintextFields = 4

var (
	ErrIndexUnset         = errors.New("note: tree index not set")
	ErrMalformedPlaintext = errors.New("note: malformed plaintext")
	ErrNoKeypair          = errors.New("note: keypair missing")
)

// Note is a single UTXO in the shielded pool.
type Note struct {
	Amount      *big.Int
	Blinding    *big.Int
	Index       int64
	MintAddress solana.PublicKey
	Keypair     *Keypair
	Version     Version
}

// New creates an unindexed note with a fresh blinding factor.
func New(amount *big.Int, keypair *Keypair, mint solana.PublicKey, version Version) (*Note, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("note: invalid amount %v", amount)
	}
	blinding, err := RandomBlinding()
	if err != nil {
		return nil, err
	}
	return &Note{
		Amount:      new(big.Int).Set(amount),
		Blinding:    blinding,
		Index:       UnsetIndex,
		MintAddress: mint,
		Keypair:     keypair,
		Version:     version,
	}, nil
}

// NewZero returns the zero-amount note used to pad circuit inputs and outputs.
func NewZero(keypair *Keypair, mint solana.PublicKey) (*Note, error) {
	n, err := New(big.NewInt(0), keypair, mint, V2)
	if err != nil {
		return nil, err
	}
	n.Index = 0
	return n, nil
}

// Lamports returns the amount as a uint64; amounts never exceed the native
// supply so the conversion is lossless for real notes.
func (n *Note) Lamports() uint64 {
	if n.Amount == nil || !n.Amount.IsUint64() {
		return 0
	}
	return n.Amount.Uint64()
}

// IsZero reports whether the note carries no value.
func (n *Note) IsZero() bool {
	return n.Amount == nil || n.Amount.Sign() == 0
}

// Commitment = poseidon(amount, pubkey, blinding, mintField).
func (n *Note) Commitment() (*big.Int, error) {
	if n.Keypair == nil {
		return nil, ErrNoKeypair
	}
	c, err := hash(n.Amount, n.Keypair.PublicKey(), n.Blinding, MintField(n.MintAddress))
	if err != nil {
		return nil, fmt.Errorf("note commitment: %w", err)
	}
	return c, nil
}

// Nullifier = poseidon(commitment, index, sign(commitment, index)).
func (n *Note) Nullifier() (*big.Int, error) {
	if n.Index < 0 {
		return nil, ErrIndexUnset
	}
	commitment, err := n.Commitment()
	if err != nil {
		return nil, err
	}
	index := big.NewInt(n.Index)
	sig, err := n.Keypair.Sign(commitment, index)
	if err != nil {
		return nil, err
	}
	nf, err := hash(commitment, index, sig)
	if err != nil {
		return nil, fmt.Errorf("note nullifier: %w", err)
	}
	return nf, nil
}

// Plaintext renders amount|blinding|index|mintAddress.
func (n *Note) Plaintext() string {
	return strings.Join([]string{
		n.Amount.String(),
		n.Blinding.String(),
		strconv.FormatInt(n.Index, 10),
		n.MintAddress.String(),
	}, "|")
}

// ParsePlaintext rebuilds a note from its decrypted text form. The caller
// supplies the keypair matching the ciphertext's version.
func ParsePlaintext(plaintext string, keypair *Keypair, version Version) (*Note, error) {
	parts := strings.Split(plaintext, "|")
	if len(parts) != plaintextFields {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedPlaintext, plaintextFields, len(parts))
	}
	amount, ok := new(big.Int).SetString(parts[0], 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: bad amount %q", ErrMalformedPlaintext, parts[0])
	}
	blinding, ok := new(big.Int).SetString(parts[1], 10)
	if !ok {
		return nil, fmt.Errorf("%w: bad blinding %q", ErrMalformedPlaintext, parts[1])
	}
	index, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad index %q", ErrMalformedPlaintext, parts[2])
	}
	mint, err := solana.PublicKeyFromBase58(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPlaintext, err)
	}
	return &Note{
		Amount:      amount,
		Blinding:    blinding,
		Index:       index,
		MintAddress: mint,
		Keypair:     keypair,
		Version:     version,
	}, nil
}
