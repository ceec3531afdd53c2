// Package extdata serializes the public parameters of a shielded transaction
// and hashes them into the value the proof commits to.
package extdata

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"shield-backend/internal/layout"
	"shield-backend/internal/note"
	"shield-backend/internal/solana"
)

// ExtData holds the public parameters bound to a proof. ExtAmount is
// positive for deposits and negative for withdrawals.
type ExtData struct {
	Recipient        solana.PublicKey
	ExtAmount        int64
	EncryptedOutput1 []byte
	EncryptedOutput2 []byte
	Fee              uint64
	FeeRecipient     solana.PublicKey
	MintAddress      solana.PublicKey
}

// Serialize writes the fields in program order:
// recipient || extAmount || vec(out1) || vec(out2) || fee || feeRecipient || mint.
func (e *ExtData) Serialize() []byte {
	w := layout.NewWriter()
	w.WriteRaw(e.Recipient[:])
	w.WriteI64LE(e.ExtAmount)
	w.WriteVec(e.EncryptedOutput1)
	w.WriteVec(e.EncryptedOutput2)
	w.WriteU64LE(e.Fee)
	w.WriteRaw(e.FeeRecipient[:])
	w.WriteRaw(e.MintAddress[:])
	return w.Bytes()
}

// Decode parses the output of Serialize.
func Decode(b []byte) (*ExtData, error) {
	r := layout.NewReader(b)
	e := &ExtData{}
	var err error
	if err = r.ReadInto(e.Recipient[:]); err != nil {
		return nil, fmt.Errorf("ext data recipient: %w", err)
	}
	if e.ExtAmount, err = r.ReadI64LE(); err != nil {
		return nil, fmt.Errorf("ext data amount: %w", err)
	}
	if e.EncryptedOutput1, err = r.ReadVec(); err != nil {
		return nil, fmt.Errorf("ext data output 1: %w", err)
	}
	if e.EncryptedOutput2, err = r.ReadVec(); err != nil {
		return nil, fmt.Errorf("ext data output 2: %w", err)
	}
	if e.Fee, err = r.ReadU64LE(); err != nil {
		return nil, fmt.Errorf("ext data fee: %w", err)
	}
	if err = r.ReadInto(e.FeeRecipient[:]); err != nil {
		return nil, fmt.Errorf("ext data fee recipient: %w", err)
	}
	if err = r.ReadInto(e.MintAddress[:]); err != nil {
		return nil, fmt.Errorf("ext data mint: %w", err)
	}
	if err = r.ExpectEOF(); err != nil {
		return nil, fmt.Errorf("ext data: %w", err)
	}
	return e, nil
}

// Hash is the SHA-256 of Serialize().
func (e *ExtData) Hash() [32]byte {
	return sha256.Sum256(e.Serialize())
}

// HashField returns Hash() as a BN254 field element for the witness.
func (e *ExtData) HashField() *big.Int {
	h := e.Hash()
	return note.ToField(new(big.Int).SetBytes(h[:]))
}

// BindExtData is a convenience wrapper over Hash.
func BindExtData(e ExtData) [32]byte {
	return e.Hash()
}
