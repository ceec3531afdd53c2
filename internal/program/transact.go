// Package program frames instructions for the shielded pool program.
package program

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"shield-backend/internal/layout"
	"shield-backend/internal/note"
	"shield-backend/internal/pda"
	"shield-backend/internal/solana"
)

const DiscriminatorLength = 8

var (
	TransactDiscriminator    = [DiscriminatorLength]byte{217, 149, 130, 143, 221, 52, 252, 119}
	TransactSPLDiscriminator = [DiscriminatorLength]byte{154, 66, 244, 204, 78, 225, 163, 151}
)

var ErrUnknownDiscriminator = errors.New("program: unknown instruction discriminator")

// ProofLength is the encoded size of Proof.
const ProofLength = 64 + 128 + 64 + 32*3 + 32*2 + 32*2

// Proof is a Groth16 proof plus the public inputs the program checks.
type Proof struct {
	A                 [64]byte
	B                 [128]byte
	C                 [64]byte
	Root              [32]byte
	PublicAmount      [32]byte
	ExtDataHash       [32]byte
	InputNullifiers   [2][32]byte
	OutputCommitments [2][32]byte
}

func (p *Proof) write(w *layout.Writer) {
	w.WriteRaw(p.A[:])
	w.WriteRaw(p.B[:])
	w.WriteRaw(p.C[:])
	w.WriteRaw(p.Root[:])
	w.WriteRaw(p.PublicAmount[:])
	w.WriteRaw(p.ExtDataHash[:])
	for i := range p.InputNullifiers {
		w.WriteRaw(p.InputNullifiers[i][:])
	}
	for i := range p.OutputCommitments {
		w.WriteRaw(p.OutputCommitments[i][:])
	}
}

func (p *Proof) read(r *layout.Reader) error {
	fields := [][]byte{p.A[:], p.B[:], p.C[:], p.Root[:], p.PublicAmount[:], p.ExtDataHash[:],
		p.InputNullifiers[0][:], p.InputNullifiers[1][:], p.OutputCommitments[0][:], p.OutputCommitments[1][:]}
	for _, f := range fields {
		if err := r.ReadInto(f); err != nil {
			return err
		}
	}
	return nil
}

// Transact is the decoded payload of a transact instruction.
type Transact struct {
	Discriminator    [DiscriminatorLength]byte
	Proof            Proof
	ExtAmount        int64
	Fee              uint64
	EncryptedOutput1 []byte
	EncryptedOutput2 []byte
}

// IsSPL reports whether the payload targets a token pool.
func (t *Transact) IsSPL() bool {
	return t.Discriminator == TransactSPLDiscriminator
}

// EncodeTransact = discriminator || proof || extAmount i64 || fee u64 ||
// vec(out1) || vec(out2).
func EncodeTransact(discriminator [DiscriminatorLength]byte, proof *Proof, extAmount int64, fee uint64, out1, out2 []byte) []byte {
	w := layout.NewWriter()
	w.WriteRaw(discriminator[:])
	proof.write(w)
	w.WriteI64LE(extAmount)
	w.WriteU64LE(fee)
	w.WriteVec(out1)
	w.WriteVec(out2)
	return w.Bytes()
}

func DecodeTransact(data []byte) (*Transact, error) {
	r := layout.NewReader(data)
	t := &Transact{}
	if err := r.ReadInto(t.Discriminator[:]); err != nil {
		return nil, fmt.Errorf("transact discriminator: %w", err)
	}
	if !bytes.Equal(t.Discriminator[:], TransactDiscriminator[:]) && !t.IsSPL() {
		return nil, fmt.Errorf("%w: %x", ErrUnknownDiscriminator, t.Discriminator)
	}
	if err := t.Proof.read(r); err != nil {
		return nil, fmt.Errorf("transact proof: %w", err)
	}
	var err error
	if t.ExtAmount, err = r.ReadI64LE(); err != nil {
		return nil, fmt.Errorf("transact ext amount: %w", err)
	}
	if t.Fee, err = r.ReadU64LE(); err != nil {
		return nil, fmt.Errorf("transact fee: %w", err)
	}
	if t.EncryptedOutput1, err = r.ReadVec(); err != nil {
		return nil, fmt.Errorf("transact output 1: %w", err)
	}
	if t.EncryptedOutput2, err = r.ReadVec(); err != nil {
		return nil, fmt.Errorf("transact output 2: %w", err)
	}
	if err := r.ExpectEOF(); err != nil {
		return nil, fmt.Errorf("transact: %w", err)
	}
	return t, nil
}

// PublicAmount = (extAmount - fee) mod p.
func PublicAmount(extAmount int64, fee uint64) *big.Int {
	v := new(big.Int).Sub(big.NewInt(extAmount), new(big.Int).SetUint64(fee))
	return note.ToField(v)
}

// AccountParams are the non-derived accounts of a transact instruction.
type AccountParams struct {
	Recipient    solana.PublicKey
	FeeRecipient solana.PublicKey
	Signer       solana.PublicKey
	Mint         solana.PublicKey
	Nullifiers   pda.NullifierAccounts
}

// TransactAccounts returns the account metas in program order.
func TransactAccounts(d *pda.Deriver, p AccountParams) ([]solana.AccountMeta, error) {
	mint := p.Mint
	if mint.IsZero() {
		mint = solana.NativeMint
	}
	tree, err := d.TreeAccountForMint(mint)
	if err != nil {
		return nil, fmt.Errorf("tree account: %w", err)
	}
	treeToken, err := d.TreeTokenAccountForMint(mint)
	if err != nil {
		return nil, fmt.Errorf("tree token account: %w", err)
	}
	globalConfig, err := d.GlobalConfigAccount()
	if err != nil {
		return nil, fmt.Errorf("global config account: %w", err)
	}

	return []solana.AccountMeta{
		solana.Meta(tree, false, true),
		solana.Meta(p.Nullifiers.N0, false, true),
		solana.Meta(p.Nullifiers.N1, false, true),
		solana.Meta(p.Nullifiers.N2, false, false),
		solana.Meta(p.Nullifiers.N3, false, false),
		solana.Meta(treeToken, false, true),
		solana.Meta(globalConfig, false, false),
		solana.Meta(p.Recipient, false, true),
		solana.Meta(p.FeeRecipient, false, true),
		solana.Meta(p.Signer, true, true),
		solana.Meta(solana.SystemProgramID, false, false),
	}, nil
}

// DiscriminatorFor picks the native or token discriminator for mint.
func DiscriminatorFor(mint solana.PublicKey) [DiscriminatorLength]byte {
	if mint.IsZero() || mint == solana.NativeMint {
		return TransactDiscriminator
	}
	return TransactSPLDiscriminator
}

// NewTransactInstruction wraps encoded data and accounts for programID.
func NewTransactInstruction(programID solana.PublicKey, accounts []solana.AccountMeta, data []byte) solana.Instruction {
	return solana.Instruction{ProgramID: programID, Accounts: accounts, Data: data}
}
