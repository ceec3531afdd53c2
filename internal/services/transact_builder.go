package services

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"shield-backend/internal/clients"
	"shield-backend/internal/extdata"
	"shield-backend/internal/note"
	"shield-backend/internal/pda"
	"shield-backend/internal/program"
	"shield-backend/internal/solana"
)

// MerkleTreeDepth of the pool's commitment tree.
const MerkleTreeDepth = 26

// circuitArity is the fixed number of inputs and outputs per transaction.
const circuitArity = 2

type builtTransact struct {
	data       []byte
	proof      program.Proof
	ext        extdata.ExtData
	nullifiers pda.NullifierAccounts
}

// padInputs takes up to two notes and fills the rest with zero notes.
func padInputs(notes []*note.Note, kp *note.Keypair, mint solana.PublicKey) ([]*note.Note, error) {
	inputs := make([]*note.Note, 0, circuitArity)
	for _, n := range notes {
		if len(inputs) == circuitArity {
			break
		}
		inputs = append(inputs, n)
	}
	for len(inputs) < circuitArity {
		z, err := note.NewZero(kp, mint)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, z)
	}
	return inputs, nil
}

func parseFieldString(s string) (*big.Int, error) {
	v, ok := new(big.Int), false
	if strings.HasPrefix(s, "0x") {
		v, ok = v.SetString(s[2:], 16)
	} else {
		v, ok = v.SetString(s, 10)
	}
	if !ok {
		return nil, fmt.Errorf("invalid field element %q", s)
	}
	return note.ToField(v), nil
}

func zeroPath() []string {
	path := make([]string, MerkleTreeDepth)
	for i := range path {
		path[i] = "0"
	}
	return path
}

// buildTransact seals the outputs, binds ext, proves the transaction and
// encodes the transact instruction data.
func (p *PoolService) buildTransact(ctx context.Context, inputs, outputs []*note.Note, ext extdata.ExtData) (*builtTransact, error) {
	if len(inputs) != circuitArity || len(outputs) != circuitArity {
		return nil, fmt.Errorf("transaction needs %d inputs and outputs, got %d/%d", circuitArity, len(inputs), len(outputs))
	}

	rootResp, err := p.indexer.GetMerkleRoot(ctx, p.mint)
	if err != nil {
		return nil, err
	}
	root, err := parseFieldString(rootResp.Root)
	if err != nil {
		return nil, fmt.Errorf("merkle root: %w", err)
	}
	if rootResp.NextIndex < 0 {
		return nil, fmt.Errorf("merkle root: invalid next index %d", rootResp.NextIndex)
	}
	// outputs are appended to the tree in order
	for i, out := range outputs {
		out.Index = rootResp.NextIndex + int64(i)
	}

	w := &clients.TransactWitness{
		Root:        root.String(),
		MintAddress: note.MintField(p.mint).String(),
	}
	var proof program.Proof
	proof.Root = note.FieldBytes(root)

	inSum := new(big.Int)
	for i, in := range inputs {
		commitment, err := in.Commitment()
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		nullifier, err := in.Nullifier()
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		path := zeroPath()
		if !in.IsZero() {
			mp, err := p.indexer.GetMerkleProof(ctx, commitment.String(), p.mint)
			if err != nil {
				return nil, fmt.Errorf("input %d: %w", i, err)
			}
			path = mp.PathElements
		}
		inSum.Add(inSum, in.Amount)
		proof.InputNullifiers[i] = note.FieldBytes(nullifier)

		w.InputNullifier = append(w.InputNullifier, nullifier.String())
		w.InAmount = append(w.InAmount, in.Amount.String())
		w.InPrivateKey = append(w.InPrivateKey, in.Keypair.PrivateKey().String())
		w.InBlinding = append(w.InBlinding, in.Blinding.String())
		w.InPathIndices = append(w.InPathIndices, in.Index)
		w.InPathElements = append(w.InPathElements, path)
	}

	outSum := new(big.Int)
	sealed := make([][]byte, circuitArity)
	for i, out := range outputs {
		commitment, err := out.Commitment()
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		if sealed[i], err = p.enc.EncryptNote(out); err != nil {
			return nil, fmt.Errorf("seal output %d: %w", i, err)
		}
		outSum.Add(outSum, out.Amount)
		proof.OutputCommitments[i] = note.FieldBytes(commitment)

		w.OutputCommitment = append(w.OutputCommitment, commitment.String())
		w.OutAmount = append(w.OutAmount, out.Amount.String())
		w.OutBlinding = append(w.OutBlinding, out.Blinding.String())
		w.OutPubkey = append(w.OutPubkey, out.Keypair.PublicKey().String())
	}

	ext.EncryptedOutput1, ext.EncryptedOutput2 = sealed[0], sealed[1]
	publicAmount := program.PublicAmount(ext.ExtAmount, ext.Fee)

	// sum(in) + publicAmount == sum(out) mod p
	lhs := note.ToField(new(big.Int).Add(inSum, publicAmount))
	if lhs.Cmp(note.ToField(outSum)) != 0 {
		return nil, fmt.Errorf("unbalanced transaction: inputs %s, public amount %d-%d, outputs %s",
			inSum, ext.ExtAmount, ext.Fee, outSum)
	}

	w.PublicAmount = publicAmount.String()
	w.ExtDataHash = ext.HashField().String()
	proof.PublicAmount = note.FieldBytes(publicAmount)
	proof.ExtDataHash = ext.Hash()

	resp, err := p.prover.Prove(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}
	if proof.A, proof.B, proof.C, err = resp.Components(); err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}

	nullifiers, err := p.deriver.NullifierAccounts(proof.InputNullifiers[0], proof.InputNullifiers[1])
	if err != nil {
		return nil, err
	}

	data := program.EncodeTransact(program.DiscriminatorFor(p.mint), &proof, ext.ExtAmount, ext.Fee, ext.EncryptedOutput1, ext.EncryptedOutput2)
	return &builtTransact{data: data, proof: proof, ext: ext, nullifiers: nullifiers}, nil
}
