package program

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shield-backend/internal/layout"
	"shield-backend/internal/note"
	"shield-backend/internal/pda"
	"shield-backend/internal/solana"
)

func patternedProof() *Proof {
	p := &Proof{}
	p.A[0] = 0xa0
	p.B[0] = 0xb0
	p.C[0] = 0xc0
	p.Root[31] = 0x01
	p.PublicAmount[31] = 0x02
	p.ExtDataHash[31] = 0x03
	p.InputNullifiers[0][0] = 0x10
	p.InputNullifiers[1][0] = 0x11
	p.OutputCommitments[0][0] = 0x20
	p.OutputCommitments[1][0] = 0x21
	return p
}

func TestEncodeTransactLayout(t *testing.T) {
	proof := patternedProof()
	data := EncodeTransact(TransactDiscriminator, proof, -100_000_000, 1_100_000, []byte{1, 2}, []byte{3})

	assert.Len(t, data, 8+ProofLength+8+8+4+2+4+1)
	assert.Equal(t, TransactDiscriminator[:], data[:8])

	off := 8
	assert.Equal(t, byte(0xa0), data[off])
	assert.Equal(t, byte(0xb0), data[off+64])
	assert.Equal(t, byte(0xc0), data[off+192])
	assert.Equal(t, byte(0x01), data[off+256+31])
	assert.Equal(t, byte(0x10), data[off+352])
	assert.Equal(t, byte(0x21), data[off+448])

	off += ProofLength
	assert.Equal(t, []byte{0x00, 0x1f, 0x0a, 0xfa, 0xff, 0xff, 0xff, 0xff}, data[off:off+8])
	assert.Equal(t, []byte{0xe0, 0xc8, 0x10, 0x00, 0, 0, 0, 0}, data[off+8:off+16])
	assert.Equal(t, []byte{2, 0, 0, 0, 1, 2, 1, 0, 0, 0, 3}, data[off+16:])
}

func TestDecodeTransactRoundTrip(t *testing.T) {
	proof := patternedProof()
	data := EncodeTransact(TransactSPLDiscriminator, proof, 42, 7, nil, []byte{9})

	got, err := DecodeTransact(data)
	require.NoError(t, err)
	assert.True(t, got.IsSPL())
	assert.Equal(t, *proof, got.Proof)
	assert.Equal(t, int64(42), got.ExtAmount)
	assert.Equal(t, uint64(7), got.Fee)
	assert.Empty(t, got.EncryptedOutput1)
	assert.Equal(t, []byte{9}, got.EncryptedOutput2)
}

func TestDecodeTransactErrors(t *testing.T) {
	data := EncodeTransact(TransactDiscriminator, patternedProof(), 1, 1, nil, nil)

	bad := append([]byte(nil), data...)
	bad[0] ^= 0xff
	_, err := DecodeTransact(bad)
	require.ErrorIs(t, err, ErrUnknownDiscriminator)

	_, err = DecodeTransact(data[:100])
	require.ErrorIs(t, err, layout.ErrShortBuffer)

	_, err = DecodeTransact(append(data, 0))
	require.ErrorIs(t, err, layout.ErrTrailingBytes)
}

func TestPublicAmount(t *testing.T) {
	assert.Equal(t, big.NewInt(99_000_000), PublicAmount(100_000_000, 1_000_000))

	neg := PublicAmount(-100_000_000, 1_100_000)
	want := new(big.Int).Sub(note.FieldModulus(), big.NewInt(101_100_000))
	assert.Equal(t, want, neg)
}

func TestTransactAccountsOrder(t *testing.T) {
	programID := solana.MustPublicKeyFromBase58("9fhQBbumKEFuXtMBDw8AaQyAjCorLGJQiS3skWZdQyQD")
	d, err := pda.NewDeriver(programID, 0)
	require.NoError(t, err)

	var n0, n1 [32]byte
	n0[0], n1[0] = 1, 2
	nulls, err := d.NullifierAccounts(n0, n1)
	require.NoError(t, err)

	params := AccountParams{
		Recipient:    solana.PublicKey{0x0a},
		FeeRecipient: solana.PublicKey{0x0b},
		Signer:       solana.PublicKey{0x0c},
		Nullifiers:   nulls,
	}
	metas, err := TransactAccounts(d, params)
	require.NoError(t, err)
	require.Len(t, metas, 11)

	tree, _ := d.TreeAccount()
	treeToken, _ := d.TreeTokenAccount()
	cfg, _ := d.GlobalConfigAccount()

	want := []solana.AccountMeta{
		solana.Meta(tree, false, true),
		solana.Meta(nulls.N0, false, true),
		solana.Meta(nulls.N1, false, true),
		solana.Meta(nulls.N2, false, false),
		solana.Meta(nulls.N3, false, false),
		solana.Meta(treeToken, false, true),
		solana.Meta(cfg, false, false),
		solana.Meta(params.Recipient, false, true),
		solana.Meta(params.FeeRecipient, false, true),
		solana.Meta(params.Signer, true, true),
		solana.Meta(solana.SystemProgramID, false, false),
	}
	assert.Equal(t, want, metas)
}

func TestDiscriminatorFor(t *testing.T) {
	assert.Equal(t, TransactDiscriminator, DiscriminatorFor(solana.NativeMint))
	assert.Equal(t, TransactDiscriminator, DiscriminatorFor(solana.PublicKey{}))
	assert.Equal(t, TransactSPLDiscriminator, DiscriminatorFor(solana.PublicKey{5}))
}
