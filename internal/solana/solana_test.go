package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProgramID = MustPublicKeyFromBase58("9fhQBbumKEFuXtMBDw8AaQyAjCorLGJQiS3skWZdQyQD")

func TestPublicKeyBase58RoundTrip(t *testing.T) {
	var raw PublicKey
	raw[31] = 1
	assert.Equal(t, "11111111111111111111111111111112", raw.String())
	assert.Equal(t, NativeMint, raw)
	assert.Equal(t, "11111111111111111111111111111111", SystemProgramID.String())
	assert.True(t, SystemProgramID.IsZero())

	parsed, err := PublicKeyFromBase58(testProgramID.String())
	require.NoError(t, err)
	assert.Equal(t, testProgramID, parsed)

	_, err = PublicKeyFromBase58("0OIl")
	require.Error(t, err)
	_, err = PublicKeyFromBase58("1111")
	require.Error(t, err)
}

func TestPublicKeyJSON(t *testing.T) {
	type wrapper struct {
		Key PublicKey `json:"key"`
	}
	data, err := json.Marshal(wrapper{Key: NativeMint})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"11111111111111111111111111111112"}`, string(data))

	var back wrapper
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, NativeMint, back.Key)
}

func TestIsOnCurve(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	assert.True(t, IsOnCurve(pub))
	assert.False(t, IsOnCurve(pub[:31]))
}

func TestFindProgramAddressVectors(t *testing.T) {
	cases := []struct {
		seeds [][]byte
		want  string
		bump  uint8
	}{
		{[][]byte{[]byte("merkle_tree")}, "6VVKJ44WTJGCksTGJHjf1kJWZaMf9Nswgj6w7Dtrw55D", 252},
		{[][]byte{[]byte("tree_token")}, "4AV2Qzp3N4c9RfzyEbNZs2wqWfW4EwKnnxFAZCndvfGh", 253},
		{[][]byte{[]byte("global_config")}, "2vV7xhCMWRrcLiwGoTaTRgvx98ku98TRJKPXhsS8jvBV", 254},
	}
	for _, tc := range cases {
		addr, bump, err := FindProgramAddress(tc.seeds, testProgramID)
		require.NoError(t, err)
		assert.Equal(t, tc.want, addr.String())
		assert.Equal(t, tc.bump, bump)
		assert.False(t, IsOnCurve(addr[:]))
	}
}

func TestCreateProgramAddressLimits(t *testing.T) {
	_, err := CreateProgramAddress([][]byte{make([]byte, 33)}, testProgramID)
	require.ErrorIs(t, err, ErrMaxSeedLengthExceeded)

	seeds := make([][]byte, MaxSeeds+1)
	_, err = CreateProgramAddress(seeds, testProgramID)
	require.ErrorIs(t, err, ErrMaxSeedLengthExceeded)
}

func TestNewMessageOrdersAccounts(t *testing.T) {
	payer := PublicKey{1}
	writable := PublicKey{2}
	readonly := PublicKey{3}
	program := PublicKey{4}

	ix := Instruction{
		ProgramID: program,
		Accounts: []AccountMeta{
			Meta(readonly, false, false),
			Meta(writable, false, true),
			Meta(payer, true, true),
		},
		Data: []byte{0xde, 0xad},
	}
	msg, err := NewMessage(payer, []Instruction{ix}, Hash{9})
	require.NoError(t, err)

	assert.Equal(t, []PublicKey{payer, writable, readonly, program}, msg.AccountKeys)
	assert.Equal(t, MessageHeader{1, 0, 2}, msg.Header)
	require.Len(t, msg.Instructions, 1)
	assert.Equal(t, uint8(3), msg.Instructions[0].ProgramIDIndex)
	assert.Equal(t, []uint8{2, 1, 0}, msg.Instructions[0].Accounts)

	raw, err := msg.Serialize()
	require.NoError(t, err)

	var want []byte
	want = append(want, 1, 0, 2, 4)
	for _, pk := range []PublicKey{payer, writable, readonly, program} {
		want = append(want, pk[:]...)
	}
	bh := Hash{9}
	want = append(want, bh[:]...)
	want = append(want, 1, 3, 3, 2, 1, 0, 2, 0xde, 0xad)
	assert.Equal(t, want, raw)
}

func TestTransactionSignatureSlots(t *testing.T) {
	payer := PublicKey{1}
	tx, err := NewTransaction(payer, []Instruction{SetComputeUnitLimit(1_000_000)}, Hash{})
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 1)
	assert.False(t, tx.IsFullySigned())

	require.ErrorIs(t, tx.SetSignature(PublicKey{7}, Signature{1}), ErrSignerNotFound)
	require.NoError(t, tx.SetSignature(payer, Signature{1}))
	assert.True(t, tx.IsFullySigned())

	raw, err := tx.Serialize()
	require.NoError(t, err)
	assert.Equal(t, byte(1), raw[0])
	assert.Equal(t, byte(1), raw[1])
	// compute budget data: discriminator 2 + u32 LE 1_000_000
	assert.Equal(t, []byte{2, 0x40, 0x42, 0x0f, 0x00}, raw[len(raw)-5:])
}
