package pda

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shield-backend/internal/solana"
)

var programID = solana.MustPublicKeyFromBase58("9fhQBbumKEFuXtMBDw8AaQyAjCorLGJQiS3skWZdQyQD")

func seqNullifier() [32]byte {
	var n [32]byte
	for i := range n {
		n[i] = byte(i)
	}
	return n
}

func newDeriver(t *testing.T) *Deriver {
	t.Helper()
	d, err := NewDeriver(programID, 16)
	require.NoError(t, err)
	return d
}

func TestFixedAccounts(t *testing.T) {
	d := newDeriver(t)

	tree, err := d.TreeAccount()
	require.NoError(t, err)
	assert.Equal(t, "6VVKJ44WTJGCksTGJHjf1kJWZaMf9Nswgj6w7Dtrw55D", tree.String())

	token, err := d.TreeTokenAccount()
	require.NoError(t, err)
	assert.Equal(t, "4AV2Qzp3N4c9RfzyEbNZs2wqWfW4EwKnnxFAZCndvfGh", token.String())

	cfg, err := d.GlobalConfigAccount()
	require.NoError(t, err)
	assert.Equal(t, "2vV7xhCMWRrcLiwGoTaTRgvx98ku98TRJKPXhsS8jvBV", cfg.String())

	nativeTree, err := d.TreeAccountForMint(solana.NativeMint)
	require.NoError(t, err)
	assert.Equal(t, tree, nativeTree)
}

func TestNullifierAddressVectors(t *testing.T) {
	d := newDeriver(t)
	n := seqNullifier()

	a0, err := d.NullifierAddress(n, 0)
	require.NoError(t, err)
	assert.Equal(t, "B2EEiMgK4UfqeNqa6f12j2gTQ46XGdX45AyZKpcGCeN1", a0.String())

	a1, err := d.NullifierAddress(n, 1)
	require.NoError(t, err)
	assert.Equal(t, "9LFwLACL2qj8kpwbt227EAWEjX5aSDJuRFxG6WaLQqdu", a1.String())
	assert.NotEqual(t, a0, a1)

	_, err = d.NullifierAddress(n, 2)
	require.ErrorIs(t, err, ErrInvalidSlot)
	_, err = d.CrossCheckNullifierAddress(n, -1)
	require.ErrorIs(t, err, ErrInvalidSlot)
}

func TestCrossCheckUsesOppositeSlot(t *testing.T) {
	d := newDeriver(t)
	n := seqNullifier()

	cross0, err := d.CrossCheckNullifierAddress(n, 0)
	require.NoError(t, err)
	direct1, err := d.NullifierAddress(n, 1)
	require.NoError(t, err)
	assert.Equal(t, direct1, cross0)

	cross1, err := d.CrossCheckNullifierAddress(n, 1)
	require.NoError(t, err)
	direct0, err := d.NullifierAddress(n, 0)
	require.NoError(t, err)
	assert.Equal(t, direct0, cross1)
}

func TestNullifierAccounts(t *testing.T) {
	d := newDeriver(t)
	n0 := seqNullifier()
	var n1 [32]byte
	n1[0] = 0xff

	accs, err := d.NullifierAccounts(n0, n1)
	require.NoError(t, err)

	want0, _ := d.NullifierAddress(n0, 0)
	want1, _ := d.NullifierAddress(n1, 1)
	want2, _ := d.NullifierAddress(n1, 0)
	want3, _ := d.NullifierAddress(n0, 1)
	assert.Equal(t, NullifierAccounts{N0: want0, N1: want1, N2: want2, N3: want3}, accs)
}

func TestCacheBounded(t *testing.T) {
	d, err := NewDeriver(programID, 2)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		var n [32]byte
		n[0] = byte(i)
		_, err := d.NullifierAddress(n, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, d.cache.Len())

	// evicted entries are recomputed to the same address
	first, err := d.NullifierAddress(seqNullifier(), 0)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		var n [32]byte
		n[1] = byte(i)
		_, _ = d.NullifierAddress(n, 1)
	}
	again, err := d.NullifierAddress(seqNullifier(), 0)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestTokenMintAccountsDiffer(t *testing.T) {
	d := newDeriver(t)
	mint := solana.PublicKey{7}

	tree, err := d.TreeAccount()
	require.NoError(t, err)
	tokenTree, err := d.TreeAccountForMint(mint)
	require.NoError(t, err)
	assert.NotEqual(t, tree, tokenTree)

	vault, err := d.TreeTokenAccountForMint(mint)
	require.NoError(t, err)
	assert.NotEqual(t, tokenTree, vault)
}

func TestCacheKeySeparatesSeedBoundaries(t *testing.T) {
	a := cacheKey([][]byte{[]byte("ab"), []byte("c")})
	b := cacheKey([][]byte{[]byte("a"), []byte("bc")})
	assert.NotEqual(t, a, b)
}
