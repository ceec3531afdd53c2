// Package pda derives the shielded pool program's accounts: the Merkle
// tree, its token vault, the global config and per-nullifier markers.
package pda

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"shield-backend/internal/solana"
)

const DefaultCacheSize = 1024

var (
	seedMerkleTree   = []byte("merkle_tree")
	seedTreeToken    = []byte("tree_token")
	seedGlobalConfig = []byte("global_config")
	seedNullifier    = []string{"nullifier0", "nullifier1"}
)

var ErrInvalidSlot = errors.New("pda: nullifier slot must be 0 or 1")

// Deriver computes program derived addresses for one program id. Results
// are memoized in a bounded LRU since nullifier seeds come from untrusted
// ciphertexts.
type Deriver struct {
	programID solana.PublicKey
	cache     *lru.Cache
}

// NullifierAccounts are the four nullifier marker accounts a transact
// instruction locks for its two inputs.
type NullifierAccounts struct {
	N0 solana.PublicKey
	N1 solana.PublicKey
	N2 solana.PublicKey
	N3 solana.PublicKey
}

func NewDeriver(programID solana.PublicKey, cacheSize int) (*Deriver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create pda cache: %w", err)
	}
	return &Deriver{programID: programID, cache: cache}, nil
}

func (d *Deriver) ProgramID() solana.PublicKey {
	return d.programID
}

func (d *Deriver) derive(seeds ...[]byte) (solana.PublicKey, error) {
	key := cacheKey(seeds)
	if v, ok := d.cache.Get(key); ok {
		return v.(solana.PublicKey), nil
	}
	addr, _, err := solana.FindProgramAddress(seeds, d.programID)
	if err != nil {
		return solana.PublicKey{}, err
	}
	d.cache.Add(key, addr)
	return addr, nil
}

// cacheKey length-prefixes each seed so distinct seed splits never collide.
func cacheKey(seeds [][]byte) string {
	var sb strings.Builder
	var n [2]byte
	for _, s := range seeds {
		binary.LittleEndian.PutUint16(n[:], uint16(len(s)))
		sb.Write(n[:])
		sb.Write(s)
	}
	return sb.String()
}

// NullifierAddress seeds ("nullifier<slot>", nullifier).
func (d *Deriver) NullifierAddress(nullifier [32]byte, slot int) (solana.PublicKey, error) {
	if slot != 0 && slot != 1 {
		return solana.PublicKey{}, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	return d.derive([]byte(seedNullifier[slot]), nullifier[:])
}

// CrossCheckNullifierAddress derives the nullifier's address under the
// opposite slot label, so an input cannot reappear in the other slot.
func (d *Deriver) CrossCheckNullifierAddress(nullifier [32]byte, slot int) (solana.PublicKey, error) {
	if slot != 0 && slot != 1 {
		return solana.PublicKey{}, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	return d.NullifierAddress(nullifier, 1-slot)
}

// NullifierAccounts derives N0..N3 for inputs n0 (slot 0) and n1 (slot 1).
func (d *Deriver) NullifierAccounts(n0, n1 [32]byte) (NullifierAccounts, error) {
	var out NullifierAccounts
	var err error
	if out.N0, err = d.NullifierAddress(n0, 0); err != nil {
		return out, err
	}
	if out.N1, err = d.NullifierAddress(n1, 1); err != nil {
		return out, err
	}
	if out.N2, err = d.CrossCheckNullifierAddress(n1, 1); err != nil {
		return out, err
	}
	if out.N3, err = d.CrossCheckNullifierAddress(n0, 0); err != nil {
		return out, err
	}
	return out, nil
}

func (d *Deriver) TreeAccount() (solana.PublicKey, error) {
	return d.derive(seedMerkleTree)
}

func (d *Deriver) TreeTokenAccount() (solana.PublicKey, error) {
	return d.derive(seedTreeToken)
}

func (d *Deriver) GlobalConfigAccount() (solana.PublicKey, error) {
	return d.derive(seedGlobalConfig)
}

// TreeAccountForMint is the per-token Merkle tree.
func (d *Deriver) TreeAccountForMint(mint solana.PublicKey) (solana.PublicKey, error) {
	if mint == solana.NativeMint {
		return d.TreeAccount()
	}
	return d.derive(seedMerkleTree, mint[:])
}

// TreeTokenAccountForMint is the per-token vault authority.
func (d *Deriver) TreeTokenAccountForMint(mint solana.PublicKey) (solana.PublicKey, error) {
	if mint == solana.NativeMint {
		return d.TreeTokenAccount()
	}
	return d.derive(seedTreeToken, mint[:])
}
