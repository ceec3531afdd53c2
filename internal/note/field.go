package note

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/iden3/go-iden3-crypto/poseidon"

	"shield-backend/internal/solana"
)

// FieldModulus is the BN254 scalar field order.
func FieldModulus() *big.Int {
	return fr.Modulus()
}

// ToField reduces x into [0, p).
func ToField(x *big.Int) *big.Int {
	return new(big.Int).Mod(x, fr.Modulus())
}

// FieldBytes renders a field element as 32 big-endian bytes.
func FieldBytes(x *big.Int) [32]byte {
	var out [32]byte
	ToField(x).FillBytes(out[:])
	return out
}

// RandomBlinding draws a uniformly random field element.
func RandomBlinding() (*big.Int, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return nil, fmt.Errorf("random blinding: %w", err)
	}
	return e.BigInt(new(big.Int)), nil
}

// MintField encodes a mint as a field element. The native mint uses the
// decimal value of its base58 text; token mints use their first 31 bytes.
func MintField(mint solana.PublicKey) *big.Int {
	if mint == solana.NativeMint {
		v, _ := new(big.Int).SetString(mint.String(), 10)
		return v
	}
	return ToField(new(big.Int).SetBytes(mint[:31]))
}

func hash(inputs ...*big.Int) (*big.Int, error) {
	reduced := make([]*big.Int, len(inputs))
	for i, in := range inputs {
		if in == nil {
			return nil, fmt.Errorf("poseidon input %d is nil", i)
		}
		reduced[i] = ToField(in)
	}
	return poseidon.Hash(reduced)
}
