package note

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Keypair proves ownership of notes. It is derived from the session
// signature and is never the wallet's signing key.
type Keypair struct {
	privateKey *big.Int
	publicKey  *big.Int
}

// NewKeypair parses a 0x-prefixed hex note private key.
func NewKeypair(privateKeyHex string) (*Keypair, error) {
	raw, err := hexutil.Decode(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid note private key: %w", err)
	}
	return NewKeypairFromScalar(new(big.Int).SetBytes(raw))
}

func NewKeypairFromScalar(priv *big.Int) (*Keypair, error) {
	sk := ToField(priv)
	pk, err := hash(sk)
	if err != nil {
		return nil, fmt.Errorf("note public key: %w", err)
	}
	return &Keypair{privateKey: sk, publicKey: pk}, nil
}

func (k *Keypair) PrivateKey() *big.Int {
	return new(big.Int).Set(k.privateKey)
}

// PublicKey = poseidon(privateKey).
func (k *Keypair) PublicKey() *big.Int {
	return new(big.Int).Set(k.publicKey)
}

// Sign = poseidon(privateKey, commitment, index).
func (k *Keypair) Sign(commitment, index *big.Int) (*big.Int, error) {
	sig, err := hash(k.privateKey, commitment, index)
	if err != nil {
		return nil, fmt.Errorf("note signature: %w", err)
	}
	return sig, nil
}
