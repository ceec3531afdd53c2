// Package encryption derives the per-session note keys from a wallet
// signature and seals/opens note ciphertexts for both key generations.
package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"shield-backend/internal/note"
)

// SignInMessage is the fixed message the wallet signs once per session.
const SignInMessage = "Privacy Money account sign in"

const (
	v1KeyLength    = 31
	v1CipherKeyLen = 16
)

// MessageSigner is the slice of wallet capability key derivation needs.
type MessageSigner interface {
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

type keySet struct {
	v1        []byte
	v2        []byte
	v1PrivHex string
	v2PrivHex string
	v1Keypair *note.Keypair
	v2Keypair *note.Keypair
}

// Service holds the session's derived keys. Safe for concurrent use; a
// DeriveKeys call replaces the whole key set at once.
type Service struct {
	mu     sync.RWMutex
	keys   *keySet
	rand   io.Reader
	logger *logrus.Logger
}

func NewService(logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{rand: rand.Reader, logger: logger}
}

// DeriveKeys computes both key generations from a sign-in signature.
func (s *Service) DeriveKeys(signature []byte) error {
	if len(signature) < v1KeyLength {
		return fmt.Errorf("%w: %d bytes", ErrSignatureTooShort, len(signature))
	}

	v1 := append([]byte(nil), signature[:v1KeyLength]...)
	v2 := crypto.Keccak256(signature)

	v1Digest := sha256.Sum256(v1)
	ks := &keySet{
		v1:        v1,
		v2:        v2,
		v1PrivHex: hexutil.Encode(v1Digest[:]),
		v2PrivHex: hexutil.Encode(crypto.Keccak256(v2)),
	}
	var err error
	if ks.v1Keypair, err = note.NewKeypair(ks.v1PrivHex); err != nil {
		return fmt.Errorf("derive v1 note keypair: %w", err)
	}
	if ks.v2Keypair, err = note.NewKeypair(ks.v2PrivHex); err != nil {
		return fmt.Errorf("derive v2 note keypair: %w", err)
	}

	s.mu.Lock()
	s.keys = ks
	s.mu.Unlock()

	s.logger.Debug("Derived note encryption keys")
	return nil
}

// DeriveFromSigner asks the wallet to sign SignInMessage and derives keys
// from the result.
func (s *Service) DeriveFromSigner(ctx context.Context, signer MessageSigner) error {
	sig, err := signer.SignMessage(ctx, []byte(SignInMessage))
	if err != nil {
		return fmt.Errorf("sign in message: %w", err)
	}
	return s.DeriveKeys(sig)
}

// Reset discards the session keys.
func (s *Service) Reset() {
	s.mu.Lock()
	s.keys = nil
	s.mu.Unlock()
}

func (s *Service) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys != nil
}

func (s *Service) current() (*keySet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.keys == nil {
		return nil, ErrKeyNotInitialized
	}
	return s.keys, nil
}

// NotePrivateKey returns the 0x-hex note private key for a generation.
func (s *Service) NotePrivateKey(version note.Version) (string, error) {
	ks, err := s.current()
	if err != nil {
		return "", err
	}
	if version == note.V1 {
		return ks.v1PrivHex, nil
	}
	return ks.v2PrivHex, nil
}

// Keypair returns the note keypair for a generation.
func (s *Service) Keypair(version note.Version) (*note.Keypair, error) {
	ks, err := s.current()
	if err != nil {
		return nil, err
	}
	if version == note.V1 {
		return ks.v1Keypair, nil
	}
	return ks.v2Keypair, nil
}

// Encrypt seals plaintext with the v2 scheme.
func (s *Service) Encrypt(plaintext []byte) ([]byte, error) {
	ks, err := s.current()
	if err != nil {
		return nil, err
	}
	aead, err := newGCM(ks.v2)
	if err != nil {
		return nil, err
	}

	var c V2Ciphertext
	if _, err := io.ReadFull(s.rand, c.Nonce[:]); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	sealed := aead.Seal(nil, c.Nonce[:], plaintext, nil)
	bodyLen := len(sealed) - v2TagLength
	c.Body = sealed[:bodyLen]
	copy(c.Tag[:], sealed[bodyLen:])
	return c.Bytes(), nil
}

// EncryptV1 seals plaintext with the legacy scheme. New notes never use
// it; it exists for migration tooling.
func (s *Service) EncryptV1(plaintext []byte) ([]byte, error) {
	ks, err := s.current()
	if err != nil {
		return nil, err
	}

	var c V1Ciphertext
	if _, err := io.ReadFull(s.rand, c.IV[:]); err != nil {
		return nil, fmt.Errorf("read iv: %w", err)
	}
	block, err := aes.NewCipher(ks.v1[:v1CipherKeyLen])
	if err != nil {
		return nil, fmt.Errorf("v1 cipher: %w", err)
	}
	c.Body = make([]byte, len(plaintext))
	cipher.NewCTR(block, c.IV[:]).XORKeyStream(c.Body, plaintext)
	copy(c.Tag[:], v1Tag(ks.v1, c.IV[:], c.Body))
	return c.Bytes(), nil
}

// Decrypt opens a ciphertext of either generation. Authentication failures
// return ErrInvalidKeyOrCorruptData and no plaintext.
func (s *Service) Decrypt(raw []byte) ([]byte, error) {
	ks, err := s.current()
	if err != nil {
		return nil, err
	}
	ct, err := ParseCiphertext(raw)
	if err != nil {
		return nil, err
	}

	switch c := ct.(type) {
	case V2Ciphertext:
		return openV2(ks.v2, c)
	case V1Ciphertext:
		return openV1(ks.v1, c)
	default:
		return nil, fmt.Errorf("unsupported ciphertext %T", ct)
	}
}

// EncryptNote seals note.Plaintext() with the v2 scheme.
func (s *Service) EncryptNote(n *note.Note) ([]byte, error) {
	return s.Encrypt([]byte(n.Plaintext()))
}

// DecryptNote opens a note ciphertext and attaches the keypair of the
// generation that sealed it.
func (s *Service) DecryptNote(raw []byte) (*note.Note, error) {
	plaintext, err := s.Decrypt(raw)
	if err != nil {
		return nil, err
	}
	version := GetVersion(raw)
	kp, err := s.Keypair(version)
	if err != nil {
		return nil, err
	}
	n, err := note.ParsePlaintext(string(plaintext), kp, version)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedNote, err)
	}
	return n, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("v2 cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("v2 gcm: %w", err)
	}
	return aead, nil
}

func openV2(key []byte, c V2Ciphertext) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	sealed := make([]byte, 0, len(c.Body)+v2TagLength)
	sealed = append(sealed, c.Body...)
	sealed = append(sealed, c.Tag[:]...)
	plaintext, err := aead.Open(nil, c.Nonce[:], sealed, nil)
	if err != nil {
		return nil, ErrInvalidKeyOrCorruptData
	}
	return plaintext, nil
}

func openV1(key []byte, c V1Ciphertext) ([]byte, error) {
	if !hmac.Equal(c.Tag[:], v1Tag(key, c.IV[:], c.Body)) {
		return nil, ErrInvalidKeyOrCorruptData
	}
	block, err := aes.NewCipher(key[:v1CipherKeyLen])
	if err != nil {
		return nil, fmt.Errorf("v1 cipher: %w", err)
	}
	plaintext := make([]byte, len(c.Body))
	cipher.NewCTR(block, c.IV[:]).XORKeyStream(plaintext, c.Body)
	return plaintext, nil
}

// v1Tag = HMAC-SHA256(key[16:31], iv || body) truncated to 16 bytes.
func v1Tag(key, iv, body []byte) []byte {
	mac := hmac.New(sha256.New, key[v1CipherKeyLen:v1KeyLength])
	mac.Write(iv)
	mac.Write(body)
	return mac.Sum(nil)[:v1TagLength]
}
