package encryption

import (
	"bytes"
	"fmt"

	"shield-backend/internal/note"
)

const (
	versionTagLength = 8
	v1IVLength       = 16
	v1TagLength      = 16
	v2NonceLength    = 12
	v2TagLength      = 16
)

// v2VersionTag prefixes every ciphertext sealed with the current scheme.
var v2VersionTag = [versionTagLength]byte{0, 0, 0, 0, 0, 0, 0, 2}

// Ciphertext is either a V1Ciphertext or a V2Ciphertext.
type Ciphertext interface {
	Version() note.Version
	Bytes() []byte
}

// V1Ciphertext is the legacy AES-CTR + truncated HMAC framing:
// iv(16) || tag(16) || body.
type V1Ciphertext struct {
	IV   [v1IVLength]byte
	Tag  [v1TagLength]byte
	Body []byte
}

func (V1Ciphertext) Version() note.Version { return note.V1 }

func (c V1Ciphertext) Bytes() []byte {
	out := make([]byte, 0, v1IVLength+v1TagLength+len(c.Body))
	out = append(out, c.IV[:]...)
	out = append(out, c.Tag[:]...)
	return append(out, c.Body...)
}

// V2Ciphertext is the AES-256-GCM framing:
// 0x0000000000000002 || nonce(12) || tag(16) || body.
type V2Ciphertext struct {
	Nonce [v2NonceLength]byte
	Tag   [v2TagLength]byte
	Body  []byte
}

func (V2Ciphertext) Version() note.Version { return note.V2 }

func (c V2Ciphertext) Bytes() []byte {
	out := make([]byte, 0, versionTagLength+v2NonceLength+v2TagLength+len(c.Body))
	out = append(out, v2VersionTag[:]...)
	out = append(out, c.Nonce[:]...)
	out = append(out, c.Tag[:]...)
	return append(out, c.Body...)
}

// GetVersion classifies raw ciphertext bytes without decrypting them.
func GetVersion(ciphertext []byte) note.Version {
	if len(ciphertext) >= versionTagLength && bytes.Equal(ciphertext[:versionTagLength], v2VersionTag[:]) {
		return note.V2
	}
	return note.V1
}

// ParseCiphertext splits raw bytes into the framing of their version.
func ParseCiphertext(raw []byte) (Ciphertext, error) {
	if GetVersion(raw) == note.V2 {
		rest := raw[versionTagLength:]
		if len(rest) < v2NonceLength+v2TagLength {
			return nil, fmt.Errorf("%w: v2 ciphertext too short (%d bytes)", ErrInvalidKeyOrCorruptData, len(raw))
		}
		var c V2Ciphertext
		copy(c.Nonce[:], rest[:v2NonceLength])
		copy(c.Tag[:], rest[v2NonceLength:v2NonceLength+v2TagLength])
		c.Body = append([]byte(nil), rest[v2NonceLength+v2TagLength:]...)
		return c, nil
	}

	if len(raw) < v1IVLength+v1TagLength {
		return nil, fmt.Errorf("%w: v1 ciphertext too short (%d bytes)", ErrInvalidKeyOrCorruptData, len(raw))
	}
	var c V1Ciphertext
	copy(c.IV[:], raw[:v1IVLength])
	copy(c.Tag[:], raw[v1IVLength:v1IVLength+v1TagLength])
	c.Body = append([]byte(nil), raw[v1IVLength+v1TagLength:]...)
	return c, nil
}
