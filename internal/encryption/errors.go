package encryption

import "errors"

var (
	ErrKeyNotInitialized       = errors.New("encryption: keys not initialized, call DeriveKeys first")
	ErrInvalidKeyOrCorruptData = errors.New("encryption: invalid key or corrupt data")
	ErrMalformedNote           = errors.New("encryption: malformed note plaintext")
	ErrSignatureTooShort       = errors.New("encryption: signature too short for key derivation")
)
