package vault

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecrypt is returned when a blob cannot be decrypted, either because it is
// corrupted or because it was encrypted under a different key. Callers surface
// this as "configuration unusable"; the plaintext is never recoverable and
// must never be logged.
var ErrDecrypt = errors.New("credentials blob cannot be decrypted")

// Vault encrypts and decrypts provider credentials at rest using an AEAD with
// a server-held key. It holds no mutable state and is safe for concurrent use.
type Vault struct {
	key []byte
}

// New creates a Vault from a 32-byte key.
func New(key []byte) (*Vault, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("credentials key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Vault{key: key}, nil
}

// Encrypt seals plaintext into an opaque blob. The random nonce is prepended
// to the ciphertext.
func (v *Vault) Encrypt(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt. Any failure maps to ErrDecrypt so
// callers cannot accidentally leak cipher internals.
func (v *Vault) Decrypt(blob []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if len(blob) < aead.NonceSize() {
		return nil, ErrDecrypt
	}
	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
