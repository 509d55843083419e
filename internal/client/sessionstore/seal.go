package sessionstore

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/yndnr/regdesk-go/internal/core/domain"
)

// SealKeySize is the required sealing key length.
const SealKeySize = chacha20poly1305.KeySize

// Sealer encrypts tokens before durable backends write them.
// Output layout: nonce || ciphertext || tag.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer creates a Sealer from a 32-byte key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != SealKeySize {
		return nil, domain.ErrInvalidConfig.WithDetails("seal key must be 32 bytes")
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, domain.ErrInvalidConfig.WithCause(err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext bound to label (the storage key name).
// A nil Sealer returns plaintext unchanged.
func (s *Sealer) Seal(plaintext []byte, label string) ([]byte, error) {
	if s == nil {
		return plaintext, nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, []byte(label)), nil
}

// Open decrypts data produced by Seal with the same label.
// A nil Sealer returns data unchanged.
func (s *Sealer) Open(data []byte, label string) ([]byte, error) {
	if s == nil {
		return data, nil
	}
	if len(data) < s.aead.NonceSize()+s.aead.Overhead() {
		return nil, errors.New("sealed value too short")
	}
	nonce := data[:s.aead.NonceSize()]
	return s.aead.Open(nil, nonce, data[s.aead.NonceSize():], []byte(label))
}
