// Package cryptox seals small secrets (the persisted identity session)
// with AES-256-GCM under a per-install key.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/foodshare/internal/common"
	"github.com/dmitrijs2005/foodshare/internal/filex"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// NewKey returns a fresh random AES-256 key.
func NewKey() []byte {
	return common.GenerateRandByteArray(KeySize)
}

// LoadOrCreateKey reads the key stored at path, generating and persisting
// a new one on first use.
func LoadOrCreateKey(path string) ([]byte, error) {
	key, err := filex.ReadOrCreate(path, func() ([]byte, error) { return NewKey(), nil })
	if err != nil {
		return nil, fmt.Errorf("session key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("session key %s: want %d bytes, got %d", path, KeySize, len(key))
	}
	return key, nil
}

// Seal encrypts plaintext and returns nonce||ciphertext.
func Seal(key, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := common.GenerateRandByteArray(aead.NonceSize())
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func Open(key, sealed []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	n := aead.NonceSize()
	if len(sealed) < n+aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	return aead.Open(nil, sealed[:n], sealed[n:], nil)
}

// SealJSON marshals v and seals the result.
func SealJSON(key []byte, v any) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(plaintext)
	return Seal(key, plaintext)
}

// OpenJSON opens sealed and unmarshals the plaintext into v.
func OpenJSON(key, sealed []byte, v any) error {
	plaintext, err := Open(key, sealed)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(plaintext)
	return json.Unmarshal(plaintext, v)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
