// Package crypto seals the persisted session token with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	// KeySize is the required size for AES-256 keys (32 bytes)
	KeySize = 32
	// SaltSize is the per-token salt used when the key is derived from a passphrase
	SaltSize = 16

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var (
	ErrInvalidKeySize     = errors.New("encryption key must be 32 bytes for AES-256")
	ErrEmptyPassphrase    = errors.New("passphrase must not be empty")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrDecryptionFailed   = errors.New("decryption failed: authentication error")
)

// Sealer encrypts and decrypts short secrets such as bearer tokens.
//
// A Sealer built from a raw key emits base64(nonce|ciphertext). One built
// from a passphrase derives a fresh scrypt key per secret and emits
// base64(salt|nonce|ciphertext).
type Sealer struct {
	key        []byte
	passphrase []byte
}

// NewSealer creates a Sealer with a fixed 32-byte key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	keyCopy := make([]byte, KeySize)
	copy(keyCopy, key)
	return &Sealer{key: keyCopy}, nil
}

// NewSealerFromBase64 creates a Sealer from a base64-encoded key.
func NewSealerFromBase64(encodedKey string) (*Sealer, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 key: %w", err)
	}
	return NewSealer(key)
}

// NewSealerFromPassphrase creates a Sealer whose keys are derived with scrypt.
func NewSealerFromPassphrase(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	return &Sealer{passphrase: []byte(passphrase)}, nil
}

func (s *Sealer) derived() bool {
	return s.passphrase != nil
}

func (s *Sealer) aead(salt []byte) (cipher.AEAD, error) {
	key := s.key
	if s.derived() {
		k, err := scrypt.Key(s.passphrase, salt, scryptN, scryptR, scryptP, KeySize)
		if err != nil {
			return nil, fmt.Errorf("failed to derive key: %w", err)
		}
		key = k
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext. Empty input yields empty output.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	var prefix []byte
	if s.derived() {
		prefix = make([]byte, SaltSize)
		if _, err := io.ReadFull(rand.Reader, prefix); err != nil {
			return "", fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	gcm, err := s.aead(prefix)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := append(prefix, nonce...)
	out = gcm.Seal(out, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	var salt []byte
	if s.derived() {
		if len(raw) < SaltSize {
			return "", ErrCiphertextTooShort
		}
		salt, raw = raw[:SaltSize], raw[SaltSize:]
	}

	gcm, err := s.aead(salt)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", ErrCiphertextTooShort
	}

	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// GenerateKey returns a new random AES-256 key, base64-encoded.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
