package internal

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const sealedPrefix = "enc:v1:"

// ErrNotSealed is returned by Open for values that were never sealed.
var ErrNotSealed = errors.New("value is not sealed")

// Sealer protects sensitive record fields before they reach the store.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// XChaCha20Sealer seals with XChaCha20-Poly1305 under a 32-byte key. Output is
// "enc:v1:" followed by base64(nonce|ciphertext).
type XChaCha20Sealer struct {
	key []byte
}

func NewXChaCha20Sealer(key []byte) (*XChaCha20Sealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("sealer key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &XChaCha20Sealer{key: append([]byte(nil), key...)}, nil
}

// NewSealerFromHex builds a sealer from a hex-encoded key.
func NewSealerFromHex(keyHex string) (*XChaCha20Sealer, error) {
	key, err := hex.DecodeString(strings.TrimSpace(keyHex))
	if err != nil {
		return nil, fmt.Errorf("decode sealer key: %w", err)
	}
	return NewXChaCha20Sealer(key)
}

func (s *XChaCha20Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("cannot seal empty value")
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

func (s *XChaCha20Sealer) Open(sealed string) (string, error) {
	if !IsSealed(sealed) {
		return "", ErrNotSealed
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("sealed value too short")
	}
	nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(pt), nil
}

// IsSealed reports whether v carries the sealed-value prefix.
func IsSealed(v string) bool {
	return strings.HasPrefix(v, sealedPrefix)
}
