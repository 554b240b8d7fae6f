package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

// sealPrefix marks a sealed value. Rows written before sealing was enabled
// have no prefix and are returned unchanged by Open.
const sealPrefix = "v1:"

const nonceSize = 24

// TokenSealer encrypts GitHub access tokens at rest with NaCl secretbox
// (XSalsa20-Poly1305). The 32-byte key is derived from a configured secret
// with HKDF-SHA256.
//
// Sealed format: "v1:" + base64(nonce || box).
type TokenSealer struct {
	key [32]byte
}

// NewTokenSealer derives the sealing key from secret.
func NewTokenSealer(secret string) (*TokenSealer, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: token encryption key must be at least 16 characters")
	}

	s := &TokenSealer{}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("devtrack access-token v1"))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("auth: deriving token key: %w", err)
	}
	return s, nil
}

// Seal encrypts plaintext. The empty string stays empty so "no token" is
// still visible in the database.
func (s *TokenSealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("auth: generating nonce: %w", err)
	}

	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return sealPrefix + base64.RawStdEncoding.EncodeToString(box), nil
}

// Open decrypts a value produced by Seal.
func (s *TokenSealer) Open(sealed string) (string, error) {
	if sealed == "" || !strings.HasPrefix(sealed, sealPrefix) {
		return sealed, nil
	}

	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(sealed, sealPrefix))
	if err != nil {
		return "", fmt.Errorf("auth: decoding sealed token: %w", err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", errors.New("auth: sealed token too short")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", errors.New("auth: sealed token failed authentication")
	}
	return string(plain), nil
}
