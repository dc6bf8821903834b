// Package crypto seals OAuth tokens at rest with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrDecryptionFailed  = errors.New("decryption failed")
)

// Sealed tokens carry this prefix so plaintext legacy rows can be told apart.
const sealedPrefix = "enc:v1:"

// Encryptor is safe for concurrent use.
type Encryptor struct {
	gcm cipher.AEAD
}

// NewEncryptor derives a 32 byte key with SHA-256 when secret has another length.
func NewEncryptor(secret []byte) (*Encryptor, error) {
	if len(secret) == 0 {
		return nil, errors.New("encryption key is empty")
	}
	key := secret
	if len(key) != 32 {
		sum := sha256.Sum256(secret)
		key = sum[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Encryptor{gcm: gcm}, nil
}

// Seal returns "" for "" so empty refresh tokens stay empty.
func (e *Encryptor) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := e.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Values without the sealed prefix are returned unchanged.
func (e *Encryptor) Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(value[len(sealedPrefix):])
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	nonceSize := e.gcm.NonceSize()
	if len(data) < nonceSize {
		return "", ErrInvalidCiphertext
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

func IsSealed(value string) bool {
	return len(value) > len(sealedPrefix) && value[:len(sealedPrefix)] == sealedPrefix
}
