// Package storage provides cryptographic utilities for credential handling:
// random credential generation, bcrypt hashing for verification, and
// AES-256-GCM encryption for the operator re-display form.
package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/bcrypt"
)

// GeneratePublicToken returns a random 64-character hex public token.
func GeneratePublicToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GeneratePasskey returns a random 32-character hex passkey.
func GeneratePasskey() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashPasskey creates a bcrypt hash of a passkey for verification storage.
func HashPasskey(passkey string) (string, error) {
	// Use bcrypt cost 12
	hash, err := bcrypt.GenerateFromPassword([]byte(passkey), 12)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPasskey checks a supplied passkey against a bcrypt hash.
func VerifyPasskey(passkey, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(passkey))
}

// EncryptPasskey encrypts a passkey using AES-256-GCM for later operator
// re-display. Storing a recoverable form is a deliberate trade-off carried
// over from the management UI's view-credentials feature; verification on
// the hot path always uses the bcrypt hash instead.
// Returns hex-encoded nonce+ciphertext concatenated.
func EncryptPasskey(passkey string, encryptionKey []byte) (string, error) {
	if len(encryptionKey) != 32 {
		return "", ErrInvalidKey
	}

	// Safe because key size is already validated
	block, _ := aes.NewCipher(encryptionKey) //nolint:errcheck
	gcm, _ := cipher.NewGCM(block)           //nolint:errcheck

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(passkey), nil)
	return hex.EncodeToString(ciphertext), nil
}

// DecryptPasskey decrypts a passkey encrypted with EncryptPasskey.
func DecryptPasskey(encrypted string, encryptionKey []byte) (string, error) {
	if len(encryptionKey) != 32 {
		return "", ErrInvalidKey
	}

	ciphertext, err := hex.DecodeString(encrypted)
	if err != nil {
		return "", ErrDecryption
	}

	// Safe because key size is already validated
	block, _ := aes.NewCipher(encryptionKey) //nolint:errcheck
	gcm, _ := cipher.NewGCM(block)           //nolint:errcheck

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", ErrDecryption
	}

	nonce := ciphertext[:nonceSize]
	actual := ciphertext[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, actual, nil)
	if err != nil {
		return "", ErrDecryption
	}

	return string(plaintext), nil
}
