package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// secretKeyInfo binds derived keys to their purpose; changing it invalidates stored secrets.
const secretKeyInfo = "pulse-webhooks/endpoint-secrets/v1"

// minMasterKeyLen is the shortest master key accepted for key derivation.
const minMasterKeyLen = 16

// AESEncryptionService implements ports.EncryptionService using AES-256-GCM.
// It protects endpoint signing secrets and ingest-client secrets at rest.
type AESEncryptionService struct {
	key []byte // 32-byte key for AES-256
}

// NewAESEncryptionService derives an AES-256 key from masterKey with HKDF-SHA256.
func NewAESEncryptionService(masterKey string) (*AESEncryptionService, error) {
	if len(masterKey) < minMasterKeyLen {
		return nil, fmt.Errorf("master key must be at least %d bytes, got %d", minMasterKeyLen, len(masterKey))
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(masterKey), nil, []byte(secretKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("deriving AES key: %w", err)
	}
	return &AESEncryptionService{key: key}, nil
}

// Encrypt encrypts plaintext using AES-256-GCM.
// Returns hex-encoded string: nonce + ciphertext.
func (s *AESEncryptionService) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating GCM: %w", err)
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(ciphertext), nil
}

// Decrypt decrypts a hex-encoded AES-256-GCM ciphertext.
func (s *AESEncryptionService) Decrypt(ciphertextHex string) (string, error) {
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating GCM: %w", err)
	}

	nonceSize := aesGCM.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}

	return string(plaintext), nil
}
