package service

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
)

// HMACSignatureService implements ports.SignatureService using HMAC-SHA256.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign computes HMAC-SHA256 of body keyed by secret.
// Returns lowercase hex-encoded signature.
func (s *HMACSignatureService) Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks if signature matches HMAC-SHA256(secret, body).
// Uses constant-time comparison of the lowercase hex forms, so any altered
// character (including case) fails. Malformed input simply returns false.
func (s *HMACSignatureService) Verify(secret string, body []byte, signature string) bool {
	if len(signature) != hex.EncodedLen(sha256.Size) {
		return false
	}
	expected := s.Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// BuildCanonicalString constructs the canonical string signed by ingest clients.
// Format: METHOD|PATH|TIMESTAMP|NONCE|BODY
func (s *HMACSignatureService) BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string {
	return fmt.Sprintf("%s|%s|%d|%s|%s", method, path, timestamp, nonce, body)
}

// VerifyRequest is the receiver-side check for a delivered webhook. It reads the
// raw body, restores it on r for later handlers, and verifies the signature found
// in header. Re-encoding the JSON before verifying would change the bytes.
func (s *HMACSignatureService) VerifyRequest(secret, header string, r *http.Request) (bool, error) {
	if r.Body == nil {
		return false, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return false, fmt.Errorf("reading webhook body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return s.Verify(secret, body, r.Header.Get(header)), nil
}
