//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

package ports

import (
	"context"
	"time"

	"webhook-dispatcher/internal/core/domain"

	"github.com/google/uuid"
)

// EncryptionService protects endpoint and ingest-client secrets at rest.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secret string, body []byte) string
	Verify(secret string, body []byte, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// TokenService handles admin JWT operations.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
}

// IdempotencyCache remembers responses to ingest requests carrying an Idempotency-Key.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil when absent
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NonceStore manages nonce uniqueness for replay attack prevention.
type NonceStore interface {
	// CheckAndSet returns true if the nonce is new, false if already used.
	CheckAndSet(ctx context.Context, clientID string, nonce string, ttl time.Duration) (bool, error)
}

// IngestClients resolves the encrypted shared secret of an event-ingest client.
type IngestClients interface {
	SecretFor(accessKey string) (secretEnc string, ok bool)
}

// DeliveryMetrics receives one observation per finished delivery.
type DeliveryMetrics interface {
	ObserveDelivery(outcome domain.DeliveryOutcome, attempts int, elapsed time.Duration)
}

// --- Service Ports (Business Logic) ---

// DeliveryLogger records the final outcome of each delivery.
// Record never fails the caller; persistence errors are reported through the application log.
type DeliveryLogger interface {
	Record(ctx context.Context, entry *domain.DeliveryAttemptLog)
	ListByEndpoint(ctx context.Context, endpointID uuid.UUID, limit int) ([]domain.DeliveryAttemptLog, error)
}

// DeliveryWorker delivers one payload to one endpoint with bounded retries.
// A nil return means delivered; an error means the endpoint was rejected or retries were exhausted.
type DeliveryWorker interface {
	Deliver(ctx context.Context, endpoint domain.Endpoint, payload domain.WebhookPayload) error
}

// EventDispatcher fans an event out to every active subscriber.
// Trigger never blocks on delivery and never reports delivery errors to the caller.
type EventDispatcher interface {
	Trigger(ctx context.Context, event string, data any) *domain.Dispatch
}
