package domain

import (
	"time"

	"github.com/google/uuid"
)

// HTTPMethod is the verb used when delivering to an endpoint.
type HTTPMethod string

const (
	HTTPMethodGet    HTTPMethod = "GET"
	HTTPMethodPost   HTTPMethod = "POST"
	HTTPMethodPut    HTTPMethod = "PUT"
	HTTPMethodPatch  HTTPMethod = "PATCH"
	HTTPMethodDelete HTTPMethod = "DELETE"
)

// IsValid reports whether m is one of the supported delivery methods.
func (m HTTPMethod) IsValid() bool {
	switch m {
	case HTTPMethodGet, HTTPMethodPost, HTTPMethodPut, HTTPMethodPatch, HTTPMethodDelete:
		return true
	}
	return false
}

// DefaultTimeoutSeconds applies when an endpoint has no positive timeout configured.
const DefaultTimeoutSeconds = 30

// Endpoint is a subscriber registered to receive webhook deliveries.
// Counters are owned by the registry and only change through its increment operations.
type Endpoint struct {
	ID               uuid.UUID         `json:"id"`
	URL              string            `json:"url"`
	HTTPMethod       HTTPMethod        `json:"http_method"`
	Headers          map[string]string `json:"headers,omitempty"`
	SubscribedEvents []string          `json:"subscribed_events"`
	IsActive         bool              `json:"is_active"`
	SecretEnc        string            `json:"secret_enc,omitempty"` // AES-GCM encrypted, empty = unsigned
	MaxRetries       int               `json:"max_retries"`
	TimeoutSeconds   int               `json:"timeout_seconds"`
	SuccessCount     int64             `json:"success_count"`
	FailureCount     int64             `json:"failure_count"`
	LastTriggeredAt  *time.Time        `json:"last_triggered_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Subscribes reports whether the endpoint is subscribed to event.
// Matching is exact; there is no wildcard or prefix support.
func (e *Endpoint) Subscribes(event string) bool {
	for _, s := range e.SubscribedEvents {
		if s == event {
			return true
		}
	}
	return false
}

// Receives reports whether a dispatch of event should reach this endpoint.
func (e *Endpoint) Receives(event string) bool {
	return e.IsActive && e.Subscribes(event)
}

// HasSecret reports whether outbound requests must be signed.
func (e *Endpoint) HasSecret() bool {
	return e.SecretEnc != ""
}

// AttemptBudget is the total number of HTTP attempts: one initial try plus MaxRetries.
func (e *Endpoint) AttemptBudget() int {
	if e.MaxRetries < 0 {
		return 1
	}
	return e.MaxRetries + 1
}

// Timeout returns the per-attempt HTTP timeout.
func (e *Endpoint) Timeout() time.Duration {
	if e.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(e.TimeoutSeconds) * time.Second
}
