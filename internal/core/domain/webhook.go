package domain

import (
	"time"

	"github.com/google/uuid"
)

// WebhookPayload is the JSON body sent to every subscribed endpoint.
// Field order is fixed by the struct so serialization is stable.
type WebhookPayload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"` // RFC 3339, UTC
	Data      any    `json:"data"`
	Source    string `json:"source"`
}

// NewWebhookPayload builds a payload stamped with the given generation time.
func NewWebhookPayload(event string, data any, source string, at time.Time) WebhookPayload {
	return WebhookPayload{
		Event:     event,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Data:      data,
		Source:    source,
	}
}

// DeliveryOutcome is the final result of a delivery's retry sequence.
type DeliveryOutcome string

const (
	DeliveryOutcomeSuccess DeliveryOutcome = "success"
	DeliveryOutcomeWarning DeliveryOutcome = "warning" // delivered, but the receiver answered non-2xx
	DeliveryOutcomeError   DeliveryOutcome = "error"
)

// ErrorDetail describes why a delivery failed.
type ErrorDetail struct {
	Message string `json:"message"`
	Trace   string `json:"trace,omitempty"` // one line per failed attempt
}

// DeliveryAttemptLog records the outcome of one delivery to one endpoint.
// Exactly one row is written per delivery regardless of how many attempts ran.
type DeliveryAttemptLog struct {
	ID             uuid.UUID       `json:"id"`
	EndpointID     uuid.UUID       `json:"endpoint_id"`
	EventName      string          `json:"event"`
	Outcome        DeliveryOutcome `json:"outcome"`
	Message        string          `json:"message"`
	RequestPayload string          `json:"request_payload"` // exact bytes sent
	ErrorDetail    *ErrorDetail    `json:"error_detail,omitempty"`
	Attempts       int             `json:"attempts"`
	HTTPStatus     *int            `json:"http_status,omitempty"`
	DurationMs     int64           `json:"duration_ms"`
	CreatedAt      time.Time       `json:"created_at"`
}

// IsFailure reports whether the log captures an exhausted or rejected delivery.
func (l *DeliveryAttemptLog) IsFailure() bool {
	return l.Outcome == DeliveryOutcomeError
}
