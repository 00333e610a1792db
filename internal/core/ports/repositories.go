//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

package ports

import (
	"context"

	"webhook-dispatcher/internal/core/domain"

	"github.com/google/uuid"
)

// EndpointRegistry gives the delivery core access to subscriber records.
// Endpoint CRUD lives outside this service; only lookups and counter updates are needed here.
type EndpointRegistry interface {
	// FindActiveSubscribers returns only active endpoints whose subscribed events contain event.
	FindActiveSubscribers(ctx context.Context, event string) ([]domain.Endpoint, error)
	// GetByID returns nil, nil when the endpoint does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Endpoint, error)
	// IncrementSuccess and IncrementFailure must be atomic for concurrent calls on the same
	// endpoint, and also stamp last_triggered_at.
	IncrementSuccess(ctx context.Context, id uuid.UUID) error
	IncrementFailure(ctx context.Context, id uuid.UUID) error
}

// DeliveryLogRepository persists delivery attempt logs. Rows are append-only.
type DeliveryLogRepository interface {
	Create(ctx context.Context, log *domain.DeliveryAttemptLog) error
	ListByEndpoint(ctx context.Context, endpointID uuid.UUID, limit int) ([]domain.DeliveryAttemptLog, error)
}
