package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"webhook-dispatcher/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const endpointColumns = `id, url, http_method, headers, subscribed_events, is_active, secret_enc,
	max_retries, timeout_seconds, success_count, failure_count, last_triggered_at, created_at, updated_at`

// EndpointRegistry implements ports.EndpointRegistry.
type EndpointRegistry struct {
	pool Pool
}

// NewEndpointRegistry creates a new EndpointRegistry.
func NewEndpointRegistry(pool Pool) *EndpointRegistry {
	return &EndpointRegistry{pool: pool}
}

// FindActiveSubscribers returns active endpoints subscribed to event, oldest first.
func (r *EndpointRegistry) FindActiveSubscribers(ctx context.Context, event string) ([]domain.Endpoint, error) {
	query := `SELECT ` + endpointColumns + `
		FROM webhook_endpoints
		WHERE is_active AND $1 = ANY(subscribed_events)
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, event)
	if err != nil {
		return nil, fmt.Errorf("find subscribers: %w", err)
	}
	defer rows.Close()

	var endpoints []domain.Endpoint
	for rows.Next() {
		ep, err := scanEndpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan endpoint: %w", err)
		}
		endpoints = append(endpoints, *ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate endpoints: %w", err)
	}
	return endpoints, nil
}

// GetByID fetches an endpoint by its UUID.
func (r *EndpointRegistry) GetByID(ctx context.Context, id uuid.UUID) (*domain.Endpoint, error) {
	query := `SELECT ` + endpointColumns + ` FROM webhook_endpoints WHERE id = $1`

	ep, err := scanEndpoint(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get endpoint by id: %w", err)
	}
	return ep, nil
}

// IncrementSuccess atomically bumps success_count and stamps last_triggered_at.
func (r *EndpointRegistry) IncrementSuccess(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE webhook_endpoints
		SET success_count = success_count + 1, last_triggered_at = NOW(), updated_at = NOW()
		WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("increment success count: %w", err)
	}
	return nil
}

// IncrementFailure atomically bumps failure_count and stamps last_triggered_at.
func (r *EndpointRegistry) IncrementFailure(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE webhook_endpoints
		SET failure_count = failure_count + 1, last_triggered_at = NOW(), updated_at = NOW()
		WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("increment failure count: %w", err)
	}
	return nil
}

func scanEndpoint(row pgx.Row) (*domain.Endpoint, error) {
	var (
		ep        domain.Endpoint
		method    string
		headers   []byte
		secretEnc *string
	)
	err := row.Scan(
		&ep.ID, &ep.URL, &method, &headers, &ep.SubscribedEvents, &ep.IsActive, &secretEnc,
		&ep.MaxRetries, &ep.TimeoutSeconds, &ep.SuccessCount, &ep.FailureCount,
		&ep.LastTriggeredAt, &ep.CreatedAt, &ep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ep.HTTPMethod = domain.HTTPMethod(method)
	if secretEnc != nil {
		ep.SecretEnc = *secretEnc
	}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &ep.Headers); err != nil {
			return nil, fmt.Errorf("decode headers: %w", err)
		}
	}
	return &ep, nil
}
