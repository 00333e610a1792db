package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"webhook-dispatcher/internal/core/domain"

	"github.com/google/uuid"
)

// DeliveryLogRepo implements ports.DeliveryLogRepository.
type DeliveryLogRepo struct {
	pool Pool
}

// NewDeliveryLogRepo creates a new DeliveryLogRepo.
func NewDeliveryLogRepo(pool Pool) *DeliveryLogRepo {
	return &DeliveryLogRepo{pool: pool}
}

// Create appends a delivery log row.
func (r *DeliveryLogRepo) Create(ctx context.Context, l *domain.DeliveryAttemptLog) error {
	var detail []byte
	if l.ErrorDetail != nil {
		var err error
		if detail, err = json.Marshal(l.ErrorDetail); err != nil {
			return fmt.Errorf("encode error detail: %w", err)
		}
	}

	query := `INSERT INTO webhook_delivery_logs
		(id, endpoint_id, event_name, outcome, message, request_payload, error_detail, attempts, http_status, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		l.ID, l.EndpointID, l.EventName, string(l.Outcome), l.Message,
		l.RequestPayload, detail, l.Attempts, l.HTTPStatus, l.DurationMs, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery log: %w", err)
	}
	return nil
}

// ListByEndpoint returns up to limit logs of an endpoint, newest first.
func (r *DeliveryLogRepo) ListByEndpoint(ctx context.Context, endpointID uuid.UUID, limit int) ([]domain.DeliveryAttemptLog, error) {
	query := `SELECT id, endpoint_id, event_name, outcome, message, request_payload,
		error_detail, attempts, http_status, duration_ms, created_at
		FROM webhook_delivery_logs
		WHERE endpoint_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, endpointID, limit)
	if err != nil {
		return nil, fmt.Errorf("list delivery logs: %w", err)
	}
	defer rows.Close()

	logs := make([]domain.DeliveryAttemptLog, 0)
	for rows.Next() {
		var (
			l       domain.DeliveryAttemptLog
			outcome string
			detail  []byte
		)
		if err := rows.Scan(
			&l.ID, &l.EndpointID, &l.EventName, &outcome, &l.Message, &l.RequestPayload,
			&detail, &l.Attempts, &l.HTTPStatus, &l.DurationMs, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan delivery log: %w", err)
		}
		l.Outcome = domain.DeliveryOutcome(outcome)
		if len(detail) > 0 {
			l.ErrorDetail = &domain.ErrorDetail{}
			if err := json.Unmarshal(detail, l.ErrorDetail); err != nil {
				return nil, fmt.Errorf("decode error detail: %w", err)
			}
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery logs: %w", err)
	}
	return logs, nil
}
