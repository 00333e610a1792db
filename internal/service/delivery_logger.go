package service

import (
	"context"
	"fmt"
	"time"

	"webhook-dispatcher/internal/core/domain"
	"webhook-dispatcher/internal/core/ports"
	"webhook-dispatcher/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultLogListLimit = 50
	MaxLogListLimit     = 200
)

type deliveryLogger struct {
	repo ports.DeliveryLogRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewDeliveryLogger creates the delivery log sink.
// If repo is nil, delivery logs are only written to the application logger.
func NewDeliveryLogger(repo ports.DeliveryLogRepository, log zerolog.Logger) ports.DeliveryLogger {
	return &deliveryLogger{repo: repo, log: logger.Component(log, "delivery_log"), now: time.Now}
}

// Record persists entry synchronously. Persistence failures are logged, never returned,
// so a broken log store cannot change a delivery's outcome.
func (s *deliveryLogger) Record(ctx context.Context, entry *domain.DeliveryAttemptLog) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}

	event := s.log.Info()
	switch entry.Outcome {
	case domain.DeliveryOutcomeWarning:
		event = s.log.Warn()
	case domain.DeliveryOutcomeError:
		event = s.log.Error()
	}
	event.
		Str("log_id", entry.ID.String()).
		Str("endpoint_id", entry.EndpointID.String()).
		Str("event", entry.EventName).
		Str("outcome", string(entry.Outcome)).
		Int("attempts", entry.Attempts).
		Int64("duration_ms", entry.DurationMs).
		Msg(entry.Message)

	if s.repo == nil {
		return
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("endpoint_id", entry.EndpointID.String()).
			Str("event", entry.EventName).
			Msg("failed to persist delivery log")
	}
}

// ListByEndpoint returns the newest logs first. limit is clamped to [1, MaxLogListLimit].
func (s *deliveryLogger) ListByEndpoint(ctx context.Context, endpointID uuid.UUID, limit int) ([]domain.DeliveryAttemptLog, error) {
	if s.repo == nil {
		return []domain.DeliveryAttemptLog{}, nil
	}
	switch {
	case limit <= 0:
		limit = DefaultLogListLimit
	case limit > MaxLogListLimit:
		limit = MaxLogListLimit
	}

	logs, err := s.repo.ListByEndpoint(ctx, endpointID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing delivery logs: %w", err)
	}
	return logs, nil
}
