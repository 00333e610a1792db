package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"webhook-dispatcher/internal/core/domain"
	"webhook-dispatcher/internal/core/ports"
	"webhook-dispatcher/pkg/logger"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SubscriberCache decorates an EndpointRegistry, caching which endpoints subscribe to
// an event. A cached hit is re-read endpoint by endpoint through GetByID, so an endpoint
// deactivated or unsubscribed since caching is never returned. Endpoints created or
// subscribed since caching appear once the entry expires. Cached entries carry only the
// encrypted secret. Redis failures fall through to the backing registry; counter
// updates always go straight to it.
type SubscriberCache struct {
	next   ports.EndpointRegistry
	client goredis.Cmdable
	ttl    time.Duration
	log    zerolog.Logger
}

// NewSubscriberCache wraps next. A non-positive ttl disables caching.
func NewSubscriberCache(next ports.EndpointRegistry, client goredis.Cmdable, ttl time.Duration, log zerolog.Logger) *SubscriberCache {
	return &SubscriberCache{
		next:   next,
		client: client,
		ttl:    ttl,
		log:    logger.Component(log, "subscriber_cache"),
	}
}

func (c *SubscriberCache) FindActiveSubscribers(ctx context.Context, event string) ([]domain.Endpoint, error) {
	if c.ttl <= 0 {
		return c.next.FindActiveSubscribers(ctx, event)
	}

	k := key("subscribers", event)
	raw, err := c.client.Get(ctx, k).Bytes()
	switch {
	case err == nil:
		var cached []domain.Endpoint
		if err := json.Unmarshal(raw, &cached); err == nil {
			if endpoints, ok := c.revalidate(ctx, event, cached); ok {
				return endpoints, nil
			}
			break
		}
		c.log.Warn().Str("event", event).Msg("discarding undecodable cache entry")
	case !errors.Is(err, goredis.Nil):
		c.log.Warn().Err(err).Str("event", event).Msg("subscriber cache read failed")
	}

	endpoints, err := c.next.FindActiveSubscribers(ctx, event)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(endpoints); err == nil {
		if err := c.client.Set(ctx, k, raw, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Str("event", event).Msg("subscriber cache write failed")
		}
	}
	return endpoints, nil
}

// revalidate replaces cached endpoints with their current registry state, dropping
// any that no longer receive event. It reports false when the registry cannot be read.
func (c *SubscriberCache) revalidate(ctx context.Context, event string, cached []domain.Endpoint) ([]domain.Endpoint, bool) {
	endpoints := make([]domain.Endpoint, 0, len(cached))
	for _, ep := range cached {
		current, err := c.next.GetByID(ctx, ep.ID)
		if err != nil {
			c.log.Warn().Err(err).Str("event", event).Str("endpoint_id", ep.ID.String()).Msg("subscriber cache revalidation failed")
			return nil, false
		}
		if current == nil || !current.Receives(event) {
			continue
		}
		endpoints = append(endpoints, *current)
	}
	if len(endpoints) != len(cached) {
		if err := c.client.Del(ctx, key("subscribers", event)).Err(); err != nil {
			c.log.Warn().Err(err).Str("event", event).Msg("subscriber cache evict failed")
		}
	}
	return endpoints, true
}

func (c *SubscriberCache) GetByID(ctx context.Context, id uuid.UUID) (*domain.Endpoint, error) {
	return c.next.GetByID(ctx, id)
}

func (c *SubscriberCache) IncrementSuccess(ctx context.Context, id uuid.UUID) error {
	return c.next.IncrementSuccess(ctx, id)
}

func (c *SubscriberCache) IncrementFailure(ctx context.Context, id uuid.UUID) error {
	return c.next.IncrementFailure(ctx, id)
}
