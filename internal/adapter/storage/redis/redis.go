package redis

import (
	"context"
	"fmt"
	"strings"

	"webhook-dispatcher/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// keyPrefix namespaces every key written by this service.
const keyPrefix = "pwh:"

// key joins parts under the service namespace, e.g. key("nonce", "billing", "n1") = "pwh:nonce:billing:n1".
func key(parts ...string) string {
	return keyPrefix + strings.Join(parts, ":")
}

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Msg("Redis connection established")

	return client, nil
}
