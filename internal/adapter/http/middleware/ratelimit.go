package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redisStore "webhook-dispatcher/internal/adapter/storage/redis"
	"webhook-dispatcher/pkg/apperror"
	"webhook-dispatcher/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Limiter counts requests against a fixed window.
type Limiter interface {
	Allow(ctx context.Context, subject string, limit int64, window time.Duration) (*redisStore.RateLimitResult, error)
}

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the rate limits per endpoint group.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"ingest":     {Limit: 600, Window: time.Minute},
		"admin":      {Limit: 60, Window: time.Minute},
		"admin_test": {Limit: 10, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// When the limiter itself fails the request is allowed.
func RateLimiter(limiter Limiter, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := fmt.Sprintf("%s:%s", group, extractIdentifier(c))

		result, err := limiter.Allow(c.Request.Context(), subject, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Abort(c, apperror.ErrRateLimitExceeded())
			return
		}

		c.Next()
	}
}

// extractIdentifier picks the authenticated principal, falling back to the client IP.
func extractIdentifier(c *gin.Context) string {
	if id := c.GetString(CtxClientID); id != "" {
		return id
	}
	if sub := c.GetString(CtxSubject); sub != "" {
		return sub
	}
	if ak := c.GetHeader(HeaderAccessKey); ak != "" {
		return ak
	}
	return c.ClientIP()
}
