package handler

import (
	"net/http"
	"time"

	"webhook-dispatcher/internal/adapter/http/middleware"
	"webhook-dispatcher/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const defaultMaxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Dispatcher       ports.EventDispatcher
	Registry         ports.EndpointRegistry
	Worker           ports.DeliveryWorker
	DeliveryLogs     ports.DeliveryLogger
	IdempotencyCache ports.IdempotencyCache // nil = Idempotency-Key ignored
	IdempotencyTTL   time.Duration
	IngestClients    ports.IngestClients
	EncSvc           ports.EncryptionService
	SigSvc           ports.SignatureService
	NonceStore       ports.NonceStore
	TokenSvc         ports.TokenService
	RateLimiter      middleware.Limiter // nil = rate limiting disabled
	HealthCheckers   []ports.HealthChecker
	MetricsHandler   http.Handler // nil = /metrics not mounted
	MaxBodyBytes     int64
	Source           string
	Logger           zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBody))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimiter == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// Ingest: HMAC-authenticated services raising events.
	hmacAuth := middleware.HMACAuth(deps.IngestClients, deps.EncSvc, deps.SigSvc, deps.NonceStore, deps.Logger)
	eventHandler := NewEventHandler(deps.Dispatcher, deps.IdempotencyCache, deps.IdempotencyTTL, deps.Logger)
	v1.POST("/events", hmacAuth, rl("ingest"), eventHandler.Trigger)

	// Admin: JWT bearer.
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	endpointHandler := NewEndpointHandler(deps.Registry, deps.Worker, deps.DeliveryLogs, deps.Source)
	endpoints := v1.Group("/endpoints", jwtAuth)
	{
		endpoints.POST("/:id/test", rl("admin_test"), endpointHandler.TestDelivery)
		endpoints.GET("/:id/logs", rl("admin"), endpointHandler.ListLogs)
	}

	return r
}
