package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webhook-dispatcher/config"
	httpHandler "webhook-dispatcher/internal/adapter/http/handler"
	"webhook-dispatcher/internal/adapter/metrics"
	pgStorage "webhook-dispatcher/internal/adapter/storage/postgres"
	redisStorage "webhook-dispatcher/internal/adapter/storage/redis"
	"webhook-dispatcher/internal/core/ports"
	"webhook-dispatcher/internal/service"
	"webhook-dispatcher/pkg/logger"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(os.Getenv("PWH_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("success_policy", cfg.Webhook.SuccessPolicy).
		Int("concurrency", cfg.Webhook.Concurrency).
		Msg("Starting Pulse webhook dispatcher")

	ctx := context.Background()

	if cfg.Database.AutoMigrate {
		if err := pgStorage.Migrate(cfg.Database.MigrateURL(), log); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Core services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Storage
	registry := redisStorage.NewSubscriberCache(
		pgStorage.NewEndpointRegistry(pool), rdb, cfg.Webhook.SubscriberCacheTTL, log)
	deliveryLogs := service.NewDeliveryLogger(pgStorage.NewDeliveryLogRepo(pool), log)

	// Delivery
	workerPool := service.NewWorkerPool(cfg.Webhook.Concurrency, log)
	deliveryMetrics := metrics.NewDeliveryMetrics(workerPool)
	worker := service.NewDeliveryWorker(
		registry,
		deliveryLogs,
		encSvc,
		sigSvc,
		deliveryMetrics,
		&http.Client{}, // per-attempt timeouts come from each endpoint
		service.DeliveryOptions{
			UserAgent:        cfg.Webhook.UserAgent,
			SignatureHeader:  cfg.Webhook.SignatureHeader,
			BackoffBase:      cfg.Webhook.BackoffBase,
			RequireStatus2xx: cfg.Webhook.SuccessPolicy == config.SuccessPolicyStatus2xx,
		},
		log,
	)
	dispatcher := service.NewDispatcher(registry, worker, workerPool, cfg.Webhook.Source, log)

	ingestClients := service.NewStaticIngestClients(cfg.Ingest.Clients)
	if len(cfg.Ingest.Clients) == 0 {
		log.Warn().Msg("No ingest clients configured, POST /api/v1/events will reject every request")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Dispatcher:       dispatcher,
		Registry:         registry,
		Worker:           worker,
		DeliveryLogs:     deliveryLogs,
		IdempotencyCache: redisStorage.NewIdempotencyCache(rdb),
		IdempotencyTTL:   cfg.Webhook.IdempotencyTTL,
		IngestClients:    ingestClients,
		EncSvc:           encSvc,
		SigSvc:           sigSvc,
		NonceStore:       redisStorage.NewNonceStore(rdb),
		TokenSvc:         tokenSvc,
		RateLimiter:      redisStorage.NewRateLimitStore(rdb),
		HealthCheckers: []ports.HealthChecker{
			pgStorage.NewHealthCheck(pool),
			redisStorage.NewHealthCheck(rdb),
		},
		MetricsHandler: deliveryMetrics.Handler(),
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Source:         cfg.Webhook.Source,
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Queued deliveries are dropped; running ones get the rest of the shutdown window.
	if err := workerPool.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Int("in_flight", workerPool.InFlight()).Msg("Deliveries still running at shutdown")
	}

	log.Info().Msg("Server exited")
}
