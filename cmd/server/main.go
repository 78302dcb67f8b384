package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/ledgerkit/banksync/internal/adapter/http"
	"github.com/ledgerkit/banksync/internal/adapter/http/handler"
	"github.com/ledgerkit/banksync/internal/adapter/http/middleware"
	"github.com/ledgerkit/banksync/internal/adapter/objectstore"
	"github.com/ledgerkit/banksync/internal/adapter/plaid"
	postgresRepo "github.com/ledgerkit/banksync/internal/adapter/repository/postgres"
	redisRepo "github.com/ledgerkit/banksync/internal/adapter/repository/redis"
	"github.com/ledgerkit/banksync/internal/infrastructure/auth"
	"github.com/ledgerkit/banksync/internal/infrastructure/config"
	"github.com/ledgerkit/banksync/internal/infrastructure/logging"
	"github.com/ledgerkit/banksync/internal/infrastructure/metrics"
	"github.com/ledgerkit/banksync/internal/infrastructure/postgres"
	"github.com/ledgerkit/banksync/internal/infrastructure/redis"
	"github.com/ledgerkit/banksync/internal/infrastructure/retry"
	"github.com/ledgerkit/banksync/internal/infrastructure/secrets"
	"github.com/ledgerkit/banksync/internal/usecase"
)

func main() {
	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	appLogger := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	ctx := context.Background()

	// Run migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Object store
	store, err := objectstore.New(ctx, cfg.ObjectStoreEndpoint, cfg.ObjectStoreAccessKey, cfg.ObjectStoreSecretKey, cfg.ObjectStoreBucket, cfg.ObjectStoreUseSSL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to object store")
	}

	// Token cipher
	cipher, err := secrets.NewSecretBox(cfg.TokenCipherKey)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid token cipher key")
	}

	m := metrics.New()

	// Aggregator client and retry policy
	aggregator := plaid.NewClient(cfg.AggregatorBaseURL, cfg.AggregatorClientID, cfg.AggregatorSecret, cfg.AggregatorTimeout)
	retrier := retry.NewPolicy(cfg.SyncRetryAttempts, cfg.SyncRetryBaseDelay,
		retry.WithOnRetry(func() { m.UpstreamRetries.Inc() }),
	)

	// Initialize repositories
	accountRepo := postgresRepo.NewAccountRepository(pool)
	memberRepo := postgresRepo.NewMembershipRepository(pool)
	connRepo := postgresRepo.NewConnectionRepository(pool)
	txnRepo := postgresRepo.NewBankTransactionRepository(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	matchRepo := postgresRepo.NewMatchRepository(pool)
	snapRepo := postgresRepo.NewSnapshotRepository(pool)
	cache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	// Initialize use cases
	syncUC := usecase.NewSyncUseCase(connRepo, txnRepo, entryRepo, aggregator, cipher, retrier, idGen, appLogger, m, usecase.SyncConfig{
		MaxPages:        cfg.SyncMaxPages,
		MaxTransactions: cfg.SyncMaxTxns,
	})
	connUC := usecase.NewConnectionUseCase(connRepo, txnRepo, accountRepo, aggregator, cipher, cache, idGen, appLogger, cfg.StatusConcurrency)
	snapUC := usecase.NewSnapshotUseCase(accountRepo, txnRepo, entryRepo, matchRepo, snapRepo, memberRepo, store, idGen, appLogger, m, cfg.ArtifactURLTTL)

	// Initialize handlers
	syncHandler := handler.NewSyncHandler(syncUC)
	connHandler := handler.NewConnectionHandler(connUC)
	snapHandler := handler.NewSnapshotHandler(snapUC)
	webhookHandler := handler.NewWebhookHandler(connUC, cfg.WebhookSharedSecret)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, 24*time.Hour)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		SyncHandler:       syncHandler,
		ConnectionHandler: connHandler,
		SnapshotHandler:   snapHandler,
		WebhookHandler:    webhookHandler,
		HealthHandler:     healthHandler,
		JWTManager:        jwtManager,
		MembershipRepo:    memberRepo,
		IdempotencyStore:  idempotencyStore,
		IdempotencyTTL:    cfg.IdempotencyTTL,
		Logging:           middleware.NewLoggingMiddleware(log.Logger),
		Metrics:           middleware.NewMetricsMiddleware(m),
		RateLimiter:       middleware.NewRateLimiter(50, 100, m),
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
