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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/finledger/internal/adapter/http"
	"github.com/iho/finledger/internal/adapter/http/handler"
	"github.com/iho/finledger/internal/adapter/http/middleware"
	memoryRepo "github.com/iho/finledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/finledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/finledger/internal/adapter/repository/redis"
	"github.com/iho/finledger/internal/infrastructure/auth"
	"github.com/iho/finledger/internal/infrastructure/config"
	"github.com/iho/finledger/internal/infrastructure/eventpublisher"
	"github.com/iho/finledger/internal/infrastructure/idgen"
	"github.com/iho/finledger/internal/infrastructure/logger"
	"github.com/iho/finledger/internal/infrastructure/metrics"
	"github.com/iho/finledger/internal/infrastructure/postgres"
	"github.com/iho/finledger/internal/infrastructure/redis"
	"github.com/iho/finledger/internal/infrastructure/retry"
	"github.com/iho/finledger/internal/usecase"
)

const rateLimiterIdleTimeout = 10 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

// run wires the application and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	retrier := retry.NewRetrier(log)

	store, err := openStorage(ctx, cfg, log, retrier)
	if err != nil {
		return err
	}
	defer store.close()

	checks := store.checks

	var idempotencyStore usecase.IdempotencyStore
	if redisClient := connectRedis(ctx, cfg, log, retrier); redisClient != nil {
		defer redisClient.Close()
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
		checks["redis"] = func(ctx context.Context) error { return redis.Ping(ctx, redisClient) }
	}

	sink, closeSink, err := newEventSink(cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()

	m := metrics.New(prometheus.DefaultRegisterer)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	statementIDs := idgen.NewULIDGenerator()

	// Initialize use cases
	balanceUC := usecase.NewBalanceUseCase(store.txManager, store.userRepo, store.statementRepo)
	statementUC := usecase.NewStatementUseCase(
		store.txManager, store.locker, store.userRepo, store.statementRepo, store.outboxRepo, balanceUC, statementIDs,
	).WithMetrics(m)
	userUC := usecase.NewUserUseCase(
		store.txManager, store.locker, store.userRepo, store.outboxRepo, idgen.NewUUIDGenerator(), statementIDs, jwtManager,
	)
	ledgerUC := usecase.NewLedgerUseCase(store.txManager, store.ledgerRepo)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).OnLimited(m.RateLimited)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		UserHandler:        handler.NewUserHandler(userUC).WithMetrics(m),
		StatementHandler:   handler.NewStatementHandler(statementUC, balanceUC),
		LedgerHandler:      handler.NewLedgerHandler(ledgerUC),
		HealthHandler:      handler.NewHealthHandler(checks),
		TokenVerifier:      jwtManager,
		Logger:             log,
		IdempotencyStore:   idempotencyStore,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		RateLimiter:        rateLimiter,
		Metrics:            m,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: store.outboxRepo,
		Publisher:  sink,
		Observer:   m,
		Logger:     log,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxPollInterval,
		Retention:  cfg.OutboxRetention,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := publisher.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if removed := rateLimiter.CleanupLimiters(rateLimiterIdleTimeout); removed > 0 {
					log.Debug().Int("removed", removed).Msg("rate limiter entries expired")
				}
			}
		}
	})

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.StorageDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// storage is the set of repositories backing the use cases.
type storage struct {
	txManager     usecase.TransactionManager
	locker        usecase.Locker
	userRepo      usecase.UserRepository
	statementRepo usecase.StatementRepository
	outboxRepo    usecase.OutboxRepository
	ledgerRepo    usecase.LedgerRepository
	checks        map[string]handler.CheckFunc
	close         func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger, retrier *retry.Retrier) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		return newMemoryStorage(), nil
	case config.StoragePostgres:
		return openPostgresStorage(ctx, cfg, log, retrier)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func newMemoryStorage() *storage {
	store := memoryRepo.NewStore()
	return &storage{
		txManager:     memoryRepo.NewTxManager(store),
		locker:        memoryRepo.NewLocker(store),
		userRepo:      memoryRepo.NewUserRepository(store),
		statementRepo: memoryRepo.NewStatementRepository(store),
		outboxRepo:    memoryRepo.NewOutboxRepository(store),
		ledgerRepo:    memoryRepo.NewLedgerRepository(store),
		checks:        map[string]handler.CheckFunc{},
		close:         func() {},
	}
}

func openPostgresStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger, retrier *retry.Retrier) (*storage, error) {
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	pool, err := connectPostgres(ctx, cfg, retrier)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	log.Info().Msg("connected to postgres")

	return &storage{
		txManager:     postgresRepo.NewTxManager(pool),
		locker:        postgresRepo.NewLocker(),
		userRepo:      postgresRepo.NewUserRepository(pool),
		statementRepo: postgresRepo.NewStatementRepository(pool),
		outboxRepo:    postgresRepo.NewOutboxRepository(pool),
		ledgerRepo:    postgresRepo.NewLedgerRepository(),
		checks:        map[string]handler.CheckFunc{"postgres": pool.Ping},
		close:         pool.Close,
	}, nil
}

func connectPostgres(ctx context.Context, cfg *config.Config, retrier *retry.Retrier) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	err := retrier.Retry(ctx, "postgres", func(ctx context.Context) error {
		p, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL:    cfg.DatabaseURL,
			MaxConns:       cfg.DatabaseMaxConns,
			MinConns:       cfg.DatabaseMinConns,
			ConnectTimeout: cfg.DatabaseConnectTimeout,
		})
		if err != nil {
			return err
		}
		pool = p
		return nil
	})
	return pool, err
}

// connectRedis returns nil when Redis is not configured or unreachable;
// Idempotency-Key replay is then disabled.
func connectRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger, retrier *retry.Retrier) *goredis.Client {
	if cfg.RedisURL == "" {
		log.Warn().Msg("REDIS_URL not set; idempotency keys are ignored")
		return nil
	}

	var client *goredis.Client
	err := retrier.Retry(ctx, "redis", func(ctx context.Context) error {
		c, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable; idempotency keys are ignored")
		return nil
	}

	log.Info().Msg("connected to redis")
	return client
}

func newEventSink(cfg *config.Config, log zerolog.Logger) (eventpublisher.Publisher, func(), error) {
	switch cfg.EventPublisher {
	case config.PublisherAMQP:
		p, err := eventpublisher.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to amqp: %w", err)
		}
		return p, func() {
			if err := p.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close amqp publisher")
			}
		}, nil
	case config.PublisherLog, "":
		return eventpublisher.NewLogPublisher(log), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown event publisher %q", cfg.EventPublisher)
	}
}
