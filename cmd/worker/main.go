package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/harga-api/internal/cart"
	"github.com/noah-isme/harga-api/internal/catalog"
	"github.com/noah-isme/harga-api/internal/config"
	"github.com/noah-isme/harga-api/internal/events"
	"github.com/noah-isme/harga-api/internal/lock"
	"github.com/noah-isme/harga-api/internal/membership"
	"github.com/noah-isme/harga-api/internal/obs"
	"github.com/noah-isme/harga-api/internal/repo"
	"github.com/noah-isme/harga-api/internal/resilience"
	"github.com/noah-isme/harga-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Repo:    repo.CatalogRepo{Pool: pool},
		Cache:   catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Breaker: resilience.NewBreaker(cfg.CircuitMinReq, cfg.CircuitFailureRate, cfg.CircuitOpenFor),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}

	membershipClient := &membership.Client{
		HTTP: &resilience.HTTPClient{
			Client:      &http.Client{Timeout: cfg.OutboundTimeout},
			Breaker:     resilience.NewBreaker(cfg.CircuitMinReq, cfg.CircuitFailureRate, cfg.CircuitOpenFor),
			BaseBackoff: cfg.RetryBase,
			MaxAttempts: cfg.RetryMaxAttempts,
			Jitter:      cfg.RetryJitterPercent,
			Timeout:     cfg.OutboundTimeout,
		},
		BaseURL: cfg.MembershipBaseURL,
		APIKey:  cfg.MembershipAPIKey,
	}

	promos := repo.PromotionRepo{Pool: pool}
	reconciler := &cart.Reconciler{
		Store:         repo.CartRepo{Pool: pool},
		Catalog:       catalogService,
		Inventory:     repo.CatalogRepo{Pool: pool},
		Membership:    membershipClient,
		Promotions:    promos,
		Events:        &events.Bus{Store: repo.EventRepo{Pool: pool}},
		Log:           logger,
		LookupTimeout: cfg.LookupTimeout,
		TaxBps:        cfg.TaxBps,
		PointValue:    cfg.PointValue,
	}

	handlers := &worker.Handlers{
		Rec:    reconciler,
		Promos: promos,
		Locker: lock.Locker{R: redisClient},
		Log:    logger,
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB},
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues:      map[string]int{cfg.ReconcileQueueName: 1},
			Logger:      asynqLogger{logger},
		},
	)
	mux := asynq.NewServeMux()
	handlers.Register(mux)

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB})
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()
	go sweepLoop(ctx, client, cfg, logger)

	logger.Info().Str("queue", cfg.ReconcileQueueName).Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}
	<-ctx.Done()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

// sweepLoop periodically enqueues a promotion expiry sweep. The task handler
// takes a distributed lock so running multiple workers stays safe.
func sweepLoop(ctx context.Context, client *asynq.Client, cfg *config.Config, logger zerolog.Logger) {
	if cfg.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task := worker.NewPromoExpireSweepTask()
			if _, err := client.EnqueueContext(ctx, task, asynq.Queue(cfg.ReconcileQueueName)); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error().Err(err).Msg("enqueue promo sweep")
				}
			}
		}
	}
}

type asynqLogger struct {
	l zerolog.Logger
}

func (a asynqLogger) Debug(args ...any) { a.l.Debug().Msgf("%v", args) }
func (a asynqLogger) Info(args ...any)  { a.l.Info().Msgf("%v", args) }
func (a asynqLogger) Warn(args ...any)  { a.l.Warn().Msgf("%v", args) }
func (a asynqLogger) Error(args ...any) { a.l.Error().Msgf("%v", args) }
func (a asynqLogger) Fatal(args ...any) { a.l.Fatal().Msgf("%v", args) }

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
