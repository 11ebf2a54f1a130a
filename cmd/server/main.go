package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/example/ridelink/internal/assistant"
	"github.com/example/ridelink/internal/auth"
	"github.com/example/ridelink/internal/chat"
	"github.com/example/ridelink/internal/config"
	"github.com/example/ridelink/internal/eta"
	"github.com/example/ridelink/internal/events"
	"github.com/example/ridelink/internal/geo"
	httpapi "github.com/example/ridelink/internal/http"
	"github.com/example/ridelink/internal/logging"
	"github.com/example/ridelink/internal/marketplace"
	"github.com/example/ridelink/internal/payments"
	"github.com/example/ridelink/internal/scores"
	"github.com/example/ridelink/internal/seed"
	"github.com/example/ridelink/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ServerConfig, logger *zap.Logger) error {
	ready := map[string]httpapi.ReadinessCheck{}

	store, err := openStore(ctx, cfg, logger, ready)
	if err != nil {
		return err
	}
	defer store.Close()

	var index scores.Index = scores.NewMemoryIndex()
	if cfg.RedisAddr != "" {
		ri := scores.NewRedisIndex(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisScoreKey)
		defer ri.Close()
		index = ri
		ready["redis"] = ri.Ping
		logger.Info("score index: redis", zap.String("addr", cfg.RedisAddr), zap.String("key", cfg.RedisScoreKey))
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		logger.Info("event publisher: kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	var gateway payments.Gateway
	switch cfg.PaymentsProvider {
	case "stripe":
		gateway = payments.NewStripe(cfg.StripeAPIKey)
	default:
		gateway = payments.NewSimulated(cfg.PaymentDelay)
	}
	logger.Info("payments", zap.String("provider", cfg.PaymentsProvider))

	var gen assistant.Generator
	if cfg.GeminiAPIKey != "" {
		gc, err := assistant.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("gemini client unavailable, assistant will use local fallbacks", zap.Error(err))
		} else {
			defer gc.Close()
			gen = gc
		}
	}

	estimator := &eta.Estimator{Cities: geo.DefaultDirectory(), Cache: eta.NewCache(cfg.ETACacheTTL)}
	if cfg.OSRMEndpoint != "" {
		estimator.Client = eta.NewOSRMClient(cfg.OSRMEndpoint)
	}

	hub := chat.NewHub(logger)
	svc, err := marketplace.New(ctx, marketplace.Options{
		Store:          store,
		Events:         publisher,
		Scores:         index,
		Payments:       gateway,
		Assistant:      assistant.New(gen, cfg.AITimeout, logger),
		ETA:            estimator,
		Tokens:         auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL),
		Chat:           hub,
		Logger:         logger,
		Currency:       cfg.Currency,
		AutoReplyDelay: cfg.AutoReplyDelay,
	})
	if err != nil {
		return fmt.Errorf("start marketplace: %w", err)
	}
	defer svc.Close()

	api := httpapi.NewServer(svc, hub, logger, httpapi.Options{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Ready:          ready,
	})
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ridelink listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore picks Postgres when a DSN is configured and the in-memory store
// otherwise. Demo data is only written into an empty store.
func openStore(ctx context.Context, cfg config.ServerConfig, logger *zap.Logger, ready map[string]httpapi.ReadinessCheck) (storage.Store, error) {
	var store storage.Store
	if cfg.PGDSN != "" {
		pg, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.RunMigrations {
			applied, err := storage.Migrate(ctx, pg.DB(), cfg.MigrationsDir)
			if err != nil {
				_ = pg.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migrations applied", zap.Strings("files", applied))
		}
		ready["postgres"] = pg.DB().PingContext
		store = pg
	} else {
		store = storage.NewMemoryStore()
		logger.Warn("PG_DSN not set, using in-memory store")
	}

	if !cfg.SeedDemoData {
		return store, nil
	}
	current, err := store.Load(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load store: %w", err)
	}
	if len(current.Users) > 0 {
		return store, nil
	}
	demo, err := seed.Demo(time.Now())
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := storage.Seed(ctx, store, demo); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("seed demo data: %w", err)
	}
	logger.Info("demo data seeded", zap.Int("users", len(demo.Users)), zap.Int("rides", len(demo.Rides)))
	return store, nil
}
