// Worker runs the failed-attempt retention job and, when KAFKA_BROKERS and LOKI_URL are set,
// forwards the auth event stream into Loki.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"phone-otp-auth/backend/internal/attempt"
	attemptrepo "phone-otp-auth/backend/internal/attempt/repository"
	"phone-otp-auth/backend/internal/clock"
	"phone-otp-auth/backend/internal/config"
	"phone-otp-auth/backend/internal/db"
	"phone-otp-auth/backend/internal/logger"
	"phone-otp-auth/backend/internal/telemetry/loki"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil && !errors.Is(err, context.Canceled) {
		zl.Fatal("worker exited", zap.Error(err))
	}
	zl.Info("worker stopped")
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	ledger, closeLedger, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	g, ctx := errgroup.WithContext(ctx)
	purger := attempt.NewPurger(ledger, clock.System{}, cfg.RetentionAge(), zl)
	g.Go(func() error {
		zl.Info("retention job started", zap.Duration("every", cfg.RetentionEvery()), zap.Duration("max_age", cfg.RetentionAge()))
		purger.Run(ctx, cfg.RetentionEvery())
		return nil
	})

	brokers := cfg.KafkaBrokersList()
	if len(brokers) > 0 && cfg.LokiURL != "" {
		reader := loki.NewKafkaReader(brokers, cfg.AuthEventsTopic, cfg.KafkaGroupID)
		defer func() { _ = reader.Close() }()
		fwd := loki.NewForwarder(reader, loki.NewClient(cfg.LokiURL), zl)
		g.Go(func() error {
			zl.Info("forwarding auth events to loki",
				zap.String("topic", cfg.AuthEventsTopic),
				zap.String("group", cfg.KafkaGroupID),
				zap.String("loki", cfg.LokiURL))
			return fwd.Run(ctx)
		})
	} else {
		zl.Info("loki forwarding disabled (KAFKA_BROKERS or LOKI_URL not set)")
	}
	return g.Wait()
}

// openLedger picks the same ledger backend as the server: Redis when REDIS_ADDR is set,
// Postgres otherwise.
func openLedger(ctx context.Context, cfg *config.Config) (attemptrepo.Ledger, func(), error) {
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		return attemptrepo.NewRedisLedger(rdb, "", cfg.RetentionAge()), func() { _ = rdb.Close() }, nil
	}
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return attemptrepo.NewPostgresLedger(pool), pool.Close, nil
}
