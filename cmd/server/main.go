// Server runs the phone OTP auth JSON API and the gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	accountrepo "phone-otp-auth/backend/internal/account/repository"
	"phone-otp-auth/backend/internal/attempt"
	attemptrepo "phone-otp-auth/backend/internal/attempt/repository"
	"phone-otp-auth/backend/internal/audit"
	auditrepo "phone-otp-auth/backend/internal/audit/repository"
	"phone-otp-auth/backend/internal/clock"
	"phone-otp-auth/backend/internal/config"
	"phone-otp-auth/backend/internal/db"
	"phone-otp-auth/backend/internal/devotp"
	devotphandler "phone-otp-auth/backend/internal/devotp/handler"
	healthhandler "phone-otp-auth/backend/internal/health/handler"
	identityhandler "phone-otp-auth/backend/internal/identity/handler"
	"phone-otp-auth/backend/internal/identity/service"
	"phone-otp-auth/backend/internal/logger"
	"phone-otp-auth/backend/internal/otp"
	otprepo "phone-otp-auth/backend/internal/otp/repository"
	"phone-otp-auth/backend/internal/otp/sms"
	"phone-otp-auth/backend/internal/policy/engine"
	"phone-otp-auth/backend/internal/security"
	"phone-otp-auth/backend/internal/server"
	"phone-otp-auth/backend/internal/server/middleware"
	"phone-otp-auth/backend/internal/telemetry"
	telemetryotel "phone-otp-auth/backend/internal/telemetry/otel"
	"phone-otp-auth/backend/internal/telemetry/producer"
)

var errMissingKeys = errors.New("config: JWT_PRIVATE_KEY must be set when APP_ENV=production")

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

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
	zl.Info("server stopped")
}

// stores groups the persistence backends chosen at startup.
type stores struct {
	pool       *pgxpool.Pool
	accounts   accountrepo.Repository
	challenges otprepo.Repository
	ledger     attemptrepo.Ledger
	audit      auditrepo.Repository
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	clk := clock.System{}

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
	}, zl)
	if err != nil {
		return err
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetry.ShutdownDrainDuration)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()
	metrics, err := telemetry.NewMetrics(providers.MeterProvider.Meter(cfg.ServiceName))
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, zl)
	if err != nil {
		return err
	}
	if st.pool != nil {
		defer st.pool.Close()
	}

	var policy attempt.Policy
	var policyCheck healthhandler.PolicyChecker
	if cfg.AttemptPolicyFile != "" {
		opa, err := engine.NewOPAEvaluatorFromFile(ctx, cfg.AttemptPolicyFile, attempt.DefaultMaxFailures)
		if err != nil {
			return err
		}
		policy, policyCheck = opa, opa
		zl.Info("attempt policy loaded", zap.String("file", cfg.AttemptPolicyFile))
	}
	limiter := attempt.NewLimiter(st.ledger, policy, clk, zl, metrics)

	tokens, err := newTokenProvider(cfg, zl)
	if err != nil {
		return err
	}

	var sinks telemetry.MultiEmitter
	if stream := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AuthEventsTopic, zl); stream != nil {
		defer func() { _ = stream.Close() }()
		sinks = append(sinks, stream)
	}
	sinks = append(sinks, telemetryotel.NewEventEmitter(providers.LoggerProvider))
	events := telemetry.NewAsyncEmitter(sinks, zl)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), telemetry.ShutdownDrainDuration)
		defer cancel()
		if err := events.Drain(drainCtx); err != nil {
			zl.Warn("auth events not drained", zap.Error(err))
		}
	}()
	auditLogger := audit.NewLogger(st.audit, middleware.ClientIPFromContext, events, clk, zl)

	opts := service.Options{
		Audit:   auditLogger,
		Metrics: metrics,
		Clock:   clk,
		Logger:  zl,
	}
	if cfg.SMSLocalAPIKey != "" {
		opts.Sender = sms.NewSMSLocalClient(cfg.SMSLocalAPIKey, cfg.SMSLocalBaseURL, cfg.SMSLocalSender)
	} else {
		zl.Warn("SMS_LOCAL_API_KEY not set, verification codes will not be delivered by SMS")
	}
	challenges := otp.NewService(st.challenges, clk, otp.CryptoSource{})
	var devHandler *devotphandler.Handler
	if cfg.OTPReturnToClient && !cfg.IsProduction() {
		devStore := devotp.NewMemoryStore(clk)
		opts.DevCodes = devStore
		opts.ReturnCodeToClient = true
		devHandler = devotphandler.NewHandler(devStore, challenges)
	}

	authSvc := service.NewAuthService(st.accounts, challenges, limiter, security.NewHasher(cfg.BcryptCost), tokens, opts)

	var pinger healthhandler.Pinger
	if st.pool != nil {
		pinger = st.pool
	}
	checker := healthhandler.NewChecker(pinger, policyCheck)

	router, err := server.NewRouter(server.RouterDeps{
		Auth:           identityhandler.NewHandler(authSvc, zl),
		Tokens:         tokens,
		Health:         checker,
		DevOTP:         devHandler,
		RateLimiter:    middleware.NewRateLimiter(cfg.HTTPRateLimitPerMinute),
		TrustedProxies: cfg.TrustedProxiesList(),
		ServiceName:    cfg.ServiceName,
		Logger:         zl,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zl.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		return server.NewHTTPServer(router).Run(ctx, cfg.HTTPAddr)
	})
	if cfg.GRPCAddr != "" {
		g.Go(func() error {
			zl.Info("gRPC health server listening", zap.String("addr", cfg.GRPCAddr))
			return server.NewGRPCServer(checker, zl).Run(ctx, cfg.GRPCAddr)
		})
	}
	return g.Wait()
}

// openStores uses Postgres when DATABASE_URL is set and in-memory stores otherwise.
// REDIS_ADDR moves the failed-attempt ledger to Redis in either case.
func openStores(ctx context.Context, cfg *config.Config, zl *zap.Logger) (*stores, error) {
	st := &stores{}
	if cfg.DatabaseURL != "" {
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st.pool = pool
		st.accounts = accountrepo.NewPostgresRepository(pool)
		st.challenges = otprepo.NewPostgresRepository(pool)
		st.ledger = attemptrepo.NewPostgresLedger(pool)
		st.audit = auditrepo.NewPostgresRepository(pool)
	} else {
		zl.Warn("DATABASE_URL not set, using in-memory stores")
		st.accounts = accountrepo.NewMemoryRepository()
		st.challenges = otprepo.NewMemoryRepository()
		st.ledger = attemptrepo.NewMemoryLedger()
		st.audit = auditrepo.NewMemoryRepository()
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		st.ledger = attemptrepo.NewRedisLedger(rdb, "", cfg.RetentionAge())
		zl.Info("failed-attempt ledger on redis", zap.String("addr", cfg.RedisAddr))
	}
	return st, nil
}

// newTokenProvider loads the configured key pair, or generates an ephemeral one outside production.
func newTokenProvider(cfg *config.Config, zl *zap.Logger) (*security.TokenProvider, error) {
	if cfg.JWTPrivateKey == "" && cfg.JWTPublicKey == "" {
		if cfg.IsProduction() {
			return nil, errMissingKeys
		}
		zl.Warn("JWT keys not set, using an ephemeral key; tokens will not survive a restart")
		priv, pub, err := security.GenerateEphemeralKey()
		if err != nil {
			return nil, err
		}
		return security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL()), nil
	}
	priv, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		return nil, err
	}
	return security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL()), nil
}
