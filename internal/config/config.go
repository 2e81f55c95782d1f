// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the JSON API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address of the gRPC health endpoint. Empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr, when set, moves the failed-attempt ledger from Postgres to Redis.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis AUTH password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "5m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "24h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// SMSLocalAPIKey is the API key for SMS Local. Required unless OTPReturnToClient is set.
	SMSLocalAPIKey string `mapstructure:"SMS_LOCAL_API_KEY"`
	// SMSLocalSender is the optional sender ID for SMS Local.
	SMSLocalSender string `mapstructure:"SMS_LOCAL_SENDER"`
	// SMSLocalBaseURL is the SMS Local API base URL.
	SMSLocalBaseURL string `mapstructure:"SMS_LOCAL_BASE_URL"`
	// OTPReturnToClient enables test mode: the register response carries the code and GET /dev/otp is mounted.
	// Must not be true when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// AttemptPolicyFile is an optional Rego file replacing the default block rule.
	AttemptPolicyFile string `mapstructure:"ATTEMPT_POLICY_FILE"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty installs no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext to the collector even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is reported on traces, metrics and logs.
	ServiceName string `mapstructure:"SERVICE_NAME"`

	// KafkaBrokers is a comma-separated list of brokers for the auth event stream. Empty disables it.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuthEventsTopic is the Kafka topic auth events are written to.
	AuthEventsTopic string `mapstructure:"AUTH_EVENTS_TOPIC"`
	// KafkaGroupID is the consumer group the worker joins to forward auth events.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is the Loki base URL the worker pushes auth events to. Empty disables forwarding.
	LokiURL string `mapstructure:"LOKI_URL"`

	// TrustedProxies is a comma-separated list of proxy CIDRs whose X-Forwarded-For is honoured.
	// Empty means the TCP peer address is the client address.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`
	// HTTPRateLimitPerMinute is the per-client request budget in front of every route; 0 disables it.
	HTTPRateLimitPerMinute int `mapstructure:"HTTP_RATE_LIMIT_PER_MINUTE"`
	// LogLevel is the zap level (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Worker-only: how often the retention job runs and how old a failed attempt must be to be purged.
	RetentionInterval string `mapstructure:"RETENTION_INTERVAL"`
	RetentionMaxAge   string `mapstructure:"RETENTION_MAX_AGE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "otp-auth")
	v.SetDefault("JWT_AUDIENCE", "otp-auth-api")
	v.SetDefault("JWT_ACCESS_TTL", "5m")
	v.SetDefault("JWT_REFRESH_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SMS_LOCAL_API_KEY", "")
	v.SetDefault("SMS_LOCAL_SENDER", "")
	v.SetDefault("SMS_LOCAL_BASE_URL", "https://app.smslocal.in/api/smsapi")
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("ATTEMPT_POLICY_FILE", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("SERVICE_NAME", "otp-auth")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUTH_EVENTS_TOPIC", "otp-auth-events")
	v.SetDefault("KAFKA_GROUP_ID", "otp-auth-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("HTTP_RATE_LIMIT_PER_MINUTE", 0)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RETENTION_INTERVAL", "1h")
	v.SetDefault("RETENTION_MAX_AGE", "120h")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.OTPReturnToClient && cfg.IsProduction() {
		return nil, errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.HTTPRateLimitPerMinute < 0 {
		return nil, errors.New("config: HTTP_RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if d, err := time.ParseDuration(cfg.RetentionMaxAge); err == nil && d > 0 && d < MinRetention {
		return nil, errors.New("config: RETENTION_MAX_AGE must be at least 1h")
	}

	return &cfg, nil
}

// IsProduction reports whether APP_ENV names the production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 5m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.JWTAccessTTL, 5*time.Minute)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return parseDuration(c.JWTRefreshTTL, 24*time.Hour)
}

// RetentionEvery returns how often the retention job runs. Defaults to 1h.
func (c *Config) RetentionEvery() time.Duration {
	return parseDuration(c.RetentionInterval, time.Hour)
}

// MinRetention is the shortest RETENTION_MAX_AGE accepted. Failures must outlive the 1h block window.
const MinRetention = time.Hour

// RetentionAge returns the age past which failed attempts are purged. Defaults to 5 days.
func (c *Config) RetentionAge() time.Duration {
	return parseDuration(c.RetentionMaxAge, 120*time.Hour)
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list means the auth event stream is disabled.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

// TrustedProxiesList returns the proxy CIDRs from TRUSTED_PROXIES.
func (c *Config) TrustedProxiesList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TrustedProxies)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
