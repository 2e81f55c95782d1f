package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.JWTIssuer != "otp-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "otp-auth")
	}
	if cfg.JWTAudience != "otp-auth-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "otp-auth-api")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.OTPReturnToClient {
		t.Error("OTPReturnToClient should default to false")
	}
	if cfg.AuthEventsTopic != "otp-auth-events" {
		t.Errorf("AuthEventsTopic = %q, want default", cfg.AuthEventsTopic)
	}
	if cfg.KafkaGroupID != "otp-auth-worker" {
		t.Errorf("KafkaGroupID = %q, want otp-auth-worker", cfg.KafkaGroupID)
	}
	if cfg.LokiURL != "" {
		t.Errorf("LokiURL = %q, want empty", cfg.LokiURL)
	}
	if cfg.ServiceName != "otp-auth" {
		t.Errorf("ServiceName = %q, want otp-auth", cfg.ServiceName)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.RetentionAge() != 5*24*time.Hour {
		t.Errorf("RetentionAge = %v, want 120h", cfg.RetentionAge())
	}
	if cfg.RetentionEvery() != time.Hour {
		t.Errorf("RetentionEvery = %v, want 1h", cfg.RetentionEvery())
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9999")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("REDIS_ADDR", "localhost:6379")
	os.Setenv("HTTP_RATE_LIMIT_PER_MINUTE", "120")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9999")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q, want localhost:6379", cfg.RedisAddr)
	}
	if cfg.HTTPRateLimitPerMinute != 120 {
		t.Errorf("HTTPRateLimitPerMinute = %d, want 120", cfg.HTTPRateLimitPerMinute)
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestLoad_NegativeRateLimit(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_RATE_LIMIT_PER_MINUTE", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("Load should reject a negative rate limit")
	}
}

func TestLoad_RetentionShorterThanWindow(t *testing.T) {
	os.Clearenv()
	os.Setenv("RETENTION_MAX_AGE", "30m")
	if _, err := Load(); err == nil {
		t.Fatal("Load should reject a retention shorter than the block window")
	}

	os.Setenv("RETENTION_MAX_AGE", "1h")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RetentionAge() != time.Hour {
		t.Errorf("RetentionAge = %v, want 1h", cfg.RetentionAge())
	}
}

func TestLoad_OTPReturnToClientProduction(t *testing.T) {
	for _, env := range []string{"production", "Production", " production "} {
		os.Clearenv()
		os.Setenv("OTP_RETURN_TO_CLIENT", "true")
		os.Setenv("APP_ENV", env)

		cfg, err := Load()
		if err == nil {
			t.Fatalf("APP_ENV=%q: Load should return error when OTP_RETURN_TO_CLIENT=true", env)
		}
		if cfg != nil {
			t.Error("Load should return nil config on error")
		}
		if err.Error() != "config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production" {
			t.Errorf("error = %q, want production guard message", err.Error())
		}
	}
}

func TestLoad_OTPReturnToClientDevelopment(t *testing.T) {
	os.Clearenv()
	os.Setenv("OTP_RETURN_TO_CLIENT", "true")
	os.Setenv("APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.OTPReturnToClient {
		t.Error("OTPReturnToClient should be true")
	}
	if cfg.IsProduction() {
		t.Error("IsProduction should be false for development")
	}
}

func TestDurations_Fallbacks(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid", "30m", 30 * time.Minute},
		{"invalid", "invalid", 5 * time.Minute},
		{"zero", "0", 5 * time.Minute},
		{"negative", "-5m", 5 * time.Minute},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{JWTAccessTTL: tc.value}
			if got := cfg.AccessTTL(); got != tc.want {
				t.Errorf("AccessTTL = %v, want %v", got, tc.want)
			}
		})
	}

	cfg := &Config{JWTRefreshTTL: "bogus", RetentionInterval: "-1h", RetentionMaxAge: ""}
	if got := cfg.RefreshTTL(); got != 24*time.Hour {
		t.Errorf("RefreshTTL = %v, want 24h", got)
	}
	if got := cfg.RetentionEvery(); got != time.Hour {
		t.Errorf("RetentionEvery = %v, want 1h", got)
	}
	if got := cfg.RetentionAge(); got != 120*time.Hour {
		t.Errorf("RetentionAge = %v, want 120h", got)
	}
}

func TestKafkaBrokersList(t *testing.T) {
	testCases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a:9092", []string{"a:9092"}},
		{" a:9092 , ,b:9092 ", []string{"a:9092", "b:9092"}},
	}
	for _, tc := range testCases {
		cfg := &Config{KafkaBrokers: tc.in}
		got := cfg.KafkaBrokersList()
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("KafkaBrokersList(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	var nilCfg *Config
	if nilCfg.KafkaBrokersList() != nil {
		t.Error("nil config should return nil brokers")
	}
	if nilCfg.TrustedProxiesList() != nil {
		t.Error("nil config should return nil proxies")
	}
	proxies := (&Config{TrustedProxies: "10.0.0.0/8, 172.16.0.0/12"}).TrustedProxiesList()
	if !reflect.DeepEqual(proxies, []string{"10.0.0.0/8", "172.16.0.0/12"}) {
		t.Errorf("TrustedProxiesList = %v", proxies)
	}
}
