// Package server assembles the gin router and runs the HTTP and gRPC listeners.
package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	devotphandler "phone-otp-auth/backend/internal/devotp/handler"
	healthhandler "phone-otp-auth/backend/internal/health/handler"
	identityhandler "phone-otp-auth/backend/internal/identity/handler"
	"phone-otp-auth/backend/internal/server/middleware"
)

// AccountsPrefix is where the auth endpoints are mounted.
const AccountsPrefix = "/accounts"

// RouterDeps holds the handlers and settings for NewRouter.
type RouterDeps struct {
	// Auth serves the accounts endpoints. Required.
	Auth *identityhandler.Handler
	// Tokens validates bearer tokens on set-password and complete-profile. Required.
	Tokens middleware.AccessValidator
	// Health serves /healthz. If nil, /healthz is not mounted.
	Health *healthhandler.Checker
	// DevOTP is mounted only in non-production test mode.
	DevOTP *devotphandler.Handler
	// RateLimiter throttles every route per client IP. Nil disables it.
	RateLimiter *middleware.RateLimiter
	// TrustedProxies may set X-Forwarded-For. Empty means the TCP peer is the client.
	TrustedProxies []string
	ServiceName    string
	Logger         *zap.Logger
}

// NewRouter wires gin middleware and routes.
func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	if deps.Auth == nil || deps.Tokens == nil {
		return nil, fmt.Errorf("server: auth handler and token validator are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, fmt.Errorf("server: trusted proxies: %w", err)
	}
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(deps.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.ClientIP())
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Handler())
	}

	if deps.Health != nil {
		r.GET("/healthz", deps.Health.Healthz)
	}

	accounts := r.Group(AccountsPrefix)
	protected := accounts.Group("", middleware.RequireAuth(deps.Tokens))
	deps.Auth.Mount(accounts, protected)

	if deps.DevOTP != nil {
		deps.DevOTP.Register(r)
		logger.Warn("dev OTP endpoint enabled", zap.String("path", "/dev/otp"))
	}
	return r, nil
}
