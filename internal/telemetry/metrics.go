package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	attemptdomain "phone-otp-auth/backend/internal/attempt/domain"
)

// Metrics holds the auth counters. The zero value and a nil *Metrics record nothing.
type Metrics struct {
	otpIssued      metric.Int64Counter
	otpVerified    metric.Int64Counter
	failures       metric.Int64Counter
	blocked        metric.Int64Counter
	loginSucceeded metric.Int64Counter
}

// NewMetrics creates the counters on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var m Metrics
	var err error
	if m.otpIssued, err = meter.Int64Counter("auth.otp.issued", metric.WithDescription("Verification codes issued")); err != nil {
		return nil, fmt.Errorf("auth.otp.issued: %w", err)
	}
	if m.otpVerified, err = meter.Int64Counter("auth.otp.verified", metric.WithDescription("Verification codes consumed")); err != nil {
		return nil, fmt.Errorf("auth.otp.verified: %w", err)
	}
	if m.failures, err = meter.Int64Counter("auth.attempts.failed", metric.WithDescription("Failed attempts recorded, by kind")); err != nil {
		return nil, fmt.Errorf("auth.attempts.failed: %w", err)
	}
	if m.blocked, err = meter.Int64Counter("auth.attempts.blocked", metric.WithDescription("Requests rejected by the attempt limiter, by kind")); err != nil {
		return nil, fmt.Errorf("auth.attempts.blocked: %w", err)
	}
	if m.loginSucceeded, err = meter.Int64Counter("auth.login.succeeded", metric.WithDescription("Successful password logins")); err != nil {
		return nil, fmt.Errorf("auth.login.succeeded: %w", err)
	}
	return &m, nil
}

func kindAttr(kind attemptdomain.Kind) metric.AddOption {
	return metric.WithAttributes(attribute.String("kind", string(kind)))
}

func (m *Metrics) OTPIssued(ctx context.Context) {
	if m == nil || m.otpIssued == nil {
		return
	}
	m.otpIssued.Add(ctx, 1)
}

func (m *Metrics) OTPVerified(ctx context.Context) {
	if m == nil || m.otpVerified == nil {
		return
	}
	m.otpVerified.Add(ctx, 1)
}

func (m *Metrics) LoginSucceeded(ctx context.Context) {
	if m == nil || m.loginSucceeded == nil {
		return
	}
	m.loginSucceeded.Add(ctx, 1)
}

// FailureRecorded implements attempt.Observer.
func (m *Metrics) FailureRecorded(ctx context.Context, kind attemptdomain.Kind) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.Add(ctx, 1, kindAttr(kind))
}

// Blocked implements attempt.Observer.
func (m *Metrics) Blocked(ctx context.Context, kind attemptdomain.Kind) {
	if m == nil || m.blocked == nil {
		return
	}
	m.blocked.Add(ctx, 1, kindAttr(kind))
}
