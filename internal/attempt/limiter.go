// Package attempt implements the sliding-window abuse limiter over the failed-attempt ledger.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	accountdomain "phone-otp-auth/backend/internal/account/domain"
	"phone-otp-auth/backend/internal/attempt/domain"
	"phone-otp-auth/backend/internal/attempt/repository"
	"phone-otp-auth/backend/internal/clock"
)

// ErrUnknownKind is returned by IsBlocked for a Kind outside the known operations.
var ErrUnknownKind = errors.New("attempt: unknown kind")

// DefaultWindow is the trailing span failures are counted over.
const DefaultWindow = time.Hour

// Observer receives limiter events. telemetry.Metrics implements it.
type Observer interface {
	FailureRecorded(ctx context.Context, kind domain.Kind)
	Blocked(ctx context.Context, kind domain.Kind)
}

// Limiter decides whether a (source, phone, kind) triple is blocked and records failures.
// IsBlocked and RecordFailure are not atomic with each other: concurrent failures can each observe
// a count below the threshold and all be let through. Every one of them is still recorded.
type Limiter struct {
	ledger   repository.Ledger
	policy   Policy
	clock    clock.Clock
	window   time.Duration
	logger   *zap.Logger
	observer Observer
}

// NewLimiter returns a Limiter over ledger. A nil policy uses ThresholdPolicy with the default max.
func NewLimiter(ledger repository.Ledger, policy Policy, clk clock.Clock, logger *zap.Logger, obs Observer) *Limiter {
	if policy == nil {
		policy = ThresholdPolicy{Max: DefaultMaxFailures}
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{ledger: ledger, policy: policy, clock: clk, window: DefaultWindow, logger: logger, observer: obs}
}

// IsBlocked counts failures for the exact triple in the trailing window and asks the policy.
// When the policy errors, the threshold rule decides instead.
func (l *Limiter) IsBlocked(ctx context.Context, source, phone string, kind domain.Kind) (bool, error) {
	if !kind.Valid() {
		return false, ErrUnknownKind
	}
	key := keyFor(source, phone, kind)
	n, err := l.ledger.CountSince(ctx, key, l.clock.Now().Add(-l.window))
	if err != nil {
		return false, fmt.Errorf("attempt count: %w", err)
	}
	w := domain.Window{Key: key, Failures: n, Span: l.window}
	blocked, err := l.policy.Blocked(ctx, w)
	if err != nil {
		l.logger.Warn("attempt policy failed, using threshold", zap.Error(err), zap.String("kind", string(kind)))
		blocked, _ = ThresholdPolicy{}.Blocked(ctx, w)
	}
	if blocked && l.observer != nil {
		l.observer.Blocked(ctx, kind)
	}
	return blocked, nil
}

// RecordFailure appends a failed attempt. Errors are logged and never returned.
func (l *Limiter) RecordFailure(ctx context.Context, source, phone string, kind domain.Kind) {
	if !kind.Valid() {
		l.logger.Error("record failed attempt: unknown kind", zap.String("kind", string(kind)))
		return
	}
	key := keyFor(source, phone, kind)
	a := &domain.FailedAttempt{Source: key.Source, PhoneNumber: key.PhoneNumber, Kind: kind, CreatedAt: l.clock.Now()}
	if err := l.ledger.Append(ctx, a); err != nil {
		l.logger.Error("record failed attempt", zap.Error(err), zap.String("kind", string(kind)), zap.String("source", source))
		return
	}
	if l.observer != nil {
		l.observer.FailureRecorded(ctx, kind)
	}
}

func keyFor(source, phone string, kind domain.Kind) domain.Key {
	return domain.Key{Source: source, PhoneNumber: domain.Phone(accountdomain.ClampPhone(phone)), Kind: kind}
}
