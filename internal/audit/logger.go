// Package audit records auth-flow events to the audit log and forwards them to the event stream.
package audit

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	accountdomain "phone-otp-auth/backend/internal/account/domain"
	"phone-otp-auth/backend/internal/audit/domain"
	auditrepo "phone-otp-auth/backend/internal/audit/repository"
	"phone-otp-auth/backend/internal/clock"
	"phone-otp-auth/backend/internal/telemetry"
	telemetrydomain "phone-otp-auth/backend/internal/telemetry/domain"
)

// UnknownIP is recorded when no client address is available.
const UnknownIP = "unknown"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event. LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, identityID, phone, action, metadata string)
}

// Logger implements AuditLogger using the audit repository, and mirrors each entry to an optional emitter.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	emitter     telemetry.EventEmitter
	clock       clock.Clock
	logger      *zap.Logger
}

// NewLogger returns a Logger that persists to repo and uses ipExtractor for the client IP.
// ipExtractor may be nil; then IP is recorded as UnknownIP. emitter may be nil.
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, emitter telemetry.EventEmitter, clk clock.Clock, logger *zap.Logger) *Logger {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, emitter: emitter, clock: clk, logger: logger}
}

// LogEvent writes one audit log entry and emits the matching auth event.
func (l *Logger) LogEvent(ctx context.Context, identityID, phone, action, metadata string) {
	if l == nil {
		return
	}
	phone = accountdomain.ClampPhone(phone)
	ip := UnknownIP
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	entry := &domain.AuditLog{
		ID:          uuid.NewString(),
		IdentityID:  identityID,
		PhoneNumber: phone,
		Action:      action,
		IP:          ip,
		Metadata:    metadata,
		CreatedAt:   l.clock.Now(),
	}
	if l.repo != nil {
		if err := l.repo.Create(ctx, entry); err != nil {
			l.logger.Warn("audit write failed", zap.String("action", action), zap.Error(err))
		}
	}
	if l.emitter != nil {
		ev := &telemetrydomain.AuthEvent{
			ID:          entry.ID,
			Type:        action,
			IdentityID:  identityID,
			PhoneNumber: phone,
			Source:      ip,
			CreatedAt:   entry.CreatedAt,
		}
		if metadata != "" {
			ev.Attributes = map[string]string{"detail": metadata}
		}
		if err := l.emitter.Emit(ctx, ev); err != nil {
			l.logger.Warn("auth event emit failed", zap.String("action", action), zap.Error(err))
		}
	}
}
