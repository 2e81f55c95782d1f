// Package producer writes auth events to the event stream.
package producer

import (
	"context"

	"phone-otp-auth/backend/internal/telemetry/domain"
)

// Producer emits auth events. Callers use it best-effort: log and ignore errors.
// It satisfies telemetry.EventEmitter.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; wrap in telemetry.AsyncEmitter on request paths.
	Emit(ctx context.Context, event *domain.AuthEvent) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
