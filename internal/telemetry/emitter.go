// Package telemetry carries auth events to the event stream and OTel logs, and records auth metrics.
package telemetry

import (
	"context"
	"errors"

	"phone-otp-auth/backend/internal/telemetry/domain"
)

// EventEmitter emits auth events (e.g. to Kafka or OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.AuthEvent) error
}

// MultiEmitter fans an event out to every emitter and joins their errors.
type MultiEmitter []EventEmitter

// Emit calls each non-nil emitter in order.
func (m MultiEmitter) Emit(ctx context.Context, event *domain.AuthEvent) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
