package telemetry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"phone-otp-auth/backend/internal/telemetry/domain"
)

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration bounds how long Drain waits for in-flight emits. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// AsyncEmitter runs Emit on a goroutine per event so request handlers are never blocked by the stream.
type AsyncEmitter struct {
	next   EventEmitter
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewAsyncEmitter wraps next. A nil next makes Emit a no-op.
func NewAsyncEmitter(next EventEmitter, logger *zap.Logger) *AsyncEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncEmitter{next: next, logger: logger}
}

// Emit schedules the event and returns nil immediately. The goroutine uses context.Background with
// emitTimeout, so request cancellation does not abort an in-flight emit.
func (a *AsyncEmitter) Emit(_ context.Context, event *domain.AuthEvent) error {
	if a == nil || a.next == nil || event == nil {
		return nil
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := a.next.Emit(ctx, event); err != nil {
			a.logger.Warn("async emit failed", zap.Error(err), zap.String("event_type", event.Type))
		}
	}()
	return nil
}

// Drain waits for in-flight emits or until ctx is done.
func (a *AsyncEmitter) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
