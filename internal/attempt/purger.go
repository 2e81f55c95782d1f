package attempt

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"phone-otp-auth/backend/internal/attempt/repository"
	"phone-otp-auth/backend/internal/clock"
)

// DefaultRetention is how long failed attempts are kept.
const DefaultRetention = 5 * 24 * time.Hour

// Purger deletes failed attempts older than its retention. Retention is always well past the
// limiter window, so purging never changes a block decision.
type Purger struct {
	ledger    repository.Ledger
	clock     clock.Clock
	retention time.Duration
	logger    *zap.Logger
}

// NewPurger returns a Purger. A retention shorter than the limiter window is raised to DefaultRetention.
func NewPurger(ledger repository.Ledger, clk clock.Clock, retention time.Duration, logger *zap.Logger) *Purger {
	if retention <= DefaultWindow {
		retention = DefaultRetention
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Purger{ledger: ledger, clock: clk, retention: retention, logger: logger}
}

// Purge removes attempts created before now minus retention and returns how many were removed.
func (p *Purger) Purge(ctx context.Context) (int64, error) {
	n, err := p.ledger.DeleteBefore(ctx, p.clock.Now().Add(-p.retention))
	if err != nil {
		return n, fmt.Errorf("purge failed attempts: %w", err)
	}
	return n, nil
}

// Run purges once immediately and then every interval until ctx is done.
func (p *Purger) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		n, err := p.Purge(ctx)
		if err != nil {
			p.logger.Error("retention purge", zap.Error(err))
		} else {
			p.logger.Info("retention purge", zap.Int64("deleted", n), zap.Duration("retention", p.retention))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
