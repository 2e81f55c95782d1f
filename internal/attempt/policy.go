package attempt

import (
	"context"

	"phone-otp-auth/backend/internal/attempt/domain"
)

// DefaultMaxFailures is the failure count at which a triple is blocked.
const DefaultMaxFailures = 3

// Policy decides whether a sliding window of failures blocks further attempts.
type Policy interface {
	Blocked(ctx context.Context, w domain.Window) (bool, error)
}

// ThresholdPolicy blocks once Failures reaches Max.
type ThresholdPolicy struct {
	Max int
}

// Blocked reports w.Failures >= Max. A non-positive Max uses DefaultMaxFailures.
func (p ThresholdPolicy) Blocked(_ context.Context, w domain.Window) (bool, error) {
	max := p.Max
	if max <= 0 {
		max = DefaultMaxFailures
	}
	return w.Failures >= max, nil
}
