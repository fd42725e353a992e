package oracle

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle enforces a minimum delay between upstream lookups so a pass
// over many libraries does not hammer the search and analysis backends.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle creates a throttle with the given minimum delay between
// calls. A zero or negative delay disables throttling.
func NewThrottle(delay time.Duration) *Throttle {
	if delay <= 0 {
		return &Throttle{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the next call is allowed or the context is done.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}
