package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum spacing between outbound calls. A call arriving
// sooner than the spacing sleeps the remaining delta rather than failing.
type Pacer interface {
	Wait(ctx context.Context) error
}

type intervalPacer struct {
	limiter *rate.Limiter
}

// NewIntervalPacer returns a Pacer that allows one call per spacing interval,
// shared process-wide by whoever holds it.
func NewIntervalPacer(spacing time.Duration) Pacer {
	if spacing <= 0 {
		return noopPacer{}
	}
	return &intervalPacer{
		limiter: rate.NewLimiter(rate.Every(spacing), 1),
	}
}

func (p *intervalPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

type noopPacer struct{}

func (noopPacer) Wait(ctx context.Context) error { return nil }
