package pipeline

import (
	"context"
	"time"
)

// TickSource decides when the next tick of the fill loop may start. Wait is
// the only place the loop suspends outside the sampler's own window.
type TickSource interface {
	Wait(ctx context.Context) error
}

// Immediate starts every tick right away; the sampler's measurement window
// alone sets the cadence.
type Immediate struct{}

func (Immediate) Wait(ctx context.Context) error {
	return ctx.Err()
}

// Interval spaces ticks by a fixed period.
type Interval struct {
	Period time.Duration

	last time.Time
}

func (i *Interval) Wait(ctx context.Context) error {
	if i.last.IsZero() || i.Period <= 0 {
		i.last = time.Now()
		return ctx.Err()
	}

	remaining := time.Until(i.last.Add(i.Period))
	if remaining > 0 {
		timer := time.NewTimer(remaining)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	i.last = time.Now()
	return ctx.Err()
}

// NewTicks returns Immediate for a zero period, Interval otherwise.
func NewTicks(period time.Duration) TickSource {
	if period <= 0 {
		return Immediate{}
	}
	return &Interval{Period: period}
}
