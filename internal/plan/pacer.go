package plan

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// baseOrdersPerMinute is the dispatch rate at full speed.
const baseOrdersPerMinute = 6.0

// Pacer throttles order dispatch according to the decision's speed
// multiplier. Contradictory signals slow the pace toward the target; the
// target itself is never changed here.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer builds a pacer for a speed multiplier in (0,1]. Multipliers at
// or below zero fall back to the slowest supported pace.
func NewPacer(speedMultiplier float64) *Pacer {
	if speedMultiplier <= 0 {
		speedMultiplier = 0.1
	}
	perSecond := baseOrdersPerMinute * speedMultiplier / 60
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// Wait blocks until the next order may be dispatched or the context ends.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Interval returns the steady-state gap between dispatches.
func (p *Pacer) Interval() time.Duration {
	return time.Duration(float64(time.Second) / float64(p.limiter.Limit()))
}
