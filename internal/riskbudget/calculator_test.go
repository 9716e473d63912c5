package riskbudget

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steerfolio/steerfolio/internal/cache"
)

func TestComputeFormula(t *testing.T) {
	calc := NewCalculator(DefaultConfig(), nil)
	ctx := context.Background()

	// blended=75, risk=50: riskCap=0.75, baseRisky=(75-35)/45=0.888...,
	// risky=0.888*0.75=0.666... -> 67/33.
	b := calc.Compute(ctx, 75, 50)
	assert.InDelta(t, 0.75, b.RiskCap, 1e-9)
	assert.InDelta(t, 40.0/45.0, b.BaseRisky, 1e-9)
	assert.Equal(t, 67, b.RiskyPct)
	assert.Equal(t, 33, b.StablesPct)
}

func TestRiskyPctStaysBoundedAndComplementary(t *testing.T) {
	calc := NewCalculator(DefaultConfig(), nil)
	ctx := context.Background()

	for blended := 0.0; blended <= 100; blended += 5 {
		for risk := 0.0; risk <= 100; risk += 5 {
			b := calc.Compute(ctx, blended, risk)
			assert.GreaterOrEqual(t, b.RiskyPct, 20, "blended=%.0f risk=%.0f", blended, risk)
			assert.LessOrEqual(t, b.RiskyPct, 85, "blended=%.0f risk=%.0f", blended, risk)
			assert.Equal(t, 100, b.RiskyPct+b.StablesPct)
		}
	}
}

func TestLowScoresHitRiskyFloor(t *testing.T) {
	calc := NewCalculator(DefaultConfig(), nil)

	b := calc.Compute(context.Background(), 10, 90)
	assert.Equal(t, 20, b.RiskyPct)
	assert.Equal(t, 80, b.StablesPct)
}

func TestCachedResultIsIdenticalWithinTTL(t *testing.T) {
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	mem := cache.NewMemoryWithClock(16, now)
	calc := NewCalculatorWithClock(DefaultConfig(), mem, now)
	ctx := context.Background()

	first := calc.Compute(ctx, 75, 50)

	// Advance inside the TTL: same rounded inputs, identical result,
	// including the original generation timestamp.
	clock = clock.Add(10 * time.Second)
	second := calc.Compute(ctx, 75.2, 49.9)
	assert.Equal(t, first.RiskyPct, second.RiskyPct)
	assert.Equal(t, first.StablesPct, second.StablesPct)
	assert.InDelta(t, first.Risky, second.Risky, 1e-12)
	assert.True(t, first.GeneratedAt.Equal(second.GeneratedAt), "cached budget must keep its original stamp")

	// Past the TTL the budget is regenerated with a fresh stamp.
	clock = clock.Add(25 * time.Second)
	third := calc.Compute(ctx, 75, 50)
	assert.Equal(t, first.RiskyPct, third.RiskyPct)
	assert.True(t, third.GeneratedAt.After(first.GeneratedAt))
}

func TestCacheKeyRoundsInputs(t *testing.T) {
	calc := NewCalculator(DefaultConfig(), nil)
	assert.Equal(t, calc.cacheKey(74.6, 50.4), calc.cacheKey(75.4, 49.6))
	assert.NotEqual(t, calc.cacheKey(74, 50), calc.cacheKey(75, 50))
}

func TestNilCacheStillComputes(t *testing.T) {
	calc := NewCalculator(DefaultConfig(), nil)
	b := calc.Compute(context.Background(), 60, 40)
	require.NotZero(t, b.RiskyPct)
}
