package plan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steerfolio/steerfolio/internal/domain"
	"github.com/steerfolio/steerfolio/internal/validate"
)

func change(g domain.Group, abs float64, prio validate.Priority, skip validate.SkipReason) validate.Change {
	return validate.Change{Group: g, AbsoluteChange: abs, Priority: prio, SkipReason: skip}
}

func TestBuildSplitsPhases(t *testing.T) {
	p := NewPlanner()

	res := validate.Result{
		Valid: true,
		Changes: []validate.Change{
			change(domain.GroupBTC, 8, validate.PriorityHigh, ""),
			change(domain.GroupETH, 4, validate.PriorityMedium, ""),
			change(domain.GroupDeFi, 1, validate.PriorityLow, validate.SkipBelowMinTrade),
		},
	}

	plan := p.Build(res)
	require.Len(t, plan.Phases, 3)
	assert.True(t, plan.Executable)
	assert.NotEmpty(t, plan.ID)

	immediate, staged, skipped := plan.Phases[0], plan.Phases[1], plan.Phases[2]
	assert.Equal(t, PhaseImmediate, immediate.Kind)
	require.Len(t, immediate.Changes, 1)
	assert.Equal(t, domain.GroupBTC, immediate.Changes[0].Group)

	assert.Equal(t, PhaseStaged, staged.Kind)
	assert.False(t, staged.Deferred, "small immediate batch executes staged changes now")
	require.Len(t, staged.Changes, 1)

	assert.Equal(t, PhaseSkipped, skipped.Kind)
	require.Len(t, skipped.Changes, 1)

	// Skipped changes are informational, not counted as executable work.
	assert.Equal(t, 2, plan.TotalChanges)
}

func TestBuildDefersStagedWhenImmediateIsLarge(t *testing.T) {
	p := NewPlanner()

	res := validate.Result{
		Valid: true,
		Changes: []validate.Change{
			change(domain.GroupBTC, 10, validate.PriorityHigh, ""),
			change(domain.GroupETH, 9, validate.PriorityHigh, ""),
			change(domain.GroupSOL, 8, validate.PriorityHigh, ""),
			change(domain.GroupL1L0, 7, validate.PriorityHigh, ""),
			change(domain.GroupDeFi, 4, validate.PriorityMedium, ""),
		},
	}

	plan := p.Build(res)
	assert.Len(t, plan.Phases[0].Changes, 4)
	assert.True(t, plan.Phases[1].Deferred)
	assert.NotEmpty(t, plan.Phases[1].Note)
}

func TestHighPriorityBelowFivePointsIsNotImmediate(t *testing.T) {
	p := NewPlanner()

	// Priority says high but the move is at the 5-point boundary; the
	// immediate phase requires strictly more.
	res := validate.Result{
		Valid:   true,
		Changes: []validate.Change{change(domain.GroupBTC, 5, validate.PriorityHigh, "")},
	}
	plan := p.Build(res)
	assert.Empty(t, plan.Phases[0].Changes)
	assert.False(t, plan.Executable)
}

func TestSkippedDustKeepsSkipEvenIfHighPriority(t *testing.T) {
	p := NewPlanner()

	res := validate.Result{
		Valid:   true,
		Changes: []validate.Change{change(domain.GroupBTC, 8, validate.PriorityHigh, validate.SkipBelowMinTrade)},
	}
	plan := p.Build(res)
	assert.Empty(t, plan.Phases[0].Changes)
	assert.Len(t, plan.Phases[2].Changes, 1)
}

func TestInvalidResultYieldsNonExecutablePlan(t *testing.T) {
	p := NewPlanner()

	plan := p.Build(validate.Result{Valid: false, Changes: []validate.Change{change(domain.GroupBTC, 8, validate.PriorityHigh, "")}})
	assert.False(t, plan.Executable)
	assert.Empty(t, plan.Phases)
	assert.Zero(t, plan.TotalChanges)
}

func TestPacerIntervalScalesWithMultiplier(t *testing.T) {
	full := NewPacer(1.0)
	slow := NewPacer(0.6)

	assert.InDelta(t, 10.0, full.Interval().Seconds(), 1e-6)
	assert.InDelta(t, 10.0/0.6, slow.Interval().Seconds(), 1e-6)

	// Defensive fallback for nonsense multipliers.
	assert.Greater(t, NewPacer(0).Interval(), full.Interval())
}

func TestPacerFirstWaitIsImmediate(t *testing.T) {
	p := NewPacer(1.0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, p.Wait(ctx))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
