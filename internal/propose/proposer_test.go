package propose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steerfolio/steerfolio/internal/alloc"
	"github.com/steerfolio/steerfolio/internal/blend"
	"github.com/steerfolio/steerfolio/internal/domain"
	"github.com/steerfolio/steerfolio/internal/regime"
	"github.com/steerfolio/steerfolio/internal/riskbudget"
)

func newTestProposer() *Proposer {
	return NewProposer(alloc.NewDistributor(alloc.DefaultSleeveConfig()), regime.DefaultBiasPresets())
}

func testInputs(score float64, riskyPct int) Inputs {
	return Inputs{
		Decision:       blend.Decision{Score: score, Confidence: 0.7},
		Classification: regime.Classification{Regime: regime.Expansion},
		Budget:         &riskbudget.Budget{RiskyPct: riskyPct, StablesPct: 100 - riskyPct},
		CycleScore:     score,
	}
}

func TestEveryStrategyProducesValidTargets(t *testing.T) {
	p := newTestProposer()

	for _, s := range []Strategy{StrategyBlend, StrategyMacro, StrategyCCS, StrategyCycle, StrategySmart} {
		for _, score := range []float64{20, 55, 75, 95} {
			got := p.Propose(s, testInputs(score, 60))
			require.NoError(t, got.Targets.Validate(), "strategy=%s score=%.0f", s, score)
			assert.NotEmpty(t, got.Strategy)
			assert.Empty(t, got.Err)
		}
	}
}

func TestBlendHighConfidencePathUsesCCSBaseline(t *testing.T) {
	p := newTestProposer()

	high := p.Propose(StrategyBlend, testInputs(80, 60))
	assert.Equal(t, "blend (cycle on ccs baseline)", high.Strategy)
	assert.False(t, high.Fallback)

	// The CCS baseline honors the budget: stables track 100-riskyPct
	// before the cycle tilt trims them.
	ccs := p.Propose(StrategyCCS, testInputs(80, 60))
	assert.Less(t, high.Targets[domain.GroupStablecoins], ccs.Targets[domain.GroupStablecoins])
}

func TestBlendConservativePathDilutesMultipliers(t *testing.T) {
	p := newTestProposer()

	low := p.Propose(StrategyBlend, testInputs(30, 40))
	assert.Equal(t, "blend (diluted macro)", low.Strategy)

	macro := p.Propose(StrategyMacro, testInputs(30, 40))
	full := p.Propose(StrategyCycle, testInputs(30, 40))

	// Diluted tilt lands between the untouched macro preset and the full
	// cycle strategy.
	assert.Greater(t, low.Targets[domain.GroupStablecoins], macro.Targets[domain.GroupStablecoins]*0.99)
	assert.Less(t, low.Targets[domain.GroupMemecoins], macro.Targets[domain.GroupMemecoins]+1e-9)
	assert.LessOrEqual(t, low.Targets[domain.GroupStablecoins], full.Targets[domain.GroupStablecoins]+1e-9)
}

func TestCCSMissingBudgetUsesSimulatedPreset(t *testing.T) {
	p := newTestProposer()
	in := testInputs(60, 0)
	in.Budget = nil

	got := p.Propose(StrategyCCS, in)
	assert.Equal(t, "ccs aggressive (simulated)", got.Strategy)
	assert.True(t, got.Fallback)
	require.NoError(t, got.Targets.Validate())
	assert.InDelta(t, float64(100-ccsSimulatedRiskyPct), got.Targets[domain.GroupStablecoins], 0.2)
}

func TestSmartShiftsTowardStablesOnCriticalZones(t *testing.T) {
	p := newTestProposer()

	in := testInputs(60, 60)
	in.Onchain = &OnchainMeta{CriticalZoneCount: 3, TotalIndicators: 30}
	smart := p.Propose(StrategySmart, in)

	plain := p.Propose(StrategyCCS, testInputs(60, 60))
	assert.InDelta(t, plain.Targets[domain.GroupStablecoins]+9, smart.Targets[domain.GroupStablecoins], 0.2)
	require.NoError(t, smart.Targets.Validate())
}

func TestSmartWithoutMetadataFallsBack(t *testing.T) {
	p := newTestProposer()

	got := p.Propose(StrategySmart, testInputs(60, 60))
	assert.Equal(t, "smart fallback (no on-chain metadata)", got.Strategy)
	assert.True(t, got.Fallback)
	assert.LessOrEqual(t, got.Confidence, 0.4)
}

func TestCycleMultiplierBands(t *testing.T) {
	bull := cycleMultipliers(80)
	assert.Greater(t, bull[domain.GroupMemecoins], 1.0)
	assert.Less(t, bull[domain.GroupStablecoins], 1.0)

	bear := cycleMultipliers(30)
	assert.Less(t, bear[domain.GroupMemecoins], 1.0)
	assert.Greater(t, bear[domain.GroupStablecoins], 1.0)

	assert.Empty(t, cycleMultipliers(55), "neutral band applies no tilt")
}

func TestDiluteHalvesTheTilt(t *testing.T) {
	m := Multipliers{domain.GroupMemecoins: 1.4, domain.GroupStablecoins: 0.8}
	d := m.dilute(0.5)
	assert.InDelta(t, 1.2, d[domain.GroupMemecoins], 1e-9)
	assert.InDelta(t, 0.9, d[domain.GroupStablecoins], 1e-9)
}

func TestBreakerServesMacroDefaultAfterRepeatedPanics(t *testing.T) {
	// A distributor with a nil config cannot panic, so force failures by
	// passing a proposer whose strategy path panics via a poisoned bias
	// preset lookup on a nil map -- instead, run the exported path with a
	// strategy that panics through a nil distributor.
	p := NewProposer(nil, regime.DefaultBiasPresets())

	var last Proposal
	for i := 0; i < 5; i++ {
		last = p.Propose(StrategyCCS, testInputs(60, 60))
		assert.Equal(t, "macro default (error)", last.Strategy)
		assert.True(t, last.Fallback)
		require.NoError(t, last.Targets.Validate())
	}

	// After three consecutive failures the breaker is open and the error
	// comes from the breaker itself, still yielding the safe proposal.
	assert.NotEmpty(t, last.Err)
	assert.InDelta(t, errorConfidence, last.Confidence, 1e-9)
}
