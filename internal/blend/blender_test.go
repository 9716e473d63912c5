package blend

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdaptiveWeights(t *testing.T) {
	cases := []struct {
		cycle float64
		want  Weights
	}{
		{50, Weights{0.5, 0.3, 0.2}},
		{69.9, Weights{0.5, 0.3, 0.2}},
		{70, Weights{0.55, 0.28, 0.17}},
		{89.9, Weights{0.55, 0.28, 0.17}},
		{90, Weights{0.65, 0.25, 0.10}},
		{100, Weights{0.65, 0.25, 0.10}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, weightsFor(tc.cycle), "cycle=%.1f", tc.cycle)
	}
}

func TestBlendScoreArithmetic(t *testing.T) {
	b := NewBlender()

	d := b.Blend(Inputs{CycleScore: 60, OnchainScore: 50, RiskScore: 40})
	// 0.5*60 + 0.3*50 + 0.2*(100-40) = 30 + 15 + 12 = 57
	assert.InDelta(t, 57, d.Score, 1e-9)
}

func TestOnchainFloorUnderStrongCycle(t *testing.T) {
	b := NewBlender()

	floored := b.Blend(Inputs{CycleScore: 95, OnchainScore: 10, RiskScore: 50})
	explicit := b.Blend(Inputs{CycleScore: 95, OnchainScore: 30, RiskScore: 50})
	assert.InDelta(t, explicit.Score, floored.Score, 1e-9)

	// Below the strong-cycle band the raw on-chain reading counts.
	unfloored := b.Blend(Inputs{CycleScore: 80, OnchainScore: 10, RiskScore: 50})
	lower := b.Blend(Inputs{CycleScore: 80, OnchainScore: 30, RiskScore: 50})
	assert.Less(t, unfloored.Score, lower.Score)
}

func TestSpeedMultiplierScalesPaceOnly(t *testing.T) {
	b := NewBlender()

	calm := b.Blend(Inputs{CycleScore: 60, OnchainScore: 55, RiskScore: 40})
	torn := b.Blend(Inputs{CycleScore: 60, OnchainScore: 55, RiskScore: 40, Contradictions: 3})

	assert.Equal(t, 1.0, calm.SpeedMultiplier)
	assert.Equal(t, 0.6, torn.SpeedMultiplier)
	// Destination unchanged.
	assert.InDelta(t, calm.Score, torn.Score, 1e-9)

	assert.Equal(t, 0.8, b.Blend(Inputs{Contradictions: 2}).SpeedMultiplier)
}

func TestContradictionConfidencePenalty(t *testing.T) {
	b := NewBlender()
	// Spread 20 between components keeps base confidence at 0.80, clear
	// of the 0.95 ceiling so the penalty arithmetic is observable.
	in := Inputs{CycleScore: 60, OnchainScore: 40, RiskScore: 40}

	base := b.Blend(in)

	in.Contradictions = 2
	penalized := b.Blend(in)
	assert.InDelta(t, base.Confidence-0.10, penalized.Confidence, 1e-9)

	// Penalty caps at 0.15 regardless of count.
	in.Contradictions = 10
	capped := b.Blend(in)
	assert.InDelta(t, base.Confidence-0.15, capped.Confidence, 1e-9)
}

func TestConfidenceStaysInBounds(t *testing.T) {
	b := NewBlender()

	for cycle := 0.0; cycle <= 100; cycle += 20 {
		for onchain := 0.0; onchain <= 100; onchain += 20 {
			for _, contradictions := range []int{0, 2, 5} {
				d := b.Blend(Inputs{CycleScore: cycle, OnchainScore: onchain, RiskScore: 50, Contradictions: contradictions})
				assert.GreaterOrEqual(t, d.Confidence, 0.0)
				assert.LessOrEqual(t, d.Confidence, 0.95)
			}
		}
	}
}

func TestPolicyHints(t *testing.T) {
	b := NewBlender()

	assert.Equal(t, PolicySlow, b.Blend(Inputs{CycleScore: 60, OnchainScore: 55, RiskScore: 40, Contradictions: 3}).PolicyHint)
	assert.Equal(t, PolicyNormal, b.Blend(Inputs{CycleScore: 60, OnchainScore: 55, RiskScore: 40}).PolicyHint)
	// Aligned strong signals with low risk clear the aggressive bar.
	assert.Equal(t, PolicyAggressive, b.Blend(Inputs{CycleScore: 95, OnchainScore: 90, RiskScore: 10}).PolicyHint)
}

func TestBlendSanitizesBadInput(t *testing.T) {
	b := NewBlender()

	d := b.Blend(Inputs{CycleScore: math.NaN(), OnchainScore: -20, RiskScore: 300})
	assert.False(t, math.IsNaN(d.Score))
	assert.GreaterOrEqual(t, d.Score, 0.0)
	assert.LessOrEqual(t, d.Score, 100.0)
}
