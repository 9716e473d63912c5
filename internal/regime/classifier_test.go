package regime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangesPartitionWholeScale(t *testing.T) {
	c := NewClassifier(nil)

	// Every integer score matches exactly one nominal band.
	for score := 0; score <= 100; score++ {
		matches := 0
		for _, band := range c.Ranges() {
			if band.Contains(float64(score)) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "score %d matched %d bands", score, matches)
	}

	// Fractional scores between the integer labels classify too: the blend
	// pipeline emits continuous values, so no reading may hit the fallback.
	for i := 0; i <= 1000; i++ {
		score := float64(i) / 10
		got := c.Classify(score)
		assert.False(t, got.Fallback, "score %.1f fell through the partition", score)
		assert.GreaterOrEqual(t, got.Confidence, 0.3, "score %.1f", score)
		assert.LessOrEqual(t, got.Strength, 1.0, "score %.1f", score)
	}
}

func TestClassifyBindsGapScoresToBandBelow(t *testing.T) {
	c := NewClassifier(nil)

	cases := []struct {
		score float64
		want  Regime
	}{
		{39.5, Accumulation},
		{69.3, Expansion},
		{69.5, Expansion},
		{84.5, Euphoria},
	}
	for _, tc := range cases {
		got := c.Classify(tc.score)
		assert.Equal(t, tc.want, got.Regime, "score %.1f", tc.score)
		assert.False(t, got.Fallback, "score %.1f", tc.score)
		assert.GreaterOrEqual(t, got.Confidence, 0.3)
	}
}

func TestClassifyRegimeBands(t *testing.T) {
	c := NewClassifier(nil)

	cases := []struct {
		score float64
		want  Regime
	}{
		{0, Accumulation},
		{39, Accumulation},
		{40, Expansion},
		{69, Expansion},
		{70, Euphoria},
		{75, Euphoria},
		{84, Euphoria},
		{85, Distribution},
		{100, Distribution},
	}
	for _, tc := range cases {
		got := c.Classify(tc.score)
		assert.Equal(t, tc.want, got.Regime, "score %.0f", tc.score)
		assert.False(t, got.Fallback)
	}
}

func TestClassifyConfidencePeaksAtCenter(t *testing.T) {
	c := NewClassifier(nil)

	// Expansion band [40,69], center 54.5, half width 14.5.
	center := c.Classify(54.5)
	assert.InDelta(t, 1.0, center.Confidence, 1e-9)

	edge := c.Classify(69)
	assert.InDelta(t, 0.3, edge.Confidence, 1e-9)
	assert.Greater(t, center.Confidence, edge.Confidence)

	// Confidence never drops below the 0.3 floor.
	for score := 0.0; score <= 100; score++ {
		got := c.Classify(score)
		assert.GreaterOrEqual(t, got.Confidence, 0.3)
	}
}

func TestClassifyTransitions(t *testing.T) {
	c := NewClassifier(nil)

	entering := c.Classify(41)
	assert.Equal(t, TransitionEntering, entering.Transition)
	assert.InDelta(t, 1-1.0/3, entering.Strength, 1e-9)

	exiting := c.Classify(68)
	assert.Equal(t, TransitionExiting, exiting.Transition)

	stable := c.Classify(55)
	assert.Equal(t, TransitionStable, stable.Transition)
	assert.Zero(t, stable.Strength)
}

func TestClassifyInvalidInputFallsBack(t *testing.T) {
	c := NewClassifier(nil)

	for _, score := range []float64{-5, 101, math.NaN(), math.Inf(1)} {
		got := c.Classify(score)
		assert.Equal(t, Expansion, got.Regime)
		assert.InDelta(t, 0.1, got.Confidence, 1e-9)
		assert.True(t, got.Fallback)
	}
}

func TestBiasPresetsCoverAllRegimes(t *testing.T) {
	presets := DefaultBiasPresets()
	require.NoError(t, presets.Validate())
	assert.Positive(t, presets.For(Accumulation).BTC)
	assert.Negative(t, presets.For(Euphoria).BTC)
}
