package regime

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/steerfolio/steerfolio/internal/domain"
)

// Regime is the discrete market-condition bucket driving allocation bias.
type Regime int

const (
	Accumulation Regime = iota
	Expansion
	Euphoria
	Distribution
)

func (r Regime) String() string {
	switch r {
	case Accumulation:
		return "accumulation"
	case Expansion:
		return "expansion"
	case Euphoria:
		return "euphoria"
	case Distribution:
		return "distribution"
	default:
		return "unknown"
	}
}

// Transition labels where the blended score sits inside its regime band.
type Transition string

const (
	TransitionEntering Transition = "entering"
	TransitionStable   Transition = "stable"
	TransitionExiting  Transition = "exiting"
)

// Range is an integer-labeled score band. Classification treats each band
// as half-open: it extends from its Min up to (but excluding) the next
// band's Min, so fractional scores between the labels (39.5, 69.3) still
// bind to exactly one regime. The last band includes 100.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether score falls inside the nominal labeled band.
func (r Range) Contains(score float64) bool {
	return score >= r.Min && score <= r.Max
}

// transitionMargin is how close to a band edge (in score points) a reading
// must be to count as entering/exiting.
const transitionMargin = 3.0

// fallbackConfidence is reported when the input score is out of range or
// not a number.
const fallbackConfidence = 0.1

// Classification is the result of mapping a blended score to a regime.
type Classification struct {
	Regime     Regime     `json:"regime"`
	Score      float64    `json:"score"`
	Confidence float64    `json:"confidence"`
	Transition Transition `json:"transition"`
	// Strength is the normalized proximity to the band edge for
	// entering/exiting readings, 0 when stable.
	Strength float64 `json:"strength"`
	// Fallback flags that the input was invalid and the classification is
	// the documented Expansion fallback rather than a real reading.
	Fallback bool `json:"fallback,omitempty"`
}

// Classifier maps blended scores onto regime bands.
type Classifier struct {
	ranges map[Regime]Range
}

// NewClassifier builds a classifier over the given bands. Nil uses the
// default partition.
func NewClassifier(ranges map[Regime]Range) *Classifier {
	if ranges == nil {
		ranges = DefaultRanges()
	}
	return &Classifier{ranges: ranges}
}

// DefaultRanges returns the canonical partition of [0,100].
func DefaultRanges() map[Regime]Range {
	return map[Regime]Range{
		Accumulation: {Min: 0, Max: 39},
		Expansion:    {Min: 40, Max: 69},
		Euphoria:     {Min: 70, Max: 84},
		Distribution: {Min: 85, Max: 100},
	}
}

// Ranges exposes the active partition (for display and config dumps).
func (c *Classifier) Ranges() map[Regime]Range {
	out := make(map[Regime]Range, len(c.ranges))
	for r, band := range c.ranges {
		out[r] = band
	}
	return out
}

// Classify maps a blended score to its regime with confidence and
// transition info. Invalid input never fails: it falls back to Expansion
// with confidence 0.1 and the Fallback flag set.
func (c *Classifier) Classify(blended float64) Classification {
	if !domain.ValidScore(blended) {
		log.Warn().Float64("blended", blended).Msg("invalid blended score, falling back to expansion regime")
		return Classification{
			Regime:     Expansion,
			Score:      blended,
			Confidence: fallbackConfidence,
			Transition: TransitionStable,
			Fallback:   true,
		}
	}

	ordered := []Regime{Accumulation, Expansion, Euphoria, Distribution}
	for i, r := range ordered {
		// A band owns every score below the next band's Min; the last
		// band owns everything up to 100.
		if i < len(ordered)-1 && blended >= c.ranges[ordered[i+1]].Min {
			continue
		}
		band := c.ranges[r]

		center := (band.Min + band.Max) / 2
		halfWidth := (band.Max - band.Min) / 2
		confidence := 1.0
		if halfWidth > 0 {
			confidence = 1 - (math.Abs(blended-center)/halfWidth)*0.7
		}
		confidence = math.Max(0.3, confidence)

		transition, strength := classifyTransition(blended, band)

		return Classification{
			Regime:     r,
			Score:      blended,
			Confidence: confidence,
			Transition: transition,
			Strength:   strength,
		}
	}

	// Unreachable: the last band owns every remaining valid score. Kept as
	// the documented fallback rather than a panic.
	return Classification{
		Regime:     Expansion,
		Score:      blended,
		Confidence: fallbackConfidence,
		Transition: TransitionStable,
		Fallback:   true,
	}
}

// classifyTransition labels a score near a band edge. Strength rises from
// 0 at the margin to 1 at the edge; scores just outside the nominal labels
// clamp to full strength.
func classifyTransition(score float64, band Range) (Transition, float64) {
	if d := score - band.Min; d <= transitionMargin {
		return TransitionEntering, clampStrength(1 - d/transitionMargin)
	}
	if d := band.Max - score; d <= transitionMargin {
		return TransitionExiting, clampStrength(1 - d/transitionMargin)
	}
	return TransitionStable, 0
}

func clampStrength(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
