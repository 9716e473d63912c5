package domain

import "math"

// ScoreKind tags the origin of a 0-100 market score.
type ScoreKind string

const (
	ScoreCycle    ScoreKind = "cycle"
	ScoreOnchain  ScoreKind = "onchain"
	ScoreRisk     ScoreKind = "risk"
	ScoreBlended  ScoreKind = "blended"
	ScoreDecision ScoreKind = "decision"
)

// Score is a scalar market-condition reading in [0,100].
type Score struct {
	Value float64   `json:"value"`
	Kind  ScoreKind `json:"kind"`
}

// Valid reports whether the score is a finite number inside [0,100].
func (s Score) Valid() bool {
	return ValidScore(s.Value)
}

// ValidScore reports whether v is a finite number inside [0,100].
func ValidScore(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= 100
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
