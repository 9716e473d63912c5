package blend

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/steerfolio/steerfolio/internal/domain"
)

// PolicyHint advises the executor how fast to move toward the target.
type PolicyHint string

const (
	PolicySlow       PolicyHint = "Slow"
	PolicyNormal     PolicyHint = "Normal"
	PolicyAggressive PolicyHint = "Aggressive"
)

// Weights is one adaptive weighting of the three input signals. The three
// components sum to 1.
type Weights struct {
	Cycle   float64 `json:"cycle"`
	Onchain float64 `json:"onchain"`
	Risk    float64 `json:"risk"`
}

// Inputs are the collaborator-supplied signals for one decision cycle.
type Inputs struct {
	CycleScore     float64 `json:"cycle_score"`
	OnchainScore   float64 `json:"onchain_score"`
	RiskScore      float64 `json:"risk_score"`
	Contradictions int     `json:"contradictions"`
}

// Decision is the blended outcome driving regime classification and
// execution pacing.
type Decision struct {
	Score float64 `json:"score"`
	// Confidence is in [0,0.95] after the contradiction penalty.
	Confidence float64 `json:"confidence"`
	Weights    Weights `json:"weights"`
	// SpeedMultiplier scales execution pace only, never the target
	// destination.
	SpeedMultiplier float64    `json:"speed_multiplier"`
	PolicyHint      PolicyHint `json:"policy_hint"`
	Reasoning       []string   `json:"reasoning"`
}

// onchainFloorAtStrongCycle is the minimum on-chain reading used when the
// cycle signal is very strong, so a weak on-chain print cannot cancel it.
const onchainFloorAtStrongCycle = 30.0

// Blender combines cycle, on-chain and risk scores with cycle-adaptive
// weights.
type Blender struct{}

// NewBlender returns a blender with production weighting.
func NewBlender() *Blender {
	return &Blender{}
}

// weightsFor selects the adaptive weighting for a cycle score.
func weightsFor(cycleScore float64) Weights {
	switch {
	case cycleScore >= 90:
		return Weights{Cycle: 0.65, Onchain: 0.25, Risk: 0.10}
	case cycleScore >= 70:
		return Weights{Cycle: 0.55, Onchain: 0.28, Risk: 0.17}
	default:
		return Weights{Cycle: 0.5, Onchain: 0.3, Risk: 0.2}
	}
}

// speedMultiplier maps contradiction count to an execution pace factor.
func speedMultiplier(contradictions int) float64 {
	switch {
	case contradictions >= 3:
		return 0.6
	case contradictions >= 2:
		return 0.8
	default:
		return 1.0
	}
}

// Blend produces the decision score, confidence and pacing hint for one
// cycle. Out-of-range inputs are clamped to [0,100] rather than rejected.
func (b *Blender) Blend(in Inputs) Decision {
	cycle := sanitize(in.CycleScore)
	onchain := sanitize(in.OnchainScore)
	risk := sanitize(in.RiskScore)

	weights := weightsFor(cycle)
	reasoning := []string{
		fmt.Sprintf("weights cycle=%.2f onchain=%.2f risk=%.2f", weights.Cycle, weights.Onchain, weights.Risk),
	}

	if cycle >= 90 && onchain < onchainFloorAtStrongCycle {
		reasoning = append(reasoning, fmt.Sprintf("on-chain %.0f floored at %.0f under strong cycle", onchain, onchainFloorAtStrongCycle))
		onchain = onchainFloorAtStrongCycle
	}

	// Risk enters inverted: a high risk score pulls the decision down.
	score := weights.Cycle*cycle + weights.Onchain*onchain + weights.Risk*(100-risk)

	confidence := baseConfidence(cycle, onchain, 100-risk)
	if penalty := math.Min(0.15, float64(in.Contradictions)*0.05); penalty > 0 {
		reasoning = append(reasoning, fmt.Sprintf("%d contradictions, confidence penalty %.2f", in.Contradictions, penalty))
		confidence -= penalty
	}
	confidence = domain.Clamp(confidence, 0, 0.95)

	speed := speedMultiplier(in.Contradictions)
	hint := policyHint(score, confidence, speed)
	reasoning = append(reasoning, fmt.Sprintf("speed multiplier %.1f, policy %s", speed, hint))

	log.Debug().
		Float64("score", score).
		Float64("confidence", confidence).
		Float64("speed", speed).
		Str("policy", string(hint)).
		Msg("signals blended")

	return Decision{
		Score:           score,
		Confidence:      confidence,
		Weights:         weights,
		SpeedMultiplier: speed,
		PolicyHint:      hint,
		Reasoning:       reasoning,
	}
}

// baseConfidence reflects signal agreement: tightly clustered components
// read as high conviction, a wide spread as low.
func baseConfidence(components ...float64) float64 {
	lo, hi := components[0], components[0]
	for _, c := range components[1:] {
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}
	return math.Max(0.3, 1-(hi-lo)/100)
}

// policyHint derives the execution policy: contradictions force Slow,
// strong high-conviction scores allow Aggressive.
func policyHint(score, confidence, speed float64) PolicyHint {
	switch {
	case speed < 1.0:
		return PolicySlow
	case score >= 85 && confidence >= 0.6:
		return PolicyAggressive
	default:
		return PolicyNormal
	}
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 50 // neutral midpoint for unusable readings
	}
	return domain.Clamp(v, 0, 100)
}
