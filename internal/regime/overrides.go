package regime

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// OverrideKind identifies an override rule for auditing.
type OverrideKind string

const (
	OverrideOnchainDivergence OverrideKind = "onchain_divergence"
	OverrideExtremeRisk       OverrideKind = "extreme_risk"
	OverrideLowRisk           OverrideKind = "low_risk"
)

// SchmittThresholds holds the distinct activation/deactivation bounds of a
// hysteretic override. Up must be greater than Down; the gap is what
// prevents flapping on noisy input.
type SchmittThresholds struct {
	Up   float64 `yaml:"up" json:"up"`
	Down float64 `yaml:"down" json:"down"`
}

// Next applies the Schmitt trigger rule to a value given the previous flag.
func (t SchmittThresholds) Next(prev bool, value float64) bool {
	if prev {
		return value > t.Down
	}
	return value >= t.Up
}

// OverrideConfig holds the thresholds for all override rules.
type OverrideConfig struct {
	Divergence        SchmittThresholds `yaml:"divergence"`
	ExtremeRiskAt     float64           `yaml:"extreme_risk_at"`
	LowRiskAt         float64           `yaml:"low_risk_at"`
	DivergenceStables float64           `yaml:"divergence_stables"`
	ExtremeStables    float64           `yaml:"extreme_stables_floor"`
	LowRiskAllowance  float64           `yaml:"low_risk_allowance"`
}

// DefaultOverrideConfig returns the production override thresholds.
func DefaultOverrideConfig() OverrideConfig {
	return OverrideConfig{
		Divergence:        SchmittThresholds{Up: 27, Down: 23},
		ExtremeRiskAt:     80,
		LowRiskAt:         30,
		DivergenceStables: 10,
		ExtremeStables:    50,
		LowRiskAllowance:  5,
	}
}

// OverrideState carries the persistent flags of the hysteretic overrides.
// It is an explicit value threaded through calls rather than ambient
// process-wide storage; callers in concurrent settings must guard it with
// a mutex or keep it per-session.
type OverrideState struct {
	DivergenceActive bool `json:"divergence_active"`
}

// Reset clears all persistent flags (test isolation, session start).
func (s *OverrideState) Reset() {
	*s = OverrideState{}
}

// OverrideEvent is an audit record of one override firing.
type OverrideEvent struct {
	Type       OverrideKind `json:"type"`
	Message    string       `json:"message"`
	Adjustment string       `json:"adjustment"`
}

// Adjustments is the combined effect of active overrides on the allocation
// pipeline.
type Adjustments struct {
	// StablesBias is added to the stables side of the risk budget
	// (percentage points taken from the risky sleeve).
	StablesBias float64 `json:"stables_bias"`
	// StablesFloorPct forces stables to at least this percentage, 0 when
	// inactive.
	StablesFloorPct float64 `json:"stables_floor_pct"`
	// ZeroMemeCap removes the meme sleeve entirely.
	ZeroMemeCap bool `json:"zero_meme_cap"`
	// AltAllowance loosens the mid-cap/meme sleeves by this many points.
	AltAllowance float64 `json:"alt_allowance"`
}

// OverrideEngine evaluates the noise-resistant override rules. The
// divergence rule is a Schmitt trigger over |blended-onchain|; the risk
// rules are stateless level checks.
type OverrideEngine struct {
	cfg OverrideConfig
}

// NewOverrideEngine builds an engine with the given thresholds.
func NewOverrideEngine(cfg OverrideConfig) *OverrideEngine {
	return &OverrideEngine{cfg: cfg}
}

// Evaluate advances the override state for one decision cycle and returns
// the resulting adjustments plus audit events.
func (e *OverrideEngine) Evaluate(state *OverrideState, blended, onchain, risk float64) (Adjustments, []OverrideEvent) {
	var adj Adjustments
	var events []OverrideEvent

	divergence := abs(blended - onchain)
	state.DivergenceActive = e.cfg.Divergence.Next(state.DivergenceActive, divergence)
	if state.DivergenceActive {
		adj.StablesBias += e.cfg.DivergenceStables
		events = append(events, OverrideEvent{
			Type:       OverrideOnchainDivergence,
			Message:    fmt.Sprintf("on-chain divergence %.1f exceeds hysteresis band (up %.0f / down %.0f)", divergence, e.cfg.Divergence.Up, e.cfg.Divergence.Down),
			Adjustment: fmt.Sprintf("+%.0f stables bias", e.cfg.DivergenceStables),
		})
	}

	if risk >= e.cfg.ExtremeRiskAt {
		adj.StablesFloorPct = e.cfg.ExtremeStables
		adj.ZeroMemeCap = true
		events = append(events, OverrideEvent{
			Type:       OverrideExtremeRisk,
			Message:    fmt.Sprintf("risk score %.0f at or above %.0f", risk, e.cfg.ExtremeRiskAt),
			Adjustment: fmt.Sprintf("stables floor %.0f%%, meme cap zeroed, alts reduced", e.cfg.ExtremeStables),
		})
	} else if risk <= e.cfg.LowRiskAt {
		adj.AltAllowance = e.cfg.LowRiskAllowance
		events = append(events, OverrideEvent{
			Type:       OverrideLowRisk,
			Message:    fmt.Sprintf("risk score %.0f at or below %.0f", risk, e.cfg.LowRiskAt),
			Adjustment: fmt.Sprintf("+%.0f alt/meme allowance", e.cfg.LowRiskAllowance),
		})
	}

	log.Debug().
		Float64("divergence", divergence).
		Bool("divergence_active", state.DivergenceActive).
		Float64("risk", risk).
		Int("events", len(events)).
		Msg("override evaluation complete")

	return adj, events
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
