package propose

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/steerfolio/steerfolio/internal/alloc"
	"github.com/steerfolio/steerfolio/internal/blend"
	"github.com/steerfolio/steerfolio/internal/domain"
	"github.com/steerfolio/steerfolio/internal/regime"
	"github.com/steerfolio/steerfolio/internal/riskbudget"
)

// blendHighConfidenceScore is the effective score above which the blend
// strategy applies cycle multipliers at full strength atop the CCS
// baseline; below it the conservative macro path runs with diluted
// multipliers.
const blendHighConfidenceScore = 70.0

// errorConfidence is reported for proposals produced by the safe fallback
// after a strategy failure.
const errorConfidence = 0.25

// OnchainMeta is the optional on-chain context consumed by the smart
// strategy.
type OnchainMeta struct {
	CategoryBreakdown map[string]float64 `yaml:"category_breakdown" json:"category_breakdown"`
	CriticalZoneCount int                `yaml:"critical_zone_count" json:"critical_zone_count"`
	TotalIndicators   int                `yaml:"total_indicators" json:"total_indicators"`
}

// Inputs carries everything a strategy may consume. Optional fields are
// pointers; absence triggers labeled fallbacks, never failure.
type Inputs struct {
	Decision       blend.Decision
	Classification regime.Classification
	Budget         *riskbudget.Budget
	Adjustments    regime.Adjustments
	CycleScore     float64
	Onchain        *OnchainMeta
}

// Proposal is a finalized 11-group target map plus the provenance needed
// for observability and testing.
type Proposal struct {
	Targets domain.Targets `json:"targets"`
	// Strategy documents which path actually ran, including named
	// fallback presets such as "ccs aggressive (simulated)".
	Strategy   string  `json:"strategy"`
	Fallback   bool    `json:"fallback"`
	Confidence float64 `json:"confidence"`
	Err        string  `json:"error,omitempty"`
}

// Proposer orchestrates the five strategies into a final target map. Each
// strategy run is guarded by a circuit breaker: repeated failures route
// straight to the macro default instead of retrying a broken path.
type Proposer struct {
	distributor *alloc.Distributor
	bias        regime.BiasPresets
	breaker     *gobreaker.CircuitBreaker
}

// NewProposer builds a proposer over the given distributor and bias
// presets.
func NewProposer(distributor *alloc.Distributor, bias regime.BiasPresets) *Proposer {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "strategy",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("strategy breaker state change")
		},
	})
	return &Proposer{distributor: distributor, bias: bias, breaker: breaker}
}

// Propose runs the requested strategy and normalizes its output. Any
// panic or error inside a strategy is converted to the safe macro-default
// proposal with the error recorded; nothing here is fatal.
func (p *Proposer) Propose(strategy Strategy, in Inputs) Proposal {
	raw, err := p.breaker.Execute(func() (out interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("strategy %s panicked: %v", strategy, r)
			}
		}()
		return p.run(strategy, in), nil
	})
	if err != nil {
		log.Error().Err(err).Str("strategy", strategy.String()).Msg("strategy failed, serving macro default")
		return Proposal{
			Targets:    macroDefaults().Normalize(),
			Strategy:   "macro default (error)",
			Fallback:   true,
			Confidence: errorConfidence,
			Err:        err.Error(),
		}
	}

	proposal := raw.(Proposal)
	proposal.Targets = proposal.Targets.Normalize()
	if err := proposal.Targets.Validate(); err != nil {
		// Normalize guarantees this; a violation means a strategy broke
		// the map type itself.
		log.Error().Err(err).Str("strategy", proposal.Strategy).Msg("proposal failed invariant check, serving macro default")
		return Proposal{
			Targets:    macroDefaults().Normalize(),
			Strategy:   "macro default (error)",
			Fallback:   true,
			Confidence: errorConfidence,
			Err:        err.Error(),
		}
	}

	log.Info().
		Str("strategy", proposal.Strategy).
		Bool("fallback", proposal.Fallback).
		Float64("confidence", proposal.Confidence).
		Msg("targets proposed")
	return proposal
}

func (p *Proposer) run(strategy Strategy, in Inputs) Proposal {
	switch strategy {
	case StrategyMacro:
		return p.macro(in)
	case StrategyCCS:
		return p.ccs(in)
	case StrategyCycle:
		return p.cycle(in)
	case StrategySmart:
		return p.smart(in)
	default:
		return p.blend(in)
	}
}

// macro returns the fixed conservative preset.
func (p *Proposer) macro(in Inputs) Proposal {
	return Proposal{
		Targets:    macroDefaults(),
		Strategy:   "macro",
		Confidence: math.Max(in.Decision.Confidence, 0.5),
	}
}

// ccs distributes the risk budget under the current regime bias. A missing
// budget is replaced by the simulated aggressive split, clearly labeled.
func (p *Proposer) ccs(in Inputs) Proposal {
	riskyPct := ccsSimulatedRiskyPct
	label := "ccs aggressive (simulated)"
	fallback := true
	if in.Budget != nil {
		riskyPct = in.Budget.RiskyPct
		label = "ccs"
		fallback = false
	}

	targets := p.distributor.Distribute(riskyPct, p.bias.For(in.Classification.Regime), in.Adjustments)
	return Proposal{
		Targets:    targets,
		Strategy:   label,
		Fallback:   fallback,
		Confidence: in.Decision.Confidence,
	}
}

// cycle applies the cycle multipliers to the macro preset.
func (p *Proposer) cycle(in Inputs) Proposal {
	targets := cycleMultipliers(in.CycleScore).apply(macroDefaults())
	return Proposal{
		Targets:    targets,
		Strategy:   "cycle",
		Confidence: in.Decision.Confidence,
	}
}

// smart shifts the CCS baseline toward stables proportionally to how many
// on-chain indicators sit in their critical zone. Missing metadata falls
// back to the plain CCS baseline, labeled.
func (p *Proposer) smart(in Inputs) Proposal {
	base := p.ccs(in)
	if in.Onchain == nil {
		base.Strategy = "smart fallback (no on-chain metadata)"
		base.Fallback = true
		base.Confidence = math.Min(base.Confidence, 0.4)
		return base
	}

	shift := math.Min(15, 3*float64(in.Onchain.CriticalZoneCount))
	targets := shiftToStables(base.Targets, shift)
	return Proposal{
		Targets:    targets,
		Strategy:   "smart",
		Confidence: in.Decision.Confidence,
	}
}

// blend is the default path: high-conviction scores get the full cycle
// tilt on the regime-aware CCS baseline, everything else gets macro
// defaults with the tilt at half strength.
func (p *Proposer) blend(in Inputs) Proposal {
	effective := in.Decision.Score

	if effective >= blendHighConfidenceScore {
		base := p.ccs(in)
		targets := cycleMultipliers(in.CycleScore).apply(base.Targets)
		label := "blend (cycle on ccs baseline)"
		if base.Fallback {
			label = "blend on " + base.Strategy
		}
		return Proposal{
			Targets:    targets,
			Strategy:   label,
			Fallback:   base.Fallback,
			Confidence: in.Decision.Confidence,
		}
	}

	diluted := cycleMultipliers(in.CycleScore).dilute(0.5)
	return Proposal{
		Targets:    diluted.apply(macroDefaults()),
		Strategy:   "blend (diluted macro)",
		Confidence: in.Decision.Confidence,
	}
}

// shiftToStables moves pct points of allocation from risky groups into
// stablecoins, pro rata.
func shiftToStables(t domain.Targets, pct float64) domain.Targets {
	out := t.Clone()
	risky := 100 - out[domain.GroupStablecoins]
	if risky <= 0 || pct <= 0 {
		return out
	}
	pct = math.Min(pct, risky)
	scale := (risky - pct) / risky
	for g := range out {
		if g == domain.GroupStablecoins {
			continue
		}
		out[g] *= scale
	}
	out[domain.GroupStablecoins] += pct
	return out
}
