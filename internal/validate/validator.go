package validate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/steerfolio/steerfolio/internal/domain"
)

// Priority bands a change for the execution planner.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// SkipReason marks a change excluded from execution without invalidating
// the proposal.
type SkipReason string

const SkipBelowMinTrade SkipReason = "below_min_trade_size"

// Change is one group's move from current to proposed allocation.
type Change struct {
	Group          domain.Group `json:"group"`
	From           float64      `json:"from"`
	To             float64      `json:"to"`
	AbsoluteChange float64      `json:"absolute_change"`
	RelativeChange float64      `json:"relative_change"`
	AmountUSD      float64      `json:"amount_usd,omitempty"`
	Priority       Priority     `json:"priority"`
	SkipReason     SkipReason   `json:"skip_reason,omitempty"`
}

// Options carries the optional context for validation.
type Options struct {
	OnchainScore      *float64
	Drawdown          *float64
	PortfolioValueUSD *float64
	LastRebalance     *time.Time
}

// Result is the full verdict. Changes are always populated and sorted by
// descending magnitude, even when the proposal is invalid, so callers can
// render the rationale.
type Result struct {
	Valid           bool     `json:"valid"`
	Changes         []Change `json:"changes"`
	Warnings        []string `json:"warnings"`
	BlockedReasons  []string `json:"blocked_reasons"`
	Recommendations []string `json:"recommendations"`
	SkippedCount    int      `json:"skipped_count"`
	TotalVolumePct  float64  `json:"total_volume_pct"`
}

// Validator applies the trading rules to a proposed rebalance. All rules
// are evaluated on every call; none short-circuits, so the result always
// carries the complete picture.
type Validator struct {
	rules TradingRules
	now   func() time.Time
}

// NewValidator builds a validator with the given rules.
func NewValidator(rules TradingRules) *Validator {
	return &Validator{rules: rules, now: time.Now}
}

// NewValidatorWithClock injects a clock for frequency-rule tests.
func NewValidatorWithClock(rules TradingRules, now func() time.Time) *Validator {
	v := NewValidator(rules)
	v.now = now
	return v
}

// Validate compares current against proposed targets under the options.
func (v *Validator) Validate(current, proposed domain.Targets, opts Options) Result {
	res := Result{
		Valid:           true,
		Warnings:        []string{},
		BlockedReasons:  []string{},
		Recommendations: []string{},
	}

	res.Changes, res.TotalVolumePct = v.buildChanges(current, proposed, opts)

	// Rule 1: at least one change must clear the materiality bar, which is
	// the larger of the absolute and relative thresholds. Clearing only one
	// bar (a big relative move on a dust-sized sleeve) is not material.
	material := false
	for _, ch := range res.Changes {
		if ch.AbsoluteChange >= v.rules.MinAbsoluteChangePct && ch.RelativeChange >= v.rules.MinRelativeChangePct {
			material = true
			break
		}
	}
	if !material {
		res.Valid = false
		res.BlockedReasons = append(res.BlockedReasons,
			fmt.Sprintf("%s: no change exceeds the max(%.1f%% absolute, %.0f%% relative) materiality threshold", ReasonBelowChangeThreshold, v.rules.MinAbsoluteChangePct, v.rules.MinRelativeChangePct))
	}

	proposedStables := proposed[domain.GroupStablecoins]

	// Rule 2: weak on-chain with a thin stables cushion warns.
	if opts.OnchainScore != nil && *opts.OnchainScore < v.rules.OnchainWarnBelow && proposedStables < v.rules.StablesFloorPct {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%s: on-chain score %.0f below %.0f with stables at %.1f%% (floor %.0f%%)", ReasonWeakOnchainLowStable, *opts.OnchainScore, v.rules.OnchainWarnBelow, proposedStables, v.rules.StablesFloorPct))
	}

	// Rule 3: deep drawdown with a thin cushion is a hard block.
	if opts.Drawdown != nil && *opts.Drawdown < v.rules.DrawdownBlockBelow && proposedStables < v.rules.StablesFloorPct {
		res.Valid = false
		res.BlockedReasons = append(res.BlockedReasons,
			fmt.Sprintf("%s: drawdown %.1f%% beyond %.0f%% with stables at %.1f%%: circuit breaker", ReasonDrawdownCircuit, *opts.Drawdown*100, v.rules.DrawdownBlockBelow*100, proposedStables))
	}

	// Rule 4: dust trades are marked skipped, counted, never blocking.
	for i := range res.Changes {
		if res.Changes[i].SkipReason != "" {
			res.SkippedCount++
		}
	}

	// Rule 5: frequency warning, non-blocking.
	if opts.LastRebalance != nil {
		if since := v.now().Sub(*opts.LastRebalance); since < v.rules.MinRebalanceInterval {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s: last rebalance %.0fh ago, recommended minimum interval %.0fh", ReasonRebalanceTooSoon, since.Hours(), v.rules.MinRebalanceInterval.Hours()))
		}
	}

	// Rule 6: churn advisories. Every non-zero move counts, dust included.
	moved := 0
	for _, ch := range res.Changes {
		if ch.AbsoluteChange > 0 {
			moved++
		}
	}
	if moved > v.rules.MaxChanges {
		res.Recommendations = append(res.Recommendations,
			fmt.Sprintf("%s: %d changes exceed %d: consider phasing execution", ReasonHighChurn, moved, v.rules.MaxChanges))
	}
	if res.TotalVolumePct > v.rules.MaxReallocationPct {
		res.Recommendations = append(res.Recommendations,
			fmt.Sprintf("%s: total reallocation %.1f%% exceeds %.0f%%: consider splitting across sessions", ReasonHighChurn, res.TotalVolumePct, v.rules.MaxReallocationPct))
	}

	log.Info().
		Bool("valid", res.Valid).
		Int("changes", len(res.Changes)).
		Int("skipped", res.SkippedCount).
		Float64("volume_pct", res.TotalVolumePct).
		Msg("rebalance validated")

	return res
}

// buildChanges computes the per-group deltas, sorted by descending
// absolute change.
func (v *Validator) buildChanges(current, proposed domain.Targets, opts Options) ([]Change, float64) {
	changes := make([]Change, 0, domain.GroupCount)
	totalVolume := 0.0

	for _, g := range domain.CanonicalGroups() {
		from := current[g]
		to := proposed[g]
		abs := math.Abs(to - from)
		rel := 0.0
		if from > 0 {
			rel = abs / from * 100
		} else if to > 0 {
			rel = 100
		}

		ch := Change{
			Group:          g,
			From:           from,
			To:             to,
			AbsoluteChange: abs,
			RelativeChange: rel,
			Priority:       v.priorityFor(abs),
		}

		if opts.PortfolioValueUSD != nil {
			ch.AmountUSD = abs / 100 * *opts.PortfolioValueUSD
			if ch.AmountUSD > 0 && ch.AmountUSD < v.rules.MinTradeUSD {
				ch.SkipReason = SkipBelowMinTrade
			}
		}

		totalVolume += abs
		changes = append(changes, ch)
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].AbsoluteChange > changes[j].AbsoluteChange
	})

	// Volume counts each reallocation once, not both legs.
	return changes, totalVolume / 2
}

func (v *Validator) priorityFor(absChange float64) Priority {
	switch {
	case absChange > v.rules.HighPriorityAbovePct:
		return PriorityHigh
	case absChange >= v.rules.MinAbsoluteChangePct:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
