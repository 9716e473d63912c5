package validate

import "time"

// ReasonCode labels a validation outcome for clear reporting.
type ReasonCode string

const (
	ReasonBelowChangeThreshold ReasonCode = "BELOW_CHANGE_THRESHOLD"
	ReasonDrawdownCircuit      ReasonCode = "DRAWDOWN_CIRCUIT_BREAKER"
	ReasonWeakOnchainLowStable ReasonCode = "WEAK_ONCHAIN_LOW_STABLES"
	ReasonRebalanceTooSoon     ReasonCode = "REBALANCE_FREQUENCY"
	ReasonBelowMinTradeSize    ReasonCode = "BELOW_MIN_TRADE_SIZE"
	ReasonHighChurn            ReasonCode = "HIGH_CHURN"
)

// TradingRules are the fixed thresholds and circuit breakers applied to a
// proposed rebalance.
type TradingRules struct {
	// A change only counts as material above both bars.
	MinAbsoluteChangePct float64 `yaml:"min_absolute_change_pct"`
	MinRelativeChangePct float64 `yaml:"min_relative_change_pct"`

	// Defensive posture checks.
	OnchainWarnBelow   float64 `yaml:"onchain_warn_below"`
	StablesFloorPct    float64 `yaml:"stables_floor_pct"`
	DrawdownBlockBelow float64 `yaml:"drawdown_block_below"`

	// Execution economics.
	MinTradeUSD float64 `yaml:"min_trade_usd"`

	// Cadence and churn.
	MinRebalanceInterval time.Duration `yaml:"min_rebalance_interval"`
	MaxChanges           int           `yaml:"max_changes"`
	MaxReallocationPct   float64       `yaml:"max_reallocation_pct"`

	// Priority bands for the execution planner.
	HighPriorityAbovePct float64 `yaml:"high_priority_above_pct"`
}

// DefaultTradingRules returns the production rule set.
func DefaultTradingRules() TradingRules {
	return TradingRules{
		MinAbsoluteChangePct: 3.0,
		MinRelativeChangePct: 20.0,
		OnchainWarnBelow:     45,
		StablesFloorPct:      40,
		DrawdownBlockBelow:   -0.25,
		MinTradeUSD:          200,
		MinRebalanceInterval: 168 * time.Hour,
		MaxChanges:           5,
		MaxReallocationPct:   20,
		HighPriorityAbovePct: 5.0,
	}
}
