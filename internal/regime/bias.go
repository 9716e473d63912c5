package regime

import "fmt"

// Bias is the set of fixed deltas a regime applies to the intra-risky
// sleeve split (percentage points of the risky sleeve).
type Bias struct {
	BTC     float64 `yaml:"btc" json:"btc"`
	ETH     float64 `yaml:"eth" json:"eth"`
	MidCaps float64 `yaml:"midcaps" json:"midcaps"`
	MemeCap float64 `yaml:"meme_cap" json:"meme_cap"`
}

// BiasPresets holds the allocation bias per regime.
type BiasPresets map[Regime]Bias

// DefaultBiasPresets returns the per-regime sleeve deltas: accumulation
// overweights majors, euphoria rotates toward mid-caps and memes,
// distribution de-risks back into BTC.
func DefaultBiasPresets() BiasPresets {
	return BiasPresets{
		Accumulation: {BTC: 10, ETH: 2, MidCaps: -9, MemeCap: -3},
		Expansion:    {BTC: 0, ETH: 2, MidCaps: 3, MemeCap: 0},
		Euphoria:     {BTC: -8, ETH: 0, MidCaps: 5, MemeCap: 3},
		Distribution: {BTC: 12, ETH: -2, MidCaps: -7, MemeCap: -3},
	}
}

// For returns the bias for a regime, zero deltas for unknown regimes.
func (p BiasPresets) For(r Regime) Bias {
	return p[r]
}

// Description returns a one-line rationale used in regime display output.
func (r Regime) Description() string {
	switch r {
	case Accumulation:
		return "Accumulation: depressed scores, overweight majors and build positions"
	case Expansion:
		return "Expansion: improving breadth, balanced exposure with a mid-cap tilt"
	case Euphoria:
		return "Euphoria: extended scores, rotate toward higher-beta sleeves with caution"
	case Distribution:
		return "Distribution: late-cycle readings, de-risk toward BTC and stables"
	default:
		return "Unknown regime"
	}
}

// Validate checks every regime has a preset entry.
func (p BiasPresets) Validate() error {
	for _, r := range []Regime{Accumulation, Expansion, Euphoria, Distribution} {
		if _, ok := p[r]; !ok {
			return fmt.Errorf("missing bias preset for regime %s", r)
		}
	}
	return nil
}
