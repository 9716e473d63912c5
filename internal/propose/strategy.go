package propose

import (
	"github.com/steerfolio/steerfolio/internal/domain"
)

// Strategy selects the proposal path. Blend is the default production
// path; the others exist for forced runs and observability.
type Strategy int

const (
	StrategyBlend Strategy = iota
	StrategyMacro
	StrategyCCS
	StrategyCycle
	StrategySmart
)

func (s Strategy) String() string {
	switch s {
	case StrategyBlend:
		return "blend"
	case StrategyMacro:
		return "macro"
	case StrategyCCS:
		return "ccs"
	case StrategyCycle:
		return "cycle"
	case StrategySmart:
		return "smart"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a CLI/config label to a Strategy.
func ParseStrategy(name string) (Strategy, bool) {
	for _, s := range []Strategy{StrategyBlend, StrategyMacro, StrategyCCS, StrategyCycle, StrategySmart} {
		if s.String() == name {
			return s, true
		}
	}
	return StrategyBlend, false
}

// macroDefaults is the conservative macro preset: major-heavy with a fixed
// stables reserve. Used directly by the macro strategy and as the safe
// proposal whenever a strategy fails.
func macroDefaults() domain.Targets {
	t := domain.NewTargets()
	t[domain.GroupBTC] = 40
	t[domain.GroupETH] = 25
	t[domain.GroupStablecoins] = 20
	t[domain.GroupL1L0] = 10
	t[domain.GroupOthers] = 5
	return t
}

// ccsSimulatedRiskyPct stands in for the risk budget when none was
// supplied; an aggressive split matching the historical simulated preset.
const ccsSimulatedRiskyPct = 65

// Multipliers scale each group's share before renormalization. A value of
// 1 leaves the group untouched.
type Multipliers map[domain.Group]float64

// cycleMultipliers returns the per-group tilt for a cycle score: strong
// cycles rotate toward higher-beta groups, weak cycles toward majors and
// stables, the middle band is neutral.
func cycleMultipliers(cycleScore float64) Multipliers {
	switch {
	case cycleScore >= 70:
		return Multipliers{
			domain.GroupBTC:         0.90,
			domain.GroupETH:         1.05,
			domain.GroupStablecoins: 0.80,
			domain.GroupSOL:         1.20,
			domain.GroupL1L0:        1.15,
			domain.GroupL2Scaling:   1.20,
			domain.GroupDeFi:        1.10,
			domain.GroupAIData:      1.30,
			domain.GroupGamingNFT:   1.20,
			domain.GroupMemecoins:   1.40,
			domain.GroupOthers:      1.00,
		}
	case cycleScore < 40:
		return Multipliers{
			domain.GroupBTC:         1.15,
			domain.GroupETH:         1.00,
			domain.GroupStablecoins: 1.30,
			domain.GroupSOL:         0.85,
			domain.GroupL1L0:        0.90,
			domain.GroupL2Scaling:   0.80,
			domain.GroupDeFi:        0.85,
			domain.GroupAIData:      0.70,
			domain.GroupGamingNFT:   0.65,
			domain.GroupMemecoins:   0.50,
			domain.GroupOthers:      0.90,
		}
	default:
		return Multipliers{}
	}
}

// dilute blends multipliers halfway back toward 1, the conservative path
// used when conviction is low.
func (m Multipliers) dilute(strength float64) Multipliers {
	out := make(Multipliers, len(m))
	for g, v := range m {
		out[g] = 1 + (v-1)*strength
	}
	return out
}

// apply scales targets by the multipliers without renormalizing; callers
// funnel the result through Normalize.
func (m Multipliers) apply(t domain.Targets) domain.Targets {
	out := t.Clone()
	for g, v := range m {
		out[g] *= v
	}
	return out
}
