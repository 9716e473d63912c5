package alloc

import (
	"github.com/rs/zerolog/log"

	"github.com/steerfolio/steerfolio/internal/domain"
	"github.com/steerfolio/steerfolio/internal/regime"
)

// SleeveConfig holds the base intra-risky split and the fixed sub-split
// ratios. The ratios are preserved heuristics from the production system,
// kept as named configuration rather than derived values.
type SleeveConfig struct {
	// Base split of the risky sleeve, percentage points summing to 100.
	BTC     float64 `yaml:"btc"`
	ETH     float64 `yaml:"eth"`
	MidCaps float64 `yaml:"midcaps"`
	Meme    float64 `yaml:"meme"`

	// Mid-cap sleeve sub-split, fractions summing to 1.
	MidSOL  float64 `yaml:"mid_sol"`
	MidL1L0 float64 `yaml:"mid_l1l0"`
	MidL2   float64 `yaml:"mid_l2"`
	MidDeFi float64 `yaml:"mid_defi"`

	// Meme sleeve sub-split, fractions summing to 1.
	MemeAIData float64 `yaml:"meme_ai_data"`
	MemeGaming float64 `yaml:"meme_gaming"`
	MemeCoins  float64 `yaml:"meme_coins"`
}

// DefaultSleeveConfig returns the production sleeve ratios.
func DefaultSleeveConfig() SleeveConfig {
	return SleeveConfig{
		BTC:     50,
		ETH:     30,
		MidCaps: 15,
		Meme:    5,

		MidSOL:  0.20,
		MidL1L0: 0.40,
		MidL2:   0.30,
		MidDeFi: 0.10,

		MemeAIData: 0.50,
		MemeGaming: 0.30,
		MemeCoins:  0.20,
	}
}

// Distributor spreads the risky budget across the canonical groups under a
// regime bias and override adjustments.
type Distributor struct {
	cfg SleeveConfig
}

// NewDistributor builds a distributor with the given sleeve ratios.
func NewDistributor(cfg SleeveConfig) *Distributor {
	return &Distributor{cfg: cfg}
}

// Distribute builds the full 11-group allocation for the given risky
// percentage. Stablecoins are set to 100-riskyPct directly rather than
// derived from the intra-risky split, so the top-level sum invariant holds
// regardless of sleeve arithmetic.
func (d *Distributor) Distribute(riskyPct int, bias regime.Bias, adj regime.Adjustments) domain.Targets {
	btc := d.cfg.BTC + bias.BTC
	eth := d.cfg.ETH + bias.ETH
	mid := d.cfg.MidCaps + bias.MidCaps
	meme := d.cfg.Meme + bias.MemeCap

	if adj.AltAllowance > 0 {
		mid += adj.AltAllowance / 2
		meme += adj.AltAllowance / 2
	}
	if adj.ZeroMemeCap {
		meme = 0
	}

	btc = max0(btc)
	eth = max0(eth)
	mid = max0(mid)
	meme = max0(meme)

	// Renormalize the four sleeves to 100 before scaling by the budget.
	total := btc + eth + mid + meme
	if total <= 0 {
		// Degenerate bias wiped the risky sleeve; everything riskless.
		out := domain.NewTargets()
		out[domain.GroupStablecoins] = 100
		return out
	}
	scale := float64(riskyPct) / total

	out := domain.NewTargets()
	out[domain.GroupBTC] = btc * scale
	out[domain.GroupETH] = eth * scale

	midShare := mid * scale
	out[domain.GroupSOL] = midShare * d.cfg.MidSOL
	out[domain.GroupL1L0] = midShare * d.cfg.MidL1L0
	out[domain.GroupL2Scaling] = midShare * d.cfg.MidL2
	out[domain.GroupDeFi] = midShare * d.cfg.MidDeFi

	memeShare := meme * scale
	out[domain.GroupAIData] = memeShare * d.cfg.MemeAIData
	out[domain.GroupGamingNFT] = memeShare * d.cfg.MemeGaming
	out[domain.GroupMemecoins] = memeShare * d.cfg.MemeCoins

	out[domain.GroupStablecoins] = float64(100 - riskyPct)

	log.Debug().
		Int("risky_pct", riskyPct).
		Float64("btc", out[domain.GroupBTC]).
		Float64("eth", out[domain.GroupETH]).
		Float64("stables", out[domain.GroupStablecoins]).
		Msg("risky budget distributed")

	return out
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
