package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/steerfolio/steerfolio/internal/alloc"
	"github.com/steerfolio/steerfolio/internal/regime"
	"github.com/steerfolio/steerfolio/internal/riskbudget"
	"github.com/steerfolio/steerfolio/internal/validate"
)

// RegimeRanges is the yaml-friendly form of the regime partition.
type RegimeRanges struct {
	Accumulation regime.Range `yaml:"accumulation"`
	Expansion    regime.Range `yaml:"expansion"`
	Euphoria     regime.Range `yaml:"euphoria"`
	Distribution regime.Range `yaml:"distribution"`
}

// Map converts to the classifier's representation.
func (r RegimeRanges) Map() map[regime.Regime]regime.Range {
	return map[regime.Regime]regime.Range{
		regime.Accumulation: r.Accumulation,
		regime.Expansion:    r.Expansion,
		regime.Euphoria:     r.Euphoria,
		regime.Distribution: r.Distribution,
	}
}

// RegimeBiases is the yaml-friendly form of the bias presets.
type RegimeBiases struct {
	Accumulation regime.Bias `yaml:"accumulation"`
	Expansion    regime.Bias `yaml:"expansion"`
	Euphoria     regime.Bias `yaml:"euphoria"`
	Distribution regime.Bias `yaml:"distribution"`
}

// Presets converts to the distributor's representation.
func (b RegimeBiases) Presets() regime.BiasPresets {
	return regime.BiasPresets{
		regime.Accumulation: b.Accumulation,
		regime.Expansion:    b.Expansion,
		regime.Euphoria:     b.Euphoria,
		regime.Distribution: b.Distribution,
	}
}

// Config is the full engine configuration.
type Config struct {
	Ranges    RegimeRanges          `yaml:"regime_ranges"`
	Biases    RegimeBiases          `yaml:"regime_biases"`
	Overrides regime.OverrideConfig `yaml:"overrides"`
	Budget    riskbudget.Config     `yaml:"risk_budget"`
	Sleeves   alloc.SleeveConfig    `yaml:"sleeves"`
	Rules     validate.TradingRules `yaml:"trading_rules"`

	Telemetry struct {
		Addr string `yaml:"addr"`
	} `yaml:"telemetry"`
	History struct {
		DSN string `yaml:"dsn"`
	} `yaml:"history"`
	Redis struct {
		Addr   string `yaml:"addr"`
		Prefix string `yaml:"prefix"`
	} `yaml:"redis"`
}

// Default returns the built-in production configuration.
func Default() Config {
	cfg := Config{
		Overrides: regime.DefaultOverrideConfig(),
		Budget:    riskbudget.DefaultConfig(),
		Sleeves:   alloc.DefaultSleeveConfig(),
		Rules:     validate.DefaultTradingRules(),
	}

	ranges := regime.DefaultRanges()
	cfg.Ranges = RegimeRanges{
		Accumulation: ranges[regime.Accumulation],
		Expansion:    ranges[regime.Expansion],
		Euphoria:     ranges[regime.Euphoria],
		Distribution: ranges[regime.Distribution],
	}

	biases := regime.DefaultBiasPresets()
	cfg.Biases = RegimeBiases{
		Accumulation: biases[regime.Accumulation],
		Expansion:    biases[regime.Expansion],
		Euphoria:     biases[regime.Euphoria],
		Distribution: biases[regime.Distribution],
	}

	cfg.Telemetry.Addr = ":9180"
	return cfg
}

// Load reads a yaml config, falling back to defaults when the path is
// empty or the file does not exist. A present but malformed file is an
// error; silent fallback there would hide operator mistakes.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations that break core invariants.
func (c Config) Validate() error {
	if c.Overrides.Divergence.Up <= c.Overrides.Divergence.Down {
		return fmt.Errorf("divergence hysteresis: up %.1f must exceed down %.1f", c.Overrides.Divergence.Up, c.Overrides.Divergence.Down)
	}
	if c.Budget.MinRisky <= 0 || c.Budget.MaxRisky > 1 || c.Budget.MinRisky >= c.Budget.MaxRisky {
		return fmt.Errorf("risk budget bounds [%.2f, %.2f] out of order", c.Budget.MinRisky, c.Budget.MaxRisky)
	}
	if c.Budget.CacheTTL < 0 {
		return fmt.Errorf("risk budget cache ttl must not be negative")
	}
	if c.Rules.MinRebalanceInterval < time.Hour {
		return fmt.Errorf("minimum rebalance interval %s implausibly short", c.Rules.MinRebalanceInterval)
	}
	if err := c.Biases.Presets().Validate(); err != nil {
		return err
	}

	// Range labels are integers in order; classification is half-open (a
	// band owns every score below the next band's Min), so the Min=prev
	// Max+1 labeling convention leaves no unclassifiable gap for
	// fractional scores.
	bands := []regime.Range{c.Ranges.Accumulation, c.Ranges.Expansion, c.Ranges.Euphoria, c.Ranges.Distribution}
	if bands[0].Min != 0 || bands[len(bands)-1].Max != 100 {
		return fmt.Errorf("regime ranges must span [0,100]")
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].Min != bands[i-1].Max+1 {
			return fmt.Errorf("regime ranges must be contiguous: band %d starts at %.0f after %.0f", i, bands[i].Min, bands[i-1].Max)
		}
	}
	return nil
}
