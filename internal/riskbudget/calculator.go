package riskbudget

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/steerfolio/steerfolio/internal/cache"
	"github.com/steerfolio/steerfolio/internal/domain"
)

// Budget is the risky/stable exposure split derived from the blended and
// risk scores. RiskyPct and StablesPct always sum to exactly 100: only the
// risky side is rounded, the stable side is its complement.
type Budget struct {
	RiskCap     float64   `json:"risk_cap"`
	BaseRisky   float64   `json:"base_risky"`
	Risky       float64   `json:"risky"`
	RiskyPct    int       `json:"risky_pct"`
	StablesPct  int       `json:"stables_pct"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Config bounds the budget formula.
type Config struct {
	MinRisky    float64       `yaml:"min_risky"`
	MaxRisky    float64       `yaml:"max_risky"`
	ScoreFloor  float64       `yaml:"score_floor"`
	ScoreRange  float64       `yaml:"score_range"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	CachePrefix string        `yaml:"cache_prefix"`
}

// DefaultConfig returns the production budget bounds: risky exposure is
// clamped to [20%, 85%], the blended score starts contributing above 35
// and saturates at 80, and budgets are memoized for 30 seconds.
func DefaultConfig() Config {
	return Config{
		MinRisky:    0.20,
		MaxRisky:    0.85,
		ScoreFloor:  35,
		ScoreRange:  45,
		CacheTTL:    30 * time.Second,
		CachePrefix: "riskbudget",
	}
}

// Calculator derives budgets, memoizing by rounded inputs. The cache is
// advisory: a failed lookup or store never fails the computation.
type Calculator struct {
	cfg   Config
	cache cache.Cache
	now   func() time.Time
}

// NewCalculator builds a calculator. A nil cache disables memoization.
func NewCalculator(cfg Config, c cache.Cache) *Calculator {
	return &Calculator{cfg: cfg, cache: c, now: time.Now}
}

// NewCalculatorWithClock injects a clock for deterministic GeneratedAt
// stamps in tests.
func NewCalculatorWithClock(cfg Config, c cache.Cache, now func() time.Time) *Calculator {
	calc := NewCalculator(cfg, c)
	calc.now = now
	return calc
}

// Compute returns the budget for the given blended and risk scores.
// Identical rounded inputs within the TTL return the identical cached
// budget.
func (c *Calculator) Compute(ctx context.Context, blended, risk float64) Budget {
	key := c.cacheKey(blended, risk)

	if c.cache != nil {
		if raw, ok, err := c.cache.Get(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("risk budget cache lookup failed, recomputing")
		} else if ok {
			var cached Budget
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached
			}
			log.Warn().Str("key", key).Msg("risk budget cache entry corrupt, recomputing")
		}
	}

	budget := c.compute(blended, risk)

	if c.cache != nil {
		if raw, err := json.Marshal(budget); err == nil {
			if err := c.cache.Set(ctx, key, raw, c.cfg.CacheTTL); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("risk budget cache store failed")
			}
		}
	}

	return budget
}

// compute is the pure budget formula.
func (c *Calculator) compute(blended, risk float64) Budget {
	riskCap := 1 - 0.5*(domain.Clamp(risk, 0, 100)/100)
	baseRisky := domain.Clamp((blended-c.cfg.ScoreFloor)/c.cfg.ScoreRange, 0, 1)
	risky := domain.Clamp(baseRisky*riskCap, c.cfg.MinRisky, c.cfg.MaxRisky)

	riskyPct := int(math.Round(risky * 100))

	return Budget{
		RiskCap:     riskCap,
		BaseRisky:   baseRisky,
		Risky:       risky,
		RiskyPct:    riskyPct,
		StablesPct:  100 - riskyPct,
		GeneratedAt: c.now().UTC(),
	}
}

// cacheKey rounds both inputs to integers so near-identical readings share
// one memoized budget.
func (c *Calculator) cacheKey(blended, risk float64) string {
	return fmt.Sprintf("%s:%d-%d", c.cfg.CachePrefix, int(math.Round(blended)), int(math.Round(risk)))
}
