package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/steerfolio/steerfolio/internal/alloc"
	"github.com/steerfolio/steerfolio/internal/blend"
	"github.com/steerfolio/steerfolio/internal/cache"
	"github.com/steerfolio/steerfolio/internal/config"
	"github.com/steerfolio/steerfolio/internal/domain"
	"github.com/steerfolio/steerfolio/internal/plan"
	"github.com/steerfolio/steerfolio/internal/propose"
	"github.com/steerfolio/steerfolio/internal/regime"
	"github.com/steerfolio/steerfolio/internal/riskbudget"
	"github.com/steerfolio/steerfolio/internal/telemetry"
	"github.com/steerfolio/steerfolio/internal/validate"
)

// Inputs are the collaborator-supplied values for one decision cycle. The
// engine performs no I/O of its own.
type Inputs struct {
	CycleScore     float64              `yaml:"cycle_score" json:"cycle_score"`
	CyclePhase     string               `yaml:"cycle_phase" json:"cycle_phase"`
	OnchainScore   float64              `yaml:"onchain_score" json:"onchain_score"`
	Onchain        *propose.OnchainMeta `yaml:"onchain_meta" json:"onchain_meta,omitempty"`
	RiskScore      float64              `yaml:"risk_score" json:"risk_score"`
	Contradictions int                  `yaml:"contradictions" json:"contradictions"`

	CurrentAllocations map[string]float64 `yaml:"current_allocations" json:"current_allocations"`
	PortfolioValueUSD  *float64           `yaml:"portfolio_value_usd" json:"portfolio_value_usd,omitempty"`
	LastRebalance      *time.Time         `yaml:"last_rebalance" json:"last_rebalance,omitempty"`
	Drawdown           *float64           `yaml:"drawdown" json:"drawdown,omitempty"`
}

// RegimeDisplay is the regime panel consumed by display collaborators.
type RegimeDisplay struct {
	Regime          regime.Classification `json:"regime"`
	Description     string                `json:"description"`
	RiskBudget      riskbudget.Budget     `json:"risk_budget"`
	Allocation      domain.Targets        `json:"allocation"`
	Recommendations []string              `json:"recommendations"`
}

// Result aggregates everything one decision cycle produces.
type Result struct {
	ID             string                 `json:"id"`
	Decision       blend.Decision         `json:"decision"`
	Classification regime.Classification  `json:"classification"`
	Overrides      []regime.OverrideEvent `json:"overrides"`
	Budget         riskbudget.Budget      `json:"budget"`
	Proposal       propose.Proposal       `json:"proposal"`
	Validation     validate.Result        `json:"validation"`
	Plan           plan.Plan              `json:"plan"`
	Display        RegimeDisplay          `json:"display"`
}

// Engine wires the full decision pipeline. It is safe for concurrent use:
// the persistent override state is the only shared mutable piece and is
// guarded by a mutex.
type Engine struct {
	cfg config.Config

	classifier  *regime.Classifier
	overrides   *regime.OverrideEngine
	blender     *blend.Blender
	calculator  *riskbudget.Calculator
	distributor *alloc.Distributor
	proposer    *propose.Proposer
	validator   *validate.Validator
	planner     *plan.Planner

	mu       sync.Mutex
	state    regime.OverrideState
	lastSeen *regime.Regime

	budgetCache cache.Cache
	metrics     *telemetry.Metrics
	recorder    Recorder
	now         func() time.Time
}

// Recorder persists decision cycles; the history store implements it.
type Recorder interface {
	Save(ctx context.Context, rec HistoryRecord) error
}

// HistoryRecord mirrors the persisted audit row without importing the
// storage package here.
type HistoryRecord struct {
	ID             string
	CreatedAt      time.Time
	DecisionScore  float64
	Confidence     float64
	Regime         string
	Strategy       string
	Targets        domain.Targets
	Valid          bool
	BlockedReasons []string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRecorder attaches a decision history sink.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithClock injects a deterministic clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithBudgetCache backs the risk budget calculator with the given cache
// instead of the default in-process one.
func WithBudgetCache(c cache.Cache) Option {
	return func(e *Engine) { e.budgetCache = c }
}

// New assembles an engine from configuration.
func New(cfg config.Config, opts ...Option) *Engine {
	distributor := alloc.NewDistributor(cfg.Sleeves)
	e := &Engine{
		cfg:         cfg,
		classifier:  regime.NewClassifier(cfg.Ranges.Map()),
		overrides:   regime.NewOverrideEngine(cfg.Overrides),
		blender:     blend.NewBlender(),
		distributor: distributor,
		proposer:    propose.NewProposer(distributor, cfg.Biases.Presets()),
		planner:     plan.NewPlanner(),
		budgetCache: cache.NewMemory(256),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	// Clock-dependent collaborators are built after options so an injected
	// clock reaches them.
	e.calculator = riskbudget.NewCalculatorWithClock(cfg.Budget, e.budgetCache, e.now)
	e.validator = validate.NewValidatorWithClock(cfg.Rules, e.now)
	return e
}

// ResetOverrideState clears the persistent hysteresis flags (test
// isolation, session restarts).
func (e *Engine) ResetOverrideState() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Reset()
	e.lastSeen = nil
}

// Decide runs one full decision cycle with the default blend strategy.
func (e *Engine) Decide(ctx context.Context, in Inputs) Result {
	return e.DecideWith(ctx, propose.StrategyBlend, in)
}

// DecideWith runs one full decision cycle with an explicit strategy.
func (e *Engine) DecideWith(ctx context.Context, strategy propose.Strategy, in Inputs) Result {
	decision := e.blender.Blend(blend.Inputs{
		CycleScore:     in.CycleScore,
		OnchainScore:   in.OnchainScore,
		RiskScore:      in.RiskScore,
		Contradictions: in.Contradictions,
	})

	classification := e.classifier.Classify(decision.Score)

	e.mu.Lock()
	adjustments, events := e.overrides.Evaluate(&e.state, decision.Score, in.OnchainScore, in.RiskScore)
	e.trackRegimeChange(classification.Regime)
	e.mu.Unlock()

	budget := e.calculator.Compute(ctx, decision.Score, in.RiskScore)
	budget = applyAdjustments(budget, adjustments)

	proposal := e.proposer.Propose(strategy, propose.Inputs{
		Decision:       decision,
		Classification: classification,
		Budget:         &budget,
		Adjustments:    adjustments,
		CycleScore:     in.CycleScore,
		Onchain:        in.Onchain,
	})

	current := currentTargets(in.CurrentAllocations)
	validation := e.validator.Validate(current, proposal.Targets, validate.Options{
		OnchainScore:      &in.OnchainScore,
		Drawdown:          in.Drawdown,
		PortfolioValueUSD: in.PortfolioValueUSD,
		LastRebalance:     in.LastRebalance,
	})

	executionPlan := e.planner.Build(validation)

	result := Result{
		ID:             uuid.NewString(),
		Decision:       decision,
		Classification: classification,
		Overrides:      events,
		Budget:         budget,
		Proposal:       proposal,
		Validation:     validation,
		Plan:           executionPlan,
		Display: RegimeDisplay{
			Regime:          classification,
			Description:     classification.Regime.Description(),
			RiskBudget:      budget,
			Allocation:      proposal.Targets,
			Recommendations: validation.Recommendations,
		},
	}

	e.observe(result)
	e.record(ctx, result)

	log.Info().
		Str("id", result.ID).
		Float64("score", decision.Score).
		Str("regime", classification.Regime.String()).
		Str("strategy", proposal.Strategy).
		Bool("valid", validation.Valid).
		Bool("executable", executionPlan.Executable).
		Msg("decision cycle complete")

	return result
}

// trackRegimeChange counts transitions between consecutive cycles. Caller
// holds the mutex.
func (e *Engine) trackRegimeChange(current regime.Regime) {
	if e.lastSeen != nil && *e.lastSeen != current && e.metrics != nil {
		e.metrics.RegimeTransitions.WithLabelValues(e.lastSeen.String(), current.String()).Inc()
	}
	r := current
	e.lastSeen = &r
}

// applyAdjustments folds the override effects into the budget while
// keeping riskyPct+stablesPct exactly 100 and riskyPct at or above the
// formula floor of 20.
func applyAdjustments(b riskbudget.Budget, adj regime.Adjustments) riskbudget.Budget {
	risky := b.RiskyPct

	if adj.StablesBias > 0 {
		risky -= int(adj.StablesBias)
	}
	if adj.StablesFloorPct > 0 {
		if floor := 100 - int(adj.StablesFloorPct); risky > floor {
			risky = floor
		}
	}
	if risky < 20 {
		risky = 20
	}

	b.RiskyPct = risky
	b.StablesPct = 100 - risky
	return b
}

// currentTargets converts collaborator-supplied balances keyed by display
// name, dropping unknown groups rather than failing.
func currentTargets(raw map[string]float64) domain.Targets {
	targets := domain.NewTargets()
	for name, pct := range raw {
		g, err := domain.ParseGroup(name)
		if err != nil {
			log.Warn().Str("group", name).Msg("ignoring unknown allocation group")
			continue
		}
		targets[g] = pct
	}
	return targets
}

func (e *Engine) observe(res Result) {
	if e.metrics == nil {
		return
	}
	e.metrics.DecisionsTotal.WithLabelValues(res.Proposal.Strategy).Inc()
	if res.Proposal.Fallback {
		e.metrics.FallbacksTotal.WithLabelValues(res.Proposal.Strategy).Inc()
	}
	for _, ev := range res.Overrides {
		e.metrics.OverridesTotal.WithLabelValues(string(ev.Type)).Inc()
	}
	outcome := "valid"
	if !res.Validation.Valid {
		outcome = "blocked"
	}
	e.metrics.ValidationsTotal.WithLabelValues(outcome).Inc()
	e.metrics.BlendedScore.Set(res.Decision.Score)
	e.metrics.DecisionConfidence.Set(res.Decision.Confidence)
	e.metrics.RiskyPct.Set(float64(res.Budget.RiskyPct))
	if counted, ok := e.budgetCache.(interface{ Stats() cache.Stats }); ok {
		e.metrics.CacheHitRatio.Set(counted.Stats().HitRatio())
	}
}

func (e *Engine) record(ctx context.Context, res Result) {
	if e.recorder == nil {
		return
	}
	rec := HistoryRecord{
		ID:             res.ID,
		CreatedAt:      e.now().UTC(),
		DecisionScore:  res.Decision.Score,
		Confidence:     res.Decision.Confidence,
		Regime:         res.Classification.Regime.String(),
		Strategy:       res.Proposal.Strategy,
		Targets:        res.Proposal.Targets,
		Valid:          res.Validation.Valid,
		BlockedReasons: res.Validation.BlockedReasons,
	}
	if err := e.recorder.Save(ctx, rec); err != nil {
		log.Warn().Err(err).Str("id", res.ID).Msg("decision history save failed")
	}
}
