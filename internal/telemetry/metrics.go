package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus instrumentation. All collectors
// are registered on the registry passed to NewMetrics so tests can use an
// isolated registry.
type Metrics struct {
	DecisionsTotal     *prometheus.CounterVec
	FallbacksTotal     *prometheus.CounterVec
	OverridesTotal     *prometheus.CounterVec
	ValidationsTotal   *prometheus.CounterVec
	RegimeTransitions  *prometheus.CounterVec
	BlendedScore       prometheus.Gauge
	DecisionConfidence prometheus.Gauge
	RiskyPct           prometheus.Gauge
	CacheHitRatio      prometheus.Gauge
}

// NewMetrics creates and registers the engine collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steerfolio",
			Name:      "decisions_total",
			Help:      "Decision cycles computed, labeled by the strategy that produced the targets.",
		}, []string{"strategy"}),
		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steerfolio",
			Name:      "fallbacks_total",
			Help:      "Proposals served from a named fallback path instead of the requested strategy.",
		}, []string{"strategy"}),
		OverridesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steerfolio",
			Name:      "overrides_total",
			Help:      "Override rules fired, labeled by kind.",
		}, []string{"kind"}),
		ValidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steerfolio",
			Name:      "validations_total",
			Help:      "Rebalance validations, labeled by outcome.",
		}, []string{"outcome"}),
		RegimeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steerfolio",
			Name:      "regime_transitions_total",
			Help:      "Regime changes observed between consecutive decision cycles.",
		}, []string{"from", "to"}),
		BlendedScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "steerfolio",
			Name:      "blended_score",
			Help:      "Most recent blended decision score.",
		}),
		DecisionConfidence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "steerfolio",
			Name:      "decision_confidence",
			Help:      "Most recent decision confidence.",
		}),
		RiskyPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "steerfolio",
			Name:      "risky_pct",
			Help:      "Most recent risky sleeve percentage.",
		}),
		CacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "steerfolio",
			Name:      "riskbudget_cache_hit_ratio",
			Help:      "Hit ratio of the risk budget cache.",
		}),
	}

	reg.MustRegister(
		m.DecisionsTotal,
		m.FallbacksTotal,
		m.OverridesTotal,
		m.ValidationsTotal,
		m.RegimeTransitions,
		m.BlendedScore,
		m.DecisionConfidence,
		m.RiskyPct,
		m.CacheHitRatio,
	)
	return m
}
