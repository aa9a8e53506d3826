// Package metrics exposes Prometheus collectors for plan sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stowage"

// Operation labels.
const (
	OpValidate = "validate"
	OpMove     = "move"
)

// Result labels.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultOK       = "ok"
	ResultFailed   = "failed"
	ResultWarning  = "warning"
)

// =============================================================================
// Collectors
// =============================================================================

// Metrics groups the collectors updated by sessions.
type Metrics struct {
	// DecisionsTotal counts validation outcomes.
	// Labels: op (validate, move), result (accepted, rejected), reason
	DecisionsTotal *prometheus.CounterVec

	// MovesApplied counts moves committed to a grid.
	MovesApplied prometheus.Counter

	// ReStowsTotal counts re-stows caused by applied moves.
	ReStowsTotal prometheus.Counter

	// MoveDuration measures validate-and-apply latency inside the plan lock.
	MoveDuration prometheus.Histogram

	// PlansLoaded tracks plans currently held in memory.
	PlansLoaded prometheus.Gauge

	// JournalErrors counts move journal writes that failed.
	JournalErrors prometheus.Counter

	// IntegrityChecks counts background grid invariant checks.
	// Labels: result (ok, failed)
	IntegrityChecks *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg uses a private registry so
// that tests and offline tools never touch the global one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		DecisionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Move validation outcomes by operation, result and rejection reason",
		}, []string{"op", "result", "reason"}),

		MovesApplied: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_applied_total",
			Help:      "Moves committed to a plan",
		}),

		ReStowsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restows_total",
			Help:      "Re-stows caused by applied moves",
		}),

		MoveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "move_duration_seconds",
			Help:      "Time spent validating and applying a move",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),

		PlansLoaded: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plans_loaded",
			Help:      "Plans currently held in memory",
		}),

		JournalErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_errors_total",
			Help:      "Move journal writes that failed",
		}),

		IntegrityChecks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_checks_total",
			Help:      "Background plan checks by result (ok, failed, warning)",
		}, []string{"result"}),
	}
}

// RecordDecision counts one validation outcome. reason is empty when accepted.
func (m *Metrics) RecordDecision(op string, accepted bool, reason string) {
	result := ResultAccepted
	if !accepted {
		result = ResultRejected
	}
	m.DecisionsTotal.WithLabelValues(op, result, reason).Inc()
}

// RecordApplied counts a committed move and its re-stows.
func (m *Metrics) RecordApplied(restows int, took time.Duration) {
	m.MovesApplied.Inc()
	m.ReStowsTotal.Add(float64(restows))
	m.MoveDuration.Observe(took.Seconds())
}

// RecordIntegrity counts one invariant check of a plan.
func (m *Metrics) RecordIntegrity(ok bool) {
	result := ResultOK
	if !ok {
		result = ResultFailed
	}
	m.IntegrityChecks.WithLabelValues(result).Inc()
}

// RecordPlacementWarning counts a plan whose standing placement breaks a
// stacking rule.
func (m *Metrics) RecordPlacementWarning() {
	m.IntegrityChecks.WithLabelValues(ResultWarning).Inc()
}
