// Package metrics exposes evaluation telemetry as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solatis/advisor/internal/types"
)

// EvaluationMetrics records engine passes. It implements rules.Observer.
//
// Metrics:
//   - advisor_evaluations_total: evaluation passes completed
//   - advisor_evaluation_duration_seconds: wall time per pass
//   - advisor_rules_evaluated_total: enabled rules attempted
//   - advisor_rules_matched_total: advisories produced, by severity and advisory type
//   - advisor_rule_errors_total: rules skipped because they could not be evaluated
//   - advisor_evaluations_truncated_total: passes cut short by a deadline
type EvaluationMetrics struct {
	evaluationsTotal   prometheus.Counter
	evaluationDuration prometheus.Histogram
	rulesEvaluated     prometheus.Counter
	rulesMatched       *prometheus.CounterVec
	ruleErrors         prometheus.Counter
	truncatedTotal     prometheus.Counter
}

// NewEvaluationMetrics creates and registers evaluation metrics with registry.
func NewEvaluationMetrics(registry prometheus.Registerer) *EvaluationMetrics {
	m := &EvaluationMetrics{
		evaluationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "advisor",
			Name:      "evaluations_total",
			Help:      "Total number of evaluation passes",
		}),
		evaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "advisor",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of evaluation passes in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
		}),
		rulesEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "advisor",
			Name:      "rules_evaluated_total",
			Help:      "Total number of enabled rules attempted",
		}),
		rulesMatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisor",
			Name:      "rules_matched_total",
			Help:      "Total number of advisories produced",
		}, []string{"severity", "advisory_type"}),
		ruleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "advisor",
			Name:      "rule_errors_total",
			Help:      "Total number of rules that could not be evaluated",
		}),
		truncatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "advisor",
			Name:      "evaluations_truncated_total",
			Help:      "Total number of evaluation passes cut short by a deadline",
		}),
	}

	registry.MustRegister(
		m.evaluationsTotal,
		m.evaluationDuration,
		m.rulesEvaluated,
		m.rulesMatched,
		m.ruleErrors,
		m.truncatedTotal,
	)

	return m
}

// ObserveEvaluation records one completed pass.
func (m *EvaluationMetrics) ObserveEvaluation(result *types.EvaluationResult, elapsed time.Duration) {
	m.evaluationsTotal.Inc()
	m.evaluationDuration.Observe(elapsed.Seconds())
	m.rulesEvaluated.Add(float64(result.RulesEvaluated))
	for i := range result.Advisories {
		adv := &result.Advisories[i]
		m.rulesMatched.WithLabelValues(string(adv.Severity), string(adv.AdvisoryType)).Inc()
	}
	if result.Truncated {
		m.truncatedTotal.Inc()
	}
}

// ObserveRuleError records a rule that could not be evaluated.
func (m *EvaluationMetrics) ObserveRuleError(string, error) {
	m.ruleErrors.Inc()
}

// Handler returns the Prometheus exposition handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
