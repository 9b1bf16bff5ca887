// Package metrics provides a prometheus observation hook for guard.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ruleshq/guard"
	"github.com/ruleshq/guard/hook"
)

// Compile-time interface checks.
var (
	_ hook.Hook           = (*Observer)(nil)
	_ hook.AfterCheck     = (*Observer)(nil)
	_ hook.DenialObserved = (*Observer)(nil)
)

// Observer counts checks and denials per predicate and observes evaluation
// latency. Register it with guard.WithHook.
type Observer struct {
	checks   *prometheus.CounterVec
	denials  *prometheus.CounterVec
	evalTime *prometheus.HistogramVec
}

// New creates an Observer registered into reg. A nil reg uses a private
// registry that is not exposed anywhere, useful in tests.
func New(reg prometheus.Registerer) *Observer {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Observer{
		checks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "guard_checks_total",
			Help: "Total number of predicate evaluations.",
		}, []string{"predicate", "decision"}),

		denials: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "guard_denials_total",
			Help: "Total number of enforcement denials dispatched to a failure handler.",
		}, []string{"predicate"}),

		evalTime: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "guard_eval_duration_seconds",
			Help:    "Histogram of predicate evaluation latencies.",
			Buckets: []float64{.000001, .00001, .0001, .001, .01, .1, 1},
		}, []string{"predicate"}),
	}
}

// Name implements hook.Hook.
func (o *Observer) Name() string { return "metrics" }

// OnAfterCheck implements hook.AfterCheck.
func (o *Observer) OnAfterCheck(_ context.Context, info any) error {
	ci, ok := info.(*guard.CheckInfo)
	if !ok {
		return nil
	}
	decision := "deny"
	if ci.Allowed {
		decision = "allow"
	}
	o.checks.WithLabelValues(ci.Predicate, decision).Inc()
	o.evalTime.WithLabelValues(ci.Predicate).Observe(ci.EvalTime.Seconds())
	return nil
}

// OnDenial implements hook.DenialObserved.
func (o *Observer) OnDenial(_ context.Context, info any) error {
	ci, ok := info.(*guard.CheckInfo)
	if !ok {
		return nil
	}
	o.denials.WithLabelValues(ci.Predicate).Inc()
	return nil
}
