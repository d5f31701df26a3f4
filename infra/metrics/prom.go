// Package metrics provides the Prometheus and InfluxDB implementations of the
// result sink, plus the event-bus collector that feeds them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/fader2077/EcoGrid-AuditPredict/core/metrics"
)

// PromSink records optimization outcomes as Prometheus metrics.
type PromSink struct {
	runs     *prometheus.CounterVec
	savings  prometheus.Counter
	duration *prometheus.HistogramVec
	peakCut  prometheus.Gauge
}

// NewPromSink registers the optimization collectors on the provided
// registerer. If reg is nil the default registerer is used. Collectors that
// are already registered are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optimization_runs_total",
		Help: "Total number of optimization runs",
	}, []string{"status", "solver"})
	savings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "optimization_savings_total",
		Help: "Cumulative cost savings across optimization runs",
	})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optimization_solve_duration_seconds",
		Help:    "Wall-clock time spent solving",
		Buckets: prometheus.DefBuckets,
	}, []string{"solver"})
	peakCut := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "optimization_last_peak_reduction_kw",
		Help: "Peak reduction achieved by the most recent run",
	})

	if err := reg.Register(runs); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			runs = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(savings); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			savings = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(peakCut); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			peakCut = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromSink{runs: runs, savings: savings, duration: duration, peakCut: peakCut}, nil
}

// RecordOptimization updates the collectors from the event.
func (s *PromSink) RecordOptimization(ev coremetrics.OptimizationEvent) error {
	s.runs.WithLabelValues(ev.Status.String(), ev.Solver).Inc()
	if ev.Savings > 0 {
		s.savings.Add(ev.Savings)
	}
	s.duration.WithLabelValues(ev.Solver).Observe(ev.SolveDuration.Seconds())
	s.peakCut.Set(ev.PeakBeforeKw - ev.PeakAfterKw)
	return nil
}
