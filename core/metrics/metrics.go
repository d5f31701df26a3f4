// Package metrics defines the optimization events recorded for observability
// and the sink abstraction that receives them.
package metrics

import (
	"time"

	"github.com/fader2077/EcoGrid-AuditPredict/core/model"
)

// OptimizationEvent summarizes one completed optimization run.
type OptimizationEvent struct {
	RequestID     string
	Solver        string
	Status        model.Status
	HorizonSteps  int
	BaselineCost  float64
	OptimizedCost float64
	Savings       float64
	PeakBeforeKw  float64
	PeakAfterKw   float64
	SolveDuration time.Duration
	Time          time.Time
}

// ResultSink records optimization events.
type ResultSink interface {
	RecordOptimization(ev OptimizationEvent) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordOptimization(OptimizationEvent) error { return nil }

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []ResultSink
}

// NewMultiSink creates a MultiSink over the provided sinks.
func NewMultiSink(sinks ...ResultSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordOptimization forwards the event to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordOptimization(ev OptimizationEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordOptimization(ev); err != nil {
			return err
		}
	}
	return nil
}
