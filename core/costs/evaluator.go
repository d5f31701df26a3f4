// Package costs derives economic metrics from a dispatch schedule: baseline
// versus optimized cost, savings and peak reduction.
package costs

import "github.com/fader2077/EcoGrid-AuditPredict/core/model"

// Metrics summarizes the economics of a schedule against the no-battery
// baseline.
type Metrics struct {
	BaselineCost     float64
	OptimizedCost    float64
	Savings          float64
	SavingsPct       float64
	PeakBefore       float64
	PeakAfter        float64
	PeakReductionPct float64
}

// Evaluate computes metrics for the schedule. The baseline assumes no battery
// and no export: grid draw is the positive part of net load. A nil schedule
// (no feasible plan) evaluates to the baseline itself.
func Evaluate(h *model.Horizon, s model.Schedule) Metrics {
	m := Metrics{}
	for i := 0; i < h.Len(); i++ {
		step := h.Step(i)
		draw := step.NetLoadKw
		if draw < 0 {
			draw = 0
		}
		m.BaselineCost += step.PriceUnit * draw * step.DtHours
	}
	m.PeakBefore = h.PeakNetLoadKw()

	if len(s) == 0 {
		m.OptimizedCost = m.BaselineCost
		m.PeakAfter = m.PeakBefore
		return m
	}

	for i, d := range s {
		step := h.Step(i)
		m.OptimizedCost += step.PriceUnit * d.GridKw * step.DtHours
		if i == 0 || d.GridKw > m.PeakAfter {
			m.PeakAfter = d.GridKw
		}
	}
	m.Savings = m.BaselineCost - m.OptimizedCost
	if m.BaselineCost > 0 {
		m.SavingsPct = m.Savings / m.BaselineCost
	}
	if m.PeakBefore > 0 {
		m.PeakReductionPct = (m.PeakBefore - m.PeakAfter) / m.PeakBefore
	}
	return m
}
