package costs

import (
	"math"
	"testing"

	"github.com/fader2077/EcoGrid-AuditPredict/core/model"
)

func mustHorizon(t *testing.T, netLoad, price []float64, tiers []string) *model.Horizon {
	t.Helper()
	h, err := model.NewHorizon(netLoad, price, 1.0, tiers)
	if err != nil {
		t.Fatalf("horizon: %v", err)
	}
	return h
}

func TestEvaluateBaselineIgnoresSurplus(t *testing.T) {
	h := mustHorizon(t, []float64{50, -20, 30}, []float64{2, 2, 4}, nil)
	m := Evaluate(h, nil)
	// Surplus steps contribute nothing to the no-battery baseline.
	if want := 50*2 + 30*4.0; math.Abs(m.BaselineCost-want) > 1e-9 {
		t.Fatalf("baseline = %g, want %g", m.BaselineCost, want)
	}
	if m.OptimizedCost != m.BaselineCost {
		t.Fatalf("nil schedule must evaluate to the baseline, got %g", m.OptimizedCost)
	}
	if m.PeakAfter != m.PeakBefore {
		t.Fatalf("nil schedule must keep the baseline peak, got %g vs %g", m.PeakAfter, m.PeakBefore)
	}
	if m.Savings != 0 || m.SavingsPct != 0 {
		t.Fatalf("nil schedule must report zero savings, got %g (%g%%)", m.Savings, m.SavingsPct)
	}
}

func TestEvaluateSchedule(t *testing.T) {
	h := mustHorizon(t, []float64{40, 40}, []float64{2, 8}, nil)
	s := model.Schedule{
		{T: 0, ChargeKw: 10, GridKw: 50, SocAfter: 0.5},
		{T: 1, DischargeKw: 10, GridKw: 30, SocAfter: 0.4},
	}
	m := Evaluate(h, s)
	if want := 40*2 + 40*8.0; math.Abs(m.BaselineCost-want) > 1e-9 {
		t.Fatalf("baseline = %g, want %g", m.BaselineCost, want)
	}
	if want := 50*2 + 30*8.0; math.Abs(m.OptimizedCost-want) > 1e-9 {
		t.Fatalf("optimized = %g, want %g", m.OptimizedCost, want)
	}
	if math.Abs(m.Savings-60) > 1e-9 {
		t.Fatalf("savings = %g, want 60", m.Savings)
	}
	if math.Abs(m.PeakBefore-40) > 1e-9 || math.Abs(m.PeakAfter-50) > 1e-9 {
		t.Fatalf("peaks = %g -> %g, want 40 -> 50", m.PeakBefore, m.PeakAfter)
	}
}

func TestEvaluateZeroBaselineGuards(t *testing.T) {
	h := mustHorizon(t, []float64{-10, -10}, []float64{2, 2}, nil)
	s := model.Schedule{
		{T: 0, ChargeKw: 10, GridKw: 0, SocAfter: 0.5},
		{T: 1, ChargeKw: 10, GridKw: 0, SocAfter: 0.6},
	}
	m := Evaluate(h, s)
	if m.BaselineCost != 0 {
		t.Fatalf("baseline = %g, want 0", m.BaselineCost)
	}
	if m.SavingsPct != 0 {
		t.Fatalf("savings pct must stay 0 on a zero baseline, got %g", m.SavingsPct)
	}
	if m.PeakReductionPct != 0 {
		t.Fatalf("peak reduction pct must stay 0 on a non-positive peak, got %g", m.PeakReductionPct)
	}
}
