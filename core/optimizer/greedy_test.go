package optimizer

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/fader2077/EcoGrid-AuditPredict/core/costs"
	"github.com/fader2077/EcoGrid-AuditPredict/core/model"
)

func mustHorizon(t *testing.T, netLoad, price []float64) *model.Horizon {
	t.Helper()
	h, err := model.NewHorizon(netLoad, price, 1.0, nil)
	if err != nil {
		t.Fatalf("horizon: %v", err)
	}
	return h
}

func testBattery() model.BatteryModel {
	return model.BatteryModel{
		CapacityKwh:         200,
		MaxChargeKw:         50,
		MaxDischargeKw:      50,
		ChargeEfficiency:    0.95,
		DischargeEfficiency: 0.95,
		SocMin:              0,
		SocMax:              1,
		SocInitial:          0.2,
	}
}

func flat(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestGreedyFlatTariffIdle(t *testing.T) {
	req := Request{
		Horizon:            mustHorizon(t, flat(6, 40), flat(6, 3)),
		Battery:            testBattery(),
		ContractCapacityKw: 200,
	}
	res, err := (&GreedySolver{}).Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != model.StatusOptimal {
		t.Fatalf("status = %v, want Optimal", res.Status)
	}
	for _, d := range res.Schedule {
		if d.ChargeKw != 0 || d.DischargeKw != 0 {
			t.Fatalf("step %d: flat tariff with losses must not move energy, got c=%g d=%g", d.T, d.ChargeKw, d.DischargeKw)
		}
	}
}

func TestGreedyTwoTierShifting(t *testing.T) {
	netLoad := flat(8, 50)
	price := []float64{2, 2, 2, 2, 9, 9, 9, 9}
	req := Request{
		Horizon:            mustHorizon(t, netLoad, price),
		Battery:            testBattery(),
		ContractCapacityKw: 200,
	}
	res, err := (&GreedySolver{}).Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != model.StatusOptimal {
		t.Fatalf("status = %v, want Optimal", res.Status)
	}
	if err := verifySchedule(req, res.Schedule, 1e-6); err != nil {
		t.Fatalf("schedule invalid: %v", err)
	}
	var cheapCharge, dearDischarge float64
	for _, d := range res.Schedule {
		if d.T < 4 {
			cheapCharge += d.ChargeKw
			if d.DischargeKw != 0 {
				t.Fatalf("step %d: discharge in the cheap window", d.T)
			}
		} else {
			dearDischarge += d.DischargeKw
			if d.ChargeKw != 0 {
				t.Fatalf("step %d: charge in the expensive window", d.T)
			}
		}
	}
	if cheapCharge == 0 || dearDischarge == 0 {
		t.Fatalf("no energy shifted: charge=%g discharge=%g", cheapCharge, dearDischarge)
	}
	m := costs.Evaluate(req.Horizon, res.Schedule)
	if m.OptimizedCost >= m.BaselineCost {
		t.Fatalf("optimized cost %g not below baseline %g", m.OptimizedCost, m.BaselineCost)
	}
}

func TestGreedySurplusAbsorption(t *testing.T) {
	req := Request{
		Horizon:            mustHorizon(t, []float64{-30, 40, 40}, []float64{1, 5, 5}),
		Battery:            testBattery(),
		ContractCapacityKw: 200,
	}
	res, err := (&GreedySolver{}).Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != model.StatusOptimal {
		t.Fatalf("status = %v, want Optimal", res.Status)
	}
	d0 := res.Schedule[0]
	if d0.ChargeKw < 30-1e-9 {
		t.Fatalf("surplus not absorbed: charge = %g", d0.ChargeKw)
	}
	if d0.GridKw < 0 {
		t.Fatalf("grid draw went negative: %g", d0.GridKw)
	}
}

func TestGreedySurplusBeyondChargePower(t *testing.T) {
	b := testBattery()
	b.MaxChargeKw = 10
	req := Request{
		Horizon:            mustHorizon(t, []float64{40, -30, 40}, flat(3, 3)),
		Battery:            b,
		ContractCapacityKw: 200,
	}
	res, err := (&GreedySolver{}).Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != model.StatusInfeasible {
		t.Fatalf("status = %v, want Infeasible", res.Status)
	}
	if res.ViolatingStep != 1 {
		t.Fatalf("violating step = %d, want 1", res.ViolatingStep)
	}
}

func TestGreedyPeakShaving(t *testing.T) {
	b := testBattery()
	b.SocInitial = 0
	b.MaxDischargeKw = 20
	req := Request{
		Horizon:            mustHorizon(t, []float64{0, 100}, flat(2, 3)),
		Battery:            b,
		ContractCapacityKw: 90,
	}
	res, err := (&GreedySolver{}).Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != model.StatusOptimal {
		t.Fatalf("status = %v, want Optimal", res.Status)
	}
	if err := verifySchedule(req, res.Schedule, 1e-6); err != nil {
		t.Fatalf("schedule invalid: %v", err)
	}
	if g := res.Schedule[1].GridKw; g > 90+1e-9 {
		t.Fatalf("peak not shaved: grid = %g", g)
	}
}

func TestGreedyCapacityInfeasible(t *testing.T) {
	b := testBattery()
	b.SocInitial = 0
	b.MaxDischargeKw = 20
	req := Request{
		Horizon:            mustHorizon(t, flat(4, 100), flat(4, 3)),
		Battery:            b,
		ContractCapacityKw: 10,
	}
	res, err := (&GreedySolver{}).Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != model.StatusInfeasible {
		t.Fatalf("status = %v, want Infeasible", res.Status)
	}
	if res.ViolatingStep != 0 {
		t.Fatalf("violating step = %d, want 0", res.ViolatingStep)
	}
	if res.MinFeasibleContractKw < 80 {
		t.Fatalf("min feasible %g below the discharge-limited bound 80", res.MinFeasibleContractKw)
	}
}

func TestGreedyTerminalFreeSpendsInventory(t *testing.T) {
	b := testBattery()
	b.CapacityKwh = 100
	b.SocInitial = 0.8
	b.SocMin = 0.2
	b.MaxDischargeKw = 30
	b.TerminalPolicy = model.TerminalFree
	req := Request{
		Horizon:            mustHorizon(t, []float64{50}, []float64{5}),
		Battery:            b,
		ContractCapacityKw: 200,
	}
	res, err := (&GreedySolver{}).Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != model.StatusOptimal {
		t.Fatalf("status = %v, want Optimal", res.Status)
	}
	if d := res.Schedule[0].DischargeKw; math.Abs(d-30) > 1e-6 {
		t.Fatalf("discharge = %g, want the full 30 kW from inventory", d)
	}
}

func TestGreedyTerminalAtLeastInitialHolds(t *testing.T) {
	req := Request{
		Horizon:            mustHorizon(t, flat(4, 50), []float64{2, 2, 9, 9}),
		Battery:            testBattery(),
		ContractCapacityKw: 200,
	}
	res, err := (&GreedySolver{}).Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	final := res.Schedule[len(res.Schedule)-1].SocAfter
	if final < req.Battery.SocInitial-1e-9 {
		t.Fatalf("final soc %g fell below initial %g", final, req.Battery.SocInitial)
	}
}

func TestGreedyAtLeastInitialSpendsSurplusInventory(t *testing.T) {
	req := Request{
		Horizon:            mustHorizon(t, []float64{-30, 40}, []float64{1, 5}),
		Battery:            testBattery(),
		ContractCapacityKw: 200,
	}
	res, err := (&GreedySolver{}).Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != model.StatusOptimal {
		t.Fatalf("status = %v, want Optimal", res.Status)
	}
	// The forced 30 kW absorption stores 28.5 kWh above the initial level.
	// Spent at step 1 alongside paired charging it covers the whole 40 kW
	// load, leaving only the paired grid draw at step 0.
	if g := res.Schedule[1].GridKw; g > 1e-6 {
		t.Fatalf("grid draw at expensive step = %g, want 0", g)
	}
	if d := res.Schedule[1].DischargeKw; math.Abs(d-40) > 1e-6 {
		t.Fatalf("discharge = %g, want 40", d)
	}
	final := res.Schedule[1].SocAfter
	if final < req.Battery.SocInitial-1e-9 {
		t.Fatalf("final soc %g fell below initial %g", final, req.Battery.SocInitial)
	}
	var cost float64
	for _, d := range res.Schedule {
		cost += math.Max(d.GridKw, 0) * req.Horizon.Step(d.T).PriceUnit
	}
	if cost > 15 {
		t.Fatalf("cost = %g, surplus inventory left stranded", cost)
	}
}

func TestGreedyTerminalEqualInitialRestored(t *testing.T) {
	b := testBattery()
	b.CapacityKwh = 100
	b.SocInitial = 0.5
	b.TerminalPolicy = model.TerminalEqualInitial
	req := Request{
		Horizon:            mustHorizon(t, []float64{-30, 40}, []float64{1, 5}),
		Battery:            b,
		ContractCapacityKw: 200,
	}
	res, err := (&GreedySolver{}).Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != model.StatusOptimal {
		t.Fatalf("status = %v, want Optimal", res.Status)
	}
	final := res.Schedule[len(res.Schedule)-1].SocAfter
	if math.Abs(final-0.5) > 1e-6 {
		t.Fatalf("final soc %g, want 0.5", final)
	}
}

func TestGreedyTerminalEqualInitialUnreachable(t *testing.T) {
	b := testBattery()
	b.CapacityKwh = 100
	b.SocInitial = 0.5
	b.TerminalPolicy = model.TerminalEqualInitial
	// The surplus charge cannot be dumped: the only later step draws 5 kW and
	// export is disallowed.
	req := Request{
		Horizon:            mustHorizon(t, []float64{-30, 5}, []float64{1, 5}),
		Battery:            b,
		ContractCapacityKw: 200,
	}
	res, err := (&GreedySolver{}).Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != model.StatusInfeasible {
		t.Fatalf("status = %v, want Infeasible", res.Status)
	}
	if res.ViolatingStep != 0 {
		t.Fatalf("violating step = %d, want the surplus step 0", res.ViolatingStep)
	}
}

func TestGreedyCancelledReturnsNoSchedule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := Request{
		Horizon:            mustHorizon(t, flat(4, 50), []float64{2, 2, 9, 9}),
		Battery:            testBattery(),
		ContractCapacityKw: 200,
	}
	res, err := (&GreedySolver{}).Solve(ctx, req)
	if err == nil {
		t.Fatal("expected a cancellation error")
	}
	if res.Status != model.StatusCancelled {
		t.Fatalf("status = %v, want Cancelled", res.Status)
	}
	if res.Schedule != nil {
		t.Fatal("cancelled solve must not return a schedule")
	}
}

func TestGreedyDeadlineReturnsFeasibleSchedule(t *testing.T) {
	req := Request{
		Horizon:            mustHorizon(t, flat(4, 50), []float64{2, 2, 9, 9}),
		Battery:            testBattery(),
		ContractCapacityKw: 200,
		Deadline:           time.Now().Add(-time.Second),
	}
	res, err := (&GreedySolver{}).Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != model.StatusTimeout {
		t.Fatalf("status = %v, want Timeout", res.Status)
	}
	if err := verifySchedule(req, res.Schedule, 1e-6); err != nil {
		t.Fatalf("timed-out schedule must still be feasible: %v", err)
	}
}

func TestGreedyPassLimitApproximate(t *testing.T) {
	req := Request{
		Horizon:            mustHorizon(t, flat(8, 50), []float64{2, 2, 2, 2, 9, 9, 9, 9}),
		Battery:            testBattery(),
		ContractCapacityKw: 200,
	}
	res, err := (&GreedySolver{MaxPasses: 1}).Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != model.StatusApproximate {
		t.Fatalf("status = %v, want Approximate after one pass", res.Status)
	}
	if err := verifySchedule(req, res.Schedule, 1e-6); err != nil {
		t.Fatalf("approximate schedule invalid: %v", err)
	}
	if res.OptimalityGap < 0 {
		t.Fatalf("gap = %g, want >= 0", res.OptimalityGap)
	}
}

func TestGreedyDeterministic(t *testing.T) {
	// Tied prices exercise the earliest-index tie-break.
	req := Request{
		Horizon:            mustHorizon(t, flat(8, 50), []float64{2, 2, 2, 2, 9, 9, 9, 9}),
		Battery:            testBattery(),
		ContractCapacityKw: 120,
	}
	first, err := (&GreedySolver{}).Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	second, err := (&GreedySolver{}).Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical requests produced different results")
	}
}

func TestGreedyCostMonotoneInCapacity(t *testing.T) {
	prev := math.Inf(1)
	for _, cap := range []float64{80, 100, 120, 200} {
		req := Request{
			Horizon:            mustHorizon(t, flat(4, 80), []float64{2, 2, 9, 9}),
			Battery:            testBattery(),
			ContractCapacityKw: cap,
		}
		res, err := (&GreedySolver{}).Solve(context.Background(), req)
		if err != nil {
			t.Fatalf("cap %g: %v", cap, err)
		}
		if res.Status != model.StatusOptimal {
			t.Fatalf("cap %g: status = %v", cap, res.Status)
		}
		cost := costs.Evaluate(req.Horizon, res.Schedule).OptimizedCost
		if cost > prev+1e-6 {
			t.Fatalf("cost rose from %g to %g as capacity grew to %g", prev, cost, cap)
		}
		prev = cost
	}
}
