package optimizer

import (
	"context"
	"testing"

	"github.com/fader2077/EcoGrid-AuditPredict/core/model"
)

func TestVerifyScheduleRejectsTampering(t *testing.T) {
	req := Request{
		Horizon:            mustHorizon(t, flat(4, 50), []float64{2, 2, 9, 9}),
		Battery:            testBattery(),
		ContractCapacityKw: 120,
	}
	res, err := (&GreedySolver{}).Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if err := verifySchedule(req, res.Schedule, 1e-6); err != nil {
		t.Fatalf("valid schedule rejected: %v", err)
	}

	tamper := func(name string, mutate func(s model.Schedule)) {
		s := make(model.Schedule, len(res.Schedule))
		copy(s, res.Schedule)
		mutate(s)
		if err := verifySchedule(req, s, 1e-6); err == nil {
			t.Errorf("%s: tampered schedule accepted", name)
		}
	}
	tamper("energy balance", func(s model.Schedule) { s[0].GridKw += 1 })
	tamper("capacity", func(s model.Schedule) {
		s[1].ChargeKw += 200
		s[1].GridKw += 200
	})
	tamper("soc recurrence", func(s model.Schedule) { s[2].SocAfter += 0.1 })
	tamper("negative discharge", func(s model.Schedule) {
		s[3].DischargeKw = -5
		s[3].GridKw += 5
	})
	if err := verifySchedule(req, res.Schedule[:2], 1e-6); err == nil {
		t.Error("short schedule accepted")
	}
}

func TestVerifyScheduleTerminalPolicies(t *testing.T) {
	b := testBattery()
	b.CapacityKwh = 100
	b.SocInitial = 0.5
	req := Request{
		Horizon:            mustHorizon(t, []float64{50}, []float64{3}),
		Battery:            b,
		ContractCapacityKw: 200,
	}
	// Discharging 19 kW for an hour ends below the initial SOC.
	drained := model.Schedule{{T: 0, DischargeKw: 19, GridKw: 31, SocAfter: 0.5 - 19/0.95/100}}
	if err := verifySchedule(req, drained, 1e-6); err == nil {
		t.Error("AtLeastInitial must reject a drained terminal SOC")
	}
	req.Battery.TerminalPolicy = model.TerminalFree
	if err := verifySchedule(req, drained, 1e-6); err != nil {
		t.Errorf("Free policy rejected a drained terminal SOC: %v", err)
	}
}

func TestVerifyScheduleLossySimultaneity(t *testing.T) {
	req := Request{
		Horizon:            mustHorizon(t, []float64{50}, []float64{3}),
		Battery:            testBattery(),
		ContractCapacityKw: 200,
	}
	s := model.Schedule{{T: 0, ChargeKw: 10, DischargeKw: 10, GridKw: 50, SocAfter: 0.2 + (10*0.95-10/0.95)/200}}
	if err := verifySchedule(req, s, 1e-6); err == nil {
		t.Error("lossy battery must not charge and discharge in the same step")
	}
}

func TestDiagnoseInfeasible(t *testing.T) {
	b := testBattery()
	b.MaxDischargeKw = 20
	req := Request{
		Horizon:            mustHorizon(t, []float64{30, 100, 120}, flat(3, 3)),
		Battery:            b,
		ContractCapacityKw: 50,
	}
	step, minCap := diagnoseInfeasible(req)
	if step != 1 {
		t.Fatalf("step = %d, want 1", step)
	}
	if minCap != 100 {
		t.Fatalf("min cap = %g, want 120-20", minCap)
	}

	b.MaxChargeKw = 10
	surplus := Request{
		Horizon:            mustHorizon(t, []float64{-60, 30}, flat(2, 3)),
		Battery:            b,
		ContractCapacityKw: 50,
	}
	step, minCap = diagnoseInfeasible(surplus)
	if step != 0 || minCap != 0 {
		t.Fatalf("surplus diagnosis = (%d, %g), want (0, 0)", step, minCap)
	}
}
