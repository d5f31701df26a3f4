package optimizer

import (
	"fmt"

	"github.com/fader2077/EcoGrid-AuditPredict/core/model"
)

// verifySchedule checks every hard constraint of the request against the
// schedule within tolerance eps. It is the gate that keeps Timeout and
// Approximate results honest: a schedule that fails here is never returned.
func verifySchedule(req Request, s model.Schedule, eps float64) error {
	hz := req.Horizon
	if len(s) != hz.Len() {
		return fmt.Errorf("schedule length %d does not match horizon length %d", len(s), hz.Len())
	}
	b := req.Battery
	soc := b.SocInitial
	lossy := !b.Lossless()
	for t, d := range s {
		step := hz.Step(t)
		if d.ChargeKw < -eps || d.ChargeKw > b.MaxChargeKw+eps {
			return fmt.Errorf("step %d: charge %g outside [0, %g]", t, d.ChargeKw, b.MaxChargeKw)
		}
		if d.DischargeKw < -eps || d.DischargeKw > b.MaxDischargeKw+eps {
			return fmt.Errorf("step %d: discharge %g outside [0, %g]", t, d.DischargeKw, b.MaxDischargeKw)
		}
		if lossy && d.ChargeKw*d.DischargeKw > eps {
			return fmt.Errorf("step %d: simultaneous charge %g and discharge %g", t, d.ChargeKw, d.DischargeKw)
		}
		want := step.NetLoadKw + d.ChargeKw - d.DischargeKw
		if diff := d.GridKw - want; diff > eps || diff < -eps {
			return fmt.Errorf("step %d: energy balance off by %g", t, diff)
		}
		if d.GridKw > req.ContractCapacityKw+eps {
			return fmt.Errorf("step %d: grid %g exceeds contract capacity %g", t, d.GridKw, req.ContractCapacityKw)
		}
		if !req.AllowExport && d.GridKw < -eps {
			return fmt.Errorf("step %d: grid %g negative with export disabled", t, d.GridKw)
		}
		soc += (d.ChargeKw*b.ChargeEfficiency - d.DischargeKw/b.DischargeEfficiency) * step.DtHours / b.CapacityKwh
		if diff := d.SocAfter - soc; diff > eps || diff < -eps {
			return fmt.Errorf("step %d: soc %g does not follow the update equation (want %g)", t, d.SocAfter, soc)
		}
		if d.SocAfter < b.SocMin-eps || d.SocAfter > b.SocMax+eps {
			return fmt.Errorf("step %d: soc %g outside [%g, %g]", t, d.SocAfter, b.SocMin, b.SocMax)
		}
	}
	final := s[len(s)-1].SocAfter
	switch b.TerminalPolicy {
	case model.TerminalAtLeastInitial:
		if final < b.SocInitial-eps {
			return fmt.Errorf("terminal soc %g below initial %g", final, b.SocInitial)
		}
	case model.TerminalEqualInitial:
		if diff := final - b.SocInitial; diff > eps || diff < -eps {
			return fmt.Errorf("terminal soc %g differs from initial %g", final, b.SocInitial)
		}
	}
	return nil
}

// diagnoseInfeasible locates the first step whose bounds cannot be met by
// any dispatch and estimates the smallest contract capacity that would. The
// estimate ignores SOC coupling; the repair layer refines it by re-solving.
func diagnoseInfeasible(req Request) (step int, minCapKw float64) {
	hz := req.Horizon
	b := req.Battery
	step = -1
	for t := 0; t < hz.Len(); t++ {
		load := hz.Step(t).NetLoadKw
		if load < 0 && !req.AllowExport && -load > b.MaxChargeKw {
			if step == -1 {
				step = t
			}
			continue
		}
		if need := load - b.MaxDischargeKw; need > req.ContractCapacityKw {
			if step == -1 {
				step = t
			}
			if need > minCapKw {
				minCapKw = need
			}
		}
	}
	if step == -1 {
		step = 0
	}
	return step, minCapKw
}
