package optimizer

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	corelogger "github.com/fader2077/EcoGrid-AuditPredict/core/logger"
	"github.com/fader2077/EcoGrid-AuditPredict/core/model"
)

// LPSolver formulates the dispatch problem as a linear program and solves it
// with the simplex method. It covers the general objective, including demand
// charges (via an auxiliary peak variable) and grid export. Simultaneous
// charge and discharge is never cost-minimal when the round trip is lossy
// and a legal dispatch exists; overlap in a lossy optimum therefore signals
// surplus the battery cannot hold. In the lossless edge case the solution is
// netted explicitly.
//
// Variable layout: x = [charge_0..charge_{N-1}, discharge_0..discharge_{N-1}, peak?].
type LPSolver struct {
	Tol float64
	Log corelogger.Logger
}

// lpSolve points to the simplex call so tests can simulate solver failures.
var lpSolve = runSimplex

func runSimplex(obj []float64, g *mat.Dense, h []float64, tol float64) ([]float64, error) {
	cStd, aStd, bStd := lp.Convert(obj, g, h, nil, nil)
	_, xStd, err := lp.Simplex(cStd, aStd, bStd, tol, nil)
	if err != nil {
		return nil, err
	}
	// Convert splits each free variable v into v⁺ - v⁻; recover the
	// original vector from the standard-form solution.
	x := make([]float64, len(obj))
	for i := range x {
		x[i] = xStd[i] - xStd[len(obj)+i]
	}
	return x, nil
}

// Solve implements Solver.
func (s *LPSolver) Solve(ctx context.Context, req Request) (SolveResult, error) {
	if err := ctx.Err(); err != nil {
		return SolveResult{Status: model.StatusCancelled, ViolatingStep: -1}, err
	}
	if req.expired() {
		return SolveResult{Status: model.StatusTimeout, ViolatingStep: -1}, nil
	}

	obj, g, h := buildProgram(req)
	tol := s.Tol
	if tol <= 0 {
		tol = 1e-7
	}
	x, err := lpSolve(obj, g, h, tol)
	if cerr := ctx.Err(); cerr != nil {
		// The simplex ran to completion but the caller has moved on.
		return SolveResult{Status: model.StatusCancelled, ViolatingStep: -1}, cerr
	}
	if err != nil {
		if err == lp.ErrInfeasible {
			step, minCap := diagnoseInfeasible(req)
			return SolveResult{Status: model.StatusInfeasible, ViolatingStep: step, MinFeasibleContractKw: minCap}, nil
		}
		return SolveResult{Status: model.StatusTimeout, ViolatingStep: -1}, fmt.Errorf("simplex: %w", err)
	}

	sched := scheduleFromVariables(req, x)
	if err := verifySchedule(req, sched, 1e-6); err != nil {
		// A lossy optimum that overlaps charge and discharge is burning
		// energy. Netting the overlap keeps grid flows and cost intact but
		// raises the stored path; if the netted schedule verifies the
		// overlap was degenerate, otherwise the battery cannot hold the
		// surplus and no dispatch exists at any contract capacity.
		if step, ok := overlapStep(sched, 1e-6); ok {
			netted := netOverlap(req, sched)
			if verr := verifySchedule(req, netted, 1e-6); verr == nil {
				return SolveResult{Status: model.StatusOptimal, Schedule: netted, ViolatingStep: -1}, nil
			}
			return SolveResult{Status: model.StatusInfeasible, ViolatingStep: surplusStepNear(req, step)}, nil
		}
		return SolveResult{Status: model.StatusTimeout, ViolatingStep: -1}, fmt.Errorf("lp solution rejected: %w", err)
	}
	return SolveResult{Status: model.StatusOptimal, Schedule: sched, ViolatingStep: -1}, nil
}

// overlapStep reports the first step with simultaneous charge and discharge.
func overlapStep(sched model.Schedule, eps float64) (int, bool) {
	for _, d := range sched {
		if d.ChargeKw > eps && d.DischargeKw > eps {
			return d.T, true
		}
	}
	return -1, false
}

// netOverlap subtracts the overlapping flow from each step and rebuilds the
// SOC trajectory. Grid draws are unchanged.
func netOverlap(req Request, sched model.Schedule) model.Schedule {
	b := req.Battery
	out := make(model.Schedule, len(sched))
	soc := b.SocInitial
	for t, d := range sched {
		if m := math.Min(d.ChargeKw, d.DischargeKw); m > 0 {
			d.ChargeKw -= m
			d.DischargeKw -= m
		}
		dt := req.Horizon.Step(t).DtHours
		soc += (d.ChargeKw*b.ChargeEfficiency - d.DischargeKw/b.DischargeEfficiency) * dt / b.CapacityKwh
		d.SocAfter = soc
		out[t] = d
	}
	return out
}

// surplusStepNear walks back from step to the nearest surplus step, the one
// forcing the charge the battery cannot hold. Falls back to step itself.
func surplusStepNear(req Request, step int) int {
	for t := step; t >= 0; t-- {
		if req.Horizon.Step(t).NetLoadKw < 0 {
			return t
		}
	}
	return step
}

// buildProgram assembles the inequality system G·x ≤ h and the objective.
func buildProgram(req Request) (obj []float64, g *mat.Dense, h []float64) {
	hz := req.Horizon
	n := hz.Len()
	b := req.Battery
	demand := req.DemandChargeRate > 0
	nVar := 2 * n
	if demand {
		nVar++
	}
	peakVar := 2 * n

	obj = make([]float64, nVar)
	for t := 0; t < n; t++ {
		step := hz.Step(t)
		obj[t] = step.PriceUnit * step.DtHours
		obj[n+t] = -step.PriceUnit * step.DtHours
	}
	if demand {
		obj[peakVar] = req.DemandChargeRate
	}

	var rows [][]float64
	var rhs []float64
	addRow := func(coef map[int]float64, bound float64) {
		row := make([]float64, nVar)
		for i, v := range coef {
			row[i] = v
		}
		rows = append(rows, row)
		rhs = append(rhs, bound)
	}

	for t := 0; t < n; t++ {
		step := hz.Step(t)
		// Variable bounds. Convert treats x as free, so nonnegativity is
		// explicit.
		addRow(map[int]float64{t: -1}, 0)
		addRow(map[int]float64{n + t: -1}, 0)
		addRow(map[int]float64{t: 1}, b.MaxChargeKw)
		addRow(map[int]float64{n + t: 1}, b.MaxDischargeKw)
		// Contract capacity ceiling on grid draw.
		addRow(map[int]float64{t: 1, n + t: -1}, req.ContractCapacityKw-step.NetLoadKw)
		if !req.AllowExport {
			// Grid draw may not go negative.
			addRow(map[int]float64{t: -1, n + t: 1}, step.NetLoadKw)
		}
		if demand {
			// peak ≥ grid_t
			addRow(map[int]float64{t: 1, n + t: -1, peakVar: -1}, -step.NetLoadKw)
		}
	}
	if demand {
		addRow(map[int]float64{peakVar: -1}, 0)
	}

	// SOC corridor: cumulative charge/discharge keeps the state of charge
	// within [SocMin, SocMax] after every step.
	socUp := make(map[int]float64, 2*n)
	for t := 0; t < n; t++ {
		step := hz.Step(t)
		socUp[t] = b.ChargeEfficiency * step.DtHours / b.CapacityKwh
		socUp[n+t] = -step.DtHours / (b.DischargeEfficiency * b.CapacityKwh)

		upper := cloneCoef(socUp)
		addRow(upper, b.SocMax-b.SocInitial)
		lower := cloneCoef(socUp)
		for i := range lower {
			lower[i] = -lower[i]
		}
		addRow(lower, b.SocInitial-b.SocMin)
	}

	// Terminal policy on the final state of charge.
	terminal := cloneCoef(socUp)
	switch b.TerminalPolicy {
	case model.TerminalAtLeastInitial:
		neg := cloneCoef(terminal)
		for i := range neg {
			neg[i] = -neg[i]
		}
		addRow(neg, 0)
	case model.TerminalEqualInitial:
		neg := cloneCoef(terminal)
		for i := range neg {
			neg[i] = -neg[i]
		}
		addRow(neg, 0)
		addRow(terminal, 0)
	}

	g = mat.NewDense(len(rows), nVar, nil)
	for r, row := range rows {
		g.SetRow(r, row)
	}
	return obj, g, rhs
}

func cloneCoef(src map[int]float64) map[int]float64 {
	dst := make(map[int]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// scheduleFromVariables turns the LP solution into dispatch decisions,
// clamping numerical noise and netting simultaneous charge/discharge in the
// lossless edge case.
func scheduleFromVariables(req Request, x []float64) model.Schedule {
	hz := req.Horizon
	n := hz.Len()
	b := req.Battery
	sched := make(model.Schedule, n)
	soc := b.SocInitial
	for t := 0; t < n; t++ {
		step := hz.Step(t)
		c := clampNoise(x[t])
		d := clampNoise(x[n+t])
		if b.Lossless() && c > 0 && d > 0 {
			// With no round-trip loss the net flow is all that matters;
			// prefer the discharge direction.
			m := math.Min(c, d)
			c -= m
			d -= m
		}
		soc += (c*b.ChargeEfficiency - d/b.DischargeEfficiency) * step.DtHours / b.CapacityKwh
		grid := step.NetLoadKw + c - d
		if !req.AllowExport {
			grid = clampNoise(grid)
		}
		sched[t] = model.DispatchDecision{T: t, ChargeKw: c, DischargeKw: d, GridKw: grid, SocAfter: soc}
	}
	return sched
}

// clampNoise zeroes sub-nanowatt negatives left by the simplex; anything
// larger is a real violation and is left for verification to reject.
func clampNoise(v float64) float64 {
	if v < 0 && v > -1e-9 {
		return 0
	}
	return v
}
