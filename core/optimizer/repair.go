package optimizer

import (
	"context"

	corelogger "github.com/fader2077/EcoGrid-AuditPredict/core/logger"
	"github.com/fader2077/EcoGrid-AuditPredict/core/model"
)

// Repairer wraps a Solver and, when the wrapped solve comes back Infeasible
// for capacity reasons, bisects on the contract capacity to find the smallest
// value that restores feasibility. The original request is never altered; the
// result stays Infeasible and reports the bound in MinFeasibleContractKw.
type Repairer struct {
	Solver       Solver
	ResolutionKw float64
	// MaxIterations caps the bisection; 0 means derive from the resolution.
	MaxIterations int
	Log           corelogger.Logger
}

// Solve runs the wrapped solver and refines infeasibility diagnostics.
func (r *Repairer) Solve(ctx context.Context, req Request) (SolveResult, error) {
	res, err := r.Solver.Solve(ctx, req)
	if err != nil || res.Status != model.StatusInfeasible {
		return res, err
	}
	if r.surplusBound(req, res.ViolatingStep) {
		// Charging power is the binding limit; no contract capacity fixes it.
		res.MinFeasibleContractKw = 0
		return res, nil
	}
	minCap, serr := r.searchMinFeasible(ctx, req, res.MinFeasibleContractKw)
	if serr != nil {
		// Budget ran out mid-search; keep the coarse estimate from the solver.
		r.logf("repair search aborted: %v", serr)
		return res, nil
	}
	res.MinFeasibleContractKw = minCap
	return res, nil
}

// surplusBound reports whether the violating step fails on surplus absorption
// rather than on the import cap.
func (r *Repairer) surplusBound(req Request, step int) bool {
	if step < 0 || step >= req.Horizon.Len() {
		return false
	}
	return req.Horizon.Step(step).NetLoadKw < 0
}

// searchMinFeasible bisects between the requested capacity and the peak net
// load. The upper bound is always feasible for import-cap infeasibility: with
// the cap at the peak the grid can simply follow the load.
func (r *Repairer) searchMinFeasible(ctx context.Context, req Request, hint float64) (float64, error) {
	lo := req.ContractCapacityKw
	hi := req.Horizon.PeakNetLoadKw()
	if hint > hi {
		hi = hint
	}
	if hi <= lo {
		return lo, nil
	}
	resolution := r.ResolutionKw
	if resolution <= 0 {
		resolution = 0.5
	}
	iters := r.MaxIterations
	if iters <= 0 {
		iters = 64
	}
	for i := 0; i < iters && hi-lo > resolution; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if req.expired() {
			return 0, context.DeadlineExceeded
		}
		mid := (lo + hi) / 2
		probe := req
		probe.ContractCapacityKw = mid
		res, err := r.Solver.Solve(ctx, probe)
		if err != nil {
			return 0, err
		}
		if res.Status == model.StatusInfeasible {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi, nil
}

func (r *Repairer) logf(format string, args ...any) {
	if r.Log != nil {
		r.Log.Debugf(format, args...)
	}
}
