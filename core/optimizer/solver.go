// Package optimizer computes cost-minimal battery dispatch schedules over a
// discretized horizon. Two interchangeable solvers implement the Solver
// capability: a greedy exchange solver, exact when the objective is energy
// cost alone, and an LP solver built on gonum's simplex for the general case
// with demand charges or grid export.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	corelogger "github.com/fader2077/EcoGrid-AuditPredict/core/logger"
	"github.com/fader2077/EcoGrid-AuditPredict/core/costs"
	"github.com/fader2077/EcoGrid-AuditPredict/core/model"
)

// Request carries one optimization problem. The optimizer never mutates or
// retains the request; concurrent solves over distinct requests are safe.
type Request struct {
	Horizon            *model.Horizon
	Battery            model.BatteryModel
	ContractCapacityKw float64
	DemandChargeRate   float64 // currency per kW of peak grid draw, 0 disables
	AllowExport        bool    // permit negative grid power (export credited at the step price)
	TimeBudget         time.Duration

	// Deadline is derived from TimeBudget by the engine. Zero means no limit.
	Deadline time.Time
}

// Validate checks the request and names the violated field.
func (r Request) Validate() error {
	if r.Horizon == nil || r.Horizon.Len() == 0 {
		return &model.InvalidInputError{Field: "horizon", Reason: "horizon is empty"}
	}
	if err := r.Battery.Validate(); err != nil {
		return err
	}
	if r.ContractCapacityKw <= 0 {
		return &model.InvalidInputError{Field: "contract_capacity_kw", Reason: fmt.Sprintf("%g must be > 0", r.ContractCapacityKw)}
	}
	if r.DemandChargeRate < 0 {
		return &model.InvalidInputError{Field: "demand_charge_rate", Reason: fmt.Sprintf("%g must be >= 0", r.DemandChargeRate)}
	}
	if r.TimeBudget < 0 {
		return &model.InvalidInputError{Field: "time_budget_ms", Reason: "budget must be >= 0"}
	}
	return nil
}

// expired reports whether the wall-clock budget has run out.
func (r Request) expired() bool {
	return !r.Deadline.IsZero() && time.Now().After(r.Deadline)
}

// SolveResult is a solver's raw outcome before cost evaluation.
type SolveResult struct {
	Schedule model.Schedule
	Status   model.Status
	// OptimalityGap is an upper bound on the cost improvement still
	// available when Status is Approximate or Timeout.
	OptimalityGap float64
	// ViolatingStep is the first step at which constraints cannot be met,
	// -1 when not applicable.
	ViolatingStep int
	// MinFeasibleContractKw is the smallest contract capacity known to
	// restore feasibility, 0 when the infeasibility is not capacity-bound.
	MinFeasibleContractKw float64
}

// Solver produces a dispatch schedule for a request. Implementations are
// stateless with respect to requests and check ctx and the request deadline
// at iteration boundaries.
type Solver interface {
	Solve(ctx context.Context, req Request) (SolveResult, error)
}

// Config selects and tunes the solver.
type Config struct {
	// Solver is "auto", "greedy" or "lp". Auto picks greedy for the pure
	// energy-cost objective and lp when a demand charge or export applies.
	Solver string `json:"solver"`
	// TimeBudgetMs bounds a single solve; 0 means unlimited.
	TimeBudgetMs int `json:"time_budget_ms"`
	// Tolerance is the simplex convergence tolerance.
	Tolerance float64 `json:"tolerance"`
	// MaxPasses caps greedy exchange passes before the result is flagged
	// Approximate.
	MaxPasses int `json:"max_passes"`
	// RepairResolutionKw is the bisection resolution used when searching
	// for the minimum feasible contract capacity.
	RepairResolutionKw float64 `json:"repair_resolution_kw"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Solver == "" {
		c.Solver = "auto"
	}
	if c.Tolerance == 0 {
		c.Tolerance = 1e-7
	}
	if c.MaxPasses == 0 {
		c.MaxPasses = 64
	}
	if c.RepairResolutionKw == 0 {
		c.RepairResolutionKw = 0.5
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Solver {
	case "auto", "greedy", "lp":
	default:
		return fmt.Errorf("unknown solver %q", c.Solver)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be > 0")
	}
	if c.TimeBudgetMs < 0 {
		return fmt.Errorf("time_budget_ms must be >= 0")
	}
	return nil
}

// EffectiveSolver names the solver that will run for the given request. The
// greedy solver only covers the import-only, energy-cost-only problem; other
// requests route to the LP regardless of configuration.
func (c Config) EffectiveSolver(req Request) string {
	if req.DemandChargeRate > 0 || req.AllowExport {
		return "lp"
	}
	if c.Solver == "auto" || c.Solver == "" {
		return "greedy"
	}
	return c.Solver
}

// Engine validates requests, routes them to a solver wrapped in the
// feasibility repair layer and assembles the final result. It is a pure
// function of its inputs and safe for concurrent use.
type Engine struct {
	cfg Config
	log corelogger.Logger
}

// NewEngine returns an engine with the given configuration. A nil logger
// disables logging.
func NewEngine(cfg Config, log corelogger.Logger) *Engine {
	cfg.SetDefaults()
	if log == nil {
		log = nopLogger{}
	}
	return &Engine{cfg: cfg, log: log}
}

// Optimize runs one request end to end. The returned result always carries a
// status; the error is non-nil only for invalid input and cancellation.
func (e *Engine) Optimize(ctx context.Context, req Request) (model.OptimizationResult, error) {
	if err := req.Validate(); err != nil {
		diag := &model.Diagnostic{Reason: err.Error()}
		var inv *model.InvalidInputError
		if errors.As(err, &inv) {
			diag.Field = inv.Field
			diag.Reason = inv.Reason
		}
		return model.OptimizationResult{Status: model.StatusInvalidInput, Diagnostic: diag}, err
	}
	budget := req.TimeBudget
	if budget == 0 && e.cfg.TimeBudgetMs > 0 {
		budget = time.Duration(e.cfg.TimeBudgetMs) * time.Millisecond
	}
	if budget > 0 && req.Deadline.IsZero() {
		req.Deadline = time.Now().Add(budget)
	}

	name := e.cfg.EffectiveSolver(req)
	rep := &Repairer{Solver: e.newSolver(name), ResolutionKw: e.cfg.RepairResolutionKw, Log: e.log}
	res, err := rep.Solve(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return model.OptimizationResult{Status: model.StatusCancelled}, err
		}
		if name == "lp" && req.DemandChargeRate == 0 && !req.AllowExport {
			// Numerical failure in the simplex; the greedy solver covers
			// this request shape.
			e.log.Warnf("lp solve failed, retrying with greedy: %v", err)
			rep.Solver = e.newSolver("greedy")
			res, err = rep.Solve(ctx, req)
		}
		if err != nil {
			status := model.StatusTimeout
			if errors.Is(err, context.Canceled) {
				status = model.StatusCancelled
			}
			return model.OptimizationResult{Status: status, Diagnostic: &model.Diagnostic{Reason: err.Error()}}, err
		}
	}
	return e.assemble(req, res), nil
}

func (e *Engine) newSolver(name string) Solver {
	if name == "lp" {
		return &LPSolver{Tol: e.cfg.Tolerance, Log: e.log}
	}
	return &GreedySolver{MaxPasses: e.cfg.MaxPasses, Log: e.log}
}

// assemble attaches cost and peak metrics to the solver outcome.
func (e *Engine) assemble(req Request, res SolveResult) model.OptimizationResult {
	out := model.OptimizationResult{Status: res.Status, Schedule: res.Schedule}

	m := costs.Evaluate(req.Horizon, res.Schedule)
	out.BaselineCost = m.BaselineCost
	out.OptimizedCost = m.OptimizedCost
	out.Savings = m.Savings
	out.SavingsPct = m.SavingsPct
	out.PeakBefore = m.PeakBefore
	out.PeakAfter = m.PeakAfter
	out.PeakReductionPct = m.PeakReductionPct

	switch res.Status {
	case model.StatusInfeasible:
		step := res.ViolatingStep
		out.Diagnostic = &model.Diagnostic{
			ViolatingStep:         &step,
			MinFeasibleContractKw: res.MinFeasibleContractKw,
		}
	case model.StatusApproximate, model.StatusTimeout:
		if res.OptimalityGap > 0 {
			out.Diagnostic = &model.Diagnostic{OptimalityGap: res.OptimalityGap}
		}
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
