package model

import (
	"encoding/json"
	"fmt"
)

// DispatchDecision is the optimizer's output for one time step. At most one
// of ChargeKw and DischargeKw is nonzero.
type DispatchDecision struct {
	T           int     `json:"t"`
	ChargeKw    float64 `json:"charge_kw"`
	DischargeKw float64 `json:"discharge_kw"`
	GridKw      float64 `json:"grid_kw"`
	SocAfter    float64 `json:"soc"`
}

// Schedule is the ordered dispatch plan, one decision per horizon step. It is
// owned exclusively by the caller after return.
type Schedule []DispatchDecision

// PeakGridKw returns the maximum grid draw over the schedule, zero when the
// schedule is empty.
func (s Schedule) PeakGridKw() float64 {
	peak := 0.0
	for i, d := range s {
		if i == 0 || d.GridKw > peak {
			peak = d.GridKw
		}
	}
	return peak
}

// Status classifies the outcome of an optimization request.
type Status int

const (
	StatusOptimal Status = iota
	StatusApproximate
	StatusInfeasible
	StatusCancelled
	StatusTimeout
	StatusInvalidInput
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "Optimal"
	case StatusApproximate:
		return "Approximate"
	case StatusInfeasible:
		return "Infeasible"
	case StatusCancelled:
		return "Cancelled"
	case StatusTimeout:
		return "Timeout"
	case StatusInvalidInput:
		return "InvalidInput"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as its wire name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status from its wire name.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "Optimal":
		*s = StatusOptimal
	case "Approximate":
		*s = StatusApproximate
	case "Infeasible":
		*s = StatusInfeasible
	case "Cancelled":
		*s = StatusCancelled
	case "Timeout":
		*s = StatusTimeout
	case "InvalidInput":
		*s = StatusInvalidInput
	default:
		return fmt.Errorf("unknown status %q", name)
	}
	return nil
}

// Diagnostic carries failure detail: the first step at which constraints
// cannot be met, the smallest contract capacity that would restore
// feasibility, or the optimality gap of an approximate schedule.
type Diagnostic struct {
	// ViolatingStep is a pointer so that step 0 survives serialization.
	ViolatingStep         *int    `json:"violating_step,omitempty"`
	MinFeasibleContractKw float64 `json:"min_feasible_contract_kw,omitempty"`
	OptimalityGap         float64 `json:"optimality_gap,omitempty"`
	Field                 string  `json:"field,omitempty"`
	Reason                string  `json:"reason,omitempty"`
}

// OptimizationResult bundles the schedule with cost and peak metrics.
type OptimizationResult struct {
	Status           Status      `json:"status"`
	Schedule         Schedule    `json:"schedule,omitempty"`
	BaselineCost     float64     `json:"baseline_cost"`
	OptimizedCost    float64     `json:"optimized_cost"`
	Savings          float64     `json:"savings"`
	SavingsPct       float64     `json:"savings_pct"`
	PeakBefore       float64     `json:"peak_before"`
	PeakAfter        float64     `json:"peak_after"`
	PeakReductionPct float64     `json:"peak_reduction_pct"`
	Diagnostic       *Diagnostic `json:"diagnostic,omitempty"`
}
