package optimizer

import (
	"context"
	"math"
	"sort"

	corelogger "github.com/fader2077/EcoGrid-AuditPredict/core/logger"
	"github.com/fader2077/EcoGrid-AuditPredict/core/model"
)

const epsKwh = 1e-9

// GreedySolver solves the import-only, energy-cost-only problem exactly by
// exchange: energy is moved from the cheapest charge opportunities to the
// most expensive discharge opportunities until no profitable move remains.
// Mandatory moves (surplus absorption, contract-capacity shaving) run first
// so the economic phase starts from a feasible state.
type GreedySolver struct {
	MaxPasses int
	Log       corelogger.Logger
}

// step roles keep charge and discharge mutually exclusive per step.
const (
	roleNone = iota
	roleCharge
	roleDischarge
)

type greedyState struct {
	req     Request
	n       int
	dt      []float64
	price   []float64
	netLoad []float64

	charge    []float64 // kW
	discharge []float64 // kW
	stored    []float64 // kWh at the start of step t, len n+1
	role      []int

	capKwh, minKwh, maxKwh, initKwh float64
	etaC, etaD                      float64
	maxChargeKw, maxDischargeKw     float64
	contractKw                      float64
}

// Solve implements Solver.
func (g *GreedySolver) Solve(ctx context.Context, req Request) (SolveResult, error) {
	st := newGreedyState(req)

	if res, done := st.absorbSurplus(); done {
		return res, nil
	}
	if req.Battery.TerminalPolicy == model.TerminalEqualInitial {
		if res, done := st.restoreTerminal(); done {
			return res, nil
		}
	}
	if res, done := st.shavePeaks(); done {
		return res, nil
	}
	// The state is feasible from here on; budget exhaustion returns it as a
	// valid, possibly suboptimal schedule.
	if err := ctx.Err(); err != nil {
		return SolveResult{Status: model.StatusCancelled, ViolatingStep: -1}, err
	}
	if req.expired() {
		return SolveResult{Status: model.StatusTimeout, Schedule: st.schedule(), OptimalityGap: st.estimateGap(), ViolatingStep: -1}, nil
	}

	maxPasses := g.MaxPasses
	if maxPasses <= 0 {
		maxPasses = 64
	}
	converged := false
	for pass := 0; pass < maxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			// A cancelled solve returns no schedule, not a partial one.
			return SolveResult{Status: model.StatusCancelled, ViolatingStep: -1}, err
		}
		if req.expired() {
			return SolveResult{Status: model.StatusTimeout, Schedule: st.schedule(), OptimalityGap: st.estimateGap(), ViolatingStep: -1}, nil
		}
		if !st.exchangePass() {
			converged = true
			break
		}
	}
	if !converged {
		return SolveResult{Status: model.StatusApproximate, Schedule: st.schedule(), OptimalityGap: st.estimateGap(), ViolatingStep: -1}, nil
	}
	return SolveResult{Status: model.StatusOptimal, Schedule: st.schedule(), ViolatingStep: -1}, nil
}

func newGreedyState(req Request) *greedyState {
	h := req.Horizon
	n := h.Len()
	b := req.Battery
	st := &greedyState{
		req:            req,
		n:              n,
		dt:             make([]float64, n),
		price:          make([]float64, n),
		netLoad:        make([]float64, n),
		charge:         make([]float64, n),
		discharge:      make([]float64, n),
		stored:         make([]float64, n+1),
		role:           make([]int, n),
		capKwh:         b.CapacityKwh,
		minKwh:         b.SocMin * b.CapacityKwh,
		maxKwh:         b.SocMax * b.CapacityKwh,
		initKwh:        b.SocInitial * b.CapacityKwh,
		etaC:           b.ChargeEfficiency,
		etaD:           b.DischargeEfficiency,
		maxChargeKw:    b.MaxChargeKw,
		maxDischargeKw: b.MaxDischargeKw,
		contractKw:     req.ContractCapacityKw,
	}
	for i := 0; i < n; i++ {
		s := h.Step(i)
		st.dt[i] = s.DtHours
		st.price[i] = s.PriceUnit
		st.netLoad[i] = s.NetLoadKw
	}
	for t := range st.stored {
		st.stored[t] = st.initKwh
	}
	return st
}

// gridKw returns the grid draw currently scheduled for step t.
func (g *greedyState) gridKw(t int) float64 {
	return g.netLoad[t] + g.charge[t] - g.discharge[t]
}

// addCharge raises the charge power at step i and propagates the stored
// energy change to later steps.
func (g *greedyState) addCharge(i int, kw float64) {
	g.charge[i] += kw
	g.role[i] = roleCharge
	delta := kw * g.etaC * g.dt[i]
	for t := i + 1; t <= g.n; t++ {
		g.stored[t] += delta
	}
}

// addDischarge raises the discharge power at step j and propagates the stored
// energy change to later steps.
func (g *greedyState) addDischarge(j int, kw float64) {
	g.discharge[j] += kw
	g.role[j] = roleDischarge
	delta := kw * g.dt[j] / g.etaD
	for t := j + 1; t <= g.n; t++ {
		g.stored[t] -= delta
	}
}

// sinkSlackKwh returns the battery-side energy that step j can still turn
// into discharge, bounded by power and the no-export grid floor.
func (g *greedyState) sinkSlackKwh(j int) float64 {
	if g.role[j] == roleCharge {
		return 0
	}
	power := g.maxDischargeKw - g.discharge[j]
	if floor := g.gridKw(j); floor < power {
		power = floor
	}
	if power <= 0 {
		return 0
	}
	return power * g.dt[j] / g.etaD
}

// sourceSlackKwh returns the battery-side energy step i can still take in,
// bounded by power and the contract-capacity ceiling.
func (g *greedyState) sourceSlackKwh(i int) float64 {
	if g.role[i] == roleDischarge {
		return 0
	}
	power := g.maxChargeKw - g.charge[i]
	if head := g.contractKw - g.gridKw(i); head < power {
		power = head
	}
	if power <= 0 {
		return 0
	}
	return power * g.etaC * g.dt[i]
}

// corridorKwh returns the largest battery-side transfer from charge step i to
// discharge step j that keeps the stored-energy path inside its bounds.
// i == -1 denotes an uncompensated draw on the initial inventory.
func (g *greedyState) corridorKwh(i, j int) float64 {
	slack := math.Inf(1)
	switch {
	case i == -1:
		for t := j + 1; t <= g.n; t++ {
			if s := g.stored[t] - g.minKwh; s < slack {
				slack = s
			}
		}
	case i < j:
		for t := i + 1; t <= j; t++ {
			if s := g.maxKwh - g.stored[t]; s < slack {
				slack = s
			}
		}
	default: // j < i: discharge first, recharge later
		for t := j + 1; t <= i; t++ {
			if s := g.stored[t] - g.minKwh; s < slack {
				slack = s
			}
		}
	}
	if slack < 0 {
		return 0
	}
	return slack
}

// transfer moves up to needKwh of battery-side energy from source i to sink j
// and returns the amount moved. i == -1 draws on inventory without a
// compensating charge, bounded so the terminal policy still holds.
func (g *greedyState) transfer(i, j int, needKwh float64) float64 {
	amount := math.Min(needKwh, g.sinkSlackKwh(j))
	if i >= 0 {
		amount = math.Min(amount, g.sourceSlackKwh(i))
		amount = math.Min(amount, g.corridorKwh(i, j))
	} else {
		amount = math.Min(amount, g.drawdownSlack(j))
	}
	if amount <= epsKwh {
		return 0
	}
	if i >= 0 {
		g.addCharge(i, amount/(g.etaC*g.dt[i]))
	}
	g.addDischarge(j, amount*g.etaD/g.dt[j])
	return amount
}

// absorbSurplus forces charging at steps where on-site generation exceeds
// load: with export disallowed the grid draw may not go negative. Overfull
// periods are relieved by discharging at the most valuable prior steps.
func (g *greedyState) absorbSurplus() (SolveResult, bool) {
	for t := 0; t < g.n; t++ {
		if g.netLoad[t] >= 0 {
			continue
		}
		need := -g.netLoad[t]
		if need > g.maxChargeKw+1e-9 {
			return SolveResult{
				Status:        model.StatusInfeasible,
				ViolatingStep: t,
			}, true
		}
		g.addCharge(t, need)
		if res, bad := g.relieveOverflow(t); bad {
			return res, true
		}
	}
	return SolveResult{}, false
}

// relieveOverflow discharges ahead of the first overfull point until the
// stored-energy path fits under SocMax again. surplusStep is reported on
// failure.
func (g *greedyState) relieveOverflow(surplusStep int) (SolveResult, bool) {
	for {
		over := -1
		for t := 1; t <= g.n; t++ {
			if g.stored[t] > g.maxKwh+epsKwh {
				over = t
				break
			}
		}
		if over == -1 {
			return SolveResult{}, false
		}
		excess := g.stored[over] - g.maxKwh
		moved := 0.0
		for _, j := range g.sinksByValue(over - 1) {
			amount := math.Min(excess-moved, g.sinkSlackKwh(j))
			amount = math.Min(amount, g.drawdownSlack(j))
			if amount <= epsKwh {
				continue
			}
			g.addDischarge(j, amount*g.etaD/g.dt[j])
			moved += amount
			if moved >= excess-epsKwh {
				break
			}
		}
		if moved < excess-epsKwh {
			return SolveResult{Status: model.StatusInfeasible, ViolatingStep: surplusStep}, true
		}
	}
}

// drawdownSlack bounds an uncompensated discharge at step j: the path after j
// must stay above SocMin and, for non-Free policies, the terminal level must
// not fall below the initial one.
func (g *greedyState) drawdownSlack(j int) float64 {
	slack := math.Inf(1)
	for t := j + 1; t <= g.n; t++ {
		if s := g.stored[t] - g.minKwh; s < slack {
			slack = s
		}
	}
	if g.req.Battery.TerminalPolicy != model.TerminalFree {
		if s := g.stored[g.n] - g.initKwh; s < slack {
			slack = s
		}
	}
	if slack < 0 {
		return 0
	}
	return slack
}

// restoreTerminal dumps any terminal surplus left by surplus absorption so an
// EqualInitial horizon ends exactly at the initial SOC.
func (g *greedyState) restoreTerminal() (SolveResult, bool) {
	excess := g.stored[g.n] - g.initKwh
	if excess <= epsKwh {
		return SolveResult{}, false
	}
	for _, j := range g.sinksByValue(g.n - 1) {
		amount := math.Min(excess, g.sinkSlackKwh(j))
		amount = math.Min(amount, g.corridorKwh(-1, j))
		if amount <= epsKwh {
			continue
		}
		g.addDischarge(j, amount*g.etaD/g.dt[j])
		excess -= amount
		if excess <= epsKwh {
			return SolveResult{}, false
		}
	}
	step := 0
	for t := 0; t < g.n; t++ {
		if g.netLoad[t] < 0 {
			step = t
			break
		}
	}
	return SolveResult{Status: model.StatusInfeasible, ViolatingStep: step}, true
}

// shavePeaks forces discharge wherever the net load exceeds the contract
// capacity, sourcing the energy from the cheapest charge opportunities.
func (g *greedyState) shavePeaks() (SolveResult, bool) {
	var firstViolation = -1
	var minFeasible float64
	for t := 0; t < g.n; t++ {
		need := g.gridKw(t) - g.contractKw
		if need <= 1e-9 {
			continue
		}
		// Draw down inventory as far as the terminal policy allows, then
		// pair with sources in cost order.
		amount := math.Min(need*g.dt[t]/g.etaD, g.sinkSlackKwh(t))
		amount = math.Min(amount, g.drawdownSlack(t))
		if amount > epsKwh {
			g.addDischarge(t, amount*g.etaD/g.dt[t])
			need = g.gridKw(t) - g.contractKw
		}
		for _, i := range g.sourcesByCost(t) {
			if need <= 1e-9 {
				break
			}
			g.transfer(i, t, need*g.dt[t]/g.etaD)
			need = g.gridKw(t) - g.contractKw
		}
		if need > 1e-9 {
			if firstViolation == -1 {
				firstViolation = t
			}
			if cap := g.gridKw(t); cap > minFeasible {
				minFeasible = cap
			}
		}
	}
	if firstViolation != -1 {
		return SolveResult{
			Status:                model.StatusInfeasible,
			ViolatingStep:         firstViolation,
			MinFeasibleContractKw: minFeasible,
		}, true
	}
	return SolveResult{}, false
}

// sinksByValue lists candidate discharge steps up to maxIdx, most valuable
// first, earliest index first on ties.
func (g *greedyState) sinksByValue(maxIdx int) []int {
	var idx []int
	for j := 0; j <= maxIdx && j < g.n; j++ {
		if g.role[j] != roleCharge && g.gridKw(j) > 0 && g.discharge[j] < g.maxDischargeKw {
			idx = append(idx, j)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		pa, pb := g.price[idx[a]], g.price[idx[b]]
		if pa != pb {
			return pa > pb
		}
		return idx[a] < idx[b]
	})
	return idx
}

// sourcesByCost lists candidate charge steps, cheapest first, earliest index
// first on ties. exclude skips the sink step itself.
func (g *greedyState) sourcesByCost(exclude int) []int {
	var idx []int
	for i := 0; i < g.n; i++ {
		if i == exclude {
			continue
		}
		if g.role[i] != roleDischarge && g.sourceSlackKwh(i) > epsKwh {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		pa, pb := g.price[idx[a]], g.price[idx[b]]
		if pa != pb {
			return pa < pb
		}
		return idx[a] < idx[b]
	})
	return idx
}

// exchangePass attempts every profitable source-to-sink move once and
// reports whether any energy moved. A move is profitable only when the sink
// value strictly exceeds the source cost, which both enforces charge and
// discharge exclusivity under round-trip losses and leaves flat tariffs
// untouched.
func (g *greedyState) exchangePass() bool {
	moved := false
	for _, j := range g.sinksByValue(g.n - 1) {
		value := g.price[j] * g.etaD
		// Inventory above the terminal floor carries no acquisition cost,
		// so draw it down at any positive price before pairing sources.
		if value > 1e-12 {
			if g.transfer(-1, j, math.Inf(1)) > 0 {
				moved = true
			}
		}
		for _, i := range g.sourcesByCost(j) {
			cost := g.price[i] / g.etaC
			if value <= cost+1e-12 {
				break // sources are cost-ordered, none further can profit
			}
			if g.transfer(i, j, math.Inf(1)) > 0 {
				moved = true
			}
		}
	}
	return moved
}

// estimateGap returns an optimistic bound on the cost improvement still
// available, ignoring SOC coupling between moves.
func (g *greedyState) estimateGap() float64 {
	var sinkKwh, sourceKwh float64
	bestValue := 0.0
	minCost := math.Inf(1)
	for t := 0; t < g.n; t++ {
		if s := g.sinkSlackKwh(t); s > epsKwh {
			sinkKwh += s
			if v := g.price[t] * g.etaD; v > bestValue {
				bestValue = v
			}
		}
		if s := g.sourceSlackKwh(t); s > epsKwh {
			sourceKwh += s
			if c := g.price[t] / g.etaC; c < minCost {
				minCost = c
			}
		}
	}
	if bestValue <= minCost {
		return 0
	}
	movable := math.Min(sinkKwh, sourceKwh)
	movable = math.Min(movable, g.maxKwh-g.minKwh)
	return (bestValue - minCost) * movable
}

// schedule materializes the current state into dispatch decisions.
func (g *greedyState) schedule() model.Schedule {
	s := make(model.Schedule, g.n)
	for t := 0; t < g.n; t++ {
		grid := g.gridKw(t)
		if grid < 0 && grid > -1e-9 {
			grid = 0
		}
		s[t] = model.DispatchDecision{
			T:           t,
			ChargeKw:    g.charge[t],
			DischargeKw: g.discharge[t],
			GridKw:      grid,
			SocAfter:    g.stored[t+1] / g.capKwh,
		}
	}
	return s
}
