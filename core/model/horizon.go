package model

// TimeStep is one slot of the optimization horizon. Immutable once the
// horizon is built.
type TimeStep struct {
	Index      int
	DtHours    float64
	NetLoadKw  float64 // forecast load minus on-site renewables, may be negative
	PriceUnit  float64 // currency per kWh
	TariffTier string  // optional tier label (e.g. "peak", "off_peak")
}

// Horizon is the immutable per-step series consumed by the optimizer.
type Horizon struct {
	steps []TimeStep
}

// NewHorizon builds a horizon with a uniform step duration. tiers may be nil;
// when present it must have one label per step.
func NewHorizon(netLoadKw, price []float64, dtHours float64, tiers []string) (*Horizon, error) {
	n := len(netLoadKw)
	dt := make([]float64, n)
	for i := range dt {
		dt[i] = dtHours
	}
	return NewVariableHorizon(netLoadKw, price, dt, tiers)
}

// NewVariableHorizon builds a horizon with per-step durations.
func NewVariableHorizon(netLoadKw, price, dtHours []float64, tiers []string) (*Horizon, error) {
	n := len(netLoadKw)
	if n == 0 {
		return nil, invalidf("net_load_kw", "horizon is empty")
	}
	if len(price) != n {
		return nil, invalidf("price", "length %d does not match net_load_kw length %d", len(price), n)
	}
	if len(dtHours) != n {
		return nil, invalidf("dt_hours", "length %d does not match net_load_kw length %d", len(dtHours), n)
	}
	if tiers != nil && len(tiers) != n {
		return nil, invalidf("tariff_tier", "length %d does not match net_load_kw length %d", len(tiers), n)
	}
	steps := make([]TimeStep, n)
	for i := 0; i < n; i++ {
		if dtHours[i] <= 0 {
			return nil, invalidf("dt_hours", "step %d: duration %g must be > 0", i, dtHours[i])
		}
		if price[i] < 0 {
			return nil, invalidf("price", "step %d: price %g must be >= 0", i, price[i])
		}
		steps[i] = TimeStep{Index: i, DtHours: dtHours[i], NetLoadKw: netLoadKw[i], PriceUnit: price[i]}
		if tiers != nil {
			steps[i].TariffTier = tiers[i]
		}
	}
	return &Horizon{steps: steps}, nil
}

// Len returns the number of steps.
func (h *Horizon) Len() int { return len(h.steps) }

// Step returns the step at index i.
func (h *Horizon) Step(i int) TimeStep { return h.steps[i] }

// Steps returns a copy of the step series.
func (h *Horizon) Steps() []TimeStep {
	cp := make([]TimeStep, len(h.steps))
	copy(cp, h.steps)
	return cp
}

// PeakNetLoadKw returns the maximum net load over the horizon.
func (h *Horizon) PeakNetLoadKw() float64 {
	peak := h.steps[0].NetLoadKw
	for _, s := range h.steps[1:] {
		if s.NetLoadKw > peak {
			peak = s.NetLoadKw
		}
	}
	return peak
}
