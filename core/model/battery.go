package model

// TerminalSocPolicy constrains the state of charge at the end of the horizon.
type TerminalSocPolicy int

const (
	// TerminalAtLeastInitial requires the final SOC to be no lower than the
	// initial SOC. This is the default.
	TerminalAtLeastInitial TerminalSocPolicy = iota
	// TerminalEqualInitial requires the final SOC to equal the initial SOC.
	TerminalEqualInitial
	// TerminalFree leaves the final SOC unconstrained.
	TerminalFree
)

// String returns a human-readable policy name.
func (p TerminalSocPolicy) String() string {
	switch p {
	case TerminalAtLeastInitial:
		return "AtLeastInitial"
	case TerminalEqualInitial:
		return "EqualInitial"
	case TerminalFree:
		return "Free"
	default:
		return "unknown"
	}
}

// ParseTerminalSocPolicy maps a configuration string to a policy. Empty input
// selects the default AtLeastInitial policy.
func ParseTerminalSocPolicy(s string) (TerminalSocPolicy, error) {
	switch s {
	case "", "at_least_initial", "AtLeastInitial":
		return TerminalAtLeastInitial, nil
	case "equal_initial", "EqualInitial":
		return TerminalEqualInitial, nil
	case "free", "Free":
		return TerminalFree, nil
	default:
		return TerminalAtLeastInitial, invalidf("terminal_soc_policy", "unknown policy %q", s)
	}
}

// BatteryModel is an immutable record of the storage system's physical and
// operational limits. SOC values are fractions of capacity in [0,1].
type BatteryModel struct {
	CapacityKwh         float64
	MaxChargeKw         float64
	MaxDischargeKw      float64
	ChargeEfficiency    float64
	DischargeEfficiency float64
	SocMin              float64
	SocMax              float64
	SocInitial          float64
	TerminalPolicy      TerminalSocPolicy
}

// Validate checks the model invariants and names the violated field.
func (b BatteryModel) Validate() error {
	if b.CapacityKwh <= 0 {
		return invalidf("capacity_kwh", "%g must be > 0", b.CapacityKwh)
	}
	if b.MaxChargeKw < 0 {
		return invalidf("max_charge_kw", "%g must be >= 0", b.MaxChargeKw)
	}
	if b.MaxDischargeKw < 0 {
		return invalidf("max_discharge_kw", "%g must be >= 0", b.MaxDischargeKw)
	}
	if b.ChargeEfficiency <= 0 || b.ChargeEfficiency > 1 {
		return invalidf("charge_efficiency", "%g must be in (0,1]", b.ChargeEfficiency)
	}
	if b.DischargeEfficiency <= 0 || b.DischargeEfficiency > 1 {
		return invalidf("discharge_efficiency", "%g must be in (0,1]", b.DischargeEfficiency)
	}
	if b.SocMin < 0 || b.SocMin > 1 {
		return invalidf("soc_min", "%g must be in [0,1]", b.SocMin)
	}
	if b.SocMax < 0 || b.SocMax > 1 {
		return invalidf("soc_max", "%g must be in [0,1]", b.SocMax)
	}
	if b.SocMin > b.SocMax {
		return invalidf("soc_min", "%g must not exceed soc_max %g", b.SocMin, b.SocMax)
	}
	if b.SocInitial < b.SocMin || b.SocInitial > b.SocMax {
		return invalidf("soc_initial", "%g must be in [soc_min, soc_max] = [%g, %g]", b.SocInitial, b.SocMin, b.SocMax)
	}
	if b.TerminalPolicy < TerminalAtLeastInitial || b.TerminalPolicy > TerminalFree {
		return invalidf("terminal_soc_policy", "unknown policy value %d", b.TerminalPolicy)
	}
	return nil
}

// RoundTripEfficiency returns chargeEfficiency * dischargeEfficiency.
func (b BatteryModel) RoundTripEfficiency() float64 {
	return b.ChargeEfficiency * b.DischargeEfficiency
}

// Lossless reports whether the battery has no round-trip loss. The lossless
// edge case needs an explicit charge/discharge exclusivity rule because cost
// dominance no longer forbids simultaneity.
func (b BatteryModel) Lossless() bool {
	return b.RoundTripEfficiency() >= 1
}

// UsableKwh returns the energy between SocMin and SocMax.
func (b BatteryModel) UsableKwh() float64 {
	return (b.SocMax - b.SocMin) * b.CapacityKwh
}
