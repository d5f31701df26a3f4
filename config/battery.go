package config

import "github.com/fader2077/EcoGrid-AuditPredict/core/model"

// BatteryConfig describes the storage system in wire form.
type BatteryConfig struct {
	CapacityKwh         float64 `json:"capacity_kwh"`
	MaxChargeKw         float64 `json:"max_charge_kw"`
	MaxDischargeKw      float64 `json:"max_discharge_kw"`
	ChargeEfficiency    float64 `json:"charge_efficiency"`
	DischargeEfficiency float64 `json:"discharge_efficiency"`
	SocMin              float64 `json:"soc_min"`
	SocMax              float64 `json:"soc_max"`
	SocInitial          float64 `json:"soc_initial"`
	TerminalSocPolicy   string  `json:"terminal_soc_policy"`
}

// SetDefaults applies sane defaults.
func (c *BatteryConfig) SetDefaults() {
	if c.ChargeEfficiency == 0 {
		c.ChargeEfficiency = 0.95
	}
	if c.DischargeEfficiency == 0 {
		c.DischargeEfficiency = 0.95
	}
	if c.SocMax == 0 {
		c.SocMax = 1
	}
}

// Model converts the wire form into the validated domain model.
func (c BatteryConfig) Model() (model.BatteryModel, error) {
	policy, err := model.ParseTerminalSocPolicy(c.TerminalSocPolicy)
	if err != nil {
		return model.BatteryModel{}, err
	}
	b := model.BatteryModel{
		CapacityKwh:         c.CapacityKwh,
		MaxChargeKw:         c.MaxChargeKw,
		MaxDischargeKw:      c.MaxDischargeKw,
		ChargeEfficiency:    c.ChargeEfficiency,
		DischargeEfficiency: c.DischargeEfficiency,
		SocMin:              c.SocMin,
		SocMax:              c.SocMax,
		SocInitial:          c.SocInitial,
		TerminalPolicy:      policy,
	}
	if err := b.Validate(); err != nil {
		return model.BatteryModel{}, err
	}
	return b, nil
}
