package config

import "fmt"

// GridConfig holds the connection-point parameters.
type GridConfig struct {
	ContractCapacityKw float64 `json:"contract_capacity_kw"`
	DemandChargeRate   float64 `json:"demand_charge_rate"`
	AllowExport        bool    `json:"allow_export"`
}

// Validate checks mandatory fields.
func (c GridConfig) Validate() error {
	if c.ContractCapacityKw <= 0 {
		return fmt.Errorf("contract_capacity_kw %g must be > 0", c.ContractCapacityKw)
	}
	if c.DemandChargeRate < 0 {
		return fmt.Errorf("demand_charge_rate %g must be >= 0", c.DemandChargeRate)
	}
	return nil
}
