package config

import (
	"fmt"

	"github.com/fader2077/EcoGrid-AuditPredict/core/tariff"
)

// TariffConfig selects the price table.
type TariffConfig struct {
	// Preset is "taiwan" (season picked by month), "flat", or "custom".
	// Empty defaults to "taiwan".
	Preset   string        `json:"preset"`
	FlatRate float64       `json:"flat_rate"`
	Table    *tariff.Table `json:"table"`
}

// Resolve returns the table in effect for the given calendar month.
func (c TariffConfig) Resolve(month int) (tariff.Table, error) {
	switch c.Preset {
	case "", "taiwan":
		return tariff.ForMonth(month), nil
	case "flat":
		if c.FlatRate <= 0 {
			return tariff.Table{}, fmt.Errorf("flat_rate %g must be > 0", c.FlatRate)
		}
		return tariff.Flat(c.FlatRate), nil
	case "custom":
		if c.Table == nil {
			return tariff.Table{}, fmt.Errorf("custom preset requires a table")
		}
		if err := c.Table.Validate(); err != nil {
			return tariff.Table{}, err
		}
		return *c.Table, nil
	default:
		return tariff.Table{}, fmt.Errorf("unknown preset %q", c.Preset)
	}
}
