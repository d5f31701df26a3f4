// Package tariff models time-of-use price tables and turns them into the
// per-step price and tier series consumed by the horizon builder.
package tariff

import (
	"fmt"
	"math"
)

// Tier names used across the default tables.
const (
	TierPeak     = "peak"
	TierHalfPeak = "half_peak"
	TierOffPeak  = "off_peak"
)

// Window is a half-open daily interval [StartHour, EndHour) in local time.
type Window struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// Contains reports whether the hour falls inside the window.
func (w Window) Contains(hour int) bool {
	return hour >= w.StartHour && hour < w.EndHour
}

// Tier is one price level with the daily windows it applies to.
type Tier struct {
	Name    string   `json:"name"`
	Rate    float64  `json:"rate"` // currency per kWh
	Windows []Window `json:"windows"`
}

// Table is a complete time-of-use tariff. Windows of all tiers must cover the
// full day without overlap.
type Table struct {
	Name  string `json:"name"`
	Tiers []Tier `json:"tiers"`
}

// Validate checks rates and full, non-overlapping 24h coverage.
func (t Table) Validate() error {
	covered := make([]bool, 24)
	for _, tier := range t.Tiers {
		if tier.Rate < 0 {
			return fmt.Errorf("tier %q: rate %g must be >= 0", tier.Name, tier.Rate)
		}
		for _, w := range tier.Windows {
			if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
				return fmt.Errorf("tier %q: window [%d, %d) out of range", tier.Name, w.StartHour, w.EndHour)
			}
			for h := w.StartHour; h < w.EndHour; h++ {
				if covered[h] {
					return fmt.Errorf("hour %d covered by more than one window", h)
				}
				covered[h] = true
			}
		}
	}
	for h, ok := range covered {
		if !ok {
			return fmt.Errorf("hour %d not covered by any tier", h)
		}
	}
	return nil
}

// TierAt returns the tier in effect at the given hour of day.
func (t Table) TierAt(hour int) (Tier, error) {
	hour = ((hour % 24) + 24) % 24
	for _, tier := range t.Tiers {
		for _, w := range tier.Windows {
			if w.Contains(hour) {
				return tier, nil
			}
		}
	}
	return Tier{}, fmt.Errorf("hour %d not covered by table %q", hour, t.Name)
}

// PriceSeries expands the table into per-step prices and tier labels for a
// horizon of n steps of dtHours each, starting at startHour.
func (t Table) PriceSeries(startHour float64, n int, dtHours float64) ([]float64, []string, error) {
	prices := make([]float64, n)
	tiers := make([]string, n)
	for i := 0; i < n; i++ {
		hour := int(math.Floor(startHour+float64(i)*dtHours)) % 24
		tier, err := t.TierAt(hour)
		if err != nil {
			return nil, nil, err
		}
		prices[i] = tier.Rate
		tiers[i] = tier.Name
	}
	return prices, tiers, nil
}

// Taiwan returns the two-season commercial time-of-use table. Summer runs
// June through September.
func Taiwan(summer bool) Table {
	peak, half, off := 9.34, 5.80, 2.29
	name := "taiwan_summer"
	if !summer {
		peak, half, off = 9.10, 5.54, 2.18
		name = "taiwan_non_summer"
	}
	return Table{
		Name: name,
		Tiers: []Tier{
			{Name: TierPeak, Rate: peak, Windows: []Window{{10, 12}, {13, 17}}},
			{Name: TierHalfPeak, Rate: half, Windows: []Window{{7, 10}, {12, 13}, {17, 23}}},
			{Name: TierOffPeak, Rate: off, Windows: []Window{{0, 7}, {23, 24}}},
		},
	}
}

// ForMonth picks the seasonal Taiwan table for a calendar month (1-12).
func ForMonth(month int) Table {
	return Taiwan(month >= 6 && month <= 9)
}

// Flat returns a single-tier table, useful for markets without time-of-use
// pricing.
func Flat(rate float64) Table {
	return Table{
		Name:  "flat",
		Tiers: []Tier{{Name: TierOffPeak, Rate: rate, Windows: []Window{{0, 24}}}},
	}
}
