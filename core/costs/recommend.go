package costs

import (
	"fmt"
	"sort"

	"github.com/fader2077/EcoGrid-AuditPredict/core/model"
)

// Recommendations derives short operator-facing advice strings from an
// optimized schedule. Peak steps are identified by tariff tier when the
// horizon carries labels, otherwise by the top price quartile.
func Recommendations(h *model.Horizon, s model.Schedule, m Metrics) []string {
	if len(s) == 0 {
		return []string{"no feasible schedule; consider raising the contract capacity or battery power limits"}
	}
	var recs []string

	peak := peakSteps(h)
	if len(peak) > 0 {
		var load, grid float64
		for _, t := range peak {
			load += positive(h.Step(t).NetLoadKw) * h.Step(t).DtHours
			grid += s[t].GridKw * h.Step(t).DtHours
		}
		if load > 0 && grid < load*0.8 {
			recs = append(recs, fmt.Sprintf("peak-period grid energy reduced by %.1f%%", (load-grid)/load*100))
		}
	}

	var dischargedKwh, offPeakChargeKwh float64
	for t, d := range s {
		dischargedKwh += d.DischargeKw * h.Step(t).DtHours
		if !isPeak(peak, t) {
			offPeakChargeKwh += d.ChargeKw * h.Step(t).DtHours
		}
	}
	if dischargedKwh > 0 {
		recs = append(recs, fmt.Sprintf("battery supplies %.1f kWh, lowering peak demand", dischargedKwh))
	}
	if offPeakChargeKwh > 0 {
		recs = append(recs, fmt.Sprintf("schedule %.1f kWh of charging in off-peak periods", offPeakChargeKwh))
	}
	if m.PeakReductionPct > 0.05 {
		recs = append(recs, fmt.Sprintf("peak load reduced by %.1f%%", m.PeakReductionPct*100))
	}
	if len(recs) == 0 {
		recs = append(recs, "no cost-saving opportunity in this horizon")
	}
	return recs
}

// peakSteps returns indices of the most expensive steps, by tier label when
// available and otherwise by the top price quartile.
func peakSteps(h *model.Horizon) []int {
	var idx []int
	labelled := false
	for i := 0; i < h.Len(); i++ {
		if h.Step(i).TariffTier == "peak" {
			idx = append(idx, i)
			labelled = true
		}
	}
	if labelled {
		return idx
	}
	prices := make([]float64, h.Len())
	for i := range prices {
		prices[i] = h.Step(i).PriceUnit
	}
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)
	threshold := sorted[(len(sorted)*3)/4]
	if threshold <= sorted[0] {
		return nil // flat tariff, no peak period
	}
	for i, p := range prices {
		if p >= threshold {
			idx = append(idx, i)
		}
	}
	return idx
}

func isPeak(peak []int, t int) bool {
	for _, p := range peak {
		if p == t {
			return true
		}
	}
	return false
}

func positive(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
