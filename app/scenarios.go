package app

import (
	"context"
	"fmt"
	"time"

	"github.com/fader2077/EcoGrid-AuditPredict/core/forecast"
	"github.com/fader2077/EcoGrid-AuditPredict/core/model"
	"github.com/fader2077/EcoGrid-AuditPredict/core/optimizer"
)

// Scenario describes a what-if variation of the configured system. Zero
// fields keep the configured value.
type Scenario struct {
	Name               string  `json:"name"`
	CapacityKwh        float64 `json:"capacity_kwh"`
	MaxChargeKw        float64 `json:"max_charge_kw"`
	MaxDischargeKw     float64 `json:"max_discharge_kw"`
	ContractCapacityKw float64 `json:"contract_capacity_kw"`
}

// ScenarioResult is the outcome of one what-if run.
type ScenarioResult struct {
	Name   string                   `json:"name"`
	Result model.OptimizationResult `json:"result"`
}

// Simulate runs the same forecast under each scenario, so operators can
// compare battery sizings and contract capacities before committing to one.
func (s *Service) Simulate(ctx context.Context, fc forecast.Forecaster, start time.Time, n int, dtHours float64, scenarios []Scenario) ([]ScenarioResult, error) {
	netLoadKw, err := fc.NetLoadKw(ctx, start, n, dtHours)
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	table, err := s.cfg.Tariff.Resolve(int(start.Month()))
	if err != nil {
		return nil, err
	}
	startHour := float64(start.Hour()) + float64(start.Minute())/60
	prices, tiers, err := table.PriceSeries(startHour, len(netLoadKw), dtHours)
	if err != nil {
		return nil, err
	}
	horizon, err := model.NewHorizon(netLoadKw, prices, dtHours, tiers)
	if err != nil {
		return nil, err
	}

	results := make([]ScenarioResult, 0, len(scenarios))
	for _, sc := range scenarios {
		battery := s.battery
		if sc.CapacityKwh > 0 {
			battery.CapacityKwh = sc.CapacityKwh
		}
		if sc.MaxChargeKw > 0 {
			battery.MaxChargeKw = sc.MaxChargeKw
		}
		if sc.MaxDischargeKw > 0 {
			battery.MaxDischargeKw = sc.MaxDischargeKw
		}
		contract := s.cfg.Grid.ContractCapacityKw
		if sc.ContractCapacityKw > 0 {
			contract = sc.ContractCapacityKw
		}
		req := optimizer.Request{
			Horizon:            horizon,
			Battery:            battery,
			ContractCapacityKw: contract,
			DemandChargeRate:   s.cfg.Grid.DemandChargeRate,
			AllowExport:        s.cfg.Grid.AllowExport,
		}
		out, err := s.engine.Optimize(ctx, req)
		if err != nil && ctx.Err() != nil {
			return nil, err
		}
		// Invalid variants are reported, not fatal.
		results = append(results, ScenarioResult{Name: sc.Name, Result: out})
	}
	return results, nil
}
