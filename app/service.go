// Package app wires configuration, the optimization engine and the
// observability adapters into a runnable service.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fader2077/EcoGrid-AuditPredict/config"
	"github.com/fader2077/EcoGrid-AuditPredict/core/costs"
	"github.com/fader2077/EcoGrid-AuditPredict/core/forecast"
	coremetrics "github.com/fader2077/EcoGrid-AuditPredict/core/metrics"
	"github.com/fader2077/EcoGrid-AuditPredict/core/model"
	"github.com/fader2077/EcoGrid-AuditPredict/core/optimizer"
	"github.com/fader2077/EcoGrid-AuditPredict/infra/logger"
	inframetrics "github.com/fader2077/EcoGrid-AuditPredict/infra/metrics"
	"github.com/fader2077/EcoGrid-AuditPredict/infra/mqtt"
	"github.com/fader2077/EcoGrid-AuditPredict/internal/eventbus"
)

// Service runs optimizations and fans results out to the configured sinks.
type Service struct {
	cfg       *config.Config
	engine    *optimizer.Engine
	battery   model.BatteryModel
	bus       *eventbus.Bus[coremetrics.OptimizationEvent]
	sink      coremetrics.ResultSink
	publisher *mqtt.Publisher
	log       logger.Logger
}

// New builds a Service from the configuration. The MQTT publisher is only
// created when a broker is configured.
func New(cfg *config.Config) (*Service, error) {
	battery, err := cfg.Battery.Model()
	if err != nil {
		return nil, fmt.Errorf("battery: %w", err)
	}
	sink, err := coremetrics.NewResultSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	svc := &Service{
		cfg:     cfg,
		engine:  optimizer.NewEngine(cfg.Solver, logger.New("optimizer")),
		battery: battery,
		bus:     eventbus.New[coremetrics.OptimizationEvent](),
		sink:    sink,
		log:     logger.New("service"),
	}
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt: %w", err)
		}
		svc.publisher = pub
	}
	return svc, nil
}

// Start launches the metrics collector and, when configured, the Prometheus
// endpoint and the MQTT event stream. It returns immediately.
func (s *Service) Start(ctx context.Context) {
	go inframetrics.NewCollector(s.bus, s.sink).Run(ctx)
	if addr := s.cfg.Monitoring.PrometheusAddr; addr != "" {
		go func() {
			if err := inframetrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prometheus server: %v", err)
			}
		}()
	}
	if s.publisher != nil {
		s.publisher.Watch(s.bus)
	}
}

// Result bundles the optimization outcome with operator advice.
type Result struct {
	RequestID       string                   `json:"request_id"`
	Optimization    model.OptimizationResult `json:"optimization"`
	Recommendations []string                 `json:"recommendations"`
}

// Optimize fetches n steps of net load from the forecaster and runs one
// dispatch optimization. Prices and tier labels come from the configured
// tariff.
func (s *Service) Optimize(ctx context.Context, fc forecast.Forecaster, start time.Time, n int, dtHours float64) (Result, error) {
	requestID := uuid.NewString()
	netLoadKw, err := fc.NetLoadKw(ctx, start, n, dtHours)
	if err != nil {
		return Result{RequestID: requestID}, fmt.Errorf("forecast: %w", err)
	}
	table, err := s.cfg.Tariff.Resolve(int(start.Month()))
	if err != nil {
		return Result{RequestID: requestID}, err
	}
	startHour := float64(start.Hour()) + float64(start.Minute())/60
	prices, tiers, err := table.PriceSeries(startHour, len(netLoadKw), dtHours)
	if err != nil {
		return Result{RequestID: requestID}, err
	}
	horizon, err := model.NewHorizon(netLoadKw, prices, dtHours, tiers)
	if err != nil {
		return Result{
			RequestID:    requestID,
			Optimization: model.OptimizationResult{Status: model.StatusInvalidInput, Diagnostic: &model.Diagnostic{Reason: err.Error()}},
		}, err
	}
	req := optimizer.Request{
		Horizon:            horizon,
		Battery:            s.battery,
		ContractCapacityKw: s.cfg.Grid.ContractCapacityKw,
		DemandChargeRate:   s.cfg.Grid.DemandChargeRate,
		AllowExport:        s.cfg.Grid.AllowExport,
	}

	began := time.Now()
	out, err := s.engine.Optimize(ctx, req)
	elapsed := time.Since(began)

	s.bus.Publish(coremetrics.OptimizationEvent{
		RequestID:     requestID,
		Solver:        s.cfg.Solver.EffectiveSolver(req),
		Status:        out.Status,
		HorizonSteps:  horizon.Len(),
		BaselineCost:  out.BaselineCost,
		OptimizedCost: out.OptimizedCost,
		Savings:       out.Savings,
		PeakBeforeKw:  out.PeakBefore,
		PeakAfterKw:   out.PeakAfter,
		SolveDuration: elapsed,
		Time:          began,
	})

	res := Result{
		RequestID:       requestID,
		Optimization:    out,
		Recommendations: costs.Recommendations(horizon, out.Schedule, metricsOf(out)),
	}
	if s.publisher != nil {
		if perr := s.publisher.PublishResult(requestID, out); perr != nil {
			s.log.Errorf("publish result %s: %v", requestID, perr)
		}
	}
	if err != nil {
		return res, err
	}
	s.log.Infof("optimization %s: %s, savings %.2f, peak %.1f -> %.1f kW in %s",
		requestID, out.Status, out.Savings, out.PeakBefore, out.PeakAfter, elapsed)
	return res, nil
}

// Close releases external connections and stops event fan-out.
func (s *Service) Close() {
	s.bus.Close()
	if s.publisher != nil {
		s.publisher.Close()
	}
}

func metricsOf(out model.OptimizationResult) costs.Metrics {
	return costs.Metrics{
		BaselineCost:     out.BaselineCost,
		OptimizedCost:    out.OptimizedCost,
		Savings:          out.Savings,
		SavingsPct:       out.SavingsPct,
		PeakBefore:       out.PeakBefore,
		PeakAfter:        out.PeakAfter,
		PeakReductionPct: out.PeakReductionPct,
	}
}
