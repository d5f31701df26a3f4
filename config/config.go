// Package config loads the service configuration from YAML or JSON files with
// optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	coremetrics "github.com/fader2077/EcoGrid-AuditPredict/core/metrics"
	"github.com/fader2077/EcoGrid-AuditPredict/core/optimizer"
	"github.com/fader2077/EcoGrid-AuditPredict/infra/mqtt"
)

// Config is the root service configuration.
type Config struct {
	Battery    BatteryConfig      `json:"battery"`
	Grid       GridConfig         `json:"grid"`
	Solver     optimizer.Config   `json:"solver"`
	Tariff     TariffConfig       `json:"tariff"`
	Metrics    coremetrics.Config `json:"metrics"`
	MQTT       mqtt.Config        `json:"mqtt"`
	Monitoring MonitoringConfig   `json:"monitoring"`
}

// MonitoringConfig controls the Prometheus scrape endpoint.
type MonitoringConfig struct {
	// PrometheusAddr is the listen address for /metrics; empty disables it.
	PrometheusAddr string `json:"prometheus_addr"`
}

// Load reads the config file, applies EG_-prefixed environment overrides
// (EG_GRID__CONTRACT_CAPACITY_KW maps to grid.contract_capacity_kw), then
// defaults and validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("EG_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "eg_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Battery.SetDefaults()
	cfg.Solver.SetDefaults()
	cfg.MQTT.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks all sections.
func (c Config) Validate() error {
	if _, err := c.Battery.Model(); err != nil {
		return fmt.Errorf("battery: %w", err)
	}
	if err := c.Grid.Validate(); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	if _, err := c.Tariff.Resolve(1); err != nil {
		return fmt.Errorf("tariff: %w", err)
	}
	if c.MQTT.Broker != "" {
		if err := c.MQTT.Validate(); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	return nil
}
