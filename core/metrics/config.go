package metrics

import "github.com/fader2077/EcoGrid-AuditPredict/core/factory"

// Config defines settings for result sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}
