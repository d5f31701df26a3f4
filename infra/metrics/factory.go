package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fader2077/EcoGrid-AuditPredict/core/factory"
	coremetrics "github.com/fader2077/EcoGrid-AuditPredict/core/metrics"
)

// init registers the built-in result sinks.
func init() {
	_ = coremetrics.RegisterResultSink("nop", func(map[string]any) (coremetrics.ResultSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterResultSink("prometheus", func(map[string]any) (coremetrics.ResultSink, error) {
		return NewPromSink(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterResultSink("influx", func(conf map[string]any) (coremetrics.ResultSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})
}
