package metrics

import "github.com/fader2077/EcoGrid-AuditPredict/core/factory"

var sinkRegistry = factory.NewRegistry[ResultSink]()

// RegisterResultSink adds a result sink factory identified by name.
func RegisterResultSink(name string, f factory.Factory[ResultSink]) error {
	return sinkRegistry.Register(name, f)
}

// NewResultSink creates a ResultSink from the provided configuration. No
// configured sinks means events are discarded.
func NewResultSink(cfgs []factory.ModuleConfig) (ResultSink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]ResultSink, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}
