package metrics

import (
	"context"

	coremetrics "github.com/fader2077/EcoGrid-AuditPredict/core/metrics"
	"github.com/fader2077/EcoGrid-AuditPredict/infra/logger"
	"github.com/fader2077/EcoGrid-AuditPredict/internal/eventbus"
)

// Collector drains optimization events from the bus into a sink.
type Collector struct {
	bus  *eventbus.Bus[coremetrics.OptimizationEvent]
	sink coremetrics.ResultSink
	log  logger.Logger
}

// NewCollector wires the bus to the sink. A nil sink discards events.
func NewCollector(bus *eventbus.Bus[coremetrics.OptimizationEvent], sink coremetrics.ResultSink) *Collector {
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	return &Collector{bus: bus, sink: sink, log: logger.New("metrics-collector")}
}

// Run consumes events until the context is cancelled or the bus closes.
// Record failures are logged and skipped; observability never blocks
// optimization.
func (c *Collector) Run(ctx context.Context) {
	ch := c.bus.Subscribe()
	defer c.bus.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := c.sink.RecordOptimization(ev); err != nil {
				c.log.Errorf("record optimization %s: %v", ev.RequestID, err)
			}
		}
	}
}
