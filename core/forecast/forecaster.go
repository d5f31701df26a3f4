package forecast

import (
	"context"
	"fmt"
	"time"
)

// Forecaster returns the expected net load, in kW, for n steps of dtHours
// starting at the given time. Net load is consumption minus on-site
// generation and may be negative.
type Forecaster interface {
	NetLoadKw(ctx context.Context, start time.Time, n int, dtHours float64) ([]float64, error)
}

// Static serves a fixed series, for tests and file-driven runs.
type Static struct {
	Series []float64
}

// NetLoadKw returns a copy of the first n values of the configured series.
func (s Static) NetLoadKw(_ context.Context, _ time.Time, n int, _ float64) ([]float64, error) {
	if n > len(s.Series) {
		return nil, fmt.Errorf("forecast series has %d steps, %d requested", len(s.Series), n)
	}
	cp := make([]float64, n)
	copy(cp, s.Series[:n])
	return cp, nil
}
