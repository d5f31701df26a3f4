// Package forecast provides interfaces for sourcing net-load forecasts.
// Forecasts arrive from external systems; the optimizer treats them as given
// and never second-guesses them.
package forecast
