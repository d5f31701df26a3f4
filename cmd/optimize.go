package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fader2077/EcoGrid-AuditPredict/app"
	"github.com/fader2077/EcoGrid-AuditPredict/config"
	"github.com/fader2077/EcoGrid-AuditPredict/core/forecast"
)

var forecastPath string

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Compute a dispatch schedule for a net-load forecast",
	RunE:  runOptimize,
}

func init() {
	optimizeCmd.Flags().StringVarP(&forecastPath, "forecast", "f", "forecast.json", "net-load forecast file")
	rootCmd.AddCommand(optimizeCmd)
}

// forecastFile is the on-disk forecast format.
type forecastFile struct {
	Start     time.Time `json:"start"`
	DtHours   float64   `json:"dt_hours"`
	NetLoadKw []float64 `json:"net_load_kw"`
}

func (f forecastFile) forecaster() forecast.Static {
	return forecast.Static{Series: f.NetLoadKw}
}

func readForecast(path string) (forecastFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return forecastFile{}, fmt.Errorf("read forecast: %w", err)
	}
	var f forecastFile
	if err := json.Unmarshal(data, &f); err != nil {
		return forecastFile{}, fmt.Errorf("parse forecast: %w", err)
	}
	if f.DtHours == 0 {
		f.DtHours = 1
	}
	if f.Start.IsZero() {
		f.Start = time.Now()
	}
	return f, nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fc, err := readForecast(forecastPath)
	if err != nil {
		return err
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()
	svc.Start(ctx)

	res, err := svc.Optimize(ctx, fc.forecaster(), fc.Start, len(fc.NetLoadKw), fc.DtHours)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
