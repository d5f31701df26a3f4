package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fader2077/EcoGrid-AuditPredict/app"
	"github.com/fader2077/EcoGrid-AuditPredict/config"
)

var scenariosPath string

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Compare what-if battery and contract scenarios on one forecast",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().StringVarP(&forecastPath, "forecast", "f", "forecast.json", "net-load forecast file")
	simulateCmd.Flags().StringVarP(&scenariosPath, "scenarios", "s", "scenarios.json", "scenario list file")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
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
	data, err := os.ReadFile(scenariosPath)
	if err != nil {
		return fmt.Errorf("read scenarios: %w", err)
	}
	var scenarios []app.Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return fmt.Errorf("parse scenarios: %w", err)
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	results, err := svc.Simulate(ctx, fc.forecaster(), fc.Start, len(fc.NetLoadKw), fc.DtHours, scenarios)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
