package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/solarsim/app"
	coremon "github.com/kilianp07/solarsim/core/monitoring"
	"github.com/kilianp07/solarsim/infra/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate the configured site against the input series",
	RunE:  runScenario,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runScenario(cmd *cobra.Command, _ []string) error {
	defer coremon.Recover()
	ctx, stop, cfg, err := setup()
	if err != nil {
		return err
	}
	defer stop()

	logg := logger.New("run-command")
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()
	svc.ServeMetrics(ctx)

	res, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	s := res.Summary
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s (%s): %d steps\n", s.RunID, s.Case, s.Steps)
	fmt.Fprintf(out, "  pv        %10.2f kWh  peak %.0f W\n", s.PVKWh, s.Stats.PeakPVW)
	fmt.Fprintf(out, "  load      %10.2f kWh\n", s.LoadKWh)
	fmt.Fprintf(out, "  import    %10.2f kWh  cost    %.2f\n", s.ImportKWh, s.Cost)
	fmt.Fprintf(out, "  export    %10.2f kWh  revenue %.2f\n", s.ExportKWh, s.Revenue)
	fmt.Fprintf(out, "  net bill  %10.2f  (baseline %.2f)\n", s.Net, res.Baseline.Net)
	fmt.Fprintf(out, "  self-consumption %.1f %%  self-sufficiency %.1f %%\n", 100*s.Stats.SelfConsumption, 100*s.Stats.SelfSufficiency)
	if s.Stats.PaybackYears >= 0 {
		fmt.Fprintf(out, "  payback   %10.1f years\n", s.Stats.PaybackYears)
	} else {
		fmt.Fprintln(out, "  payback   never")
	}
	return nil
}
