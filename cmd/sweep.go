package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/solarsim/app"
	coremon "github.com/kilianp07/solarsim/core/monitoring"
	"github.com/kilianp07/solarsim/infra/logger"
)

var sweepTop int

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Rank tilt, azimuth and battery capacity combinations by net bill",
	RunE:  runSweep,
}

func init() {
	sweepCmd.Flags().IntVar(&sweepTop, "top", 10, "number of cases to print, 0 for all")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	defer coremon.Recover()
	ctx, stop, cfg, err := setup()
	if err != nil {
		return err
	}
	defer stop()

	logg := logger.New("sweep-command")
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

	results, err := svc.Sweep(ctx)
	if err != nil {
		return err
	}
	if sweepTop > 0 && len(results) > sweepTop {
		results = results[:sweepTop]
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "rank\ttilt\tazimuth\tcapacity Wh\tpv kWh\tnet\tpayback\t")
	for i, r := range results {
		payback := "never"
		if r.Summary.Stats.PaybackYears >= 0 {
			payback = fmt.Sprintf("%.1f", r.Summary.Stats.PaybackYears)
		}
		fmt.Fprintf(tw, "%d\t%g\t%g\t%g\t%.1f\t%.2f\t%s\t\n", i+1,
			r.Case.Tilt, r.Case.Azimuth, r.Case.CapacityWh, r.Summary.PVKWh, r.Summary.Net, payback)
	}
	return tw.Flush()
}
