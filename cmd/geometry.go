package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/solarsim/config"
	"github.com/kilianp07/solarsim/core/solar"
)

var (
	geoDate  string
	geoStep  time.Duration
	geoArray int
)

var geometryCmd = &cobra.Command{
	Use:   "geometry",
	Short: "Print solar angles for one day at the configured site",
	RunE:  runGeometry,
}

func init() {
	geometryCmd.Flags().StringVar(&geoDate, "date", time.Now().UTC().Format(time.DateOnly), "day to tabulate (YYYY-MM-DD, site clock)")
	geometryCmd.Flags().DurationVar(&geoStep, "step", time.Hour, "interval between rows")
	geometryCmd.Flags().IntVar(&geoArray, "array", 0, "index of the array whose incidence angle is shown")
	rootCmd.AddCommand(geometryCmd)
}

func runGeometry(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	sites := cfg.Site.Sites()
	if geoArray < 0 || geoArray >= len(sites) {
		return fmt.Errorf("array index %d out of range, %d arrays configured", geoArray, len(sites))
	}
	if geoStep <= 0 {
		return fmt.Errorf("step must be positive")
	}
	site := sites[geoArray]
	zone := time.FixedZone("site", int(site.TimeZoneHours*3600))
	day, err := time.ParseInLocation(time.DateOnly, geoDate, zone)
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
	}
	return writeGeometry(cmd, solar.NewEngine(site), day, geoStep)
}

func writeGeometry(cmd *cobra.Command, eng *solar.Engine, day time.Time, step time.Duration) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "time\tdecl\tdecl (meeus)\teot min\thour angle\tzenith\tincidence\t")
	for t := day; t.Before(day.Add(24 * time.Hour)); t = t.Add(step) {
		p := eng.Position(t)
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.2f\t%.3f\t%.3f\t%.3f\t\n",
			t.Format("15:04"), p.Declination, solar.PreciseDeclination(t), eng.EquationOfTime(t),
			p.HourAngle, p.Zenith, p.Incidence)
	}
	return tw.Flush()
}
