// Package export writes run results as CSV, JSON and HTML charts.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/solarsim/core/metrics"
	"github.com/kilianp07/solarsim/core/scenario"
)

// LedgerHeader is the first row written by WriteLedgerCSV.
var LedgerHeader = []string{"index", "time", "pv_w", "load_w", "net_w", "battery_w", "residual_w", "soc_wh", "action"}

// WriteLedgerCSV writes one row per step.
func WriteLedgerCSV(w io.Writer, ledger []metrics.StepSample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LedgerHeader); err != nil {
		return err
	}
	for _, s := range ledger {
		rec := []string{
			strconv.Itoa(s.Index),
			s.Time.Format(time.RFC3339),
			fmtFloat(s.PVW),
			fmtFloat(s.LoadW),
			fmtFloat(s.NetW),
			fmtFloat(s.BatteryW),
			fmtFloat(s.ResidualW),
			fmtFloat(s.SoCWh),
			s.Action,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryJSON writes the run summary as indented JSON.
func WriteSummaryJSON(w io.Writer, s metrics.RunSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteSweepCSV writes one row per sweep case in the given order.
func WriteSweepCSV(w io.Writer, results []scenario.SweepResult) error {
	cw := csv.NewWriter(w)
	header := []string{"rank", "tilt", "azimuth", "capacity_wh", "pv_kwh", "import_kwh", "export_kwh", "net", "self_consumption", "payback_years"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, r := range results {
		s := r.Summary
		rec := []string{
			strconv.Itoa(i + 1),
			fmtFloat(r.Case.Tilt),
			fmtFloat(r.Case.Azimuth),
			fmtFloat(r.Case.CapacityWh),
			fmtFloat(s.PVKWh),
			fmtFloat(s.ImportKWh),
			fmtFloat(s.ExportKWh),
			fmtFloat(s.Net),
			fmtFloat(s.Stats.SelfConsumption),
			fmtFloat(s.Stats.PaybackYears),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteChartHTML renders the power flows and state of charge of a ledger as
// an interactive line chart.
func WriteChartHTML(w io.Writer, title string, ledger []metrics.StepSample) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Top: "5%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "W / Wh"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)

	xAxis := make([]string, len(ledger))
	pv := make([]opts.LineData, len(ledger))
	load := make([]opts.LineData, len(ledger))
	bat := make([]opts.LineData, len(ledger))
	residual := make([]opts.LineData, len(ledger))
	soc := make([]opts.LineData, len(ledger))
	for i, s := range ledger {
		xAxis[i] = s.Time.Format("2006-01-02 15:04")
		pv[i] = opts.LineData{Value: round1(s.PVW)}
		load[i] = opts.LineData{Value: round1(s.LoadW)}
		bat[i] = opts.LineData{Value: round1(s.BatteryW)}
		residual[i] = opts.LineData{Value: round1(s.ResidualW)}
		soc[i] = opts.LineData{Value: round1(s.SoCWh)}
	}
	line.SetXAxis(xAxis).
		AddSeries("PV (W)", pv).
		AddSeries("Load (W)", load).
		AddSeries("Battery (W)", bat).
		AddSeries("Residual (W)", residual).
		AddSeries("SoC (Wh)", soc)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
