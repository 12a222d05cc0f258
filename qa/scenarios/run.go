package scenarios

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/kilianp07/solarsim/core/battery"
	"github.com/kilianp07/solarsim/core/events"
	coremetrics "github.com/kilianp07/solarsim/core/metrics"
	"github.com/kilianp07/solarsim/core/model"
	"github.com/kilianp07/solarsim/core/tariff"
	"github.com/kilianp07/solarsim/infra/metrics"
	"github.com/kilianp07/solarsim/internal/eventbus"
)

func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	steps := eventbus.NewTyped[events.StepEvent]()
	runs := eventbus.NewTyped[events.RunEvent]()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wait := metrics.StartEventCollector(ctx, steps, runs, sink)

	sim, err := battery.NewSimulator(sc.Battery.ToModel(), sc.DTHours)
	if err != nil {
		t.Fatalf("simulator: %v", err)
	}
	tr, err := sim.Run(sc.Series())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	bill := tariff.Settle(tr.ResidualW, sc.DTHours, model.Tariff{
		ImportPrice: sc.Tariff.ImportPrice,
		ExportPrice: sc.Tariff.ExportPrice,
	})

	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	interval := time.Duration(sc.DTHours * float64(time.Hour))
	for i, st := range tr.Steps {
		ev := events.StepEvent{RunID: sc.Name, Case: sc.Name, Time: start.Add(time.Duration(i) * interval), StepResult: st}
		if err := steps.PublishCtx(ctx, ev); err != nil {
			t.Fatalf("publish step %d: %v", i, err)
		}
	}
	summary := coremetrics.RunSummary{
		RunID:     sc.Name,
		Case:      sc.Name,
		Steps:     len(tr.Steps),
		DTHours:   sc.DTHours,
		FinalSoC:  tr.FinalSoCWh(),
		ImportKWh: bill.ImportKWh,
		ExportKWh: bill.ExportKWh,
		Cost:      bill.Cost,
		Revenue:   bill.Revenue,
		Net:       bill.Net,
	}
	if err := runs.PublishCtx(ctx, events.RunEvent{Summary: summary}); err != nil {
		t.Fatalf("publish run: %v", err)
	}
	steps.Close()
	runs.Close()
	wait()

	exp := sc.Expected
	check := func(what string, want, got float64) {
		if math.Abs(want-got) > sc.Tolerance {
			t.Errorf("scenario %s: %s expected %v, got %v", sc.Name, what, want, got)
		}
	}
	check("final soc", exp.FinalSoCWh, tr.FinalSoCWh())
	check("import", exp.ImportKWh, bill.ImportKWh)
	check("export", exp.ExportKWh, bill.ExportKWh)
	check("net bill", exp.Net, bill.Net)

	for i, st := range tr.Steps {
		if st.SoCEndWh < 0 || st.SoCEndWh > sc.Battery.CapacityWh {
			t.Errorf("scenario %s: step %d soc %v outside [0, %v]", sc.Name, i, st.SoCEndWh, sc.Battery.CapacityWh)
		}
		if math.Abs(st.PowerW) > sc.Battery.PowerLimitW {
			t.Errorf("scenario %s: step %d power %v above limit", sc.Name, i, st.PowerW)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	total := 0
	for action, n := range exp.Actions {
		total += n
		got := sampleValue(families, "solarsim_steps_total", map[string]string{"case": sc.Name, "action": action})
		if int(got) != n {
			t.Errorf("scenario %s: %s steps expected %d, got %v", sc.Name, action, n, got)
		}
	}
	if total != len(tr.Steps) {
		t.Errorf("scenario %s: expected actions cover %d steps, run has %d", sc.Name, total, len(tr.Steps))
	}
	check("soc gauge", exp.FinalSoCWh, sampleValue(families, "solarsim_battery_soc_wh", map[string]string{"case": sc.Name}))
	check("runs counter", 1, sampleValue(families, "solarsim_runs_total", map[string]string{"case": sc.Name}))
}

// sampleValue returns the counter or gauge value of the series of name
// carrying exactly labels, or 0 when it does not exist.
func sampleValue(families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !hasLabels(m.GetLabel(), labels) {
				continue
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func hasLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, lp := range pairs {
		if want[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}
