package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/solarsim/core/battery"
	"github.com/kilianp07/solarsim/core/events"
	"github.com/kilianp07/solarsim/core/logger"
	"github.com/kilianp07/solarsim/core/metrics"
	"github.com/kilianp07/solarsim/core/model"
	"github.com/kilianp07/solarsim/core/monitoring"
	"github.com/kilianp07/solarsim/core/pv"
	"github.com/kilianp07/solarsim/core/series"
	"github.com/kilianp07/solarsim/core/tariff"
	"github.com/kilianp07/solarsim/internal/eventbus"
)

// Result is everything a run produced.
type Result struct {
	Summary  metrics.RunSummary
	Samples  []model.TimeSample
	ArrayW   [][]float64 // per array, same order as Scenario.Arrays
	PVW      []float64
	NetW     []float64
	Trace    battery.Trace
	Bill     tariff.Bill
	Baseline tariff.Bill
}

// Ledger returns one row per step.
func (r *Result) Ledger() []metrics.StepSample {
	out := make([]metrics.StepSample, len(r.Trace.Steps))
	for i, st := range r.Trace.Steps {
		out[i] = metrics.StepSample{
			Index:     st.Index,
			Time:      r.Samples[i].Time,
			PVW:       r.PVW[i],
			LoadW:     r.Samples[i].LoadW,
			NetW:      st.NetW,
			BatteryW:  st.PowerW,
			ResidualW: st.ResidualW,
			SoCWh:     st.SoCEndWh,
			Action:    string(st.Action),
		}
	}
	return out
}

// Runner executes scenarios. Step and run events are published on the
// configured buses; a nil bus is skipped.
type Runner struct {
	workers int
	log     logger.Logger
	steps   *eventbus.TypedBus[events.StepEvent]
	runs    *eventbus.TypedBus[events.RunEvent]
	newID   func() string
	now     func() time.Time
}

// NewRunner returns a Runner evaluating PV with up to workers goroutines.
func NewRunner(log logger.Logger, workers int) *Runner {
	return &Runner{
		workers: workers,
		log:     log,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// SetStepBus publishes every simulated interval on bus.
func (r *Runner) SetStepBus(bus *eventbus.TypedBus[events.StepEvent]) { r.steps = bus }

// SetRunBus publishes every finished run on bus.
func (r *Runner) SetRunBus(bus *eventbus.TypedBus[events.RunEvent]) { r.runs = bus }

// Run validates the inputs, evaluates every array, dispatches the battery
// against the net load and settles both the result and a no-PV, no-battery
// baseline.
func (r *Runner) Run(ctx context.Context, sc Scenario, samples []model.TimeSample) (*Result, error) {
	res, err := r.run(ctx, sc, samples)
	if err != nil {
		monitoring.CaptureException(err, map[string]string{"module": "scenario", "case": sc.Case})
		return nil, err
	}
	return res, nil
}

func (r *Runner) run(ctx context.Context, sc Scenario, samples []model.TimeSample) (*Result, error) {
	started := r.now()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if err := series.Validate(samples, sc.DTHours); err != nil {
		return nil, err
	}
	sim, err := battery.NewSimulator(sc.Battery, sc.DTHours)
	if err != nil {
		return nil, err
	}

	res := &Result{Samples: samples, ArrayW: make([][]float64, len(sc.Arrays)), PVW: make([]float64, len(samples))}
	for i, a := range sc.Arrays {
		m, err := pv.NewModel(a.Site)
		if err != nil {
			return nil, fmt.Errorf("array %s: %w", a.Asset.Name, err)
		}
		out, err := m.OutputSeries(ctx, samples, r.workers)
		if err != nil {
			return nil, fmt.Errorf("array %s: %w", a.Asset.Name, err)
		}
		res.ArrayW[i] = out
		for j, p := range out {
			res.PVW[j] += p
		}
	}

	load := make([]float64, len(samples))
	res.NetW = make([]float64, len(samples))
	for i, s := range samples {
		load[i] = s.LoadW
		res.NetW[i] = s.LoadW - res.PVW[i]
	}
	if res.Trace, err = sim.Run(res.NetW); err != nil {
		return nil, err
	}
	res.Bill = tariff.Settle(res.Trace.ResidualW, sc.DTHours, sc.Tariff)
	res.Baseline = tariff.Settle(load, sc.DTHours, sc.Tariff)

	tot, stats := Summarize(res.PVW, load, res.Trace, sc.DTHours, sc.Battery.CapacityWh, sc.InstallCost(), res.Bill, res.Baseline)
	res.Summary = metrics.RunSummary{
		RunID:     r.newID(),
		Case:      sc.Case,
		Start:     samples[0].Time,
		End:       samples[len(samples)-1].Time,
		Steps:     len(samples),
		DTHours:   sc.DTHours,
		FinalSoC:  res.Trace.FinalSoCWh(),
		PVKWh:     tot.PVKWh,
		LoadKWh:   tot.LoadKWh,
		ImportKWh: res.Bill.ImportKWh,
		ExportKWh: res.Bill.ExportKWh,
		Cost:      res.Bill.Cost,
		Revenue:   res.Bill.Revenue,
		Net:       res.Bill.Net,
		Stats:     stats,
	}
	res.Summary.Elapsed = r.now().Sub(started)

	if err := r.publish(ctx, res); err != nil {
		return nil, err
	}
	r.log.Infow("run complete", map[string]any{
		"run_id":     res.Summary.RunID,
		"case":       sc.Case,
		"steps":      res.Summary.Steps,
		"pv_kwh":     tot.PVKWh,
		"net":        res.Bill.Net,
		"baseline":   res.Baseline.Net,
		"elapsed_ms": res.Summary.Elapsed.Milliseconds(),
	})
	return res, nil
}

func (r *Runner) publish(ctx context.Context, res *Result) error {
	if r.steps != nil {
		for i, st := range res.Trace.Steps {
			ev := events.StepEvent{
				RunID:      res.Summary.RunID,
				Case:       res.Summary.Case,
				Time:       res.Samples[i].Time,
				PVW:        res.PVW[i],
				LoadW:      res.Samples[i].LoadW,
				StepResult: st,
			}
			if err := r.steps.PublishCtx(ctx, ev); err != nil {
				return fmt.Errorf("publish step %d: %w", i, err)
			}
		}
	}
	if r.runs != nil {
		if err := r.runs.PublishCtx(ctx, events.RunEvent{Summary: res.Summary}); err != nil {
			return fmt.Errorf("publish run: %w", err)
		}
	}
	return nil
}
