package metrics

import (
	"context"
	"sync"

	"github.com/kilianp07/solarsim/core/events"
	coremetrics "github.com/kilianp07/solarsim/core/metrics"
	"github.com/kilianp07/solarsim/infra/logger"
	"github.com/kilianp07/solarsim/internal/eventbus"
)

// stepBatch bounds how many step events are buffered before they are flushed
// to the sink.
const stepBatch = 256

// StartEventCollector subscribes to the step and run buses and forwards the
// events to sink. Steps are flushed in batches and before each run summary.
// The returned function blocks until the collector has drained.
func StartEventCollector(ctx context.Context, steps *eventbus.TypedBus[events.StepEvent], runs *eventbus.TypedBus[events.RunEvent], sink coremetrics.MetricsSink) (wait func()) {
	var wg sync.WaitGroup
	if sink == nil || (steps == nil && runs == nil) {
		return wg.Wait
	}
	log := logger.New("event-collector")
	var stepCh <-chan events.StepEvent
	var runCh <-chan events.RunEvent
	if steps != nil {
		stepCh = steps.SubscribeN(stepBatch * 4)
	}
	if runs != nil {
		runCh = runs.Subscribe()
	}
	rec, _ := sink.(coremetrics.StepRecorder)

	pending := make(map[string][]coremetrics.StepSample)
	cases := make(map[string]string)
	flush := func(runID string) {
		batch := pending[runID]
		delete(pending, runID)
		if rec == nil || len(batch) == 0 {
			return
		}
		if err := rec.RecordSteps(runID, cases[runID], batch); err != nil {
			log.Warnf("record steps for %s: %v", runID, err)
		}
	}
	add := func(ev events.StepEvent) {
		cases[ev.RunID] = ev.Case
		pending[ev.RunID] = append(pending[ev.RunID], SampleFromEvent(ev))
		if len(pending[ev.RunID]) >= stepBatch {
			flush(ev.RunID)
		}
	}
	drain := func() {
		for {
			select {
			case ev, ok := <-stepCh:
				if !ok {
					stepCh = nil
					return
				}
				add(ev)
			default:
				return
			}
		}
	}
	flushAll := func() {
		for id := range pending {
			flush(id)
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if steps != nil {
				steps.Unsubscribe(stepCh)
			}
			if runs != nil {
				runs.Unsubscribe(runCh)
			}
		}()
		for stepCh != nil || runCh != nil {
			select {
			case <-ctx.Done():
				flushAll()
				return
			case ev, ok := <-stepCh:
				if !ok {
					stepCh = nil
					continue
				}
				add(ev)
			case ev, ok := <-runCh:
				if !ok {
					runCh = nil
					continue
				}
				// Steps of this run were delivered before the summary but may
				// still sit in the step channel.
				drain()
				flush(ev.Summary.RunID)
				if err := sink.RecordRun(ev.Summary); err != nil {
					log.Warnf("record run %s: %v", ev.Summary.RunID, err)
				}
			}
		}
		flushAll()
	}()
	return wg.Wait
}

// SampleFromEvent converts a bus event into a ledger row.
func SampleFromEvent(ev events.StepEvent) coremetrics.StepSample {
	return coremetrics.StepSample{
		Index:     ev.Index,
		Time:      ev.Time,
		PVW:       ev.PVW,
		LoadW:     ev.LoadW,
		NetW:      ev.NetW,
		BatteryW:  ev.PowerW,
		ResidualW: ev.ResidualW,
		SoCWh:     ev.SoCEndWh,
		Action:    string(ev.Action),
	}
}
