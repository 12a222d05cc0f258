package scenario

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/solarsim/core/metrics"
	"github.com/kilianp07/solarsim/core/model"
)

// SweepSpec lists the values explored by a sweep. An empty list keeps the
// base scenario's value, taken from its first array. Each case sets every
// array to the swept tilt and azimuth, so a split east/west layout runs as a
// single orientation.
type SweepSpec struct {
	Tilts      []float64
	Azimuths   []float64
	Capacities []float64
	Parallel   int
}

// SweepCase is one point of the sweep grid.
type SweepCase struct {
	Tilt       float64 `json:"tilt"`
	Azimuth    float64 `json:"azimuth"`
	CapacityWh float64 `json:"capacity_wh"`
}

// Name labels the case in sinks and reports.
func (c SweepCase) Name() string {
	return fmt.Sprintf("tilt=%g/az=%g/cap=%g", c.Tilt, c.Azimuth, c.CapacityWh)
}

// SweepResult pairs a case with its run summary.
type SweepResult struct {
	Case    SweepCase          `json:"case"`
	Summary metrics.RunSummary `json:"summary"`
}

// Grid expands spec into the cartesian product of its lists. Missing lists
// take the value of the first array and the battery of base.
func Grid(base Scenario, spec SweepSpec) []SweepCase {
	tilts, azimuths, caps := spec.Tilts, spec.Azimuths, spec.Capacities
	if len(tilts) == 0 && len(base.Arrays) > 0 {
		tilts = []float64{base.Arrays[0].Site.TiltDeg}
	}
	if len(azimuths) == 0 && len(base.Arrays) > 0 {
		azimuths = []float64{base.Arrays[0].Site.AzimuthDeg}
	}
	if len(caps) == 0 {
		caps = []float64{base.Battery.CapacityWh}
	}
	out := make([]SweepCase, 0, len(tilts)*len(azimuths)*len(caps))
	for _, t := range tilts {
		for _, a := range azimuths {
			for _, c := range caps {
				out = append(out, SweepCase{Tilt: t, Azimuth: a, CapacityWh: c})
			}
		}
	}
	return out
}

// Sweep runs every grid case against samples and returns the results ranked
// by net bill, cheapest first. Cases run concurrently up to spec.Parallel;
// the first failure cancels the rest.
func (r *Runner) Sweep(ctx context.Context, base Scenario, spec SweepSpec, samples []model.TimeSample) ([]SweepResult, error) {
	grid := Grid(base, spec)
	out := make([]SweepResult, len(grid))
	g, ctx := errgroup.WithContext(ctx)
	if spec.Parallel > 0 {
		g.SetLimit(spec.Parallel)
	}
	for i, c := range grid {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sc := base.WithOrientation(c.Tilt, c.Azimuth).WithCapacity(c.CapacityWh)
			sc.Case = c.Name()
			res, err := r.Run(ctx, sc, samples)
			if err != nil {
				return fmt.Errorf("case %s: %w", sc.Case, err)
			}
			out[i] = SweepResult{Case: c, Summary: res.Summary}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Summary.Net < out[j].Summary.Net })
	return out, nil
}
