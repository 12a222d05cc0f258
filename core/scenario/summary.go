package scenario

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/solarsim/core/battery"
	"github.com/kilianp07/solarsim/core/metrics"
	"github.com/kilianp07/solarsim/core/tariff"
)

// hoursPerYear scales the simulated period to annual savings.
const hoursPerYear = 8760.0

// NeverPaysBack is reported as PaybackYears when the installation does not
// save money against the baseline.
const NeverPaysBack = -1.0

// Totals are the energy sums of a run in kWh.
type Totals struct {
	PVKWh   float64
	LoadKWh float64
}

// Summarize derives the run statistics. pvW and loadW must have the same
// length as the trace.
func Summarize(pvW, loadW []float64, tr battery.Trace, dt, capacityWh, installCost float64, bill, baseline tariff.Bill) (Totals, metrics.Stats) {
	var tot Totals
	var st metrics.Stats
	n := len(tr.ResidualW)
	if n == 0 {
		st.PaybackYears = NeverPaysBack
		return tot, st
	}
	tot.PVKWh = floats.Sum(pvW) * dt / 1000
	tot.LoadKWh = floats.Sum(loadW) * dt / 1000

	st.PeakPVW = math.Max(0, floats.Max(pvW))
	if n > 1 {
		st.MeanResidualW, st.StdResidualW = stat.MeanStdDev(tr.ResidualW, nil)
	} else {
		st.MeanResidualW = tr.ResidualW[0]
	}
	sorted := slices.Clone(tr.ResidualW)
	slices.Sort(sorted)
	st.P95ResidualW = stat.Quantile(0.95, stat.Empirical, sorted, nil)

	if tot.PVKWh > 0 {
		st.SelfConsumption = clamp01(1 - bill.ExportKWh/tot.PVKWh)
	}
	if tot.LoadKWh > 0 {
		st.SelfSufficiency = clamp01(1 - bill.ImportKWh/tot.LoadKWh)
	}
	if capacityWh > 0 {
		discharged, _ := tr.Energy(dt)
		st.EquivalentCycles = discharged / capacityWh
	}
	years := float64(n) * dt / hoursPerYear
	st.PaybackYears = tariff.Payback(installCost, baseline, bill, years)
	if math.IsInf(st.PaybackYears, 0) {
		st.PaybackYears = NeverPaysBack
	}
	return tot, st
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
