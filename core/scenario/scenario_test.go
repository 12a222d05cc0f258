package scenario

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/solarsim/core/battery"
	"github.com/kilianp07/solarsim/core/events"
	"github.com/kilianp07/solarsim/core/model"
	"github.com/kilianp07/solarsim/core/series"
	"github.com/kilianp07/solarsim/core/tariff"
	"github.com/kilianp07/solarsim/infra/logger"
	"github.com/kilianp07/solarsim/internal/eventbus"
)

var panel = model.PanelConfig{
	NOCTIrradiance:      800,
	NOCTCellTemp:        45,
	NOCTAirTemp:         20,
	ReferenceEfficiency: 0.1938,
	TempCoeff:           0.004,
	InsolationCoeff:     0.12,
	PowerTempCoeff:      -0.0036,
}

func site(tilt, azimuth, area float64) model.SiteConfig {
	return model.SiteConfig{
		TiltDeg:      tilt,
		AzimuthDeg:   azimuth,
		LatitudeDeg:  52.189,
		LongitudeDeg: -2.028,
		Albedo:       0.2,
		AreaM2:       area,
		Panel:        panel,
	}
}

func baseScenario() Scenario {
	return Scenario{
		Case: "base",
		Arrays: []Array{
			{Site: site(30, 0, 12), Asset: model.NewPVAsset("south", 4000)},
			{Site: site(30, 90, 6), Asset: model.NewPVAsset("west", 2000)},
		},
		Battery:      model.BatteryConfig{CapacityWh: 5000, PowerLimitW: 2500, Efficiency: 0.9},
		BatteryAsset: model.NewBatteryAsset("battery", 3000),
		Tariff:       model.Tariff{ImportPrice: 0.30, ExportPrice: 0.05},
		DTHours:      0.25,
	}
}

// summerDay returns n days of 15-minute samples with a clear-sky-like
// irradiance bell and a flat 400 W load with an evening peak.
func summerDay(days int) []model.TimeSample {
	start := time.Date(2019, 6, 21, 0, 0, 0, 0, time.UTC)
	out := make([]model.TimeSample, days*96)
	for i := range out {
		at := start.Add(time.Duration(i) * 15 * time.Minute)
		h := float64(at.Hour()) + float64(at.Minute())/60
		ghi := math.Max(0, 850*math.Sin((h-4.5)/16*math.Pi))
		load := 400.0
		if h >= 18 && h < 22 {
			load = 1500
		}
		out[i] = model.TimeSample{Time: at, AirTemp: 18, GHI: ghi, Clearness: 0.65, WindSpeed: 2, LoadW: load}
	}
	return out
}

// winterDay is the solstice at the test site: a low sun in the southern sky
// and a flat load larger than the array output.
func winterDay() []model.TimeSample {
	start := time.Date(2019, 12, 21, 0, 0, 0, 0, time.UTC)
	out := make([]model.TimeSample, 96)
	for i := range out {
		at := start.Add(time.Duration(i) * 15 * time.Minute)
		h := float64(at.Hour()) + float64(at.Minute())/60
		ghi := math.Max(0, 300*math.Sin((h-8)/8*math.Pi))
		out[i] = model.TimeSample{Time: at, AirTemp: 4, GHI: ghi, Clearness: 0.45, WindSpeed: 3, LoadW: 600}
	}
	return out
}

func newTestRunner() *Runner {
	r := NewRunner(logger.NopLogger{}, 2)
	n := 0
	r.newID = func() string { n++; return "run-" + string(rune('0'+n)) }
	return r
}

func TestScenarioValidate(t *testing.T) {
	sc := baseScenario()
	require.NoError(t, sc.Validate())

	bad := sc
	bad.Arrays = nil
	assert.ErrorIs(t, bad.Validate(), model.ErrInvalidConfig)

	bad = sc
	bad.DTHours = 0
	assert.ErrorIs(t, bad.Validate(), model.ErrInvalidConfig)

	bad = sc
	bad.Battery.Efficiency = 0
	assert.ErrorIs(t, bad.Validate(), model.ErrInvalidConfig)

	bad = sc.WithOrientation(30, 0)
	bad.Arrays[0].Site.Albedo = 2
	assert.ErrorIs(t, bad.Validate(), model.ErrInvalidConfig)
	assert.Equal(t, 0.2, sc.Arrays[0].Site.Albedo, "WithOrientation must copy the arrays")

	bad = sc
	bad.Tariff.ImportPrice = -1
	assert.ErrorIs(t, bad.Validate(), model.ErrInvalidConfig)
}

func TestWithOrientationSetsEveryArray(t *testing.T) {
	sc := baseScenario()
	turned := sc.WithOrientation(45, -90)
	require.Len(t, turned.Arrays, 2)
	for i, a := range turned.Arrays {
		assert.Equal(t, 45.0, a.Site.TiltDeg)
		assert.Equal(t, -90.0, a.Site.AzimuthDeg)
		assert.Equal(t, sc.Arrays[i].Site.AreaM2, a.Site.AreaM2)
	}
	assert.Equal(t, 90.0, sc.Arrays[1].Site.AzimuthDeg)
}

func TestInstallCost(t *testing.T) {
	assert.Equal(t, 9000.0, baseScenario().InstallCost())
}

func TestRunRejectsBadSeries(t *testing.T) {
	samples := summerDay(1)
	samples[10].Time = samples[9].Time
	_, err := newTestRunner().Run(context.Background(), baseScenario(), samples)
	var shape *series.ShapeError
	require.True(t, errors.As(err, &shape))
	assert.Equal(t, 10, shape.Index)

	_, err = newTestRunner().Run(context.Background(), baseScenario(), summerDay(1)[:0])
	require.True(t, errors.As(err, &shape))
	assert.Equal(t, series.ProblemEmpty, shape.Problem)
}

func TestRunEndToEnd(t *testing.T) {
	sc := baseScenario()
	samples := summerDay(2)
	r := newTestRunner()
	res, err := r.Run(context.Background(), sc, samples)
	require.NoError(t, err)

	require.Len(t, res.PVW, len(samples))
	require.Len(t, res.ArrayW, 2)
	for i := range samples {
		assert.InDelta(t, res.ArrayW[0][i]+res.ArrayW[1][i], res.PVW[i], 1e-9)
		assert.InDelta(t, samples[i].LoadW-res.PVW[i], res.NetW[i], 1e-9)
		soc := res.Trace.SoCWh[i]
		assert.True(t, soc >= 0 && soc <= sc.Battery.CapacityWh, "soc %v at %d", soc, i)
	}

	assert.Equal(t, tariff.Settle(res.Trace.ResidualW, sc.DTHours, sc.Tariff), res.Bill)
	// Load energy: 2 days of 400 W plus 4 h of 1100 W extra per day.
	loadKWh := 2 * (0.4*24 + 1.1*4)
	assert.InDelta(t, loadKWh, res.Baseline.ImportKWh, 1e-9)
	assert.InDelta(t, loadKWh*0.30, res.Baseline.Net, 1e-9)
	assert.Less(t, res.Bill.Net, res.Baseline.Net)

	s := res.Summary
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, "base", s.Case)
	assert.Equal(t, len(samples), s.Steps)
	assert.Equal(t, samples[0].Time, s.Start)
	assert.Equal(t, samples[len(samples)-1].Time, s.End)
	assert.InDelta(t, loadKWh, s.LoadKWh, 1e-9)
	assert.Greater(t, s.PVKWh, 0.0)
	assert.Greater(t, s.Stats.EquivalentCycles, 0.0)
	assert.Greater(t, s.Stats.PaybackYears, 0.0)
	assert.Equal(t, res.Trace.FinalSoCWh(), s.FinalSoC)

	ledger := res.Ledger()
	require.Len(t, ledger, len(samples))
	assert.Equal(t, samples[50].Time, ledger[50].Time)
	assert.Equal(t, res.Trace.PowerW[50], ledger[50].BatteryW)
	assert.Equal(t, string(res.Trace.Steps[50].Action), ledger[50].Action)
}

func TestRunWithoutPVMatchesBaseline(t *testing.T) {
	sc := baseScenario()
	for i := range sc.Arrays {
		sc.Arrays[i].Site.AreaM2 = 0
	}
	res, err := newTestRunner().Run(context.Background(), sc, summerDay(1))
	require.NoError(t, err)
	assert.InDelta(t, res.Baseline.Net, res.Bill.Net, 1e-9)
	assert.Equal(t, NeverPaysBack, res.Summary.Stats.PaybackYears)
	assert.Equal(t, 0.0, res.Summary.Stats.EquivalentCycles)
	for _, p := range res.Trace.PowerW {
		assert.Equal(t, 0.0, p)
	}
}

func TestRunPublishesEvents(t *testing.T) {
	samples := summerDay(1)
	stepBus := eventbus.NewTyped[events.StepEvent]()
	runBus := eventbus.NewTyped[events.RunEvent]()
	stepCh := stepBus.SubscribeN(len(samples))
	runCh := runBus.Subscribe()

	r := newTestRunner()
	r.SetStepBus(stepBus)
	r.SetRunBus(runBus)
	res, err := r.Run(context.Background(), baseScenario(), samples)
	require.NoError(t, err)

	require.Len(t, stepCh, len(samples))
	first := <-stepCh
	assert.Equal(t, res.Summary.RunID, first.RunID)
	assert.Equal(t, samples[0].Time, first.Time)
	assert.Equal(t, 0, first.Index)

	ev := <-runCh
	assert.Equal(t, res.Summary, ev.Summary)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestRunner().Run(ctx, baseScenario(), summerDay(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize(t *testing.T) {
	pvW := []float64{0, 2000, 4000, 0}
	loadW := []float64{1000, 1000, 1000, 1000}
	tr := battery.Trace{
		PowerW:    []float64{0, -1000, -2000, 1000},
		ResidualW: []float64{1000, 0, -1000, 0},
		SoCWh:     []float64{0, 1000, 3000, 2000},
	}
	bill := tariff.Bill{ImportKWh: 1, ExportKWh: 1, Cost: 0.3, Revenue: 0.05, Net: 0.25}
	baseline := tariff.Bill{ImportKWh: 4, Cost: 1.2, Net: 1.2}

	tot, st := Summarize(pvW, loadW, tr, 1, 4000, 100, bill, baseline)
	assert.Equal(t, 6.0, tot.PVKWh)
	assert.Equal(t, 4.0, tot.LoadKWh)
	assert.Equal(t, 4000.0, st.PeakPVW)
	assert.Equal(t, 0.0, st.MeanResidualW)
	assert.InDelta(t, math.Sqrt(2.0/3.0)*1000, st.StdResidualW, 1e-9)
	assert.Equal(t, 1000.0, st.P95ResidualW)
	assert.InDelta(t, 1-1.0/6.0, st.SelfConsumption, 1e-12)
	assert.InDelta(t, 0.75, st.SelfSufficiency, 1e-12)
	assert.InDelta(t, 0.25, st.EquivalentCycles, 1e-12)
	// 0.95 saved in 4 hours is 2080.5 per year.
	assert.InDelta(t, 100/(0.95*8760/4), st.PaybackYears, 1e-12)
}

func TestSummarizeEdgeCases(t *testing.T) {
	_, st := Summarize(nil, nil, battery.Trace{}, 1, 0, 0, tariff.Bill{}, tariff.Bill{})
	assert.Equal(t, NeverPaysBack, st.PaybackYears)

	tr := battery.Trace{PowerW: []float64{0}, ResidualW: []float64{500}, SoCWh: []float64{0}}
	_, st = Summarize([]float64{0}, []float64{500}, tr, 1, 0, 0, tariff.Bill{ImportKWh: 0.5}, tariff.Bill{ImportKWh: 0.5})
	assert.Equal(t, 500.0, st.MeanResidualW)
	assert.Equal(t, 0.0, st.StdResidualW)
	assert.Equal(t, 0.0, st.SelfConsumption)
	assert.Equal(t, 0.0, st.SelfSufficiency)
}
