package app

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/solarsim/config"
	"github.com/kilianp07/solarsim/core/factory"
	coremetrics "github.com/kilianp07/solarsim/core/metrics"
	"github.com/kilianp07/solarsim/core/model"
	"github.com/kilianp07/solarsim/infra/store"
)

func writeWeather(t *testing.T, days int) string {
	t.Helper()
	return writeWeatherEvery(t, days, time.Hour)
}

func writeWeatherEvery(t *testing.T, days int, step time.Duration) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("time,temperature,radiation_surface,clearness_index,wind_speed,load\n")
	start := time.Date(2019, 6, 21, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days*int(24*time.Hour/step); i++ {
		at := start.Add(time.Duration(i) * step)
		h := float64(at.Hour()) + float64(at.Minute())/60
		ghi := math.Max(0, 800*math.Sin((h-4.5)/16*math.Pi))
		fmt.Fprintf(&b, "%s,17,%.2f,0.6,2,500\n", at.Format("2006-01-02 15:04"), ghi)
	}
	path := filepath.Join(t.TempDir(), "weather.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Site: config.SiteSection{
			Latitude:  52.189,
			Longitude: -2.028,
			Albedo:    0.2,
			Arrays:    []config.ArrayConfig{{Tilt: 35, Area: 15, InstallCost: 5000}},
		},
		Battery: config.BatterySection{CapacityWh: 4000, PowerLimitW: 2000, InstallCost: 2500},
		Tariff:  model.Tariff{ImportPrice: 0.28, ExportPrice: 0.04},
		Simulation: config.SimulationConfig{
			DTHours:   1,
			Workers:   2,
			Input:     writeWeather(t, 2),
			OutputDir: filepath.Join(dir, "out"),
		},
		Store: config.StoreConfig{Backend: "sqlite", Path: filepath.Join(dir, "runs.db")},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestScenarioFromConfig(t *testing.T) {
	cfg := testConfig(t)
	sc := Scenario(cfg)
	require.Len(t, sc.Arrays, 1)
	assert.Equal(t, "array-1", sc.Arrays[0].Asset.Name)
	assert.Equal(t, 35.0, sc.Arrays[0].Site.TiltDeg)
	assert.Equal(t, config.DefaultPanel, sc.Arrays[0].Site.Panel)
	assert.Equal(t, 0.9, sc.Battery.Efficiency)
	assert.Equal(t, 7500.0, sc.InstallCost())
	assert.Equal(t, "base", sc.Case)
}

func TestServiceRunPersistsAndExports(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(cfg)
	require.NoError(t, err)

	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	for _, name := range []string{LedgerFile, SummaryFile, ChartFile} {
		info, err := os.Stat(filepath.Join(cfg.Simulation.OutputDir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	recs, err := st.Query(context.Background(), store.RunQuery{RunID: res.Summary.RunID})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, res.Summary.Net, recs[0].Summary.Net)
	assert.Len(t, recs[0].Steps, 48)
}

func TestServiceSweep(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sweep = config.SweepConfig{Tilts: []float64{20, 40}, Capacities: []float64{0, 4000}, Parallel: 2}
	svc, err := New(cfg)
	require.NoError(t, err)

	out, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.Close())
	require.Len(t, out, 4)
	_, err = os.Stat(filepath.Join(cfg.Simulation.OutputDir, SweepFile))
	assert.NoError(t, err)

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	recs, err := st.Query(context.Background(), store.RunQuery{})
	require.NoError(t, err)
	assert.Len(t, recs, 4)
}

func TestLoadSamplesRequiresInput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.Input = ""
	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	_, err = svc.LoadSamples()
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestLoadSamplesChecksInterval(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.Input = writeWeatherEvery(t, 1, 15*time.Minute)
	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	_, err = svc.LoadSamples()
	require.ErrorIs(t, err, model.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "sampled every 15m0s")

	cfg.Simulation.DTHours = 0.25
	samples, err := svc.LoadSamples()
	require.NoError(t, err)
	assert.Len(t, samples, 96)
}

type closeTracker struct{ closed int }

func (c *closeTracker) RecordRun(coremetrics.RunSummary) error { return nil }
func (c *closeTracker) Close() error                          { c.closed++; return nil }

var tracked closeTracker

func init() {
	_ = coremetrics.RegisterMetricsSink("app-close-tracker", func(map[string]any) (coremetrics.MetricsSink, error) {
		return &tracked, nil
	})
}

func TestNewClosesSinksWhenStoreFails(t *testing.T) {
	tracked = closeTracker{}
	cfg := testConfig(t)
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "app-close-tracker"}}
	cfg.Store = config.StoreConfig{Backend: "etcd"}

	svc, err := New(cfg)
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "run store: unknown store backend etcd")
	assert.Equal(t, 1, tracked.closed)
}
