// Package app wires configuration, sinks and the scenario runner together
// for the command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/kilianp07/solarsim/config"
	"github.com/kilianp07/solarsim/core/events"
	coremetrics "github.com/kilianp07/solarsim/core/metrics"
	"github.com/kilianp07/solarsim/core/model"
	"github.com/kilianp07/solarsim/core/scenario"
	"github.com/kilianp07/solarsim/core/series"
	"github.com/kilianp07/solarsim/infra/logger"
	"github.com/kilianp07/solarsim/infra/metrics"
	"github.com/kilianp07/solarsim/infra/mqtt"
	"github.com/kilianp07/solarsim/infra/store"
	"github.com/kilianp07/solarsim/infra/weather"
	"github.com/kilianp07/solarsim/internal/eventbus"
	"github.com/kilianp07/solarsim/pkg/export"
)

// Output file names written to simulation.output_dir.
const (
	LedgerFile  = "ledger.csv"
	SummaryFile = "summary.json"
	ChartFile   = "chart.html"
	SweepFile   = "sweep.csv"
)

// Service owns the sinks and buses for the lifetime of a command.
type Service struct {
	cfg   *config.Config
	log   logger.Logger
	sink  *coremetrics.MultiSink
	steps *eventbus.TypedBus[events.StepEvent]
	runs  *eventbus.TypedBus[events.RunEvent]

	stopCollector context.CancelFunc
	waitCollector func()
}

// New creates a Service from the configuration. Sinks listed under
// metrics.sinks, the MQTT publisher and the run store all receive every run.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	configured, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	sinks := []coremetrics.MetricsSink{configured}
	// fail closes every sink built so far.
	fail := func(err error) (*Service, error) {
		if cerr := coremetrics.NewMultiSink(sinks...).Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, err
	}
	if cfg.MQTT.Enabled() {
		pub, err := mqtt.NewSummaryPublisher(cfg.MQTT)
		if err != nil {
			return fail(fmt.Errorf("mqtt publisher: %w", err))
		}
		sinks = append(sinks, pub)
	}
	st, err := store.Open(cfg.Store)
	if err != nil {
		return fail(fmt.Errorf("run store: %w", err))
	}
	if st != nil {
		sinks = append(sinks, store.NewSink(st, true))
	}

	s := &Service{
		cfg:   cfg,
		log:   logg,
		sink:  coremetrics.NewMultiSink(sinks...),
		steps: eventbus.NewTyped[events.StepEvent](),
		runs:  eventbus.NewTyped[events.RunEvent](),
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopCollector = cancel
	s.waitCollector = metrics.StartEventCollector(ctx, s.steps, s.runs, s.sink)
	return s, nil
}

// Scenario builds the scenario described by the configuration.
func Scenario(cfg *config.Config) scenario.Scenario {
	sites := cfg.Site.Sites()
	assets := cfg.Site.Assets()
	arrays := make([]scenario.Array, len(sites))
	for i := range sites {
		arrays[i] = scenario.Array{Site: sites[i], Asset: assets[i]}
	}
	return scenario.Scenario{
		Case:         cfg.Simulation.Case,
		Arrays:       arrays,
		Battery:      cfg.Battery.Model(),
		BatteryAsset: cfg.Battery.Asset(),
		Tariff:       cfg.Tariff,
		DTHours:      cfg.Simulation.DTHours,
	}
}

// LoadSamples reads simulation.input. Timestamps without an offset are read
// at the site time zone. The file's spacing must match simulation.dt_hours.
func (s *Service) LoadSamples() ([]model.TimeSample, error) {
	if s.cfg.Simulation.Input == "" {
		return nil, fmt.Errorf("%w: simulation.input is required", model.ErrInvalidConfig)
	}
	loc := time.FixedZone("site", int(s.cfg.Site.TimeZone*3600))
	samples, err := weather.Load(s.cfg.Simulation.Input, loc)
	if err != nil {
		return nil, err
	}
	if len(samples) < 2 {
		return samples, nil
	}
	got, err := series.Interval(samples)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.cfg.Simulation.Input, err)
	}
	want := time.Duration(math.Round(s.cfg.Simulation.DTHours * float64(time.Hour)))
	if got != want {
		return nil, fmt.Errorf("%w: %s is sampled every %s but simulation.dt_hours is %g",
			model.ErrInvalidConfig, s.cfg.Simulation.Input, got, s.cfg.Simulation.DTHours)
	}
	return samples, nil
}

func (s *Service) runner(withSteps bool) *scenario.Runner {
	workers := s.cfg.Simulation.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	r := scenario.NewRunner(logger.New("scenario"), workers)
	if withSteps {
		r.SetStepBus(s.steps)
	}
	r.SetRunBus(s.runs)
	return r
}

// ServeMetrics exposes /metrics on metrics.prometheus_port until ctx is done.
// It is a no-op when no port is configured.
func (s *Service) ServeMetrics(ctx context.Context) {
	port := s.cfg.Metrics.PrometheusPort
	if port == "" {
		return
	}
	go func() {
		if err := metrics.StartPromServer(ctx, ":"+port, nil); err != nil {
			s.log.Errorf("prom server: %v", err)
		}
	}()
}

// Run simulates the configured scenario and writes the ledger, summary and
// chart when an output directory is set.
func (s *Service) Run(ctx context.Context) (*scenario.Result, error) {
	samples, err := s.LoadSamples()
	if err != nil {
		return nil, err
	}
	res, err := s.runner(true).Run(ctx, Scenario(s.cfg), samples)
	if err != nil {
		return nil, err
	}
	if dir := s.cfg.Simulation.OutputDir; dir != "" {
		if err := writeRunOutputs(dir, res); err != nil {
			return nil, err
		}
		s.log.Infof("outputs written to %s", dir)
	}
	return res, nil
}

// Sweep runs the configured sweep grid. Only run summaries reach the sinks.
func (s *Service) Sweep(ctx context.Context) ([]scenario.SweepResult, error) {
	samples, err := s.LoadSamples()
	if err != nil {
		return nil, err
	}
	sw := s.cfg.Sweep
	spec := scenario.SweepSpec{Tilts: sw.Tilts, Azimuths: sw.Azimuths, Capacities: sw.Capacities, Parallel: sw.Parallel}
	out, err := s.runner(false).Sweep(ctx, Scenario(s.cfg), spec, samples)
	if err != nil {
		return nil, err
	}
	if dir := s.cfg.Simulation.OutputDir; dir != "" {
		if err := writeFile(dir, SweepFile, func(f *os.File) error { return export.WriteSweepCSV(f, out) }); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeRunOutputs(dir string, res *scenario.Result) error {
	ledger := res.Ledger()
	if err := writeFile(dir, LedgerFile, func(f *os.File) error { return export.WriteLedgerCSV(f, ledger) }); err != nil {
		return err
	}
	if err := writeFile(dir, SummaryFile, func(f *os.File) error { return export.WriteSummaryJSON(f, res.Summary) }); err != nil {
		return err
	}
	title := fmt.Sprintf("%s (%s)", res.Summary.Case, res.Summary.RunID)
	return writeFile(dir, ChartFile, func(f *os.File) error { return export.WriteChartHTML(f, title, ledger) })
}

func writeFile(dir, name string, write func(*os.File) error) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Close drains pending events into the sinks and releases them.
func (s *Service) Close() error {
	s.steps.Close()
	s.runs.Close()
	s.waitCollector()
	s.stopCollector()
	return s.sink.Close()
}
