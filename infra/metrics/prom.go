package metrics

import (
	coremetrics "github.com/kilianp07/solarsim/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exposes run results as Prometheus metrics. Gauges hold the values
// of the most recent run of each case.
type PromSink struct {
	runs     *prometheus.CounterVec
	energy   *prometheus.GaugeVec
	money    *prometheus.GaugeVec
	ratio    *prometheus.GaugeVec
	steps    *prometheus.CounterVec
	soc      *prometheus.GaugeVec
	residual *prometheus.HistogramVec
}

// NewPromSink registers run metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solarsim_runs_total",
			Help: "Number of completed simulation runs",
		}, []string{"case"}),
		energy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "solarsim_run_energy_kwh",
			Help: "Energy totals of the last run by flow",
		}, []string{"case", "flow"}),
		money: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "solarsim_run_bill",
			Help: "Bill components of the last run",
		}, []string{"case", "component"}),
		ratio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "solarsim_run_ratio",
			Help: "Self-consumption and self-sufficiency of the last run",
		}, []string{"case", "ratio"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solarsim_steps_total",
			Help: "Simulated intervals by battery action",
		}, []string{"case", "action"}),
		soc: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "solarsim_battery_soc_wh",
			Help: "Battery state of charge at the end of the last recorded step",
		}, []string{"case"}),
		residual: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "solarsim_residual_load_watts",
			Help:    "Residual grid load per interval",
			Buckets: []float64{-5000, -2000, -1000, -500, 0, 500, 1000, 2000, 5000},
		}, []string{"case"}),
	}

	var err error
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.energy, err = register(reg, s.energy); err != nil {
		return nil, err
	}
	if s.money, err = register(reg, s.money); err != nil {
		return nil, err
	}
	if s.ratio, err = register(reg, s.ratio); err != nil {
		return nil, err
	}
	if s.steps, err = register(reg, s.steps); err != nil {
		return nil, err
	}
	if s.soc, err = register(reg, s.soc); err != nil {
		return nil, err
	}
	if s.residual, err = register(reg, s.residual); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when one with the same
// descriptor exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun updates the per-case gauges and the run counter.
func (s *PromSink) RecordRun(r coremetrics.RunSummary) error {
	s.runs.WithLabelValues(r.Case).Inc()
	s.energy.WithLabelValues(r.Case, "pv").Set(r.PVKWh)
	s.energy.WithLabelValues(r.Case, "load").Set(r.LoadKWh)
	s.energy.WithLabelValues(r.Case, "import").Set(r.ImportKWh)
	s.energy.WithLabelValues(r.Case, "export").Set(r.ExportKWh)
	s.money.WithLabelValues(r.Case, "cost").Set(r.Cost)
	s.money.WithLabelValues(r.Case, "revenue").Set(r.Revenue)
	s.money.WithLabelValues(r.Case, "net").Set(r.Net)
	s.ratio.WithLabelValues(r.Case, "self_consumption").Set(r.Stats.SelfConsumption)
	s.ratio.WithLabelValues(r.Case, "self_sufficiency").Set(r.Stats.SelfSufficiency)
	return nil
}

// RecordSteps counts intervals per action and observes the residual load.
func (s *PromSink) RecordSteps(_ string, caseName string, steps []coremetrics.StepSample) error {
	for _, st := range steps {
		s.steps.WithLabelValues(caseName, st.Action).Inc()
		s.residual.WithLabelValues(caseName).Observe(st.ResidualW)
	}
	if n := len(steps); n > 0 {
		s.soc.WithLabelValues(caseName).Set(steps[n-1].SoCWh)
	}
	return nil
}
