package metrics

import "time"

// RunSummary is the headline result of one simulation run.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	Case      string        `json:"case"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Steps     int           `json:"steps"`
	DTHours   float64       `json:"dt_hours"`
	Elapsed   time.Duration `json:"elapsed"`
	FinalSoC  float64       `json:"final_soc_wh"`
	PVKWh     float64       `json:"pv_kwh"`
	LoadKWh   float64       `json:"load_kwh"`
	ImportKWh float64       `json:"import_kwh"`
	ExportKWh float64       `json:"export_kwh"`
	Cost      float64       `json:"cost"`
	Revenue   float64       `json:"revenue"`
	Net       float64       `json:"net"`
	Stats     Stats         `json:"stats"`
}

// Stats holds the derived statistics of a run.
type Stats struct {
	PeakPVW          float64 `json:"peak_pv_w"`
	MeanResidualW    float64 `json:"mean_residual_w"`
	StdResidualW     float64 `json:"std_residual_w"`
	P95ResidualW     float64 `json:"p95_residual_w"`
	SelfConsumption  float64 `json:"self_consumption"`
	SelfSufficiency  float64 `json:"self_sufficiency"`
	EquivalentCycles float64 `json:"equivalent_cycles"`
	PaybackYears     float64 `json:"payback_years"`
}

// StepSample is one row of the run ledger.
type StepSample struct {
	Index     int       `json:"index"`
	Time      time.Time `json:"time"`
	PVW       float64   `json:"pv_w"`
	LoadW     float64   `json:"load_w"`
	NetW      float64   `json:"net_w"`
	BatteryW  float64   `json:"battery_w"`
	ResidualW float64   `json:"residual_w"`
	SoCWh     float64   `json:"soc_wh"`
	Action    string    `json:"action"`
}

// MetricsSink records run summaries.
type MetricsSink interface {
	RecordRun(s RunSummary) error
}

// StepRecorder is implemented by sinks able to record the per-step ledger.
type StepRecorder interface {
	RecordSteps(runID, caseName string, steps []StepSample) error
}

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close() error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunSummary) error                     { return nil }
func (NopSink) RecordSteps(string, string, []StepSample) error { return nil }

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the summary to all sinks, returning the first error encountered.
func (m *MultiSink) RecordRun(s RunSummary) error {
	for _, sink := range m.Sinks {
		if err := sink.RecordRun(s); err != nil {
			return err
		}
	}
	return nil
}

// RecordSteps forwards the ledger to sinks that support it.
func (m *MultiSink) RecordSteps(runID, caseName string, steps []StepSample) error {
	for _, sink := range m.Sinks {
		if rec, ok := sink.(StepRecorder); ok {
			if err := rec.RecordSteps(runID, caseName, steps); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink that holds resources and returns the first error.
func (m *MultiSink) Close() error {
	var first error
	for _, sink := range m.Sinks {
		if c, ok := sink.(Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
