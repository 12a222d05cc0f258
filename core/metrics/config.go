package metrics

import "github.com/kilianp07/solarsim/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusPort serves /metrics while a run is in progress when set.
	PrometheusPort string `json:"prometheus_port"`
}
