package config

import (
	"fmt"

	"github.com/kilianp07/solarsim/core/model"
)

// BatterySection configures the single battery. A zero capacity disables it.
type BatterySection struct {
	CapacityWh    float64 `json:"capacity_wh"`
	PowerLimitW   float64 `json:"power_limit_w"`
	Efficiency    float64 `json:"efficiency"`
	InstallCost   float64 `json:"install_cost"`
	LifetimeYears int     `json:"lifetime_years"`
}

// SetDefaults applies sane defaults.
func (b *BatterySection) SetDefaults() {
	if b.Efficiency == 0 {
		b.Efficiency = 0.9
	}
}

// Model returns the simulator configuration.
func (b BatterySection) Model() model.BatteryConfig {
	return model.BatteryConfig{CapacityWh: b.CapacityWh, PowerLimitW: b.PowerLimitW, Efficiency: b.Efficiency}
}

// Asset returns the economic record of the battery.
func (b BatterySection) Asset() model.Asset {
	a := model.NewBatteryAsset("battery", b.InstallCost)
	if b.LifetimeYears > 0 {
		a.LifetimeYears = b.LifetimeYears
	}
	return a
}

// SimulationConfig controls a run.
type SimulationConfig struct {
	// DTHours is the sampling interval: 0.25 for 15-minute data, 1 for hourly.
	DTHours float64 `json:"dt_hours"`
	// Workers bounds the PV evaluation pool; 0 means one per CPU.
	Workers int `json:"workers"`
	// Input is the weather and load CSV.
	Input string `json:"input"`
	// OutputDir receives the ledger CSV, summary JSON and chart.
	OutputDir string `json:"output_dir"`
	// Case labels the run in every sink.
	Case string `json:"case"`
}

// SetDefaults applies sane defaults.
func (s *SimulationConfig) SetDefaults() {
	if s.DTHours == 0 {
		s.DTHours = 0.25
	}
	if s.Case == "" {
		s.Case = "base"
	}
}

// Validate checks mandatory fields.
func (s SimulationConfig) Validate() error {
	if s.DTHours <= 0 {
		return fmt.Errorf("%w: dt_hours must be > 0", model.ErrInvalidConfig)
	}
	if s.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0", model.ErrInvalidConfig)
	}
	return nil
}

// SweepConfig lists the values explored by the sweep command. Empty lists
// keep the configured value.
type SweepConfig struct {
	Tilts      []float64 `json:"tilts"`
	Azimuths   []float64 `json:"azimuths"`
	Capacities []float64 `json:"capacities_wh"`
	Parallel   int       `json:"parallel"`
}
