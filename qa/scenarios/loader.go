package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/solarsim/core/model"
)

// Segment repeats a constant net load for a number of intervals.
type Segment struct {
	Watts float64 `yaml:"watts"`
	Steps int     `yaml:"steps"`
}

type BatteryDef struct {
	CapacityWh  float64 `yaml:"capacity_wh"`
	PowerLimitW float64 `yaml:"power_limit_w"`
	Efficiency  float64 `yaml:"efficiency"`
}

func (b BatteryDef) ToModel() model.BatteryConfig {
	return model.BatteryConfig{
		CapacityWh:  b.CapacityWh,
		PowerLimitW: b.PowerLimitW,
		Efficiency:  b.Efficiency,
	}
}

type TariffDef struct {
	ImportPrice float64 `yaml:"import_price"`
	ExportPrice float64 `yaml:"export_price"`
}

type Expected struct {
	FinalSoCWh float64        `yaml:"final_soc_wh"`
	ImportKWh  float64        `yaml:"import_kwh"`
	ExportKWh  float64        `yaml:"export_kwh"`
	Net        float64        `yaml:"net"`
	Actions    map[string]int `yaml:"actions"`
}

type Scenario struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	DTHours     float64    `yaml:"dt_hours"`
	Battery     BatteryDef `yaml:"battery"`
	Tariff      TariffDef  `yaml:"tariff"`
	Net         []Segment  `yaml:"net"`
	Tolerance   float64    `yaml:"tolerance,omitempty"`
	Expected    Expected   `yaml:"expected"`
}

// Series expands the net load segments.
func (sc *Scenario) Series() []float64 {
	var out []float64
	for _, seg := range sc.Net {
		for i := 0; i < seg.Steps; i++ {
			out = append(out, seg.Watts)
		}
	}
	return out
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Tolerance == 0 {
		sc.Tolerance = 1e-6
	}
	return &sc, nil
}
