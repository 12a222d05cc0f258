// Package scenario runs one household configuration, N PV arrays and one
// battery, against a weather and load series and settles the result.
package scenario

import (
	"fmt"
	"math"

	"github.com/kilianp07/solarsim/core/model"
	"github.com/kilianp07/solarsim/core/tariff"
)

// Array is one PV array with its economics.
type Array struct {
	Site  model.SiteConfig
	Asset model.Asset
}

// Scenario is a complete, self-contained run description.
type Scenario struct {
	Case         string
	Arrays       []Array
	Battery      model.BatteryConfig
	BatteryAsset model.Asset
	Tariff       model.Tariff
	DTHours      float64
}

// Validate checks every component.
func (s Scenario) Validate() error {
	if s.DTHours <= 0 || math.IsNaN(s.DTHours) || math.IsInf(s.DTHours, 0) {
		return fmt.Errorf("%w: dt must be > 0 hours, got %v", model.ErrInvalidConfig, s.DTHours)
	}
	if len(s.Arrays) == 0 {
		return fmt.Errorf("%w: at least one PV array is required", model.ErrInvalidConfig)
	}
	for i, a := range s.Arrays {
		if err := a.Site.Validate(); err != nil {
			return fmt.Errorf("array %d (%s): %w", i, a.Asset.Name, err)
		}
		if err := a.Asset.Validate(); err != nil {
			return err
		}
	}
	if err := s.Battery.Validate(); err != nil {
		return fmt.Errorf("battery: %w", err)
	}
	if err := s.BatteryAsset.Validate(); err != nil {
		return err
	}
	return tariff.Validate(s.Tariff)
}

// InstallCost sums the install cost of every asset.
func (s Scenario) InstallCost() float64 {
	total := s.BatteryAsset.InstallCost
	for _, a := range s.Arrays {
		total += a.Asset.InstallCost
	}
	return total
}

// WithOrientation returns a copy with every array set to tilt and azimuth.
// Array areas and panel models are kept.
func (s Scenario) WithOrientation(tilt, azimuth float64) Scenario {
	arrays := make([]Array, len(s.Arrays))
	copy(arrays, s.Arrays)
	for i := range arrays {
		arrays[i].Site.TiltDeg = tilt
		arrays[i].Site.AzimuthDeg = azimuth
	}
	s.Arrays = arrays
	return s
}

// WithCapacity returns a copy with the battery capacity replaced.
func (s Scenario) WithCapacity(capacityWh float64) Scenario {
	s.Battery.CapacityWh = capacityWh
	return s
}
