package config

import (
	"fmt"

	"github.com/kilianp07/solarsim/core/model"
)

// SiteSection holds the location shared by every array and the arrays
// themselves. Arrays inherit the panel block unless they set their own.
type SiteSection struct {
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	TimeZone  float64           `json:"time_zone"`
	Albedo    float64           `json:"albedo"`
	Panel     model.PanelConfig `json:"panel"`
	Arrays    []ArrayConfig     `json:"arrays"`
}

// ArrayConfig is one PV array on the site.
type ArrayConfig struct {
	Name          string             `json:"name"`
	Tilt          float64            `json:"tilt"`
	Azimuth       float64            `json:"azimuth"`
	Area          float64            `json:"area"`
	Panel         *model.PanelConfig `json:"panel"`
	InstallCost   float64            `json:"install_cost"`
	LifetimeYears int                `json:"lifetime_years"`
}

// DefaultPanel matches a 19.4 % monocrystalline module.
var DefaultPanel = model.PanelConfig{
	NOCTIrradiance:      800,
	NOCTCellTemp:        45,
	NOCTAirTemp:         20,
	ReferenceEfficiency: 0.1938,
	TempCoeff:           0.004,
	InsolationCoeff:     0.12,
	PowerTempCoeff:      -0.0036,
}

// SetDefaults applies sane defaults.
func (s *SiteSection) SetDefaults() {
	if s.Panel == (model.PanelConfig{}) {
		s.Panel = DefaultPanel
	}
	for i := range s.Arrays {
		if s.Arrays[i].Name == "" {
			s.Arrays[i].Name = fmt.Sprintf("array-%d", i+1)
		}
	}
}

// Sites expands the arrays into full site configurations.
func (s SiteSection) Sites() []model.SiteConfig {
	out := make([]model.SiteConfig, len(s.Arrays))
	for i, a := range s.Arrays {
		panel := s.Panel
		if a.Panel != nil {
			panel = *a.Panel
		}
		out[i] = model.SiteConfig{
			TiltDeg:       a.Tilt,
			AzimuthDeg:    a.Azimuth,
			LatitudeDeg:   s.Latitude,
			LongitudeDeg:  s.Longitude,
			TimeZoneHours: s.TimeZone,
			Albedo:        s.Albedo,
			AreaM2:        a.Area,
			Panel:         panel,
		}
	}
	return out
}

// Assets returns the economic record of every array.
func (s SiteSection) Assets() []model.Asset {
	out := make([]model.Asset, len(s.Arrays))
	for i, a := range s.Arrays {
		out[i] = model.NewPVAsset(a.Name, a.InstallCost)
		if a.LifetimeYears > 0 {
			out[i].LifetimeYears = a.LifetimeYears
		}
	}
	return out
}

// Validate checks every expanded array.
func (s SiteSection) Validate() error {
	for i, site := range s.Sites() {
		if err := site.Validate(); err != nil {
			return fmt.Errorf("array %s: %w", s.Arrays[i].Name, err)
		}
		if err := s.Assets()[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
