package model

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// PanelConfig holds the electrical and thermal constants of a PV module.
type PanelConfig struct {
	NOCTIrradiance      float64 `json:"noct_irradiance"`      // W/m²
	NOCTCellTemp        float64 `json:"noct_cell_temp"`       // °C
	NOCTAirTemp         float64 `json:"noct_air_temp"`        // °C
	ReferenceEfficiency float64 `json:"reference_efficiency"` // fraction in (0,1]
	TempCoeff           float64 `json:"temp_coeff"`           // K⁻¹
	InsolationCoeff     float64 `json:"insolation_coeff"`
	PowerTempCoeff      float64 `json:"power_temp_coeff"`     // fraction per °C, -0.36 % is -0.0036
}

// SiteConfig describes one PV array: where it is, how it is oriented and
// what panels it is made of. Angles are in degrees.
type SiteConfig struct {
	TiltDeg       float64     `json:"tilt"`
	AzimuthDeg    float64     `json:"azimuth"` // 0 = south facing
	LatitudeDeg   float64     `json:"latitude"`
	LongitudeDeg  float64     `json:"longitude"` // east positive
	TimeZoneHours float64     `json:"time_zone"` // offset from UTC
	Albedo        float64     `json:"albedo"`
	AreaM2        float64     `json:"area"`
	Panel         PanelConfig `json:"panel"`
}

// Validate rejects physically meaningless parameters.
func (s SiteConfig) Validate() error {
	p := s.Panel
	switch {
	case p.ReferenceEfficiency <= 0 || p.ReferenceEfficiency > 1:
		return fmt.Errorf("%w: reference efficiency must be in (0, 1], got %v", ErrInvalidConfig, p.ReferenceEfficiency)
	case s.AreaM2 < 0:
		return fmt.Errorf("%w: area must be >= 0, got %v", ErrInvalidConfig, s.AreaM2)
	case s.Albedo < 0 || s.Albedo > 1:
		return fmt.Errorf("%w: albedo must be in [0, 1], got %v", ErrInvalidConfig, s.Albedo)
	case p.NOCTIrradiance <= 0:
		return fmt.Errorf("%w: NOCT irradiance must be > 0, got %v", ErrInvalidConfig, p.NOCTIrradiance)
	case s.LatitudeDeg < -90 || s.LatitudeDeg > 90:
		return fmt.Errorf("%w: latitude must be in [-90, 90], got %v", ErrInvalidConfig, s.LatitudeDeg)
	case s.TimeZoneHours < -14 || s.TimeZoneHours > 14:
		return fmt.Errorf("%w: time zone offset must be in [-14, 14] hours, got %v", ErrInvalidConfig, s.TimeZoneHours)
	}
	return nil
}
