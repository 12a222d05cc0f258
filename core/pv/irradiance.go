package pv

import (
	"math"
	"time"
)

const (
	// minGHI is the global horizontal irradiance below which beam geometry is ignored.
	minGHI = 2.0
	// maxBeamRatio caps cos(incidence)/cos(zenith) near the horizon.
	maxBeamRatio = 12.0
	// absorptance of the module cover.
	absorptance = 0.9
)

// DiffuseFraction returns the Erbs correlation for clearness index k.
func DiffuseFraction(k float64) float64 {
	switch {
	case k <= 0.22:
		return 1 - 0.09*k
	case k <= 0.8:
		return 0.9511 - 0.1604*k + 4.388*k*k - 16.638*k*k*k + 12.336*k*k*k*k
	default:
		return 0.165
	}
}

// SplitIrradiance separates global horizontal irradiance into its direct and
// diffuse horizontal components.
func SplitIrradiance(ghi, k float64) (direct, diffuse float64) {
	diffuse = DiffuseFraction(k) * ghi
	return ghi - diffuse, diffuse
}

// BeamRatio returns cos(incidence)/cos(zenith), or 0 when the sun is behind
// the panel, below the horizon, the sky is dark, or the ratio blows up.
func (m *Model) BeamRatio(t time.Time, ghi float64) float64 {
	p := m.Geometry.Position(t)
	return beamRatio(p.Incidence, p.Zenith, ghi)
}

func beamRatio(incidence, zenith, ghi float64) float64 {
	if incidence >= 90 || zenith >= 90 || ghi <= minGHI {
		return 0
	}
	r := math.Cos(degToRad(incidence)) / math.Cos(degToRad(zenith))
	if r > maxBeamRatio {
		return 0
	}
	return r
}

// DirectOnPlane returns the beam irradiance on the tilted plane.
func (m *Model) DirectOnPlane(t time.Time, ghi, k float64) float64 {
	direct, _ := SplitIrradiance(ghi, k)
	return m.BeamRatio(t, ghi) * direct
}

// DiffuseOnPlane applies the isotropic sky model.
func (m *Model) DiffuseOnPlane(ghi, k float64) float64 {
	_, diffuse := SplitIrradiance(ghi, k)
	return m.skyView * diffuse
}

// ReflectedOnPlane returns the ground-reflected irradiance.
func (m *Model) ReflectedOnPlane(ghi float64) float64 {
	return m.groundView * m.Site.Albedo * ghi
}

// PlaneOfArray sums beam, sky diffuse and ground-reflected irradiance.
func (m *Model) PlaneOfArray(t time.Time, ghi, k float64) float64 {
	return m.DirectOnPlane(t, ghi, k) + m.DiffuseOnPlane(ghi, k) + m.ReflectedOnPlane(ghi)
}

// Absorbed returns the irradiance absorbed by the cells.
func (m *Model) Absorbed(t time.Time, ghi, k float64) float64 {
	return m.PlaneOfArray(t, ghi, k) * absorptance
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }
