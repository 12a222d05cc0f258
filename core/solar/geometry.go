package solar

import (
	"math"
	"time"

	"github.com/kilianp07/solarsim/core/model"
)

// Angles groups the solar position of one timestamp, in degrees.
type Angles struct {
	Declination float64
	HourAngle   float64
	Zenith      float64
	Incidence   float64
}

// Engine computes solar position for a fixed site. It holds no state besides
// the site, so one Engine can be shared across goroutines.
type Engine struct {
	Site model.SiteConfig

	zone *time.Location
}

// NewEngine returns an Engine for site.
func NewEngine(site model.SiteConfig) *Engine {
	offset := int(math.Round(site.TimeZoneHours * 3600))
	return &Engine{Site: site, zone: time.FixedZone("site", offset)}
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }
func radToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// dayOfYear returns the 1-indexed ordinal day of t in the site's clock.
func (e *Engine) dayOfYear(t time.Time) float64 {
	return float64(e.local(t).YearDay())
}

func (e *Engine) local(t time.Time) time.Time {
	zone := e.zone
	if zone == nil {
		zone = time.FixedZone("site", int(math.Round(e.Site.TimeZoneHours*3600)))
	}
	return t.In(zone)
}

// Declination returns the solar declination (Cooper's equation).
func (e *Engine) Declination(t time.Time) float64 {
	n := e.dayOfYear(t)
	return 23.45 * math.Sin(degToRad(360.0/365.0*(n+284)))
}

// EquationOfTime returns the Spencer series correction in minutes.
// 229.2 = 60*3.82: scaling the series by 3.82 gives hours, by 229.2 minutes.
func (e *Engine) EquationOfTime(t time.Time) float64 {
	b := degToRad(360.0 / 365.0 * (e.dayOfYear(t) - 1))
	series := 0.000075 + 0.001868*math.Cos(b) - 0.032077*math.Sin(b) -
		0.014615*math.Cos(2*b) - 0.04089*math.Sin(2*b)
	return 60 * 3.82 * series
}

// SolarTime converts the clock time of t to apparent solar time in hours.
func (e *Engine) SolarTime(t time.Time) float64 {
	lt := e.local(t)
	clock := float64(lt.Hour()) + float64(lt.Minute())/60 + float64(lt.Second())/3600 +
		float64(lt.Nanosecond())/3.6e12
	meridian := 15 * e.Site.TimeZoneHours
	return clock + 4*(e.Site.LongitudeDeg-meridian)/60 + e.EquationOfTime(t)/60
}

// HourAngle returns the hour angle; negative before solar noon.
func (e *Engine) HourAngle(t time.Time) float64 {
	return (e.SolarTime(t) - 12) * 15
}

// Zenith returns the solar zenith angle.
func (e *Engine) Zenith(t time.Time) float64 {
	return e.zenith(degToRad(e.Declination(t)), degToRad(e.HourAngle(t)))
}

func (e *Engine) zenith(decl, omega float64) float64 {
	lat := degToRad(e.Site.LatitudeDeg)
	c := math.Cos(lat)*math.Cos(decl)*math.Cos(omega) + math.Sin(lat)*math.Sin(decl)
	return radToDeg(math.Acos(clampUnit(c)))
}

// Incidence returns the angle between the beam and the panel normal.
func (e *Engine) Incidence(t time.Time) float64 {
	return e.incidence(degToRad(e.Declination(t)), degToRad(e.HourAngle(t)))
}

func (e *Engine) incidence(decl, omega float64) float64 {
	lat := degToRad(e.Site.LatitudeDeg)
	beta := degToRad(e.Site.TiltDeg)
	gamma := degToRad(e.Site.AzimuthDeg)

	c := math.Sin(decl)*math.Sin(lat)*math.Cos(beta) -
		math.Sin(decl)*math.Cos(lat)*math.Sin(beta)*math.Cos(gamma) +
		math.Cos(decl)*math.Cos(lat)*math.Cos(beta)*math.Cos(omega) +
		math.Cos(decl)*math.Sin(lat)*math.Sin(beta)*math.Cos(gamma)*math.Cos(omega) +
		math.Cos(decl)*math.Sin(beta)*math.Sin(gamma)*math.Sin(omega)
	return radToDeg(math.Acos(clampUnit(c)))
}

// Position returns every angle for t, evaluating declination and hour angle once.
func (e *Engine) Position(t time.Time) Angles {
	declDeg := e.Declination(t)
	omegaDeg := e.HourAngle(t)
	decl, omega := degToRad(declDeg), degToRad(omegaDeg)
	return Angles{
		Declination: declDeg,
		HourAngle:   omegaDeg,
		Zenith:      e.zenith(decl, omega),
		Incidence:   e.incidence(decl, omega),
	}
}

// clampUnit keeps rounding noise from pushing a cosine outside acos's domain.
func clampUnit(c float64) float64 {
	return math.Max(-1, math.Min(1, c))
}
