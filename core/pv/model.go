// Package pv turns weather samples into the electrical output of a PV array.
//
// The chain is: solar position (core/solar), Erbs split of global horizontal
// irradiance into beam and diffuse parts, transposition onto the tilted
// plane, NOCT cell temperature, temperature and irradiance dependent module
// efficiency, and finally DC power over the array area.
package pv

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/solarsim/core/model"
	"github.com/kilianp07/solarsim/core/solar"
)

// stcTemp is the standard test condition cell temperature in °C.
const stcTemp = 25.0

// Model evaluates one PV array. It is read-only after construction.
type Model struct {
	Site     model.SiteConfig
	Geometry *solar.Engine

	skyView    float64
	groundView float64
}

// NewModel validates site and returns a Model for it.
func NewModel(site model.SiteConfig) (*Model, error) {
	if err := site.Validate(); err != nil {
		return nil, err
	}
	cosTilt := math.Cos(degToRad(site.TiltDeg))
	return &Model{
		Site:       site,
		Geometry:   solar.NewEngine(site),
		skyView:    0.5 * (1 + cosTilt),
		groundView: 0.5 * (1 - cosTilt),
	}, nil
}

// Breakdown exposes every intermediate quantity of one evaluation.
type Breakdown struct {
	Angles       solar.Angles
	DirectHoriz  float64
	DiffuseHoriz float64
	BeamRatio    float64
	Direct       float64
	Diffuse      float64
	Reflected    float64
	POA          float64
	Absorbed     float64
	CellTemp     float64
	Efficiency   float64
	PowerW       float64
}

// CellTemperature returns the NOCT-model cell temperature in °C.
func (m *Model) CellTemperature(t time.Time, airTemp, ghi, k, wind float64) float64 {
	return m.cellTemperature(airTemp, m.PlaneOfArray(t, ghi, k), wind)
}

func (m *Model) cellTemperature(airTemp, poa, wind float64) float64 {
	p := m.Site.Panel
	windFactor := 9.5 / (5.7 + 3.8*wind)
	return airTemp + (poa/p.NOCTIrradiance)*windFactor*(p.NOCTCellTemp-p.NOCTAirTemp)*(1-p.ReferenceEfficiency)
}

// ModuleEfficiency returns the operating efficiency. Without absorbed
// irradiance the logarithmic term is undefined and the reference efficiency
// is returned unchanged.
func (m *Model) ModuleEfficiency(t time.Time, airTemp, ghi, k, wind float64) float64 {
	poa := m.PlaneOfArray(t, ghi, k)
	return m.efficiency(poa*absorptance, m.cellTemperature(airTemp, poa, wind))
}

func (m *Model) efficiency(absorbed, cellTemp float64) float64 {
	p := m.Site.Panel
	if absorbed <= 0 {
		return p.ReferenceEfficiency
	}
	return p.ReferenceEfficiency * (1 - p.TempCoeff*(cellTemp-stcTemp) + p.InsolationCoeff*math.Log(absorbed/1000))
}

// Evaluate runs the full chain for one sample.
func (m *Model) Evaluate(s model.TimeSample) Breakdown {
	var b Breakdown
	b.Angles = m.Geometry.Position(s.Time)
	b.DirectHoriz, b.DiffuseHoriz = SplitIrradiance(s.GHI, s.Clearness)
	b.BeamRatio = beamRatio(b.Angles.Incidence, b.Angles.Zenith, s.GHI)
	b.Direct = b.BeamRatio * b.DirectHoriz
	b.Diffuse = m.skyView * b.DiffuseHoriz
	b.Reflected = m.groundView * m.Site.Albedo * s.GHI
	b.POA = b.Direct + b.Diffuse + b.Reflected
	b.Absorbed = b.POA * absorptance
	b.CellTemp = m.cellTemperature(s.AirTemp, b.POA, s.WindSpeed)
	b.Efficiency = m.efficiency(b.Absorbed, b.CellTemp)
	// Not clamped: at night the temperature term can leave a tiny negative value.
	b.PowerW = b.Efficiency * b.Absorbed * (1 - m.Site.Panel.PowerTempCoeff*(b.CellTemp-stcTemp)) * m.Site.AreaM2
	return b
}

// Output returns the electrical power in W for one sample.
func (m *Model) Output(s model.TimeSample) float64 {
	return m.Evaluate(s).PowerW
}

// batchSize is the number of samples handed to a worker at once.
const batchSize = 512

// OutputSeries evaluates samples in parallel, preserving order. workers <= 0
// means one worker per batch with no limit.
func (m *Model) OutputSeries(ctx context.Context, samples []model.TimeSample, workers int) ([]float64, error) {
	out := make([]float64, len(samples))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for start := 0; start < len(samples); start += batchSize {
		end := min(start+batchSize, len(samples))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("pv batch %d-%d: %w", start, end, err)
			}
			for i := start; i < end; i++ {
				out[i] = m.Output(samples[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
