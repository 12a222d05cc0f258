// Package battery advances a single stationary battery through a net-load
// series. The policy is greedy: discharge to cover any deficit, charge from
// any surplus, within the power limit and the remaining energy.
package battery

import (
	"fmt"
	"math"

	"github.com/kilianp07/solarsim/core/model"
)

// StepResult records one interval of the simulation.
type StepResult struct {
	Index      int          `json:"index"`
	NetW       float64      `json:"net_w"`
	PowerW     float64      `json:"power_w"` // positive = discharge
	ResidualW  float64      `json:"residual_w"`
	SoCStartWh float64      `json:"soc_start_wh"`
	SoCEndWh   float64      `json:"soc_end_wh"`
	Action     model.Action `json:"action"`
}

// Simulator owns the battery state. It is not safe for concurrent use.
type Simulator struct {
	cfg   model.BatteryConfig
	dt    float64
	state model.BatteryState
	index int
}

// NewSimulator validates cfg and returns a simulator starting empty. dt is the
// sampling interval in hours.
func NewSimulator(cfg model.BatteryConfig, dt float64) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("%w: dt must be > 0 hours, got %v", model.ErrInvalidConfig, dt)
	}
	return &Simulator{cfg: cfg, dt: dt}, nil
}

// State returns a copy of the current state.
func (s *Simulator) State() model.BatteryState { return s.state }

// Reset empties the battery and restarts step numbering.
func (s *Simulator) Reset() {
	s.state = model.BatteryState{}
	s.index = 0
}

// Step dispatches the battery against netW (positive = deficit) for one interval.
func (s *Simulator) Step(netW float64) StepResult {
	eta := s.cfg.Efficiency
	soc := s.state.SoCWh
	var p float64
	switch {
	case netW > 0:
		p = math.Min(s.cfg.PowerLimitW, math.Min(netW, eta*soc/s.dt))
		soc -= p * s.dt / eta
	case netW < 0:
		p = math.Max(-s.cfg.PowerLimitW, math.Max(netW, -(s.cfg.CapacityWh-soc)/(eta*s.dt)))
		soc -= eta * p * s.dt
	}
	if p == 0 {
		p = 0 // drop negative zero
	}
	soc = math.Max(0, math.Min(s.cfg.CapacityWh, soc))

	res := StepResult{
		Index:      s.index,
		NetW:       netW,
		PowerW:     p,
		ResidualW:  netW - p,
		SoCStartWh: s.state.SoCWh,
		SoCEndWh:   soc,
		Action:     model.ActionFromPower(p),
	}
	s.state.SoCWh = soc
	s.index++
	return res
}

// Trace is the outcome of a full run.
type Trace struct {
	Steps     []StepResult
	PowerW    []float64
	ResidualW []float64
	SoCWh     []float64
}

// FinalSoCWh returns the state of charge after the last step.
func (t Trace) FinalSoCWh() float64 {
	if len(t.SoCWh) == 0 {
		return 0
	}
	return t.SoCWh[len(t.SoCWh)-1]
}

// Energy returns the energy delivered by and into the battery in Wh.
func (t Trace) Energy(dt float64) (dischargedWh, chargedWh float64) {
	for _, p := range t.PowerW {
		if p > 0 {
			dischargedWh += p * dt
		} else {
			chargedWh -= p * dt
		}
	}
	return dischargedWh, chargedWh
}

// Run resets the simulator and scans net from left to right. Non-finite
// values are rejected before the first step.
func (s *Simulator) Run(net []float64) (Trace, error) {
	for i, v := range net {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Trace{}, fmt.Errorf("net load at index %d is not finite: %v", i, v)
		}
	}
	s.Reset()
	tr := Trace{
		Steps:     make([]StepResult, 0, len(net)),
		PowerW:    make([]float64, 0, len(net)),
		ResidualW: make([]float64, 0, len(net)),
		SoCWh:     make([]float64, 0, len(net)),
	}
	for _, v := range net {
		r := s.Step(v)
		tr.Steps = append(tr.Steps, r)
		tr.PowerW = append(tr.PowerW, r.PowerW)
		tr.ResidualW = append(tr.ResidualW, r.ResidualW)
		tr.SoCWh = append(tr.SoCWh, r.SoCEndWh)
	}
	return tr, nil
}
