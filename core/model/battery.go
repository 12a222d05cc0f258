package model

import "fmt"

// BatteryConfig defines a stationary battery. Efficiency is the round-trip
// figure, applied once on the way in and once on the way out.
type BatteryConfig struct {
	CapacityWh  float64 `json:"capacity_wh"`
	PowerLimitW float64 `json:"power_limit_w"` // symmetric for charge and discharge
	Efficiency  float64 `json:"efficiency"`
}

// Validate checks the battery parameters.
func (b BatteryConfig) Validate() error {
	if b.CapacityWh < 0 {
		return fmt.Errorf("%w: capacity must be >= 0, got %v", ErrInvalidConfig, b.CapacityWh)
	}
	if b.PowerLimitW < 0 {
		return fmt.Errorf("%w: power limit must be >= 0, got %v", ErrInvalidConfig, b.PowerLimitW)
	}
	if b.Efficiency <= 0 || b.Efficiency > 1 {
		return fmt.Errorf("%w: efficiency must be in (0, 1], got %v", ErrInvalidConfig, b.Efficiency)
	}
	return nil
}

// BatteryState is the only mutable state of a simulation.
type BatteryState struct {
	SoCWh float64
}

// Action labels what the battery did during a step.
type Action string

const (
	ActionCharging    Action = "CHARGING"
	ActionIdle        Action = "IDLE"
	ActionDischarging Action = "DISCHARGING"
)

// ActionFromPower maps a dispatched power (positive = discharge) to an Action.
func ActionFromPower(powerW float64) Action {
	switch {
	case powerW < 0:
		return ActionCharging
	case powerW > 0:
		return ActionDischarging
	default:
		return ActionIdle
	}
}
