package model

import "fmt"

// DispatchType separates assets whose output follows the weather from assets
// the simulator can schedule.
type DispatchType int

const (
	NonDispatchable DispatchType = iota
	Dispatchable
)

// DefaultLifetimeYears is used when an asset does not set its own lifetime.
const DefaultLifetimeYears = 20

// String returns a human-readable representation of the dispatch type.
func (d DispatchType) String() string {
	switch d {
	case NonDispatchable:
		return "Non-Dispatchable"
	case Dispatchable:
		return "Dispatchable"
	default:
		return "unknown"
	}
}

// Asset is the economic record shared by every piece of household equipment.
type Asset struct {
	Name          string
	DispatchType  DispatchType
	InstallCost   float64
	LifetimeYears int
}

// NewPVAsset returns a non-dispatchable asset.
func NewPVAsset(name string, installCost float64) Asset {
	return Asset{Name: name, DispatchType: NonDispatchable, InstallCost: installCost, LifetimeYears: DefaultLifetimeYears}
}

// NewBatteryAsset returns a dispatchable asset.
func NewBatteryAsset(name string, installCost float64) Asset {
	return Asset{Name: name, DispatchType: Dispatchable, InstallCost: installCost, LifetimeYears: DefaultLifetimeYears}
}

// Validate checks the economic fields.
func (a Asset) Validate() error {
	if a.InstallCost < 0 {
		return fmt.Errorf("%w: asset %s install cost must be >= 0", ErrInvalidConfig, a.Name)
	}
	if a.LifetimeYears < 0 {
		return fmt.Errorf("%w: asset %s lifetime must be >= 0", ErrInvalidConfig, a.Name)
	}
	return nil
}

// Lifetime returns LifetimeYears or the default when unset.
func (a Asset) Lifetime() int {
	if a.LifetimeYears == 0 {
		return DefaultLifetimeYears
	}
	return a.LifetimeYears
}
