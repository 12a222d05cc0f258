package events

import (
	"time"

	"github.com/kilianp07/solarsim/core/battery"
)

// StepEvent is published for every simulated interval.
type StepEvent struct {
	RunID string
	Case  string
	Time  time.Time
	PVW   float64
	LoadW float64
	battery.StepResult
}
