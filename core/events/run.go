package events

import "github.com/kilianp07/solarsim/core/metrics"

// RunEvent is published once a run has been settled.
type RunEvent struct {
	Summary metrics.RunSummary
}
