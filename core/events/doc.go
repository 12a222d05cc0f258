// Package events defines the simulation events emitted on the event bus.
//
// Available event types:
//   - StepEvent: one battery interval with the PV and load that drove it
//   - RunEvent: the summary of a finished run
package events
