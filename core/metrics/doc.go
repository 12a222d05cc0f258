// Package metrics defines the sinks that observe simulation runs. Every sink
// records run summaries; sinks that also implement StepRecorder receive the
// per-interval ledger. The factory helpers return a MultiSink automatically
// when several sinks are configured.
package metrics
