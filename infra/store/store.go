// Package store persists finished runs so sweeps and repeated runs can be
// compared later.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/solarsim/config"
	coremetrics "github.com/kilianp07/solarsim/core/metrics"
)

// RunRecord is one persisted run.
type RunRecord struct {
	Summary coremetrics.RunSummary   `json:"summary"`
	Steps   []coremetrics.StepSample `json:"steps,omitempty"`
}

// RunQuery filters stored runs. Zero fields match everything.
type RunQuery struct {
	RunID string
	Case  string
	Since time.Time
	Until time.Time
}

func (q RunQuery) match(s coremetrics.RunSummary) bool {
	if q.RunID != "" && s.RunID != q.RunID {
		return false
	}
	if q.Case != "" && s.Case != q.Case {
		return false
	}
	if !q.Since.IsZero() && s.Start.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && s.Start.After(q.Until) {
		return false
	}
	return true
}

// RunStore persists RunRecords and supports querying.
type RunStore interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q RunQuery) ([]RunRecord, error)
	Close() error
}

// Open returns the configured store, or nil for the "none" backend.
func Open(cfg config.StoreConfig) (RunStore, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "jsonl":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store backend %s", cfg.Backend)
	}
}

// Sink adapts a RunStore to the metrics sink interfaces. Steps are held until
// the run summary arrives and are written with it.
type Sink struct {
	store     RunStore
	keepSteps bool

	mu      sync.Mutex
	pending map[string][]coremetrics.StepSample
}

// NewSink wraps s. When keepSteps is false only summaries are stored.
func NewSink(s RunStore, keepSteps bool) *Sink {
	return &Sink{store: s, keepSteps: keepSteps, pending: make(map[string][]coremetrics.StepSample)}
}

// RecordSteps buffers the ledger of runID.
func (k *Sink) RecordSteps(runID, _ string, steps []coremetrics.StepSample) error {
	if !k.keepSteps {
		return nil
	}
	k.mu.Lock()
	k.pending[runID] = append(k.pending[runID], steps...)
	k.mu.Unlock()
	return nil
}

// RecordRun writes the summary with any buffered steps.
func (k *Sink) RecordRun(s coremetrics.RunSummary) error {
	k.mu.Lock()
	steps := k.pending[s.RunID]
	delete(k.pending, s.RunID)
	k.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return k.store.Append(ctx, RunRecord{Summary: s, Steps: steps})
}

// Close closes the underlying store.
func (k *Sink) Close() error { return k.store.Close() }
