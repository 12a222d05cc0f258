package logger

import corelogger "github.com/kilianp07/solarsim/core/logger"

// Logger is the core interface, re-exported so infra callers need one import.
type Logger = corelogger.Logger

// NopLogger discards everything. Tests and library callers without a logger
// use it.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Infow(string, map[string]any)  {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns the zerolog-backed logger tagged with component.
func New(component string) Logger {
	return NewZerologLogger(component)
}

var _ Logger = NopLogger{}
