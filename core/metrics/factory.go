package metrics

import (
	"errors"
	"fmt"

	"github.com/kilianp07/solarsim/core/factory"
)

var sinkTypes = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink makes a sink available under name in metrics.sinks.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkTypes.Register(name, f)
}

// NewMetricsSink builds every configured sink. No entry yields a NopSink and
// a single entry is returned unwrapped. When one sink fails the ones already
// built are closed.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	switch len(cfgs) {
	case 0:
		return NopSink{}, nil
	case 1:
		return sinkTypes.Create(cfgs[0])
	}
	built := make([]MetricsSink, 0, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkTypes.Create(c)
		if err != nil {
			err = fmt.Errorf("sink %d: %w", i, err)
			if cerr := NewMultiSink(built...).Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
			return nil, err
		}
		built = append(built, s)
	}
	return NewMultiSink(built...), nil
}
