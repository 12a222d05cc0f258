// Package series checks the shape of an input time series before it reaches
// the simulator. The battery recurrence cannot recover from a missing or
// out-of-order sample, so every problem is reported up front.
package series

import (
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/solarsim/core/model"
)

// Problem classifies a ShapeError.
type Problem string

const (
	ProblemEmpty        Problem = "empty series"
	ProblemNonMonotonic Problem = "non-monotonic timestamp"
	ProblemGap          Problem = "irregular interval"
	ProblemNotFinite    Problem = "non-finite value"
)

// ShapeError points at the first offending sample.
type ShapeError struct {
	Problem Problem
	Index   int
	Time    time.Time
	Detail  string
}

func (e *ShapeError) Error() string {
	msg := fmt.Sprintf("series: %s at index %d", e.Problem, e.Index)
	if !e.Time.IsZero() {
		msg += " (" + e.Time.Format(time.RFC3339) + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Interval returns the spacing of the first two samples.
func Interval(samples []model.TimeSample) (time.Duration, error) {
	if len(samples) < 2 {
		return 0, &ShapeError{Problem: ProblemEmpty, Detail: "need at least two samples to infer the interval"}
	}
	d := samples[1].Time.Sub(samples[0].Time)
	if d <= 0 {
		return 0, &ShapeError{Problem: ProblemNonMonotonic, Index: 1, Time: samples[1].Time}
	}
	return d, nil
}

// Validate checks that samples are strictly ascending with a uniform step of
// dtHours and carry only finite values.
func Validate(samples []model.TimeSample, dtHours float64) error {
	if len(samples) == 0 {
		return &ShapeError{Problem: ProblemEmpty}
	}
	step := time.Duration(math.Round(dtHours * float64(time.Hour)))
	for i, s := range samples {
		if err := finite(i, s); err != nil {
			return err
		}
		if i == 0 {
			continue
		}
		d := s.Time.Sub(samples[i-1].Time)
		switch {
		case d <= 0:
			return &ShapeError{Problem: ProblemNonMonotonic, Index: i, Time: s.Time,
				Detail: "previous " + samples[i-1].Time.Format(time.RFC3339)}
		case d != step:
			return &ShapeError{Problem: ProblemGap, Index: i, Time: s.Time,
				Detail: fmt.Sprintf("got %s, want %s", d, step)}
		}
	}
	return nil
}

func finite(i int, s model.TimeSample) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"temperature", s.AirTemp},
		{"radiation_surface", s.GHI},
		{"clearness_index", s.Clearness},
		{"wind_speed", s.WindSpeed},
		{"load", s.LoadW},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &ShapeError{Problem: ProblemNotFinite, Index: i, Time: s.Time, Detail: f.name}
		}
	}
	return nil
}
