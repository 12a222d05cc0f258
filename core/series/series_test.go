package series

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/solarsim/core/model"
)

func regular(n int, step time.Duration) []model.TimeSample {
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.TimeSample, n)
	for i := range out {
		out[i] = model.TimeSample{Time: start.Add(time.Duration(i) * step), AirTemp: 5, LoadW: 300}
	}
	return out
}

func TestValidateAcceptsRegularSeries(t *testing.T) {
	assert.NoError(t, Validate(regular(96, 15*time.Minute), 0.25))
	assert.NoError(t, Validate(regular(1, time.Hour), 1))
}

func TestValidateReportsOffendingSample(t *testing.T) {
	gapped := regular(10, time.Hour)
	gapped = append(gapped[:4], gapped[5:]...)

	backwards := regular(10, time.Hour)
	backwards[6].Time = backwards[5].Time

	nan := regular(10, time.Hour)
	nan[3].GHI = math.NaN()

	cases := []struct {
		name    string
		samples []model.TimeSample
		problem Problem
		index   int
	}{
		{"empty", nil, ProblemEmpty, 0},
		{"gap", gapped, ProblemGap, 4},
		{"non monotonic", backwards, ProblemNonMonotonic, 6},
		{"nan", nan, ProblemNotFinite, 3},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := Validate(c.samples, 1)
			var se *ShapeError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, c.problem, se.Problem)
			assert.Equal(t, c.index, se.Index)
			if c.index > 0 {
				assert.Equal(t, c.samples[c.index].Time, se.Time)
				assert.Contains(t, err.Error(), c.samples[c.index].Time.Format(time.RFC3339))
			}
		})
	}
}

func TestValidateRejectsWrongInterval(t *testing.T) {
	err := Validate(regular(5, time.Hour), 0.25)
	var se *ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ProblemGap, se.Problem)
	assert.Equal(t, 1, se.Index)
}

func TestInterval(t *testing.T) {
	d, err := Interval(regular(3, 15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, d)

	_, err = Interval(regular(1, time.Hour))
	assert.Error(t, err)
}
