// Package weather loads regularized weather and load series from CSV.
package weather

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/solarsim/core/model"
)

// Column names recognised in the header row.
const (
	ColTime        = "time"
	ColTemperature = "temperature"
	ColSurface     = "radiation_surface"
	ColClearness   = "clearness_index"
	ColTOA         = "radiation_toa"
	ColWind        = "wind_speed"
	ColLoad        = "load"
)

// LocalLayout is accepted for timestamps without an offset.
const LocalLayout = "2006-01-02 15:04"

// ErrMissingColumn is returned when a required column is absent.
var ErrMissingColumn = errors.New("missing column")

// Load reads the CSV file at path. Timestamps without an offset are read in loc;
// a nil loc means UTC.
func Load(path string, loc *time.Location) ([]model.TimeSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	samples, err := Read(f, loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

type columns struct {
	time, temp, surface, clearness, toa, wind, load int
}

func indexHeader(header []string) (columns, error) {
	c := columns{time: -1, temp: -1, surface: -1, clearness: -1, toa: -1, wind: -1, load: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case ColTime:
			c.time = i
		case ColTemperature:
			c.temp = i
		case ColSurface:
			c.surface = i
		case ColClearness:
			c.clearness = i
		case ColTOA:
			c.toa = i
		case ColWind:
			c.wind = i
		case ColLoad:
			c.load = i
		}
	}
	for name, idx := range map[string]int{ColTime: c.time, ColTemperature: c.temp, ColSurface: c.surface} {
		if idx < 0 {
			return c, fmt.Errorf("%w %s", ErrMissingColumn, name)
		}
	}
	if c.clearness < 0 && c.toa < 0 {
		return c, fmt.Errorf("%w %s or %s", ErrMissingColumn, ColClearness, ColTOA)
	}
	return c, nil
}

// Read parses samples from r. wind_speed and load default to 0 when absent.
// When only radiation_toa is present the clearness index is derived as
// surface/toa, or 0 when toa <= 0.
func Read(r io.Reader, loc *time.Location) ([]model.TimeSample, error) {
	if loc == nil {
		loc = time.UTC
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w %s", ErrMissingColumn, ColTime)
		}
		return nil, err
	}
	cols, err := indexHeader(header)
	if err != nil {
		return nil, err
	}

	var out []model.TimeSample
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		s, err := parseRecord(rec, cols, loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func parseRecord(rec []string, c columns, loc *time.Location) (model.TimeSample, error) {
	var s model.TimeSample
	var err error
	if s.Time, err = ParseTime(rec[c.time], loc); err != nil {
		return s, err
	}
	if s.AirTemp, err = field(rec, c.temp, ColTemperature); err != nil {
		return s, err
	}
	if s.GHI, err = field(rec, c.surface, ColSurface); err != nil {
		return s, err
	}
	if c.clearness >= 0 {
		if s.Clearness, err = field(rec, c.clearness, ColClearness); err != nil {
			return s, err
		}
	} else {
		toa, err := field(rec, c.toa, ColTOA)
		if err != nil {
			return s, err
		}
		s.Clearness = ClearnessIndex(s.GHI, toa)
	}
	if s.WindSpeed, err = field(rec, c.wind, ColWind); err != nil {
		return s, err
	}
	if s.LoadW, err = field(rec, c.load, ColLoad); err != nil {
		return s, err
	}
	return s, nil
}

func field(rec []string, idx int, name string) (float64, error) {
	if idx < 0 {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", name, err)
	}
	return v, nil
}

// ParseTime accepts RFC3339 or LocalLayout in loc.
func ParseTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(LocalLayout, v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("column %s: cannot parse %q", ColTime, v)
	}
	return t, nil
}

// ClearnessIndex returns surface/toa, or 0 when toa <= 0.
func ClearnessIndex(surface, toa float64) float64 {
	if toa <= 0 {
		return 0
	}
	return surface / toa
}
