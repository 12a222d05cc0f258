package solar

import (
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	meeussolar "github.com/soniakeys/meeus/v3/solar"
)

// PreciseDeclination returns the apparent declination of the Sun from the
// Meeus low-accuracy ephemeris. The model itself uses Declination; this one
// is reported next to it by the geometry command to show the approximation
// error of Cooper's equation.
func PreciseDeclination(t time.Time) float64 {
	jd := julian.TimeToJD(t.UTC())
	_, dec := meeussolar.ApparentEquatorial(jd)
	return dec.Deg()
}
