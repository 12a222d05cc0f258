// Package tariff prices a residual grid-exchange series.
package tariff

import (
	"fmt"
	"math"

	"github.com/kilianp07/solarsim/core/model"
)

// Bill aggregates the grid exchange of a run.
type Bill struct {
	ImportKWh float64 `json:"import_kwh"`
	ExportKWh float64 `json:"export_kwh"`
	Cost      float64 `json:"cost"`
	Revenue   float64 `json:"revenue"`
	Net       float64 `json:"net"` // cost minus revenue
}

// Validate rejects negative prices.
func Validate(t model.Tariff) error {
	if t.ImportPrice < 0 || t.ExportPrice < 0 {
		return fmt.Errorf("%w: tariff prices must be >= 0, got import %v export %v",
			model.ErrInvalidConfig, t.ImportPrice, t.ExportPrice)
	}
	return nil
}

// Settle converts each residual (W, positive = import) into kWh over dt hours
// and prices it at the flat import or export rate.
func Settle(residualW []float64, dt float64, t model.Tariff) Bill {
	var b Bill
	for _, r := range residualW {
		kwh := r / 1000 * dt
		switch {
		case kwh > 0:
			b.ImportKWh += kwh
		case kwh < 0:
			b.ExportKWh -= kwh
		}
	}
	b.Cost = b.ImportKWh * t.ImportPrice
	b.Revenue = b.ExportKWh * t.ExportPrice
	b.Net = b.Cost - b.Revenue
	return b
}

// Payback returns the years needed for the annual saving against baseline to
// cover installCost. It is +Inf when there is no saving.
func Payback(installCost float64, baseline, with Bill, years float64) float64 {
	if years <= 0 {
		return math.Inf(1)
	}
	saving := (baseline.Net - with.Net) / years
	if saving <= 0 {
		return math.Inf(1)
	}
	return installCost / saving
}
