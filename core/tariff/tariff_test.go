package tariff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/solarsim/core/model"
)

func TestSettle(t *testing.T) {
	tar := model.Tariff{ImportPrice: 0.30, ExportPrice: 0.05}
	b := Settle([]float64{2000, -1000, 0, 4000}, 0.25, tar)

	assert.InDelta(t, 1.5, b.ImportKWh, 1e-12)
	assert.InDelta(t, 0.25, b.ExportKWh, 1e-12)
	assert.InDelta(t, 0.45, b.Cost, 1e-12)
	assert.InDelta(t, 0.0125, b.Revenue, 1e-12)
	assert.InDelta(t, 0.4375, b.Net, 1e-12)
}

func TestSettleEmpty(t *testing.T) {
	assert.Equal(t, Bill{}, Settle(nil, 1, model.Tariff{ImportPrice: 1}))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(model.Tariff{ImportPrice: 0.2}))
	assert.ErrorIs(t, Validate(model.Tariff{ExportPrice: -0.1}), model.ErrInvalidConfig)
}

func TestPayback(t *testing.T) {
	baseline := Bill{Net: 1200}
	with := Bill{Net: 400}
	assert.InDelta(t, 5, Payback(2000, baseline, with, 2), 1e-12)
	assert.True(t, math.IsInf(Payback(2000, with, baseline, 1), 1))
	assert.True(t, math.IsInf(Payback(2000, baseline, with, 0), 1))
}
