package battery

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/solarsim/core/model"
)

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestNewSimulatorRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  model.BatteryConfig
		dt   float64
	}{
		{"negative capacity", model.BatteryConfig{CapacityWh: -1, PowerLimitW: 1, Efficiency: 0.9}, 1},
		{"negative power", model.BatteryConfig{CapacityWh: 1, PowerLimitW: -1, Efficiency: 0.9}, 1},
		{"zero efficiency", model.BatteryConfig{CapacityWh: 1, PowerLimitW: 1, Efficiency: 0}, 1},
		{"efficiency above one", model.BatteryConfig{CapacityWh: 1, PowerLimitW: 1, Efficiency: 1.01}, 1},
		{"zero dt", model.BatteryConfig{CapacityWh: 1, PowerLimitW: 1, Efficiency: 1}, 0},
		{"nan dt", model.BatteryConfig{CapacityWh: 1, PowerLimitW: 1, Efficiency: 1}, math.NaN()},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewSimulator(c.cfg, c.dt)
			assert.ErrorIs(t, err, model.ErrInvalidConfig)
		})
	}
}

func TestEmptyBatteryCannotDischarge(t *testing.T) {
	sim, err := NewSimulator(model.BatteryConfig{CapacityWh: 5000, PowerLimitW: 2500, Efficiency: 1}, 0.25)
	require.NoError(t, err)

	tr, err := sim.Run(constant(5000, 10))
	require.NoError(t, err)
	require.Len(t, tr.Steps, 10)
	for i, st := range tr.Steps {
		assert.Equal(t, 0.0, st.PowerW, "step %d", i)
		assert.Equal(t, 5000.0, st.ResidualW, "step %d", i)
		assert.Equal(t, model.ActionIdle, st.Action)
	}
	assert.Equal(t, 0.0, tr.FinalSoCWh())
}

func TestSurplusChargesUntilFull(t *testing.T) {
	cfg := model.BatteryConfig{CapacityWh: 5000, PowerLimitW: 10000, Efficiency: 0.9}
	sim, err := NewSimulator(cfg, 1)
	require.NoError(t, err)

	tr, err := sim.Run(constant(-1000, 20))
	require.NoError(t, err)

	prev := 0.0
	full := -1
	for i, st := range tr.Steps {
		assert.GreaterOrEqual(t, st.SoCEndWh, prev, "soc must not fall at step %d", i)
		assert.LessOrEqual(t, st.SoCEndWh, cfg.CapacityWh)
		want := math.Max(-1000, -(cfg.CapacityWh-st.SoCStartWh)/cfg.Efficiency)
		assert.InDelta(t, want, st.PowerW, 1e-9, "step %d", i)
		assert.InDelta(t, st.NetW-st.PowerW, st.ResidualW, 1e-12)
		if full < 0 && st.SoCEndWh >= cfg.CapacityWh-1e-9 {
			full = i
		}
		prev = st.SoCEndWh
	}

	// 900 Wh per step reaches 4500 after five steps; the sixth tops up.
	require.Equal(t, 5, full)
	assert.InDelta(t, -500/0.9, tr.PowerW[5], 1e-9)
	for i := full + 1; i < len(tr.Steps); i++ {
		assert.InDelta(t, 0, tr.PowerW[i], 1e-9)
		assert.InDelta(t, -1000, tr.ResidualW[i], 1e-9)
	}
	assert.InDelta(t, cfg.CapacityWh, tr.FinalSoCWh(), 1e-9)
}

func TestDischargeAppliesEfficiencyOnTheWayOut(t *testing.T) {
	cfg := model.BatteryConfig{CapacityWh: 1000, PowerLimitW: 5000, Efficiency: 0.8}
	sim, err := NewSimulator(cfg, 1)
	require.NoError(t, err)

	sim.Step(-1250) // stores 0.8 * 1250 = 1000 Wh
	assert.InDelta(t, 1000, sim.State().SoCWh, 1e-9)

	st := sim.Step(2000)
	assert.InDelta(t, 800, st.PowerW, 1e-9)
	assert.InDelta(t, 1200, st.ResidualW, 1e-9)
	assert.InDelta(t, 0, st.SoCEndWh, 1e-9)
	assert.Equal(t, model.ActionDischarging, st.Action)
}

func TestPowerLimitBindsBothWays(t *testing.T) {
	cfg := model.BatteryConfig{CapacityWh: 100000, PowerLimitW: 3000, Efficiency: 1}
	sim, err := NewSimulator(cfg, 0.5)
	require.NoError(t, err)

	st := sim.Step(-8000)
	assert.Equal(t, -3000.0, st.PowerW)
	assert.Equal(t, -5000.0, st.ResidualW)
	assert.Equal(t, model.ActionCharging, st.Action)

	st = sim.Step(8000)
	assert.Equal(t, 3000.0, st.PowerW)
	assert.Equal(t, 5000.0, st.ResidualW)
}

func TestZeroNetIsIdle(t *testing.T) {
	sim, err := NewSimulator(model.BatteryConfig{CapacityWh: 1000, PowerLimitW: 500, Efficiency: 0.9}, 1)
	require.NoError(t, err)
	sim.Step(-400)
	before := sim.State()
	st := sim.Step(0)
	assert.Equal(t, 0.0, st.PowerW)
	assert.Equal(t, 0.0, st.ResidualW)
	assert.Equal(t, before, sim.State())
	assert.Equal(t, model.ActionIdle, st.Action)
}

func TestSoCStaysInBoundsOnRandomWalks(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	for trial := 0; trial < 200; trial++ {
		cfg := model.BatteryConfig{
			CapacityWh:  rng.Float64() * 20000,
			PowerLimitW: rng.Float64() * 8000,
			Efficiency:  0.5 + rng.Float64()*0.5,
		}
		dt := []float64{0.25, 0.5, 1}[rng.IntN(3)]
		sim, err := NewSimulator(cfg, dt)
		require.NoError(t, err)

		net := make([]float64, 300)
		level := 0.0
		for i := range net {
			level += rng.NormFloat64() * 1500
			net[i] = level
		}
		tr, err := sim.Run(net)
		require.NoError(t, err)
		for i, soc := range tr.SoCWh {
			if soc < 0 || soc > cfg.CapacityWh {
				t.Fatalf("trial %d step %d: soc %v outside [0, %v]", trial, i, soc, cfg.CapacityWh)
			}
			if math.Abs(tr.PowerW[i]) > cfg.PowerLimitW {
				t.Fatalf("trial %d step %d: power %v exceeds limit %v", trial, i, tr.PowerW[i], cfg.PowerLimitW)
			}
		}
	}
}

func TestEnergyConservedAtUnitEfficiency(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 11))
	cfg := model.BatteryConfig{CapacityWh: 8000, PowerLimitW: 3000, Efficiency: 1}
	const dt = 0.25
	sim, err := NewSimulator(cfg, dt)
	require.NoError(t, err)

	net := make([]float64, 500)
	for i := range net {
		net[i] = (rng.Float64() - 0.5) * 9000
	}
	tr, err := sim.Run(net)
	require.NoError(t, err)

	sum := 0.0
	for _, p := range tr.PowerW {
		sum += p * dt
	}
	assert.InDelta(t, -tr.FinalSoCWh(), sum, 1e-6)

	discharged, charged := tr.Energy(dt)
	assert.InDelta(t, tr.FinalSoCWh(), charged-discharged, 1e-6)
}

func TestRunResetsState(t *testing.T) {
	sim, err := NewSimulator(model.BatteryConfig{CapacityWh: 1000, PowerLimitW: 1000, Efficiency: 1}, 1)
	require.NoError(t, err)
	sim.Step(-600)
	require.Equal(t, 600.0, sim.State().SoCWh)

	tr, err := sim.Run([]float64{500})
	require.NoError(t, err)
	assert.Equal(t, 0.0, tr.PowerW[0])
	assert.Equal(t, 0, tr.Steps[0].Index)
}

func TestRunRejectsNonFiniteInput(t *testing.T) {
	sim, err := NewSimulator(model.BatteryConfig{CapacityWh: 1000, PowerLimitW: 1000, Efficiency: 1}, 1)
	require.NoError(t, err)
	_, err = sim.Run([]float64{1, 2, math.NaN()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 2")
}
