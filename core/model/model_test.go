package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSite() SiteConfig {
	return SiteConfig{
		TiltDeg:      30,
		LatitudeDeg:  52.189,
		LongitudeDeg: -2.028,
		Albedo:       0.2,
		AreaM2:       10,
		Panel:        PanelConfig{NOCTIrradiance: 800, ReferenceEfficiency: 0.19},
	}
}

func TestSiteValidate(t *testing.T) {
	require.NoError(t, validSite().Validate())

	cases := map[string]func(*SiteConfig){
		"zero efficiency":    func(s *SiteConfig) { s.Panel.ReferenceEfficiency = 0 },
		"efficiency above 1": func(s *SiteConfig) { s.Panel.ReferenceEfficiency = 1.01 },
		"negative area":      func(s *SiteConfig) { s.AreaM2 = -1 },
		"albedo above 1":     func(s *SiteConfig) { s.Albedo = 1.5 },
		"zero noct":          func(s *SiteConfig) { s.Panel.NOCTIrradiance = 0 },
		"latitude":           func(s *SiteConfig) { s.LatitudeDeg = 91 },
		"time zone":          func(s *SiteConfig) { s.TimeZoneHours = 15 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := validSite()
			mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)
		})
	}
}

func TestBatteryValidate(t *testing.T) {
	assert.NoError(t, BatteryConfig{CapacityWh: 0, PowerLimitW: 0, Efficiency: 1}.Validate())
	assert.ErrorIs(t, BatteryConfig{CapacityWh: -1, Efficiency: 1}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, BatteryConfig{PowerLimitW: -1, Efficiency: 1}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, BatteryConfig{Efficiency: 0}.Validate(), ErrInvalidConfig)
}

func TestActionFromPower(t *testing.T) {
	assert.Equal(t, ActionCharging, ActionFromPower(-0.1))
	assert.Equal(t, ActionDischarging, ActionFromPower(12))
	assert.Equal(t, ActionIdle, ActionFromPower(0))
}

func TestDispatchTypeString(t *testing.T) {
	assert.Equal(t, "Non-Dispatchable", NonDispatchable.String())
	assert.Equal(t, "Dispatchable", Dispatchable.String())
	assert.Equal(t, "unknown", DispatchType(7).String())
}

func TestAssets(t *testing.T) {
	pv := NewPVAsset("roof", 4000)
	assert.Equal(t, NonDispatchable, pv.DispatchType)
	assert.Equal(t, DefaultLifetimeYears, pv.Lifetime())

	bat := NewBatteryAsset("battery", 3000)
	assert.Equal(t, Dispatchable, bat.DispatchType)
	bat.LifetimeYears = 0
	assert.Equal(t, DefaultLifetimeYears, bat.Lifetime())
	bat.LifetimeYears = 12
	assert.Equal(t, 12, bat.Lifetime())

	assert.ErrorIs(t, Asset{Name: "x", InstallCost: -1}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, Asset{Name: "x", LifetimeYears: -2}.Validate(), ErrInvalidConfig)
}
