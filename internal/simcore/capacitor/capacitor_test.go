package capacitor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"intermittent-sim/internal/simcore/capacitor"
)

func newIdeal(t *testing.T, capF, vRated, vInit float64) *capacitor.Capacitor {
	t.Helper()
	c, err := capacitor.New(capacitor.Config{
		Kind:          capacitor.Ideal,
		CapacitanceF:  capF,
		VRated:        vRated,
		VInitial:      vInit,
		DTBaseSeconds: 1e-6,
	})
	require.NoError(t, err)
	return c
}

func TestNextChangeSpecExample(t *testing.T) {
	// C=100uF, v=2.0, i=+1mA, target 3.0V -> 0.1s -> 100000 ticks at 1us base.
	c := newIdeal(t, 100e-6, 5.0, 2.0)
	ticks, ok := c.NextChange(1e-3, 3.0, true)
	require.True(t, ok)
	require.Equal(t, int64(100000), ticks)
}

func TestNextChangeNoneWhenZeroCurrent(t *testing.T) {
	c := newIdeal(t, 100e-6, 5.0, 2.0)
	_, ok := c.NextChange(0, 3.0, true)
	require.False(t, ok)
}

func TestNextChangeNoneWhenUnset(t *testing.T) {
	c := newIdeal(t, 100e-6, 5.0, 2.0)
	_, ok := c.NextChange(1e-3, 0, false)
	require.False(t, ok)
}

func TestNextChangeNoneWrongSide(t *testing.T) {
	c := newIdeal(t, 100e-6, 5.0, 2.0)
	// discharging (negative current) but target is above current voltage.
	_, ok := c.NextChange(-1e-3, 3.0, true)
	require.False(t, ok)
}

func TestUpdateClampsAndFlagsEmpty(t *testing.T) {
	c := newIdeal(t, 100e-6, 5.0, 0.01)
	ev := c.Update(1_000_000, -1e-3) // 1 second of 1mA discharge, tiny C => way below 0
	require.Equal(t, capacitor.EventEmpty, ev)
	require.Equal(t, 0.0, c.Voltage())
}

func TestUpdateFlagsOvervoltage(t *testing.T) {
	c := newIdeal(t, 1e-6, 3.0, 2.9)
	ev := c.Update(1_000_000, 1e-3) // huge charge current for tiny cap
	require.Equal(t, capacitor.EventOvervoltage, ev)
	require.Greater(t, c.Voltage(), 3.0)
}

func TestTantalumLeaksMoreThanIdeal(t *testing.T) {
	ideal := newIdeal(t, 1e-3, 3.0, 3.0)
	tant, err := capacitor.New(capacitor.Config{
		Kind:          capacitor.Tantalum,
		CapacitanceF:  1e-3,
		VRated:        3.0,
		VInitial:      3.0,
		DTBaseSeconds: 1e-6,
	})
	require.NoError(t, err)

	ideal.Update(1_000_000, 0)
	tant.Update(1_000_000, 0)

	require.Less(t, tant.Voltage(), ideal.Voltage())
}

func TestInvariantVoltageBounded(t *testing.T) {
	c := newIdeal(t, 50e-6, 3.3, 1.0)
	for i := 0; i < 1000; i++ {
		c.Update(100, 5e-3)
		require.GreaterOrEqual(t, c.Voltage(), 0.0)
	}
}

func TestConfigErrorOnBadCapacitance(t *testing.T) {
	_, err := capacitor.New(capacitor.Config{CapacitanceF: 0, VRated: 3.0})
	require.Error(t, err)
}
