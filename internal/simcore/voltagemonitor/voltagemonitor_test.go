package voltagemonitor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"intermittent-sim/internal/simcore/voltagemonitor"
)

func TestRisingAndFallingCrossingsFireDistinctEvents(t *testing.T) {
	m := voltagemonitor.New()
	m.Register("ON", 3.0, voltagemonitor.Rising)
	m.Register("OFF", 2.4, voltagemonitor.Falling)

	events := m.Events(2.0, 3.5)
	require.Equal(t, []string{"ON"}, events)

	events = m.Events(3.5, 2.0)
	require.Equal(t, []string{"OFF"}, events)

	v, ok := m.NextThreshold(2.5, 1)
	require.True(t, ok)
	require.Equal(t, 3.0, v)

	v, ok = m.NextThreshold(2.5, -1)
	require.True(t, ok)
	require.Equal(t, 2.4, v)
}

func TestEventSingleCrossing(t *testing.T) {
	m := voltagemonitor.New()
	m.Register("HIGH", 3.3, voltagemonitor.Rising)

	name, ok := m.Event(3.0, 3.3)
	require.True(t, ok)
	require.Equal(t, "HIGH", name)

	name, ok = m.Event(3.0, 3.2)
	require.False(t, ok)
	require.Empty(t, name)
}

func TestMultipleCrossingsOrdered(t *testing.T) {
	m := voltagemonitor.New()
	m.Register("A", 1.0, voltagemonitor.Rising)
	m.Register("B", 2.0, voltagemonitor.Rising)
	m.Register("C", 3.0, voltagemonitor.Rising)

	require.Equal(t, []string{"A", "B", "C"}, m.Events(0.5, 3.5))
	require.Equal(t, []string{"B"}, m.Events(1.5, 2.5))
}

func TestUnregisterForHysteresis(t *testing.T) {
	m := voltagemonitor.New()
	m.Register("ON", 3.0, voltagemonitor.Rising)
	m.UnregisterName("ON")

	_, ok := m.NextThreshold(2.5, 1)
	require.False(t, ok)

	m.Register("ON", 3.0, voltagemonitor.Rising)
	_, ok = m.NextThreshold(2.5, 1)
	require.True(t, ok)
}

func TestNoDuplicateThresholdPerName(t *testing.T) {
	m := voltagemonitor.New()
	m.Register("A", 1.0, voltagemonitor.Rising)
	m.Register("A", 2.0, voltagemonitor.Rising)

	v, ok := m.NextThreshold(0.0, 1)
	require.True(t, ok)
	require.Equal(t, 2.0, v)
}
