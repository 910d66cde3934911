// Package voltagemonitor maintains ordered rising/falling voltage threshold
// registries and answers next-crossing and crossed-event queries in
// logarithmic time. Every Converter and Load embeds one.
package voltagemonitor

import "sort"

// Edge selects which direction(s) a threshold is registered on.
type Edge int

const (
	Rising Edge = iota
	Falling
	Both
)

// Monitor is an ordered threshold registry keyed by voltage. Both the rising
// and falling sets are kept as sorted slices of (voltage, name) pairs so that
// next-threshold and event lookups are binary searches rather than scans.
//
// A given event name may have distinct rising and falling registrations
// (e.g. LDO's OUT threshold, registered with Both); they are never merged, since rising and
// falling crossings of the same name are distinct event identities.
type Monitor struct {
	rising  []entry
	falling []entry
}

type entry struct {
	voltage float64
	name    string
}

// New returns an empty Monitor.
func New() *Monitor {
	return &Monitor{}
}

// Register inserts name at v on the given edge(s). Re-registering an
// existing name at a new voltage replaces its prior entry on that edge.
func (m *Monitor) Register(name string, v float64, edge Edge) {
	if edge == Rising || edge == Both {
		m.rising = insertSorted(m.rising, name, v)
	}
	if edge == Falling || edge == Both {
		m.falling = insertSorted(m.falling, name, v)
	}
}

func insertSorted(s []entry, name string, v float64) []entry {
	s = removeByName(s, name)
	idx := sort.Search(len(s), func(i int) bool { return s[i].voltage >= v })
	s = append(s, entry{})
	copy(s[idx+1:], s[idx:])
	s[idx] = entry{voltage: v, name: name}
	return s
}

func removeByName(s []entry, name string) []entry {
	for i, e := range s {
		if e.name == name {
			return append(s[:i:i], s[i+1:]...)
		}
	}
	return s
}

func removeByVoltage(s []entry, v float64) []entry {
	idx := sort.Search(len(s), func(i int) bool { return s[i].voltage >= v })
	if idx < len(s) && s[idx].voltage == v {
		return append(s[:idx:idx], s[idx+1:]...)
	}
	return s
}

// UnregisterName removes name from both edges, if present.
func (m *Monitor) UnregisterName(name string) {
	m.rising = removeByName(m.rising, name)
	m.falling = removeByName(m.falling, name)
}

// UnregisterVoltage removes any entry sitting exactly at v, on both edges.
func (m *Monitor) UnregisterVoltage(v float64) {
	m.rising = removeByVoltage(m.rising, v)
	m.falling = removeByVoltage(m.falling, v)
}

// NextThreshold returns the next threshold voltage reached from v given the
// sign of the current flowing into/out of the monitored node: a positive
// current looks at rising thresholds strictly above v, a negative current
// looks at falling thresholds strictly below v. Returns (0, false) if there
// is none or current is exactly zero.
func (m *Monitor) NextThreshold(v float64, currentSign float64) (float64, bool) {
	switch {
	case currentSign > 0:
		idx := sort.Search(len(m.rising), func(i int) bool { return m.rising[i].voltage > v })
		if idx < len(m.rising) {
			return m.rising[idx].voltage, true
		}
	case currentSign < 0:
		// largest falling threshold strictly less than v: search for first
		// entry >= v, then step back one.
		idx := sort.Search(len(m.falling), func(i int) bool { return m.falling[i].voltage >= v })
		if idx > 0 {
			return m.falling[idx-1].voltage, true
		}
	}
	return 0, false
}

// Event returns the first threshold name crossed moving from vOld to vNew,
// or ("", false) if none. A new voltage landing exactly on a threshold
// counts as crossed.
func (m *Monitor) Event(vOld, vNew float64) (string, bool) {
	if vNew > vOld {
		idx := sort.Search(len(m.rising), func(i int) bool { return m.rising[i].voltage > vOld })
		if idx < len(m.rising) && m.rising[idx].voltage <= vNew {
			return m.rising[idx].name, true
		}
	} else if vNew < vOld {
		idx := sort.Search(len(m.falling), func(i int) bool { return m.falling[i].voltage >= vOld })
		if idx > 0 && m.falling[idx-1].voltage >= vNew {
			return m.falling[idx-1].name, true
		}
	}
	return "", false
}

// Events returns every threshold name crossed moving from vOld to vNew, in
// the order they are crossed.
func (m *Monitor) Events(vOld, vNew float64) []string {
	var out []string
	if vNew > vOld {
		idx := sort.Search(len(m.rising), func(i int) bool { return m.rising[i].voltage > vOld })
		for ; idx < len(m.rising) && m.rising[idx].voltage <= vNew; idx++ {
			out = append(out, m.rising[idx].name)
		}
	} else if vNew < vOld {
		idx := sort.Search(len(m.falling), func(i int) bool { return m.falling[i].voltage >= vOld }) - 1
		for ; idx >= 0 && m.falling[idx].voltage >= vNew; idx-- {
			out = append(out, m.falling[idx].name)
		}
	}
	return out
}
