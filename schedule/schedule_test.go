package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonestardev/dialcore/core"
)

func clock(hour, min int) time.Time {
	return time.Date(2025, 6, 2, hour, min, 0, 0, time.UTC)
}

func TestParseWindow(t *testing.T) {
	cases := []struct {
		expr       string
		start, end int
	}{
		{"9:00 AM - 11:30 AM", 9 * 60, 11*60 + 30},
		{"09:00-11:30", 9 * 60, 11*60 + 30},
		{"1:00 PM - 3:30 PM", 13 * 60, 15*60 + 30},
		{"10:30 AM - 1:00 PM", 10*60 + 30, 13 * 60},
	}
	for _, tc := range cases {
		w, err := ParseWindow(tc.expr)
		require.NoError(t, err, tc.expr)
		assert.Equal(t, tc.start, w.Start, tc.expr)
		assert.Equal(t, tc.end, w.End, tc.expr)
	}
}

func TestParseWindow_Malformed(t *testing.T) {
	for _, expr := range []string{"", "24/7", "9:00 AM", "whenever - later", "11:30 AM - 9:00 AM", "09:00-09:00", "10:00 PM - 2:00 AM"} {
		_, err := ParseWindow(expr)
		assert.Error(t, err, expr)
	}
}

func TestWindow_Contains(t *testing.T) {
	w, err := ParseWindow("09:00-11:30")
	require.NoError(t, err)

	assert.True(t, w.Contains(clock(9, 0)), "start is inclusive")
	assert.True(t, w.Contains(clock(11, 29)))
	assert.False(t, w.Contains(clock(11, 30)), "end is exclusive")
	assert.False(t, w.Contains(clock(8, 59)))
	assert.False(t, w.Contains(clock(14, 0)))
}

func TestGate_IsWithinWindow(t *testing.T) {
	g := NewGate()
	agent := &core.Agent{ID: "ace", Schedule: "9:00 AM - 11:30 AM"}

	assert.True(t, g.IsWithinWindow(agent, clock(10, 15)))
	assert.False(t, g.IsWithinWindow(agent, clock(14, 0)))
}

func TestGate_NoWindowAlwaysEligible(t *testing.T) {
	g := NewGate()
	agent := &core.Agent{ID: "zara"}

	assert.True(t, g.IsWithinWindow(agent, clock(3, 0)))
	assert.True(t, g.IsWithinWindow(agent, clock(23, 59)))
}

func TestGate_MalformedWindowFailsClosed(t *testing.T) {
	g := NewGate()
	agent := &core.Agent{ID: "zara", Schedule: "24/7"}

	for hour := 0; hour < 24; hour++ {
		assert.False(t, g.IsWithinWindow(agent, clock(hour, 0)))
	}
}

func TestGate_Eligible_UsesInjectedClock(t *testing.T) {
	g := NewGateWithClock(func() time.Time { return clock(10, 0) })
	agent := &core.Agent{ID: "ace", Schedule: "09:00-11:30"}
	assert.True(t, g.Eligible(agent))

	g = NewGateWithClock(func() time.Time { return clock(14, 0) })
	assert.False(t, g.Eligible(agent))
}
