// Package schedule decides whether an agent may originate a call at a given
// moment. Calling windows are time-of-day ranges with no date component,
// parsed from the roster's human-entered expressions. The gate is advisory
// input to the registry's admission checkpoint, never a separate enforcement
// point, so the window check and the admission decision stay atomic.
package schedule

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lonestardev/dialcore/core"
)

// Window is a half-open [Start, End) time-of-day range, both expressed as
// minutes after midnight. Windows never cross midnight: a window whose end
// does not come strictly after its start is malformed and parses as an error,
// so a bad roster entry fails closed rather than silently wrapping.
type Window struct {
	Start int
	End   int
}

// Contains reports whether the clock time t (date ignored) falls in the window.
func (w Window) Contains(t time.Time) bool {
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= w.Start && minutes < w.End
}

// String renders the window in 24h "15:04-15:04" form.
func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.Start/60, w.Start%60, w.End/60, w.End%60)
}

// clockLayouts are the accepted clock formats: the roster's 12-hour entries
// ("9:00 AM") and plain 24-hour ones ("09:00").
var clockLayouts = []string{"3:04 PM", "3:04PM", "15:04"}

// ParseWindow parses a calling-window expression of the form
// "<clock> - <clock>", e.g. "9:00 AM - 11:30 AM" or "09:00-11:30". It returns
// an error for malformed expressions and for windows that would cross
// midnight.
func ParseWindow(expr string) (Window, error) {
	parts := strings.Split(expr, "-")
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("malformed calling window %q", expr)
	}
	start, err := parseClock(strings.TrimSpace(parts[0]))
	if err != nil {
		return Window{}, fmt.Errorf("malformed calling window %q: %w", expr, err)
	}
	end, err := parseClock(strings.TrimSpace(parts[1]))
	if err != nil {
		return Window{}, fmt.Errorf("malformed calling window %q: %w", expr, err)
	}
	if end <= start {
		return Window{}, fmt.Errorf("calling window %q crosses midnight or is empty", expr)
	}
	return Window{Start: start, End: end}, nil
}

// parseClock converts one clock expression to minutes after midnight.
func parseClock(expr string) (int, error) {
	upper := strings.ToUpper(expr)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, upper); err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
	}
	return 0, fmt.Errorf("unparseable clock %q", expr)
}

// Gate evaluates calling-window eligibility for agents. Parsed windows are
// cached by raw expression; a malformed expression caches as never-eligible.
// Safe for concurrent use.
type Gate struct {
	mu     sync.RWMutex
	parsed map[string]*Window // nil value marks a malformed expression
	now    func() time.Time
}

// NewGate constructs a Gate using the wall clock.
func NewGate() *Gate {
	return &Gate{parsed: make(map[string]*Window), now: time.Now}
}

// NewGateWithClock constructs a Gate with an injectable clock for tests.
func NewGateWithClock(now func() time.Time) *Gate {
	return &Gate{parsed: make(map[string]*Window), now: now}
}

// IsWithinWindow reports whether the agent may originate a call right now.
// Agents without a configured window are always eligible; agents with a
// malformed window never are.
func (g *Gate) IsWithinWindow(agent *core.Agent, now time.Time) bool {
	if agent.Schedule == "" {
		return true
	}
	w := g.lookup(agent.Schedule)
	if w == nil {
		return false
	}
	return w.Contains(now)
}

// Eligible is IsWithinWindow against the gate's own clock.
func (g *Gate) Eligible(agent *core.Agent) bool {
	return g.IsWithinWindow(agent, g.now())
}

func (g *Gate) lookup(expr string) *Window {
	g.mu.RLock()
	w, ok := g.parsed[expr]
	g.mu.RUnlock()
	if ok {
		return w
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if w, ok = g.parsed[expr]; ok {
		return w
	}
	parsed, err := ParseWindow(expr)
	if err != nil {
		g.parsed[expr] = nil
		return nil
	}
	g.parsed[expr] = &parsed
	return &parsed
}
