// Package registry owns the canonical state of every calling agent: status,
// quota, schedule and counters. It is the single admission checkpoint — no
// other path may originate a session — and it serializes all mutation behind
// a per-agent lock so that quota, schedule and status are evaluated
// atomically with the admission decision.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lonestardev/dialcore/core"
	"github.com/lonestardev/dialcore/logging"
	"github.com/lonestardev/dialcore/schedule"
)

// DefaultCooldown is the mandatory post-call settle interval before an agent
// becomes eligible again. It exists to avoid immediate re-dispatch thrash and
// to let terminal-event processing finish.
const DefaultCooldown = 45 * time.Second

// Options holds configuration overrides passed to New().
type Options struct {
	// Cooldown is the active→cooldown→idle settle interval.
	Cooldown time.Duration
	// Gate evaluates calling-window eligibility. Defaults to a fresh gate.
	Gate *schedule.Gate
	// Location fixes the daily quota-reset boundary's timezone.
	Location *time.Location
	// Logger receives admission and lifecycle logging.
	Logger logging.Logger
	// Clock is injectable for tests.
	Clock func() time.Time
}

// entry pairs the canonical agent record with its serialization lock.
type entry struct {
	mu    sync.Mutex
	agent *core.Agent
}

// Registry is a lock-protected table of agents indexed by id. Raw agent
// references never escape: reads return clones and writes go through methods
// holding the per-agent lock.
type Registry struct {
	mu      sync.RWMutex
	agents  map[string]*entry
	order   []string

	cooldown time.Duration
	gate     *schedule.Gate
	location *time.Location
	logger   logging.Logger
	now      func() time.Time
}

// New constructs an empty registry with optional overrides.
func New(optFns ...func(o *Options)) *Registry {
	opts := Options{
		Cooldown: DefaultCooldown,
		Gate:     schedule.NewGate(),
		Location: time.Local,
		Logger:   logging.NoOpLogger{},
		Clock:    time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		agents:   make(map[string]*entry),
		cooldown: opts.Cooldown,
		gate:     opts.Gate,
		location: opts.Location,
		logger:   opts.Logger,
		now:      opts.Clock,
	}
}

// Register adds an agent to the roster. The record is cloned on the way in;
// a missing status defaults to idle.
func (r *Registry) Register(agent *core.Agent) error {
	if agent.ID == "" {
		agent.ID = core.NewID()
	}
	clone := agent.Clone()
	if clone.Status == "" {
		clone.Status = core.StatusIdle
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[clone.ID]; !exists {
		r.order = append(r.order, clone.ID)
	}
	r.agents[clone.ID] = &entry{agent: clone}
	return nil
}

// Get returns a clone of the agent record.
func (r *Registry) Get(id string) (*core.Agent, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agent.Clone(), nil
}

// List returns clones of every registered agent in registration order.
func (r *Registry) List() []*core.Agent {
	r.mu.RLock()
	ids := append([]string(nil), r.order...)
	r.mu.RUnlock()

	out := make([]*core.Agent, 0, len(ids))
	for _, id := range ids {
		if a, err := r.Get(id); err == nil {
			out = append(out, a)
		}
	}
	return out
}

func (r *Registry) entry(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.agents[id]
	if !ok {
		return nil, core.ErrAgentNotFound
	}
	return e, nil
}

// AdmitCallRequest atomically evaluates status, quota and schedule and, on
// success, moves the agent to ringing and consumes one quota unit. Counters
// increment here, at admission, never at completion: a call that fails after
// admission still spent its attempt, which closes the quota-bypass loophole
// of repeated failed dials.
func (r *Registry) AdmitCallRequest(id string) (*core.Agent, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	a := e.agent

	if a.Status != core.StatusIdle {
		return nil, &core.AdmissionError{AgentID: id, Reason: core.ReasonNotIdle}
	}
	if a.QuotaExhausted() {
		return nil, &core.AdmissionError{AgentID: id, Reason: core.ReasonQuotaExceeded}
	}
	if !r.gate.IsWithinWindow(a, r.now().In(r.location)) {
		return nil, &core.AdmissionError{AgentID: id, Reason: core.ReasonOutsideSchedule}
	}

	a.Status = core.StatusRinging
	a.CallsToday++
	a.TotalCalls++
	r.logger.Debug("call admitted", "agent_id", id, "calls_today", a.CallsToday)
	return a.Clone(), nil
}

// AttachSession binds the admitted agent to its single non-terminal session.
func (r *Registry) AttachSession(id, sessionID string) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.agent.ActiveSessionID = sessionID
	return nil
}

// Transition validates and applies a state change. Illegal transitions are a
// programming-error class failure surfaced as *core.IllegalTransitionError;
// they are never retried. Entering cooldown, idle, disabled or error detaches
// the active session reference, and entering cooldown schedules the
// return-to-idle expiry.
func (r *Registry) Transition(id string, next core.AgentStatus) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	a := e.agent
	if !a.Status.CanTransition(next) {
		from := a.Status
		e.mu.Unlock()
		return &core.IllegalTransitionError{AgentID: id, From: from, To: next}
	}
	from := a.Status
	a.Status = next
	if next != core.StatusRinging && next != core.StatusActive {
		a.ActiveSessionID = ""
	}
	e.mu.Unlock()

	r.logger.Debug("agent transition", "agent_id", id, "from", from, "to", next)
	if next == core.StatusCooldown {
		r.scheduleCooldownExpiry(id)
	}
	return nil
}

// Release moves an on-call agent into cooldown after its session reached a
// terminal state. Releasing an agent that is not on a call is a no-op so the
// finalize path stays idempotent.
func (r *Registry) Release(id string) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if !e.agent.Status.OnCall() {
		e.mu.Unlock()
		return nil
	}
	e.agent.Status = core.StatusCooldown
	e.agent.ActiveSessionID = ""
	e.mu.Unlock()

	r.scheduleCooldownExpiry(id)
	return nil
}

func (r *Registry) scheduleCooldownExpiry(id string) {
	time.AfterFunc(r.cooldown, func() { r.OnCooldownExpired(id) })
}

// OnCooldownExpired returns a cooling-down agent to idle. If the agent left
// cooldown in the meantime (operator disable, error) nothing happens.
func (r *Registry) OnCooldownExpired(id string) {
	e, err := r.entry(id)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.agent.Status == core.StatusCooldown {
		e.agent.Status = core.StatusIdle
	}
}

// Disable takes the agent out of rotation. Privileged operator surface.
func (r *Registry) Disable(id string) error {
	return r.Transition(id, core.StatusDisabled)
}

// MarkError moves the agent to the error state after a fatal provider
// failure so operators see it immediately.
func (r *Registry) MarkError(id string) error {
	return r.Transition(id, core.StatusError)
}

// Reset explicitly returns a disabled or errored agent to idle. It is the
// only path out of those states.
func (r *Registry) Reset(id string) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	a := e.agent
	if a.Status != core.StatusDisabled && a.Status != core.StatusError {
		return &core.IllegalTransitionError{AgentID: id, From: a.Status, To: core.StatusIdle}
	}
	a.Status = core.StatusIdle
	a.ActiveSessionID = ""
	return nil
}

// Update applies an explicit field-level update to the agent record.
func (r *Registry) Update(id string, upd core.AgentUpdate) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	upd.Apply(e.agent)
	return nil
}

// CounterSnapshot is one agent's counters at a point in time.
type CounterSnapshot struct {
	AgentID    string           `json:"agent_id"`
	Name       string           `json:"name"`
	Role       core.AgentRole   `json:"role"`
	Status     core.AgentStatus `json:"status"`
	CallsToday int              `json:"calls_today"`
	TotalCalls int              `json:"total_calls"`
}

// Counters returns a snapshot of every agent's counters, sorted by agent id.
func (r *Registry) Counters() []CounterSnapshot {
	agents := r.List()
	out := make([]CounterSnapshot, 0, len(agents))
	for _, a := range agents {
		out = append(out, CounterSnapshot{
			AgentID:    a.ID,
			Name:       a.Name,
			Role:       a.Role,
			Status:     a.Status,
			CallsToday: a.CallsToday,
			TotalCalls: a.TotalCalls,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

// ResetDailyCounters zeroes every agent's calls-today counter and returns the
// pre-reset snapshot for reporting.
func (r *Registry) ResetDailyCounters() []CounterSnapshot {
	snapshot := r.Counters()

	r.mu.RLock()
	entries := make([]*entry, 0, len(r.agents))
	for _, e := range r.agents {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		e.agent.CallsToday = 0
		e.mu.Unlock()
	}
	r.logger.Info("daily counters reset", "agents", len(entries))
	return snapshot
}

// RunDailyReset blocks until ctx is done, resetting counters at each local
// midnight in the registry's configured location. onReset, when non-nil,
// receives the pre-reset snapshot (the daily report hook).
func (r *Registry) RunDailyReset(ctx context.Context, onReset func([]CounterSnapshot)) {
	for {
		now := r.now().In(r.location)
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.location).AddDate(0, 0, 1)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			snapshot := r.ResetDailyCounters()
			if onReset != nil {
				onReset(snapshot)
			}
		}
	}
}
