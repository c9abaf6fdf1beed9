package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonestardev/dialcore/core"
	"github.com/lonestardev/dialcore/schedule"
)

func newTestRegistry(t *testing.T, agents ...*core.Agent) *Registry {
	t.Helper()
	r := New(func(o *Options) {
		o.Cooldown = 10 * time.Millisecond
		o.Location = time.UTC
	})
	for _, a := range agents {
		require.NoError(t, r.Register(a))
	}
	return r
}

func idleAgent(id string) *core.Agent {
	return &core.Agent{ID: id, Name: id, Role: core.RoleOutboundCaller, DailyQuota: 5}
}

func TestAdmitCallRequest_HappyPath(t *testing.T) {
	r := newTestRegistry(t, idleAgent("ace"))

	admitted, err := r.AdmitCallRequest("ace")
	require.NoError(t, err)
	assert.Equal(t, core.StatusRinging, admitted.Status)
	assert.Equal(t, 1, admitted.CallsToday)
	assert.Equal(t, 1, admitted.TotalCalls)
}

func TestAdmitCallRequest_NotIdle(t *testing.T) {
	r := newTestRegistry(t, idleAgent("ace"))
	_, err := r.AdmitCallRequest("ace")
	require.NoError(t, err)

	_, err = r.AdmitCallRequest("ace")
	ae, ok := core.AsAdmission(err)
	require.True(t, ok)
	assert.Equal(t, core.ReasonNotIdle, ae.Reason)
}

func TestAdmitCallRequest_QuotaExhausted(t *testing.T) {
	agent := idleAgent("ace")
	agent.DailyQuota = 2
	agent.CallsToday = 2
	r := newTestRegistry(t, agent)

	_, err := r.AdmitCallRequest("ace")
	ae, ok := core.AsAdmission(err)
	require.True(t, ok)
	assert.Equal(t, core.ReasonQuotaExceeded, ae.Reason)
}

func TestAdmitCallRequest_QuotaRejectsRegardlessOfSchedule(t *testing.T) {
	// Inside the window but out of quota: quota wins.
	agent := idleAgent("ace")
	agent.Schedule = "09:00-11:30"
	agent.DailyQuota = 1
	agent.CallsToday = 1

	r := New(func(o *Options) {
		o.Location = time.UTC
		o.Clock = func() time.Time { return time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC) }
	})
	require.NoError(t, r.Register(agent))

	_, err := r.AdmitCallRequest("ace")
	ae, ok := core.AsAdmission(err)
	require.True(t, ok)
	assert.Equal(t, core.ReasonQuotaExceeded, ae.Reason)
}

func TestAdmitCallRequest_OutsideSchedule(t *testing.T) {
	agent := idleAgent("ace")
	agent.Schedule = "09:00-11:30"

	r := New(func(o *Options) {
		o.Location = time.UTC
		o.Clock = func() time.Time { return time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC) }
	})
	require.NoError(t, r.Register(agent))

	_, err := r.AdmitCallRequest("ace")
	ae, ok := core.AsAdmission(err)
	require.True(t, ok)
	assert.Equal(t, core.ReasonOutsideSchedule, ae.Reason)

	// Rejection must not consume quota.
	a, err := r.Get("ace")
	require.NoError(t, err)
	assert.Zero(t, a.CallsToday)
	assert.Equal(t, core.StatusIdle, a.Status)
}

func TestAdmitCallRequest_ConcurrentSingleWinner(t *testing.T) {
	r := newTestRegistry(t, idleAgent("ace"))

	const attempts = 50
	var wg sync.WaitGroup
	admitted := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.AdmitCallRequest("ace"); err == nil {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	assert.Len(t, admitted, 1, "exactly one concurrent admission may win")

	a, err := r.Get("ace")
	require.NoError(t, err)
	assert.Equal(t, 1, a.CallsToday, "counters increment exactly once per admitted call")
}

func TestTransition_LegalCycle(t *testing.T) {
	r := newTestRegistry(t, idleAgent("ace"))
	_, err := r.AdmitCallRequest("ace")
	require.NoError(t, err)

	require.NoError(t, r.Transition("ace", core.StatusActive))
	require.NoError(t, r.Transition("ace", core.StatusCooldown))

	a, _ := r.Get("ace")
	assert.Equal(t, core.StatusCooldown, a.Status)
	assert.Empty(t, a.ActiveSessionID)
}

func TestTransition_IllegalIsFatal(t *testing.T) {
	r := newTestRegistry(t, idleAgent("ace"))

	err := r.Transition("ace", core.StatusActive)
	require.Error(t, err)
	assert.True(t, core.IsIllegalTransition(err))
}

func TestCooldownExpiry_ReturnsToIdle(t *testing.T) {
	r := newTestRegistry(t, idleAgent("ace"))
	_, err := r.AdmitCallRequest("ace")
	require.NoError(t, err)
	require.NoError(t, r.Transition("ace", core.StatusActive))
	require.NoError(t, r.Transition("ace", core.StatusCooldown))

	assert.Eventually(t, func() bool {
		a, err := r.Get("ace")
		return err == nil && a.Status == core.StatusIdle
	}, time.Second, 5*time.Millisecond)
}

func TestCooldownExpiry_SkippedWhenDisabled(t *testing.T) {
	r := newTestRegistry(t, idleAgent("ace"))
	_, err := r.AdmitCallRequest("ace")
	require.NoError(t, err)
	require.NoError(t, r.Transition("ace", core.StatusCooldown))
	require.NoError(t, r.Disable("ace"))

	time.Sleep(30 * time.Millisecond)
	a, _ := r.Get("ace")
	assert.Equal(t, core.StatusDisabled, a.Status, "expiry must not resurrect a disabled agent")
}

func TestReset_OnlyFromDisabledOrError(t *testing.T) {
	r := newTestRegistry(t, idleAgent("ace"), idleAgent("maya"))

	require.NoError(t, r.Disable("ace"))
	require.NoError(t, r.Reset("ace"))
	a, _ := r.Get("ace")
	assert.Equal(t, core.StatusIdle, a.Status)

	err := r.Reset("maya")
	assert.True(t, core.IsIllegalTransition(err))
}

func TestRelease_NoOpWhenNotOnCall(t *testing.T) {
	r := newTestRegistry(t, idleAgent("ace"))
	require.NoError(t, r.Release("ace"))

	a, _ := r.Get("ace")
	assert.Equal(t, core.StatusIdle, a.Status)
}

func TestResetDailyCounters(t *testing.T) {
	r := newTestRegistry(t, idleAgent("ace"), idleAgent("maya"))
	_, err := r.AdmitCallRequest("ace")
	require.NoError(t, err)

	snapshot := r.ResetDailyCounters()
	require.Len(t, snapshot, 2)
	byID := map[string]CounterSnapshot{}
	for _, s := range snapshot {
		byID[s.AgentID] = s
	}
	assert.Equal(t, 1, byID["ace"].CallsToday, "snapshot reflects pre-reset counters")

	a, _ := r.Get("ace")
	assert.Zero(t, a.CallsToday)
	assert.Equal(t, 1, a.TotalCalls, "lifetime counter survives the daily reset")
}

func TestDefaultRoster_WindowsParse(t *testing.T) {
	for _, a := range DefaultRoster() {
		if a.Schedule == "" {
			continue
		}
		_, err := schedule.ParseWindow(a.Schedule)
		assert.NoError(t, err, "roster window %q must parse", a.Schedule)
	}
}

func TestGetUnknownAgent(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Get("ghost")
	assert.ErrorIs(t, err, core.ErrAgentNotFound)
}
