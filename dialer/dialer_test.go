package dialer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonestardev/dialcore/core"
	"github.com/lonestardev/dialcore/escalate"
	"github.com/lonestardev/dialcore/internal/testutil"
	"github.com/lonestardev/dialcore/memory"
	"github.com/lonestardev/dialcore/registry"
	"github.com/lonestardev/dialcore/router"
	"github.com/lonestardev/dialcore/session"
)

type fixture struct {
	manager  *Manager
	sessions *session.InMemoryStore
	agents   *registry.Registry
	provider *testutil.ScriptedProvider
	crm      *testutil.FakeCRM
	relay    *testutil.FakeRelay
	memories *memory.InMemoryStore
}

func newFixture(t *testing.T, optFns ...func(o *Options)) *fixture {
	t.Helper()
	f := &fixture{
		sessions: session.NewInMemoryStore(),
		agents:   registry.New(),
		provider: testutil.NewScriptedProvider(),
		crm:      testutil.NewFakeCRM(),
		relay:    testutil.NewFakeRelay(),
		memories: memory.NewInMemoryStore(),
	}
	escalator := escalate.NewRouter(f.crm, f.relay)
	evRouter := router.New(f.sessions, f.agents, f.provider, f.crm, f.relay, escalator,
		func(o *router.Options) { o.Memory = f.memories })
	base := func(o *Options) {
		// keep the background loop quiet unless a test wants it
		o.PollInterval = time.Hour
		o.Memory = f.memories
	}
	f.manager = NewManager(f.provider, f.agents, f.sessions, evRouter,
		append([]func(o *Options){base}, optFns...)...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = f.manager.Shutdown(ctx)
	})
	return f
}

func (f *fixture) registerAgent(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.agents.Register(testutil.NewAgentBuilder(id).Quota(5).Build()))
}

func (f *fixture) status(t *testing.T, id string) core.AgentStatus {
	t.Helper()
	agent, err := f.agents.Get(id)
	require.NoError(t, err)
	return agent.Status
}

func TestStartCallHappyPath(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "ace")
	lead := testutil.NewLead("lead-1", "travis")

	sessionID, err := f.manager.StartCall(context.Background(), "ace", lead)
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	assert.Equal(t, core.StatusRinging, f.status(t, "ace"))
	sess, err := f.sessions.Get(sessionID)
	require.NoError(t, err)
	assert.Equal(t, core.StateRinging, sess.CurrentState())
	assert.NotEmpty(t, sess.ProviderSessionID)

	agent, err := f.agents.Get("ace")
	require.NoError(t, err)
	assert.Equal(t, 1, agent.CallsToday)
	assert.Equal(t, sessionID, agent.ActiveSessionID)
}

func TestStartCallInterpolatesPriorSummary(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "luna")
	lead := testutil.NewLead("lead-1", "travis")
	require.NoError(t, f.memories.Remember("lead-1", memory.Entry{
		SessionID: "old", Summary: "wants to sell after probate closes", At: time.Now(),
	}))

	_, err := f.manager.StartCall(context.Background(), "luna", lead)
	require.NoError(t, err)

	require.Len(t, f.provider.PlacedCalls, 1)
	assert.Equal(t, "wants to sell after probate closes", f.provider.PlacedCalls[0].PriorCallSummary)
}

func TestStartCallRejectsBusyAgent(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "ace")
	lead := testutil.NewLead("lead-1", "travis")

	_, err := f.manager.StartCall(context.Background(), "ace", lead)
	require.NoError(t, err)

	_, err = f.manager.StartCall(context.Background(), "ace", lead)
	adm, ok := core.AsAdmission(err)
	require.True(t, ok, "expected admission rejection, got %v", err)
	assert.Equal(t, core.ReasonNotIdle, adm.Reason)
}

func TestProviderRejectionKeepsQuotaSpent(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "ace")
	f.provider.PlaceErr = core.NewProviderError("PlaceCall", true, assert.AnError)
	lead := testutil.NewLead("lead-1", "travis")

	_, err := f.manager.StartCall(context.Background(), "ace", lead)
	require.Error(t, err)

	agent, getErr := f.agents.Get("ace")
	require.NoError(t, getErr)
	assert.Equal(t, core.StatusCooldown, agent.Status)
	assert.Equal(t, 1, agent.CallsToday, "admission slot must not be refunded")
	assert.Empty(t, agent.ActiveSessionID)
}

func TestPollOnceActivatesAndFinalizes(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "ace")
	f.crm.Seed(testutil.NewLead("lead-1", "travis"))
	f.provider.Script = []core.StatusSnapshot{
		{Status: core.ProviderRinging},
		{Status: core.ProviderInProgress},
		{Status: core.ProviderEnded, Outcome: "voicemail"},
	}

	sessionID, err := f.manager.StartCall(context.Background(), "ace", testutil.NewLead("lead-1", "travis"))
	require.NoError(t, err)

	require.NoError(t, f.manager.PollOnce(context.Background(), sessionID))
	assert.Equal(t, core.StatusRinging, f.status(t, "ace"))

	require.NoError(t, f.manager.PollOnce(context.Background(), sessionID))
	assert.Equal(t, core.StatusActive, f.status(t, "ace"))

	require.NoError(t, f.manager.PollOnce(context.Background(), sessionID))
	snap, err := f.sessions.Snapshot(sessionID)
	require.NoError(t, err)
	assert.Equal(t, core.StateEnded, snap.State)
	assert.Equal(t, core.OutcomeVoicemail, snap.Outcome)
	assert.Equal(t, core.StatusCooldown, f.status(t, "ace"))

	// polling after finalize is a harmless no-op
	require.NoError(t, f.manager.PollOnce(context.Background(), sessionID))
}

func TestFatalProviderFailureErrorsAgent(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "ace")
	sessionID, err := f.manager.StartCall(context.Background(), "ace", testutil.NewLead("lead-1", "travis"))
	require.NoError(t, err)

	f.provider.StatusErr = core.NewProviderError("QueryStatus", false, assert.AnError)
	err = f.manager.PollOnce(context.Background(), sessionID)
	require.Error(t, err)
	assert.False(t, core.IsTransientProvider(err))

	assert.Equal(t, core.StatusError, f.status(t, "ace"))
	snap, snapErr := f.sessions.Snapshot(sessionID)
	require.NoError(t, snapErr)
	assert.Equal(t, core.StateFailed, snap.State)
}

func TestTransientFailureLeavesSessionLive(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "ace")
	sessionID, err := f.manager.StartCall(context.Background(), "ace", testutil.NewLead("lead-1", "travis"))
	require.NoError(t, err)

	f.provider.StatusErr = core.NewProviderError("QueryStatus", true, assert.AnError)
	err = f.manager.PollOnce(context.Background(), sessionID)
	require.Error(t, err)
	assert.True(t, core.IsTransientProvider(err))

	sess, getErr := f.sessions.Get(sessionID)
	require.NoError(t, getErr)
	assert.False(t, sess.Terminal())
	assert.Equal(t, core.StatusRinging, f.status(t, "ace"))
}

func TestStopCallIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "ace")
	f.crm.Seed(testutil.NewLead("lead-1", "travis"))
	sessionID, err := f.manager.StartCall(context.Background(), "ace", testutil.NewLead("lead-1", "travis"))
	require.NoError(t, err)

	require.NoError(t, f.manager.StopCall(context.Background(), sessionID))
	snap, err := f.sessions.Snapshot(sessionID)
	require.NoError(t, err)
	assert.True(t, snap.State.IsTerminal())
	require.Len(t, f.provider.Terminated, 1)

	// second stop: no second terminate, no second finalize
	require.NoError(t, f.manager.StopCall(context.Background(), sessionID))
	assert.Len(t, f.provider.Terminated, 1)
	assert.Len(t, f.crm.SavedCallLogs(), 1)
}

func TestStopCallOnActiveCallEndsConnected(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "ace")
	f.provider.Script = []core.StatusSnapshot{{Status: core.ProviderInProgress}}
	sessionID, err := f.manager.StartCall(context.Background(), "ace", testutil.NewLead("lead-1", "travis"))
	require.NoError(t, err)
	require.NoError(t, f.manager.PollOnce(context.Background(), sessionID))

	require.NoError(t, f.manager.StopCall(context.Background(), sessionID))
	snap, err := f.sessions.Snapshot(sessionID)
	require.NoError(t, err)
	assert.Equal(t, core.StateEnded, snap.State)
	assert.Equal(t, core.OutcomeConnected, snap.Outcome)
}

func TestMaxDurationForcesTimeout(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.MaxCallDuration = 30 * time.Millisecond
	})
	f.registerAgent(t, "ace")
	f.crm.Seed(testutil.NewLead("lead-1", "travis"))
	// provider never reports terminal
	f.provider.Script = []core.StatusSnapshot{{Status: core.ProviderInProgress}}

	sessionID, err := f.manager.StartCall(context.Background(), "ace", testutil.NewLead("lead-1", "travis"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, err := f.sessions.Snapshot(sessionID)
		return err == nil && snap.State.IsTerminal()
	}, 2*time.Second, 10*time.Millisecond)

	snap, err := f.sessions.Snapshot(sessionID)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeTimedOut, snap.Outcome)
	assert.Equal(t, core.StatusCooldown, f.status(t, "ace"))
	assert.NotEmpty(t, f.provider.Terminated)
}

func TestAcceptInbound(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.agents.Register(
		testutil.NewAgentBuilder("zara").Role(core.RoleReceptionist).Build()))

	sessionID, err := f.manager.AcceptInbound(context.Background(), "zara", "prov-in-1", "+15125550199", "Caller")
	require.NoError(t, err)

	sess, err := f.sessions.Get(sessionID)
	require.NoError(t, err)
	assert.Equal(t, core.DirectionInbound, sess.Direction)
	assert.Equal(t, "prov-in-1", sess.ProviderSessionID)
	assert.Equal(t, core.StatusRinging, f.status(t, "zara"))
	assert.Empty(t, f.provider.PlacedCalls, "inbound must not place a call")
}

func TestMapOutcome(t *testing.T) {
	cases := map[string]core.CallOutcome{
		"no_answer":          core.OutcomeNoAnswer,
		"busy":               core.OutcomeNoAnswer,
		"voicemail":          core.OutcomeVoicemail,
		"callback_requested": core.OutcomeCallbackRequested,
		"not_interested":     core.OutcomeNotInterested,
		"dnc_requested":      core.OutcomeDNCRequested,
		"failed":             core.OutcomeFailed,
		"completed":          core.OutcomeConnected,
		"":                   core.OutcomeConnected,
	}
	for in, want := range cases {
		assert.Equal(t, want, MapOutcome(in), "outcome %q", in)
	}
}
