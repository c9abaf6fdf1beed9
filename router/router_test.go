package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonestardev/dialcore/analysis"
	"github.com/lonestardev/dialcore/core"
	"github.com/lonestardev/dialcore/escalate"
	"github.com/lonestardev/dialcore/internal/testutil"
	"github.com/lonestardev/dialcore/memory"
	"github.com/lonestardev/dialcore/recording"
	"github.com/lonestardev/dialcore/registry"
	"github.com/lonestardev/dialcore/session"
)

type fixture struct {
	router     *Router
	sessions   *session.InMemoryStore
	agents     *registry.Registry
	provider   *testutil.ScriptedProvider
	crm        *testutil.FakeCRM
	relay      *testutil.FakeRelay
	memories   *memory.InMemoryStore
	recordings *recording.InMemoryStore
	escalator  *escalate.Router
}

func newFixture(t *testing.T, optFns ...func(o *Options)) *fixture {
	t.Helper()
	f := &fixture{
		sessions:   session.NewInMemoryStore(),
		agents:     registry.New(),
		provider:   testutil.NewScriptedProvider(),
		crm:        testutil.NewFakeCRM(),
		relay:      testutil.NewFakeRelay(),
		memories:   memory.NewInMemoryStore(),
		recordings: recording.NewInMemoryStore(),
	}
	f.escalator = escalate.NewRouter(f.crm, f.relay)
	base := func(o *Options) {
		o.Memory = f.memories
		o.Recordings = f.recordings
	}
	f.router = New(f.sessions, f.agents, f.provider, f.crm, f.relay, f.escalator,
		append([]func(o *Options){base}, optFns...)...)
	return f
}

// ringingSession admits the agent and creates its session, mirroring what
// the dialer does on a successful placement.
func (f *fixture) ringingSession(t *testing.T, agentID, leadID string) *core.CallSession {
	t.Helper()
	require.NoError(t, f.agents.Register(testutil.NewAgentBuilder(agentID).Build()))
	_, err := f.agents.AdmitCallRequest(agentID)
	require.NoError(t, err)
	sess := testutil.NewRingingSession(agentID, leadID, "prov-x")
	require.NoError(t, f.sessions.Create(sess))
	require.NoError(t, f.agents.AttachSession(agentID, sess.ID))
	return sess
}

func agentStatus(t *testing.T, r *registry.Registry, id string) core.AgentStatus {
	t.Helper()
	agent, err := r.Get(id)
	require.NoError(t, err)
	return agent.Status
}

func TestIngestStartedActivatesAgent(t *testing.T) {
	f := newFixture(t)
	sess := f.ringingSession(t, "ace", "lead-1")

	require.NoError(t, f.router.Ingest(context.Background(), core.NewStartedEvent(sess.ID, 1)))

	assert.Equal(t, core.StateActive, sess.CurrentState())
	assert.Equal(t, core.StatusActive, agentStatus(t, f.agents, "ace"))
}

func TestIngestUnknownSession(t *testing.T) {
	f := newFixture(t)
	err := f.router.Ingest(context.Background(), core.NewStartedEvent("nope", 1))
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestIngestDropsStaleSequence(t *testing.T) {
	f := newFixture(t)
	sess := f.ringingSession(t, "ace", "lead-1")

	require.NoError(t, f.router.Ingest(context.Background(), core.NewTranscriptChunkEvent(sess.ID, 5, "later chunk")))
	require.NoError(t, f.router.Ingest(context.Background(), core.NewTranscriptChunkEvent(sess.ID, 3, "stale chunk")))

	assert.Equal(t, "later chunk", f.recordings.LiveTranscript(sess.ID))
}

func TestDuplicateTerminalEventFinalizesOnce(t *testing.T) {
	f := newFixture(t)
	f.crm.Seed(testutil.NewLead("lead-1", "travis"))
	sess := f.ringingSession(t, "ace", "lead-1")
	require.NoError(t, f.router.Ingest(context.Background(), core.NewStartedEvent(sess.ID, 1)))

	data := core.TerminalData{Outcome: core.OutcomeConnected, EndedAt: time.Now().UTC()}
	ev := core.NewTerminalEvent(sess.ID, core.EventEnded, 2, data)
	require.NoError(t, f.router.Ingest(context.Background(), ev))
	// same event redelivered, and the same transition observed again under a
	// higher sequence by the other path
	require.NoError(t, f.router.Ingest(context.Background(), ev))
	require.NoError(t, f.router.Ingest(context.Background(), core.NewTerminalEvent(sess.ID, core.EventEnded, 3, data)))

	assert.Len(t, f.crm.SavedCallLogs(), 1)
	assert.Equal(t, 1, f.relay.Count(core.RelayCallCompleted))
	assert.Equal(t, core.StatusCooldown, agentStatus(t, f.agents, "ace"))

	lead, err := f.crm.GetLead(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, 1, lead.TotalAttempts)
}

func TestFinalizeScoresFromStructuredData(t *testing.T) {
	f := newFixture(t)
	f.crm.Seed(testutil.NewLead("lead-1", "travis"))
	sess := f.ringingSession(t, "ace", "lead-1")
	f.provider.Transcript = core.Transcript{
		Summary:      "owner in pre-foreclosure, wants out now",
		RecordingRef: "rec-1",
		Structured: &core.StructuredCallData{
			DistressSignals: []string{"pre_foreclosure", "tax_delinquent", "probate", "vacant"},
			PropertyType:    "single_family",
			PropertyAge:     45,
			Sqft:            1400,
			MarketSignals:   []string{"appreciating"},
			SellingTimeline: "asap",
		},
	}

	require.NoError(t, f.router.Ingest(context.Background(), core.NewStartedEvent(sess.ID, 1)))
	require.NoError(t, f.router.Ingest(context.Background(), core.NewTerminalEvent(sess.ID, core.EventEnded, 2,
		core.TerminalData{Outcome: core.OutcomeConnected, EndedAt: time.Now().UTC()})))

	snap, err := f.sessions.Snapshot(sess.ID)
	require.NoError(t, err)
	require.NotNil(t, snap.MotivationScore)
	assert.Greater(t, *snap.MotivationScore, 0.0)
	assert.Equal(t, "rec-1", snap.RecordingRef)

	lead, err := f.crm.GetLead(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, *snap.MotivationScore, lead.MotivationScore)

	// this much stacked distress scores hot and pages the operator
	assert.Equal(t, 1, f.relay.Count(core.RelayHotLeadAlert))

	history, err := f.memories.History("lead-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "owner in pre-foreclosure, wants out now", history[0].Summary)
}

func TestFinalizeAnalyzerFallback(t *testing.T) {
	structured := &core.StructuredCallData{
		DistressSignals: []string{"probate"},
		SellingTimeline: "90_days",
	}
	f := newFixture(t, func(o *Options) {
		o.Analyzer = analysis.Static{Result: analysis.Result{
			Summary:    "analyzed summary",
			Structured: structured,
		}}
	})
	f.crm.Seed(testutil.NewLead("lead-1", "travis"))
	sess := f.ringingSession(t, "ace", "lead-1")
	f.provider.Transcript = core.Transcript{Text: "raw transcript text, no structured data"}

	require.NoError(t, f.router.Ingest(context.Background(), core.NewTerminalEvent(sess.ID, core.EventEnded, 1,
		core.TerminalData{Outcome: core.OutcomeConnected, EndedAt: time.Now().UTC()})))

	snap, err := f.sessions.Snapshot(sess.ID)
	require.NoError(t, err)
	require.NotNil(t, snap.MotivationScore)
	assert.Equal(t, "analyzed summary", snap.TranscriptSummary)
}

func TestFinalizeSurvivesTranscriptFailure(t *testing.T) {
	f := newFixture(t)
	f.crm.Seed(testutil.NewLead("lead-1", "travis"))
	sess := f.ringingSession(t, "ace", "lead-1")
	f.provider.TranscriptErr = core.NewProviderError("FetchTranscript", true, assert.AnError)

	require.NoError(t, f.router.Ingest(context.Background(), core.NewTranscriptChunkEvent(sess.ID, 1, "live chunk")))
	require.NoError(t, f.router.Ingest(context.Background(), core.NewTerminalEvent(sess.ID, core.EventEnded, 2,
		core.TerminalData{Outcome: core.OutcomeConnected, EndedAt: time.Now().UTC()})))

	snap, err := f.sessions.Snapshot(sess.ID)
	require.NoError(t, err)
	assert.True(t, snap.Terminal())
	assert.Nil(t, snap.MotivationScore)

	// live chunks sealed as the best available transcript
	rec, err := f.recordings.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "live chunk", rec.Transcript)
}

func TestMidCallDoNotContactWinsOverHighScore(t *testing.T) {
	f := newFixture(t)
	f.crm.Seed(testutil.NewLead("lead-1", "travis"))
	functions := NewFunctionRegistry()
	functions.Register(NewDoNotContactFunction(f.escalator))
	f.router.functions = functions

	sess := f.ringingSession(t, "ace", "lead-1")
	// transcript that would otherwise score hot
	f.provider.Transcript = core.Transcript{
		Summary: "very motivated seller",
		Structured: &core.StructuredCallData{
			DistressSignals: []string{"pre_foreclosure", "tax_delinquent", "probate", "vacant"},
			PropertyType:    "single_family",
			PropertyAge:     50,
			Sqft:            1600,
			SellingTimeline: "asap",
		},
	}

	require.NoError(t, f.router.Ingest(context.Background(), core.NewStartedEvent(sess.ID, 1)))
	require.NoError(t, f.router.Ingest(context.Background(),
		core.NewFunctionInvokedEvent(sess.ID, 2, "do_not_contact", map[string]any{"reason": "asked to stop"})))
	require.NoError(t, f.router.Ingest(context.Background(), core.NewTerminalEvent(sess.ID, core.EventEnded, 3,
		core.TerminalData{Outcome: core.OutcomeConnected, EndedAt: time.Now().UTC()})))

	lead, err := f.crm.GetLead(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.True(t, lead.DoNotContact)
	assert.Equal(t, core.StageExcluded, lead.Stage)
	// the hot-lead page must not fire for an excluded lead
	assert.Zero(t, f.relay.Count(core.RelayHotLeadAlert))
}

func TestFunctionCreateLead(t *testing.T) {
	f := newFixture(t)
	functions := NewFunctionRegistry()
	functions.Register(NewCreateLeadFunction(f.crm, f.relay))
	f.router.functions = functions

	sess := f.ringingSession(t, "zara", "")
	require.NoError(t, f.router.Ingest(context.Background(),
		core.NewFunctionInvokedEvent(sess.ID, 1, "create_lead", map[string]any{
			"property_address": "98 Sabine St",
			"city":             "Austin",
			"owner_name":       "J. Smith",
		})))

	leads, err := f.crm.ListLeads(context.Background(), core.LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "98 Sabine St", leads[0].PropertyAddress)
	assert.Equal(t, "inbound_call", leads[0].DataSource)
	assert.Equal(t, 1, f.relay.Count(core.RelayNewLead))
}

func TestUnknownFunctionIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.router.functions = NewFunctionRegistry()
	sess := f.ringingSession(t, "ace", "lead-1")

	require.NoError(t, f.router.Ingest(context.Background(),
		core.NewFunctionInvokedEvent(sess.ID, 1, "no_such_function", nil)))
	assert.False(t, sess.Terminal())
}

func TestFailedEventReleasesAgent(t *testing.T) {
	f := newFixture(t)
	f.crm.Seed(testutil.NewLead("lead-1", "travis"))
	sess := f.ringingSession(t, "ace", "lead-1")

	require.NoError(t, f.router.Ingest(context.Background(), core.NewTerminalEvent(sess.ID, core.EventFailed, 1,
		core.TerminalData{Outcome: core.OutcomeNoAnswer, EndedAt: time.Now().UTC(), Reason: "no pickup"})))

	snap, err := f.sessions.Snapshot(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StateFailed, snap.State)
	assert.Equal(t, core.StatusCooldown, agentStatus(t, f.agents, "ace"))
}
