// Package router normalizes provider call updates into session mutations.
// Events arrive from two paths that may observe the same underlying
// transition: the dialer's polling loop and asynchronous provider callbacks.
// The router makes that safe with two guards: per-kind sequence tracking on
// the session discards duplicate events, and the session's finalize-once
// write makes the terminal pipeline run exactly once no matter how many
// paths report the call finished.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/lonestardev/dialcore/analysis"
	"github.com/lonestardev/dialcore/core"
	"github.com/lonestardev/dialcore/escalate"
	"github.com/lonestardev/dialcore/logging"
	"github.com/lonestardev/dialcore/memory"
	"github.com/lonestardev/dialcore/recording"
	"github.com/lonestardev/dialcore/registry"
	"github.com/lonestardev/dialcore/scoring"
)

// Options configures a Router.
type Options struct {
	// Analyzer is the transcript fallback used when the provider returns no
	// structured call data. Optional; without it unstructured calls finalize
	// unscored.
	Analyzer analysis.Analyzer
	// Memory receives a per-lead history entry after every finalized call.
	Memory memory.Store
	// Recordings seals transcript and recording references at finalize.
	Recordings *recording.InMemoryStore
	// Functions dispatches mid-call invocations. Optional; unknown or
	// missing functions are logged and skipped, never fatal to the call.
	Functions *FunctionRegistry
	// OnFinalized, when set, receives a detached snapshot of every session
	// after its finalize pipeline completes.
	OnFinalized func(snap *core.CallSession)
	Logger      logging.Logger
}

// Router is the single writer for session state derived from provider
// events.
type Router struct {
	sessions  core.SessionStore
	agents    *registry.Registry
	provider  core.CallProvider
	crm       core.CRMStore
	relay     core.Relay
	escalator *escalate.Router

	analyzer    analysis.Analyzer
	memories    memory.Store
	recordings  *recording.InMemoryStore
	functions   *FunctionRegistry
	onFinalized func(snap *core.CallSession)
	logger      logging.Logger
}

// New wires a Router against its collaborators.
func New(
	sessions core.SessionStore,
	agents *registry.Registry,
	provider core.CallProvider,
	crm core.CRMStore,
	relay core.Relay,
	escalator *escalate.Router,
	optFns ...func(o *Options),
) *Router {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{
		sessions:    sessions,
		agents:      agents,
		provider:    provider,
		crm:         crm,
		relay:       relay,
		escalator:   escalator,
		analyzer:    opts.Analyzer,
		memories:    opts.Memory,
		recordings:  opts.Recordings,
		functions:   opts.Functions,
		onFinalized: opts.OnFinalized,
		logger:      opts.Logger,
	}
}

// Ingest applies one normalized call event to its session.
//
// Contract:
//   - the (session, kind, sequence) triple is the idempotency key; events at
//     or below the last applied sequence for their kind are silently dropped
//   - started moves the session and its agent to active
//   - transcriptChunk accumulates into the live recording buffer
//   - functionInvoked dispatches immediately and may escalate mid-call
//   - ended/failed enter the finalize pipeline
func (r *Router) Ingest(ctx context.Context, ev core.CallEvent) error {
	sess, err := r.sessions.Get(ev.SessionID)
	if err != nil {
		return fmt.Errorf("ingest %s event: %w", ev.Kind, err)
	}
	if !sess.ApplySequence(ev.Kind, ev.Sequence) {
		r.logger.Debug("duplicate event dropped",
			"session_id", ev.SessionID, "kind", string(ev.Kind), "sequence", ev.Sequence)
		return nil
	}

	switch ev.Kind {
	case core.EventStarted:
		r.applyStarted(sess)
		return nil
	case core.EventTranscriptChunk:
		if r.recordings != nil {
			r.recordings.AppendTranscript(ev.SessionID, ev.Transcript)
		}
		return nil
	case core.EventFunctionInvoked:
		r.applyFunction(ctx, sess, ev)
		return nil
	case core.EventEnded:
		return r.Finalize(ctx, ev.SessionID, core.StateEnded, terminalData(ev))
	case core.EventFailed:
		return r.Finalize(ctx, ev.SessionID, core.StateFailed, terminalData(ev))
	default:
		r.logger.Warn("unknown event kind ignored", "session_id", ev.SessionID, "kind", string(ev.Kind))
		return nil
	}
}

func terminalData(ev core.CallEvent) core.TerminalData {
	if ev.Terminal != nil {
		return *ev.Terminal
	}
	data := core.TerminalData{Outcome: core.OutcomeConnected, EndedAt: ev.Timestamp}
	if ev.Kind == core.EventFailed {
		data.Outcome = core.OutcomeFailed
	}
	return data
}

func (r *Router) applyStarted(sess *core.CallSession) {
	if sess.CurrentState() != core.StateRinging {
		return
	}
	sess.MarkActive()
	if err := r.agents.Transition(sess.AgentID, core.StatusActive); err != nil {
		// the polling path may have already moved the agent
		r.logger.Debug("agent already past ringing", "agent_id", sess.AgentID, "error", err)
	}
	r.logger.Info("call connected", "session_id", sess.ID, "agent_id", sess.AgentID)
}

func (r *Router) applyFunction(ctx context.Context, sess *core.CallSession, ev core.CallEvent) {
	if ev.Function == nil {
		r.logger.Warn("function event without payload", "session_id", sess.ID)
		return
	}
	if r.functions == nil {
		r.logger.Warn("no function registry wired", "session_id", sess.ID, "function", ev.Function.Name)
		return
	}
	fn, ok := r.functions.Resolve(ev.Function.Name)
	if !ok {
		r.logger.Warn("unknown function invoked", "session_id", sess.ID, "function", ev.Function.Name)
		return
	}
	fc := &FunctionContext{Session: sess.Clone(), EventID: ev.ID}
	result, err := fn.Call(ctx, fc, ev.Function.Arguments)
	if err != nil {
		r.logger.Error("function invocation failed",
			"session_id", sess.ID, "function", ev.Function.Name, "error", err)
		return
	}
	r.logger.Info("function invoked",
		"session_id", sess.ID, "function", ev.Function.Name, "result", result)
}

// Finalize runs the terminal pipeline for a session: compute duration, pull
// the transcript, score, release the agent, flush to the CRM, route the
// outcome and archive. The session's finalize-once write guarantees the
// pipeline runs for exactly one terminal signal; later signals return nil
// without side effects.
func (r *Router) Finalize(ctx context.Context, sessionID string, state core.SessionState, data core.TerminalData) error {
	sess, err := r.sessions.Get(sessionID)
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	endedAt := data.EndedAt
	if endedAt.IsZero() {
		endedAt = time.Now().UTC()
	}
	if !sess.Finalize(state, data.Outcome, endedAt) {
		r.logger.Debug("duplicate terminal signal dropped", "session_id", sessionID)
		return nil
	}

	summary, recordingRef, structured := r.collectTranscript(ctx, sess)

	var score float64
	scored := false
	dnc := data.Outcome == core.OutcomeDNCRequested
	if structured != nil {
		score = scoring.Score(scoring.FactorsFromCallData(*structured))
		sess.SetScore(score)
		scored = true
		if structured.DoNotContact {
			dnc = true
		}
	}
	sess.SetTranscript(summary, recordingRef)

	if r.memories != nil && sess.LeadID != "" {
		entry := memory.Entry{
			SessionID: sess.ID,
			AgentID:   sess.AgentID,
			Summary:   summary,
			Outcome:   string(data.Outcome),
			At:        endedAt,
		}
		if err := r.memories.Remember(sess.LeadID, entry); err != nil {
			r.logger.Error("history write failed", "lead_id", sess.LeadID, "error", err)
		}
	}

	if err := r.agents.Release(sess.AgentID); err != nil {
		r.logger.Error("agent release failed", "agent_id", sess.AgentID, "error", err)
	}

	snap := sess.Clone()
	r.flushToCRM(ctx, snap, scored, score)

	if r.relay != nil {
		// fire and forget; orchestration never blocks on notification fan-out
		_ = r.relay.Publish(ctx, core.RelayCallCompleted, map[string]any{
			"session_id": snap.ID,
			"agent_id":   snap.AgentID,
			"lead_id":    snap.LeadID,
			"outcome":    string(snap.Outcome),
			"duration_s": int(snap.Duration.Seconds()),
		})
	}

	if snap.LeadID != "" {
		// a do-not-contact applied mid-call is authoritative over anything
		// the transcript analysis produced
		if lead, err := r.crm.GetLead(ctx, snap.LeadID); err == nil && lead.DoNotContact {
			dnc = true
		}
		r.escalator.Route(ctx, escalate.Outcome{
			SessionID:    snap.ID,
			AgentID:      snap.AgentID,
			LeadID:       snap.LeadID,
			Score:        score,
			Scored:       scored,
			Outcome:      snap.Outcome,
			DoNotContact: dnc,
			Summary:      summary,
			County:       snap.County,
			ContactName:  snap.ContactName,
			ContactPhone: snap.ContactPhone,
		})
	}

	if err := r.sessions.Archive(sessionID); err != nil {
		r.logger.Error("session archive failed", "session_id", sessionID, "error", err)
	}

	r.logger.Info("call finalized",
		"session_id", snap.ID,
		"agent_id", snap.AgentID,
		"outcome", string(snap.Outcome),
		"duration", snap.Duration,
		"scored", scored)

	if r.onFinalized != nil {
		r.onFinalized(snap)
	}
	return nil
}

// collectTranscript pulls the provider transcript and, when it lacks
// structured data, falls back to the analyzer over whatever text is
// available. Provider failures degrade to the live chunk buffer; they never
// abort finalization.
func (r *Router) collectTranscript(ctx context.Context, sess *core.CallSession) (summary, recordingRef string, structured *core.StructuredCallData) {
	var text string
	if sess.ProviderSessionID != "" {
		tr, err := r.provider.FetchTranscript(ctx, sess.ProviderSessionID)
		if err != nil {
			r.logger.Warn("transcript fetch failed", "session_id", sess.ID, "error", err)
		} else {
			summary = tr.Summary
			recordingRef = tr.RecordingRef
			structured = tr.Structured
			text = tr.Text
		}
	}
	if text == "" && r.recordings != nil {
		text = r.recordings.LiveTranscript(sess.ID)
	}
	if structured == nil && r.analyzer != nil && text != "" {
		res, err := r.analyzer.ExtractCallData(ctx, text)
		if err != nil {
			r.logger.Warn("transcript analysis failed", "session_id", sess.ID, "error", err)
		} else {
			structured = res.Structured
			if summary == "" {
				summary = res.Summary
			}
		}
	}
	if r.recordings != nil {
		r.recordings.Seal(sess.ID, recordingRef, text)
	}
	return summary, recordingRef, structured
}

// flushToCRM writes the call log and updates the lead's attempt counters.
// CRM writes are best effort; the store may be eventually consistent and
// failures are logged, not propagated.
func (r *Router) flushToCRM(ctx context.Context, snap *core.CallSession, scored bool, score float64) {
	agentName := snap.AgentID
	if agent, err := r.agents.Get(snap.AgentID); err == nil {
		agentName = agent.Name
	}

	callLog := &core.CallLog{
		ID:                core.NewID(),
		AgentID:           snap.AgentID,
		AgentName:         agentName,
		Direction:         snap.Direction,
		ContactPhone:      snap.ContactPhone,
		ContactName:       snap.ContactName,
		LeadID:            snap.LeadID,
		County:            snap.County,
		DurationSeconds:   int(snap.Duration.Seconds()),
		Outcome:           snap.Outcome,
		MotivationScore:   snap.MotivationScore,
		TranscriptSummary: snap.TranscriptSummary,
		RecordingRef:      snap.RecordingRef,
		CreatedAt:         time.Now().UTC(),
	}
	if err := r.crm.SaveCallLog(ctx, callLog); err != nil {
		r.logger.Error("call log flush failed", "session_id", snap.ID, "error", err)
	}

	if snap.LeadID == "" {
		return
	}
	lead, err := r.crm.GetLead(ctx, snap.LeadID)
	if err != nil {
		r.logger.Warn("lead lookup failed at finalize", "lead_id", snap.LeadID, "error", err)
		return
	}
	attempts := lead.TotalAttempts + 1
	calledAt := snap.StartedAt
	upd := core.LeadUpdate{
		TotalAttempts: &attempts,
		LastCalledAt:  &calledAt,
	}
	if scored {
		upd.MotivationScore = &score
	}
	if err := r.crm.UpdateLead(ctx, snap.LeadID, upd); err != nil {
		r.logger.Error("lead update failed at finalize", "lead_id", snap.LeadID, "error", err)
	}
}
