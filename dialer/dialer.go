// Package dialer owns the outbound call lifecycle: admission through the
// agent registry, placement against the voice provider, per-session status
// polling, operator stops and the forced timeout for calls the provider
// never reports terminal.
//
// Each live session gets one polling goroutine. The loop exits when the
// session reaches a terminal state, when its context is canceled, or when
// the maximum call duration forces finalization.
package dialer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lonestardev/dialcore/core"
	"github.com/lonestardev/dialcore/logging"
	"github.com/lonestardev/dialcore/memory"
	"github.com/lonestardev/dialcore/registry"
	"github.com/lonestardev/dialcore/router"
)

// Defaults for the polling loop.
const (
	DefaultPollInterval    = 2 * time.Second
	DefaultMaxCallDuration = 10 * time.Minute
	// maxPollBackoff caps the interval growth applied after consecutive
	// transient provider failures.
	maxPollBackoff = 30 * time.Second
)

// Options configures a Manager.
type Options struct {
	PollInterval    time.Duration
	MaxCallDuration time.Duration
	// Memory supplies the prior-call summary interpolated into the call
	// context. Optional.
	Memory memory.Store
	Logger logging.Logger
}

// Manager is the call-session manager: the only component that talks to the
// provider's placement and termination surface.
type Manager struct {
	provider core.CallProvider
	agents   *registry.Registry
	sessions core.SessionStore
	router   *router.Router
	memories memory.Store
	logger   logging.Logger

	pollInterval time.Duration
	maxDuration  time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

// NewManager wires a Manager against its collaborators.
func NewManager(
	provider core.CallProvider,
	agents *registry.Registry,
	sessions core.SessionStore,
	evRouter *router.Router,
	optFns ...func(o *Options),
) *Manager {
	opts := Options{
		PollInterval:    DefaultPollInterval,
		MaxCallDuration: DefaultMaxCallDuration,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{
		provider:     provider,
		agents:       agents,
		sessions:     sessions,
		router:       evRouter,
		memories:     opts.Memory,
		logger:       opts.Logger,
		pollInterval: opts.PollInterval,
		maxDuration:  opts.MaxCallDuration,
		cancels:      make(map[string]context.CancelFunc),
	}
}

// StartCall admits the agent, places the call and begins polling.
//
// Contract:
//   - admission is the single checkpoint: status, quota and calling window
//     are checked atomically and rejections come back as *AdmissionError
//   - a provider rejection releases the agent to cooldown; the admission
//     slot is NOT refunded, so a flapping provider cannot grant an agent
//     more attempts than its quota
//   - on success the returned session id identifies the agent's single
//     live session
func (m *Manager) StartCall(ctx context.Context, agentID string, lead *core.Lead) (string, error) {
	agent, err := m.agents.AdmitCallRequest(agentID)
	if err != nil {
		return "", err
	}

	callCtx := core.CallContext{
		LeadID:       lead.ID,
		ContactName:  lead.OwnerName,
		ContactPhone: lead.Phone,
		Territory:    lead.County,
	}
	if m.memories != nil && lead.ID != "" {
		if summary, ok := m.memories.LatestSummary(lead.ID); ok {
			callCtx.PriorCallSummary = summary
		}
	}

	started := time.Now()
	providerID, err := m.provider.PlaceCall(ctx, profileOf(agent), callCtx)
	if err != nil {
		// no quota refund; the admission slot is spent
		if relErr := m.agents.Release(agentID); relErr != nil {
			m.logger.Error("release after placement failure", "agent_id", agentID, "error", relErr)
		}
		m.logger.Warn("call placement rejected",
			"agent_id", agentID, "lead_id", lead.ID, "latency", time.Since(started), "error", err)
		return "", fmt.Errorf("place call for agent %s: %w", agentID, err)
	}

	sess := core.NewCallSession(agentID, core.DirectionOutbound, lead.ID, lead.Phone, lead.OwnerName, lead.County)
	sess.BindProvider(providerID)
	if err := m.sessions.Create(sess); err != nil {
		_ = m.provider.Terminate(ctx, providerID)
		if relErr := m.agents.Release(agentID); relErr != nil {
			m.logger.Error("release after session clash", "agent_id", agentID, "error", relErr)
		}
		return "", fmt.Errorf("create session for agent %s: %w", agentID, err)
	}
	if err := m.agents.AttachSession(agentID, sess.ID); err != nil {
		m.logger.Error("session attach failed", "agent_id", agentID, "session_id", sess.ID, "error", err)
	}

	m.logger.Info("call placed",
		"agent_id", agentID, "session_id", sess.ID, "provider_session_id", providerID,
		"lead_id", lead.ID, "latency", time.Since(started))
	m.spawnPollLoop(sess.ID)
	return sess.ID, nil
}

// AcceptInbound registers a provider-announced inbound call against an
// agent, typically the receptionist. It runs the same admission checkpoint
// as outbound placement and starts the same polling loop; the provider
// session already exists so no placement happens.
func (m *Manager) AcceptInbound(ctx context.Context, agentID, providerSessionID, contactPhone, contactName string) (string, error) {
	if _, err := m.agents.AdmitCallRequest(agentID); err != nil {
		return "", err
	}
	sess := core.NewCallSession(agentID, core.DirectionInbound, "", contactPhone, contactName, "")
	sess.BindProvider(providerSessionID)
	if err := m.sessions.Create(sess); err != nil {
		if relErr := m.agents.Release(agentID); relErr != nil {
			m.logger.Error("release after session clash", "agent_id", agentID, "error", relErr)
		}
		return "", fmt.Errorf("create inbound session for agent %s: %w", agentID, err)
	}
	if err := m.agents.AttachSession(agentID, sess.ID); err != nil {
		m.logger.Error("session attach failed", "agent_id", agentID, "session_id", sess.ID, "error", err)
	}
	m.logger.Info("inbound call accepted",
		"agent_id", agentID, "session_id", sess.ID, "provider_session_id", providerSessionID)
	m.spawnPollLoop(sess.ID)
	return sess.ID, nil
}

// PollOnce performs one provider status query for the session and applies
// the result: activation when the call connects, finalization when the
// provider reports terminal. Transient provider failures are returned for
// the polling loop to back off on; fatal ones finalize the session and move
// the agent to the error state.
func (m *Manager) PollOnce(ctx context.Context, sessionID string) error {
	sess, err := m.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	if sess.Terminal() {
		return nil
	}

	snap, err := m.provider.QueryStatus(ctx, sess.ProviderSessionID)
	if err != nil {
		if core.IsTransientProvider(err) {
			m.logger.Warn("status poll failed, will retry", "session_id", sessionID, "error", err)
			return err
		}
		m.logger.Error("fatal provider failure, erroring agent",
			"session_id", sessionID, "agent_id", sess.AgentID, "error", err)
		data := core.TerminalData{Outcome: core.OutcomeFailed, EndedAt: time.Now().UTC(), Reason: err.Error()}
		if finErr := m.router.Finalize(ctx, sessionID, core.StateFailed, data); finErr != nil {
			m.logger.Error("finalize after fatal provider failure", "session_id", sessionID, "error", finErr)
		}
		if markErr := m.agents.MarkError(sess.AgentID); markErr != nil {
			m.logger.Error("mark agent error", "agent_id", sess.AgentID, "error", markErr)
		}
		return err
	}

	switch snap.Status {
	case core.ProviderQueued, core.ProviderRinging:
		return nil
	case core.ProviderInProgress:
		m.activate(sess)
		return nil
	case core.ProviderEnded:
		data := core.TerminalData{Outcome: MapOutcome(snap.Outcome), EndedAt: endedAt(snap)}
		return m.router.Finalize(ctx, sessionID, core.StateEnded, data)
	case core.ProviderFailed:
		outcome := MapOutcome(snap.Outcome)
		if snap.Outcome == "" {
			outcome = core.OutcomeFailed
		}
		data := core.TerminalData{Outcome: outcome, EndedAt: endedAt(snap), Reason: snap.Reason}
		return m.router.Finalize(ctx, sessionID, core.StateFailed, data)
	default:
		m.logger.Warn("unknown provider status", "session_id", sessionID, "status", string(snap.Status))
		return nil
	}
}

// StopCall force-ends a live call. It is idempotent: stopping a session that
// already finalized only cancels any leftover polling.
func (m *Manager) StopCall(ctx context.Context, sessionID string) error {
	sess, err := m.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	if sess.Terminal() {
		m.cancelPolling(sessionID)
		return nil
	}

	if err := m.provider.Terminate(ctx, sess.ProviderSessionID); err != nil {
		// the provider treats terminating a finished call as a no-op, so
		// any error here is worth surfacing but not worth aborting for
		m.logger.Warn("provider terminate failed", "session_id", sessionID, "error", err)
	}

	state, outcome := core.StateFailed, core.OutcomeFailed
	if sess.CurrentState() == core.StateActive {
		state, outcome = core.StateEnded, core.OutcomeConnected
	}
	data := core.TerminalData{Outcome: outcome, EndedAt: time.Now().UTC(), Reason: "operator_stop"}
	err = m.router.Finalize(ctx, sessionID, state, data)
	m.cancelPolling(sessionID)
	return err
}

// Shutdown cancels all polling loops and waits for them to drain or for the
// context to expire. Live calls are left to the provider; no terminations
// are issued.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	for _, cancel := range m.cancels {
		cancel()
	}
	m.cancels = make(map[string]context.CancelFunc)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) activate(sess *core.CallSession) {
	if sess.CurrentState() != core.StateRinging {
		return
	}
	sess.MarkActive()
	if err := m.agents.Transition(sess.AgentID, core.StatusActive); err != nil {
		// the callback path may have already activated the agent
		m.logger.Debug("agent already active", "agent_id", sess.AgentID, "error", err)
	}
	m.logger.Info("call connected", "session_id", sess.ID, "agent_id", sess.AgentID)
}

func (m *Manager) spawnPollLoop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancels[sessionID] = cancel
	m.wg.Add(1)
	go m.pollLoop(ctx, sessionID)
}

func (m *Manager) cancelPolling(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cancel, ok := m.cancels[sessionID]; ok {
		cancel()
		delete(m.cancels, sessionID)
	}
}

func (m *Manager) pollLoop(ctx context.Context, sessionID string) {
	defer m.wg.Done()
	defer m.cancelPolling(sessionID)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(m.maxDuration)
	defer deadline.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			m.forceTimeout(sessionID)
			return
		case <-ticker.C:
			err := m.PollOnce(ctx, sessionID)
			if sess, getErr := m.sessions.Get(sessionID); getErr == nil && sess.Terminal() {
				return
			}
			if err != nil {
				if !core.IsTransientProvider(err) {
					// fatal failures already finalized the session
					return
				}
				failures++
				ticker.Reset(backoffInterval(m.pollInterval, failures))
				continue
			}
			if failures > 0 {
				failures = 0
				ticker.Reset(m.pollInterval)
			}
		}
	}
}

// forceTimeout finalizes a session the provider never reported terminal.
func (m *Manager) forceTimeout(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sess, err := m.sessions.Get(sessionID); err == nil && !sess.Terminal() {
		if err := m.provider.Terminate(ctx, sess.ProviderSessionID); err != nil {
			m.logger.Warn("terminate on timeout failed", "session_id", sessionID, "error", err)
		}
	}
	data := core.TerminalData{
		Outcome: core.OutcomeTimedOut,
		EndedAt: time.Now().UTC(),
		Reason:  "max call duration exceeded",
	}
	if err := m.router.Finalize(ctx, sessionID, core.StateFailed, data); err != nil {
		m.logger.Error("finalize on timeout failed", "session_id", sessionID, "error", err)
	}
	m.logger.Warn("call forcibly timed out", "session_id", sessionID)
}

// backoffInterval doubles the base interval per consecutive failure, capped
// at maxPollBackoff.
func backoffInterval(base time.Duration, failures int) time.Duration {
	d := base
	for i := 1; i < failures && d < maxPollBackoff; i++ {
		d *= 2
	}
	if d > maxPollBackoff {
		return maxPollBackoff
	}
	return d
}

func profileOf(agent *core.Agent) core.AgentProfile {
	return core.AgentProfile{
		AgentID: agent.ID,
		Name:    agent.Name,
		Role:    agent.Role,
		VoiceID: agent.VoiceID,
	}
}

// MapOutcome normalizes a provider disposition string onto the outcome
// taxonomy. Unknown non-empty dispositions degrade to connected for ended
// calls; the provider knows the call happened even if we cannot classify it.
func MapOutcome(providerOutcome string) core.CallOutcome {
	switch strings.ToLower(strings.TrimSpace(providerOutcome)) {
	case "no_answer", "no-answer", "busy":
		return core.OutcomeNoAnswer
	case "voicemail", "machine":
		return core.OutcomeVoicemail
	case "callback_requested", "callback":
		return core.OutcomeCallbackRequested
	case "not_interested":
		return core.OutcomeNotInterested
	case "dnc_requested", "do_not_call":
		return core.OutcomeDNCRequested
	case "failed", "error", "canceled":
		return core.OutcomeFailed
	default:
		return core.OutcomeConnected
	}
}

func endedAt(snap core.StatusSnapshot) time.Time {
	if snap.EndedAt != nil {
		return *snap.EndedAt
	}
	return time.Now().UTC()
}
