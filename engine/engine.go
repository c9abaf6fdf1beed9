package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/lonestardev/dialcore/analysis"
	"github.com/lonestardev/dialcore/config"
	"github.com/lonestardev/dialcore/core"
	"github.com/lonestardev/dialcore/crm/inmemory"
	"github.com/lonestardev/dialcore/crm/postgres"
	"github.com/lonestardev/dialcore/dialer"
	"github.com/lonestardev/dialcore/escalate"
	"github.com/lonestardev/dialcore/logging"
	"github.com/lonestardev/dialcore/memory"
	"github.com/lonestardev/dialcore/recording"
	"github.com/lonestardev/dialcore/registry"
	"github.com/lonestardev/dialcore/relay"
	"github.com/lonestardev/dialcore/router"
	"github.com/lonestardev/dialcore/scoring"
	"github.com/lonestardev/dialcore/session"
)

// Options configures an Engine. Every collaborator has an in-memory default
// so a bare New(provider, cfg) yields a fully working engine for development
// and tests; production deployments override the stores they persist.
type Options struct {
	// Sessions holds live and archived call sessions.
	// Defaults to the in-memory store.
	Sessions core.SessionStore

	// CRM persists leads, deals, buyers and call logs. Defaults to the
	// PostgreSQL store when cfg.DatabaseDSN is set, else in-memory.
	CRM core.CRMStore

	// Relay publishes workflow events. Defaults to the HTTP client when
	// cfg.RelayURL is set, else a no-op.
	Relay core.Relay

	// Analyzer extracts structured call data from raw transcripts when the
	// provider returns none. Optional.
	Analyzer analysis.Analyzer

	// Memory supplies prior-call summaries for context interpolation.
	// Defaults to the in-memory store.
	Memory memory.Store

	// Recordings buffers live transcript chunks and sealed records.
	// Defaults to a fresh in-memory store.
	Recordings *recording.InMemoryStore

	// Roster seeds the agent registry. Defaults to registry.DefaultRoster.
	Roster []*core.Agent

	// Functions are extra mid-call functions registered alongside the
	// built-ins (create_lead, transfer_to_operator, do_not_contact,
	// schedule_callback).
	Functions []router.Function

	// Logger defaults to a structured logger built from cfg.LogLevel and
	// cfg.LogFormat, writing to LogOutput.
	Logger logging.Logger

	// LogOutput is where the default logger writes. Defaults to stdout.
	// Ignored when Logger is set.
	LogOutput io.Writer

	// Clock is injectable for tests.
	Clock func() time.Time
}

// Engine is the assembled call-center stack: registry, dialer, event router,
// escalation, CRM and relay behind one operator surface.
type Engine struct {
	cfg      config.Engine
	location *time.Location
	logger   logging.Logger
	now      func() time.Time

	agents    *registry.Registry
	sessions  core.SessionStore
	crm       core.CRMStore
	relay     core.Relay
	escalator *escalate.Router
	events    *router.Router
	dialer    *dialer.Manager

	callbacks *callbackRegistry

	// ownedCRM is closed on Shutdown when the engine constructed the
	// PostgreSQL store itself.
	ownedCRM io.Closer

	mu          sync.Mutex
	started     bool
	resetCancel context.CancelFunc
	resetDone   chan struct{}
}

// New assembles an Engine around the given call provider.
//
// The config selects the timezone for calling windows and the daily reset,
// the polling cadence, and which CRM and relay backends to construct when
// none are supplied via options. Collaborators passed through options are
// not owned by the engine and must be closed by the caller.
func New(provider core.CallProvider, cfg config.Engine, optFns ...func(o *Options)) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("engine: call provider is required")
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("engine: load timezone %q: %w", cfg.Timezone, err)
	}

	opts := Options{
		LogOutput: os.Stdout,
		Clock:     time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger(&logging.LoggerConfig{
			Level:     logging.ParseLogLevel(cfg.LogLevel),
			Format:    cfg.LogFormat,
			Output:    opts.LogOutput,
			Component: "engine",
		})
	}

	e := &Engine{
		cfg:       cfg,
		location:  location,
		logger:    logger,
		now:       opts.Clock,
		sessions:  opts.Sessions,
		crm:       opts.CRM,
		relay:     opts.Relay,
		callbacks: newCallbackRegistry(),
	}

	if e.sessions == nil {
		e.sessions = session.NewInMemoryStore()
	}
	if e.crm == nil {
		if cfg.DatabaseDSN != "" {
			pg := postgres.New(cfg.DatabaseDSN)
			e.crm = pg
			e.ownedCRM = pg
		} else {
			e.crm = inmemory.New()
		}
	}
	if e.relay == nil {
		if cfg.RelayURL != "" {
			client, err := relay.NewClient(relay.Config{URL: cfg.RelayURL, Token: cfg.RelayToken})
			if err != nil {
				return nil, fmt.Errorf("engine: relay client: %w", err)
			}
			e.relay = client
		} else {
			e.relay = relay.NoOp{}
		}
	}

	memories := opts.Memory
	if memories == nil {
		memories = memory.NewInMemoryStore()
	}
	recordings := opts.Recordings
	if recordings == nil {
		recordings = recording.NewInMemoryStore()
	}

	e.agents = registry.New(func(o *registry.Options) {
		if cfg.CooldownPeriod > 0 {
			o.Cooldown = cfg.CooldownPeriod
		}
		o.Location = location
		o.Logger = logger
		o.Clock = opts.Clock
	})
	roster := opts.Roster
	if roster == nil {
		roster = registry.DefaultRoster()
	}
	for _, agent := range roster {
		if err := e.agents.Register(agent); err != nil {
			return nil, fmt.Errorf("engine: seed roster: %w", err)
		}
	}

	e.escalator = escalate.NewRouter(e.crm, e.relay, func(o *escalate.Options) {
		o.Logger = logger
		o.Clock = opts.Clock
	})

	functions := router.NewFunctionRegistry()
	functions.Register(router.NewCreateLeadFunction(e.crm, e.relay))
	functions.Register(router.NewTransferToOperatorFunction(e.escalator))
	functions.Register(router.NewDoNotContactFunction(e.escalator))
	functions.Register(router.NewScheduleCallbackFunction(e.crm))
	for _, fn := range opts.Functions {
		functions.Register(fn)
	}

	e.events = router.New(e.sessions, e.agents, provider, e.crm, e.relay, e.escalator,
		func(o *router.Options) {
			o.Analyzer = opts.Analyzer
			o.Memory = memories
			o.Recordings = recordings
			o.Functions = functions
			o.OnFinalized = e.fireAfterCall
			o.Logger = logger
		})

	e.dialer = dialer.NewManager(provider, e.agents, e.sessions, e.events,
		func(o *dialer.Options) {
			if cfg.PollInterval > 0 {
				o.PollInterval = cfg.PollInterval
			}
			if cfg.MaxCallDuration > 0 {
				o.MaxCallDuration = cfg.MaxCallDuration
			}
			o.Memory = memories
			o.Logger = logger
		})

	return e, nil
}

// RegisterCallback adds a lifecycle callback. Register everything before
// Start; registration is not synchronized against running callbacks.
func (e *Engine) RegisterCallback(cb Callback) {
	e.callbacks.register(cb)
}

// Start launches the background daily-reset loop. It is idempotent. The
// loop stops when ctx is cancelled or Shutdown is called.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true

	resetCtx, cancel := context.WithCancel(ctx)
	e.resetCancel = cancel
	e.resetDone = make(chan struct{})
	go func() {
		defer close(e.resetDone)
		e.agents.RunDailyReset(resetCtx, e.onDailyReset)
	}()
	e.logger.Info("engine started", "timezone", e.cfg.Timezone)
}

// Shutdown stops the reset loop, drains in-flight poll loops and closes any
// stores the engine constructed itself.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	cancel := e.resetCancel
	done := e.resetDone
	e.resetCancel = nil
	e.started = false
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := e.dialer.Shutdown(ctx); err != nil {
		return err
	}
	if e.ownedCRM != nil {
		return e.ownedCRM.Close()
	}
	return nil
}

// StartCall places an outbound call from the agent to the lead.
//
// Contract:
//   - the lead must exist and not be flagged do-not-contact
//   - before_call callbacks run next and may veto the placement
//   - admission (status, quota, window) and placement then follow the
//     dial manager's contract; rejections come back as *AdmissionError
func (e *Engine) StartCall(ctx context.Context, agentID, leadID string) (string, error) {
	lead, err := e.crm.GetLead(ctx, leadID)
	if err != nil {
		return "", fmt.Errorf("start call: %w", err)
	}
	if lead.DoNotContact {
		return "", fmt.Errorf("start call lead %s: %w", leadID, core.ErrDoNotContact)
	}

	if err := e.callbacks.fire(ctx, &CallbackContext{
		Type:    CallbackBeforeCall,
		AgentID: agentID,
		Lead:    lead,
	}); err != nil {
		return "", fmt.Errorf("start call vetoed: %w", err)
	}

	return e.dialer.StartCall(ctx, agentID, lead)
}

// StopCall terminates a live call. Safe to repeat.
func (e *Engine) StopCall(ctx context.Context, sessionID string) error {
	return e.dialer.StopCall(ctx, sessionID)
}

// AcceptInbound registers a provider-originated call against an agent and
// begins polling it. The receptionist role is the usual target.
func (e *Engine) AcceptInbound(ctx context.Context, agentID, providerSessionID, contactPhone, contactName string) (string, error) {
	return e.dialer.AcceptInbound(ctx, agentID, providerSessionID, contactPhone, contactName)
}

// PollSession forces one status poll for the session, outside the regular
// polling cadence.
func (e *Engine) PollSession(ctx context.Context, sessionID string) error {
	return e.dialer.PollOnce(ctx, sessionID)
}

// IngestProviderEvent applies one provider callback event. This is the
// webhook entry point; events are deduplicated per (session, kind) by
// sequence number.
func (e *Engine) IngestProviderEvent(ctx context.Context, ev core.CallEvent) error {
	return e.events.Ingest(ctx, ev)
}

// Session returns a detached snapshot of a live or archived session.
func (e *Engine) Session(id string) (*core.CallSession, error) {
	return e.sessions.Snapshot(id)
}

// ActiveSessions lists the ids of sessions not yet archived.
func (e *Engine) ActiveSessions() []string {
	return e.sessions.ActiveIDs()
}

// Agents returns detached copies of every registered agent.
func (e *Engine) Agents() []*core.Agent {
	return e.agents.List()
}

// Agent returns a detached copy of one agent.
func (e *Engine) Agent(id string) (*core.Agent, error) {
	return e.agents.Get(id)
}

// DisableAgent takes the agent out of rotation until ResetAgent.
func (e *Engine) DisableAgent(id string) error {
	return e.agents.Disable(id)
}

// ResetAgent returns a disabled or errored agent to idle.
func (e *Engine) ResetAgent(id string) error {
	return e.agents.Reset(id)
}

// UpdateAgent applies a field-level update to the agent record.
func (e *Engine) UpdateAgent(id string, upd core.AgentUpdate) error {
	return e.agents.Update(id, upd)
}

// Counters returns the current per-agent daily counters.
func (e *Engine) Counters() []registry.CounterSnapshot {
	return e.agents.Counters()
}

// CreateLead stores a new lead and announces it on the relay. Missing id,
// stage and creation time are filled in.
func (e *Engine) CreateLead(ctx context.Context, lead *core.Lead) error {
	if lead.ID == "" {
		lead.ID = core.NewID()
	}
	if lead.Stage == "" {
		lead.Stage = core.StageNew
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = e.now()
	}
	if err := e.crm.CreateLead(ctx, lead); err != nil {
		return err
	}
	if err := e.relay.Publish(ctx, core.RelayNewLead, lead); err != nil {
		e.logger.Warn("relay publish failed", "event", string(core.RelayNewLead), "lead_id", lead.ID, "error", err)
	}
	return nil
}

// ImportLeads bulk-creates leads, tolerating per-row failures. It returns
// the number stored and the first error encountered, if any.
func (e *Engine) ImportLeads(ctx context.Context, leads []*core.Lead) (int, error) {
	var stored int
	var firstErr error
	for _, lead := range leads {
		if err := e.CreateLead(ctx, lead); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			e.logger.Warn("lead import row failed", "lead_id", lead.ID, "error", err)
			continue
		}
		stored++
	}
	return stored, firstErr
}

// Leads lists leads matching the filter.
func (e *Engine) Leads(ctx context.Context, filter core.LeadFilter) ([]*core.Lead, error) {
	return e.crm.ListLeads(ctx, filter)
}

// EvaluateDeal derives the full economics for a candidate deal without
// persisting anything. When rehabEstimate is zero it is taken as the
// midpoint of the per-sqft band for the property's condition tier.
func (e *Engine) EvaluateDeal(arv, rehabEstimate, contractPrice, assignmentFee float64, sqft int, tier scoring.ConditionTier) scoring.Economics {
	if rehabEstimate == 0 && sqft > 0 {
		lo, hi := scoring.EstimateRehabRange(sqft, tier)
		rehabEstimate = (lo + hi) / 2
	}
	return scoring.DealEconomics(arv, rehabEstimate, contractPrice, assignmentFee)
}

// CreateDealFromLead opens a negotiating deal for the lead, derives its
// economics and requests a deal package over the relay.
func (e *Engine) CreateDealFromLead(ctx context.Context, leadID string, arv, rehabEstimate, contractPrice, assignmentFee float64) (*core.Deal, error) {
	lead, err := e.crm.GetLead(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("create deal: %w", err)
	}

	econ := scoring.DealEconomics(arv, rehabEstimate, contractPrice, assignmentFee)
	deal := &core.Deal{
		ID:                core.NewID(),
		LeadID:            lead.ID,
		PropertyAddress:   lead.PropertyAddress,
		ARV:               econ.ARV,
		RehabEstimate:     econ.RehabEstimate,
		ContractPrice:     econ.ContractPrice,
		AssignmentFee:     econ.AssignmentFee,
		MaxAllowableOffer: econ.MaxAllowableOffer,
		ProfitEstimate:    econ.ProfitEstimate,
		Status:            core.DealNegotiating,
		CreatedAt:         e.now(),
	}
	if err := e.crm.CreateDeal(ctx, deal); err != nil {
		return nil, fmt.Errorf("create deal: %w", err)
	}

	if err := e.relay.Publish(ctx, core.RelayDealPackageRequest, map[string]any{
		"deal_id":   deal.ID,
		"lead_id":   lead.ID,
		"address":   deal.PropertyAddress,
		"economics": econ,
	}); err != nil {
		e.logger.Warn("relay publish failed", "event", string(core.RelayDealPackageRequest), "deal_id", deal.ID, "error", err)
	}
	return deal, nil
}

// RecordOffer notes a seller offer against a deal and announces it.
func (e *Engine) RecordOffer(ctx context.Context, dealID, leadID string, amount float64) error {
	if err := e.crm.UpdateLead(ctx, leadID, core.LeadUpdate{AskingPrice: &amount}); err != nil {
		return fmt.Errorf("record offer: %w", err)
	}
	if err := e.relay.Publish(ctx, core.RelayOfferReceived, map[string]any{
		"deal_id": dealID,
		"lead_id": leadID,
		"amount":  amount,
	}); err != nil {
		e.logger.Warn("relay publish failed", "event", string(core.RelayOfferReceived), "deal_id", dealID, "error", err)
	}
	return nil
}

// RecordContractSigned moves the deal to contracted, proposes the lead's
// conversion and announces the signed contract.
func (e *Engine) RecordContractSigned(ctx context.Context, dealID, leadID, buyerID, buyerName string, closingAt *time.Time) error {
	status := core.DealContracted
	upd := core.DealUpdate{Status: &status, ClosingAt: closingAt}
	if buyerID != "" {
		upd.BuyerID = &buyerID
	}
	if buyerName != "" {
		upd.BuyerName = &buyerName
	}
	if err := e.crm.UpdateDeal(ctx, dealID, upd); err != nil {
		return fmt.Errorf("record contract: %w", err)
	}

	if err := e.crm.ProposeStage(ctx, leadID, core.StageConverted); err != nil {
		e.logger.Warn("stage proposal failed", "lead_id", leadID, "error", err)
	}
	if err := e.relay.Publish(ctx, core.RelayContractSigned, map[string]any{
		"deal_id":  dealID,
		"lead_id":  leadID,
		"buyer_id": buyerID,
	}); err != nil {
		e.logger.Warn("relay publish failed", "event", string(core.RelayContractSigned), "deal_id", dealID, "error", err)
	}
	return nil
}

// AddBuyer stores a cash buyer profile.
func (e *Engine) AddBuyer(ctx context.Context, buyer *core.Buyer) error {
	if buyer.ID == "" {
		buyer.ID = core.NewID()
	}
	return e.crm.CreateBuyer(ctx, buyer)
}

// Buyers lists buyers, optionally only active ones.
func (e *Engine) Buyers(ctx context.Context, activeOnly bool) ([]*core.Buyer, error) {
	return e.crm.ListBuyers(ctx, activeOnly)
}

// DailyReport publishes the current counter snapshot as a report request.
// The midnight reset loop calls the same path automatically.
func (e *Engine) DailyReport(ctx context.Context) error {
	return e.publishReport(ctx, e.agents.Counters())
}

func (e *Engine) onDailyReset(snapshot []registry.CounterSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.publishReport(ctx, snapshot); err != nil {
		e.logger.Warn("daily report publish failed", "error", err)
	}
	if err := e.callbacks.fire(ctx, &CallbackContext{
		Type:     CallbackDailyReset,
		Counters: snapshot,
	}); err != nil {
		e.logger.Warn("daily reset callback failed", "error", err)
	}
	e.logger.Info("daily counters reset", "agents", len(snapshot))
}

func (e *Engine) publishReport(ctx context.Context, snapshot []registry.CounterSnapshot) error {
	var totalCalls int
	for _, c := range snapshot {
		totalCalls += c.CallsToday
	}
	return e.relay.Publish(ctx, core.RelayDailyReportRequest, map[string]any{
		"date":        e.now().In(e.location).Format("2006-01-02"),
		"total_calls": totalCalls,
		"agents":      snapshot,
	})
}

func (e *Engine) fireAfterCall(snap *core.CallSession) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.callbacks.fire(ctx, &CallbackContext{
		Type:    CallbackAfterCall,
		Session: snap,
	}); err != nil {
		e.logger.Warn("after-call callback failed", "session_id", snap.ID, "error", err)
	}
}
