package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/lonestardev/dialcore/core"
)

// StageProposal records one ProposeStage call observed by the fake CRM.
type StageProposal struct {
	LeadID string
	Stage  core.PipelineStage
}

// FakeCRM is an in-memory core.CRMStore that records every write for
// assertion. All methods honor Err when set.
type FakeCRM struct {
	mu sync.Mutex

	// Err, when non-nil, is returned by every method.
	Err error

	Leads     map[string]*core.Lead
	Proposals []StageProposal
	Overrides []StageProposal
	DNC       []string
	Updates   map[string][]core.LeadUpdate
	CallLogs  []*core.CallLog
	Deals     map[string]*core.Deal
	Buyers    []*core.Buyer
}

// NewFakeCRM returns an empty fake CRM store.
func NewFakeCRM() *FakeCRM {
	return &FakeCRM{
		Leads:   make(map[string]*core.Lead),
		Updates: make(map[string][]core.LeadUpdate),
		Deals:   make(map[string]*core.Deal),
	}
}

// Seed inserts a lead directly, bypassing error injection.
func (c *FakeCRM) Seed(lead *core.Lead) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Leads[lead.ID] = lead
}

func (c *FakeCRM) GetLead(_ context.Context, id string) (*core.Lead, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	lead, ok := c.Leads[id]
	if !ok {
		return nil, core.ErrLeadNotFound
	}
	cp := *lead
	return &cp, nil
}

func (c *FakeCRM) ListLeads(_ context.Context, filter core.LeadFilter) ([]*core.Lead, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	var out []*core.Lead
	for _, lead := range c.Leads {
		if filter.Stage != nil && lead.Stage != *filter.Stage {
			continue
		}
		if filter.County != "" && lead.County != filter.County {
			continue
		}
		cp := *lead
		out = append(out, &cp)
	}
	return out, nil
}

func (c *FakeCRM) CreateLead(_ context.Context, lead *core.Lead) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.Leads[lead.ID] = lead
	return nil
}

func (c *FakeCRM) UpdateLead(_ context.Context, id string, upd core.LeadUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.Updates[id] = append(c.Updates[id], upd)
	if lead, ok := c.Leads[id]; ok {
		upd.Apply(lead)
	}
	return nil
}

func (c *FakeCRM) ProposeStage(_ context.Context, leadID string, to core.PipelineStage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.Proposals = append(c.Proposals, StageProposal{LeadID: leadID, Stage: to})
	if lead, ok := c.Leads[leadID]; ok && lead.Stage.CanAdvance(to) {
		lead.Stage = to
	}
	return nil
}

func (c *FakeCRM) OverrideStage(_ context.Context, leadID string, to core.PipelineStage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.Overrides = append(c.Overrides, StageProposal{LeadID: leadID, Stage: to})
	if lead, ok := c.Leads[leadID]; ok {
		lead.Stage = to
	}
	return nil
}

func (c *FakeCRM) MarkDoNotContact(_ context.Context, leadID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.DNC = append(c.DNC, leadID)
	if lead, ok := c.Leads[leadID]; ok {
		lead.DoNotContact = true
		lead.Stage = core.StageExcluded
	}
	return nil
}

func (c *FakeCRM) SaveCallLog(_ context.Context, log *core.CallLog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.CallLogs = append(c.CallLogs, log)
	return nil
}

func (c *FakeCRM) CreateDeal(_ context.Context, deal *core.Deal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.Deals[deal.ID] = deal
	return nil
}

func (c *FakeCRM) UpdateDeal(_ context.Context, id string, upd core.DealUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	deal, ok := c.Deals[id]
	if !ok {
		return core.ErrDealNotFound
	}
	upd.Apply(deal)
	return nil
}

func (c *FakeCRM) CreateBuyer(_ context.Context, buyer *core.Buyer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.Buyers = append(c.Buyers, buyer)
	return nil
}

func (c *FakeCRM) ListBuyers(_ context.Context, activeOnly bool) ([]*core.Buyer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	var out []*core.Buyer
	for _, b := range c.Buyers {
		if activeOnly && !b.IsActive {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

// DNCContains reports whether the lead was marked do-not-contact.
func (c *FakeCRM) DNCContains(leadID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.DNC {
		if id == leadID {
			return true
		}
	}
	return false
}

// ProposalsFor returns the stages proposed for the lead, in order.
func (c *FakeCRM) ProposalsFor(leadID string) []core.PipelineStage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []core.PipelineStage
	for _, p := range c.Proposals {
		if p.LeadID == leadID {
			out = append(out, p.Stage)
		}
	}
	return out
}

// SavedCallLogs returns a snapshot of the recorded call logs.
func (c *FakeCRM) SavedCallLogs() []*core.CallLog {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*core.CallLog, len(c.CallLogs))
	copy(out, c.CallLogs)
	return out
}

// PublishedEvent is one relay publication observed by FakeRelay.
type PublishedEvent struct {
	Event   core.RelayEvent
	Payload any
}

// FakeRelay records published events instead of delivering them.
type FakeRelay struct {
	mu     sync.Mutex
	Err    error
	Events []PublishedEvent
}

// NewFakeRelay returns an empty recording relay.
func NewFakeRelay() *FakeRelay { return &FakeRelay{} }

func (r *FakeRelay) Publish(_ context.Context, event core.RelayEvent, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, PublishedEvent{Event: event, Payload: payload})
	return nil
}

// Published returns the payloads recorded for the given event kind.
func (r *FakeRelay) Published(event core.RelayEvent) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.Events {
		if e.Event == event {
			out = append(out, e.Payload)
		}
	}
	return out
}

// Count returns how many events of the given kind were published.
func (r *FakeRelay) Count(event core.RelayEvent) int {
	return len(r.Published(event))
}

// ScriptedProvider is a core.CallProvider whose status responses follow a
// fixed script. Each QueryStatus pops the next snapshot; once the script is
// exhausted the last snapshot repeats.
type ScriptedProvider struct {
	mu sync.Mutex

	PlaceErr      error
	StatusErr     error
	TranscriptErr error
	TerminateErr  error

	Script     []core.StatusSnapshot
	Transcript core.Transcript

	PlacedCalls []core.CallContext
	Terminated  []string

	nextProviderID int
	queries        int
}

// NewScriptedProvider returns a provider that reports ended immediately
// unless a script is supplied.
func NewScriptedProvider(script ...core.StatusSnapshot) *ScriptedProvider {
	return &ScriptedProvider{Script: script}
}

func (p *ScriptedProvider) PlaceCall(_ context.Context, _ core.AgentProfile, callCtx core.CallContext) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.PlaceErr != nil {
		return "", p.PlaceErr
	}
	p.nextProviderID++
	p.PlacedCalls = append(p.PlacedCalls, callCtx)
	return fmt.Sprintf("prov-%d", p.nextProviderID), nil
}

func (p *ScriptedProvider) QueryStatus(_ context.Context, _ string) (core.StatusSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.StatusErr != nil {
		return core.StatusSnapshot{}, p.StatusErr
	}
	if len(p.Script) == 0 {
		return core.StatusSnapshot{Status: core.ProviderEnded, Outcome: "connected"}, nil
	}
	idx := p.queries
	if idx >= len(p.Script) {
		idx = len(p.Script) - 1
	}
	p.queries++
	return p.Script[idx], nil
}

func (p *ScriptedProvider) FetchTranscript(_ context.Context, _ string) (core.Transcript, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.TranscriptErr != nil {
		return core.Transcript{}, p.TranscriptErr
	}
	return p.Transcript, nil
}

func (p *ScriptedProvider) Terminate(_ context.Context, providerSessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.TerminateErr != nil {
		return p.TerminateErr
	}
	p.Terminated = append(p.Terminated, providerSessionID)
	return nil
}

// Queries returns how many status polls the provider has served.
func (p *ScriptedProvider) Queries() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries
}
