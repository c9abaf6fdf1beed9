package testutil

import (
	"time"

	"github.com/lonestardev/dialcore/core"
)

// AgentBuilder provides a fluent helper for constructing agents in tests.
// Example:
//
//	agent := NewAgentBuilder("ace").Role(core.RoleOutboundCaller).Quota(5).Build()
//
// Chain only the parts you need; sensible defaults are applied.
type AgentBuilder struct {
	agent core.Agent
}

// NewAgentBuilder creates a builder for an idle outbound caller with an
// always-open schedule and no quota limit.
func NewAgentBuilder(id string) *AgentBuilder {
	return &AgentBuilder{agent: core.Agent{
		ID:     id,
		Name:   id,
		Role:   core.RoleOutboundCaller,
		Status: core.StatusIdle,
	}}
}

// Name sets the display name (chainable).
func (b *AgentBuilder) Name(n string) *AgentBuilder { b.agent.Name = n; return b }

// Role sets the agent role (chainable).
func (b *AgentBuilder) Role(r core.AgentRole) *AgentBuilder { b.agent.Role = r; return b }

// Status overrides the initial status (chainable).
func (b *AgentBuilder) Status(s core.AgentStatus) *AgentBuilder { b.agent.Status = s; return b }

// Quota sets the daily call quota; zero means unlimited (chainable).
func (b *AgentBuilder) Quota(q int) *AgentBuilder { b.agent.DailyQuota = q; return b }

// CallsToday seeds the daily counter (chainable).
func (b *AgentBuilder) CallsToday(n int) *AgentBuilder { b.agent.CallsToday = n; return b }

// Schedule sets the calling-window expression (chainable).
func (b *AgentBuilder) Schedule(expr string) *AgentBuilder { b.agent.Schedule = expr; return b }

// Territories sets the territory tags (chainable).
func (b *AgentBuilder) Territories(t ...string) *AgentBuilder { b.agent.Territories = t; return b }

// Build returns a fresh copy of the configured agent.
func (b *AgentBuilder) Build() *core.Agent { return b.agent.Clone() }

// NewRingingSession creates a session as the dialer would after admission,
// bound to the given provider session id.
func NewRingingSession(agentID, leadID, providerID string) *core.CallSession {
	sess := core.NewCallSession(agentID, core.DirectionOutbound, leadID, "+15125550100", "Test Owner", "travis")
	sess.BindProvider(providerID)
	return sess
}

// NewLead creates a minimal stage-new lead.
func NewLead(id, county string) *core.Lead {
	return &core.Lead{
		ID:              id,
		PropertyAddress: "701 Brazos St",
		City:            "Austin",
		County:          county,
		OwnerName:       "Test Owner",
		Phone:           "+15125550100",
		Stage:           core.StageNew,
		CreatedAt:       time.Now().UTC(),
	}
}
