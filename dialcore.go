// Package dialcore orchestrates an AI-agent call center for real estate lead
// generation: a roster of calling agents with schedules and daily quotas, a
// call-session lifecycle driven by provider polling and webhooks, motivation
// scoring over extracted call data, and escalation routing into a CRM
// pipeline with workflow-relay notifications.
//
// Most applications interact with this package by:
//  1. Creating a Dialcore via New() with a call provider and config
//     (optionally overriding the default in-memory stores)
//  2. Starting it, then placing calls (StartCall) or feeding provider
//     webhooks (IngestProviderEvent)
//  3. Reading outcomes back through the CRM store and relay events
//
// The façade delegates to engine.Engine while keeping setup concise. All
// defaults are safe for local development and testing; production
// deployments supply a DSN for the PostgreSQL CRM store, a relay URL and a
// structured logger via config.
package dialcore

import (
	"context"

	"github.com/lonestardev/dialcore/analysis"
	"github.com/lonestardev/dialcore/config"
	"github.com/lonestardev/dialcore/core"
	"github.com/lonestardev/dialcore/engine"
	"github.com/lonestardev/dialcore/logging"
	"github.com/lonestardev/dialcore/registry"
	"github.com/lonestardev/dialcore/scoring"
)

// Options configures the Dialcore instance.
type Options struct {
	// Sessions, CRM and Relay default per the engine: in-memory stores, or
	// the PostgreSQL and HTTP backends when the config selects them.
	Sessions core.SessionStore
	CRM      core.CRMStore
	Relay    core.Relay

	// Analyzer extracts structured data from raw transcripts. Optional;
	// see the analysis/openai and analysis/anthropic subpackages.
	Analyzer analysis.Analyzer

	// Roster seeds the agent registry. Defaults to registry.DefaultRoster.
	Roster []*core.Agent

	// Logger defaults to a structured logger derived from the config.
	Logger logging.Logger
}

// Dialcore is the high-level façade aggregating the underlying engine.
type Dialcore struct {
	engine *engine.Engine
}

// New creates a Dialcore around the given call provider. Any unset
// collaborator is initialized per the config or with an in-memory
// implementation.
func New(provider core.CallProvider, cfg config.Engine, optFns ...func(o *Options)) (*Dialcore, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	eng, err := engine.New(provider, cfg, func(o *engine.Options) {
		o.Sessions = opts.Sessions
		o.CRM = opts.CRM
		o.Relay = opts.Relay
		o.Analyzer = opts.Analyzer
		o.Roster = opts.Roster
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}
	return &Dialcore{engine: eng}, nil
}

// Engine exposes the underlying engine for operations not mirrored here
// (deal desk, buyers, agent administration, callbacks).
func (d *Dialcore) Engine() *engine.Engine { return d.engine }

// Start launches background work (the daily counter reset loop).
func (d *Dialcore) Start(ctx context.Context) { d.engine.Start(ctx) }

// Shutdown drains in-flight polling and closes owned stores.
func (d *Dialcore) Shutdown(ctx context.Context) error { return d.engine.Shutdown(ctx) }

// StartCall places an outbound call from the agent to the lead and returns
// the new session id.
func (d *Dialcore) StartCall(ctx context.Context, agentID, leadID string) (string, error) {
	return d.engine.StartCall(ctx, agentID, leadID)
}

// StopCall terminates a live call. Safe to repeat.
func (d *Dialcore) StopCall(ctx context.Context, sessionID string) error {
	return d.engine.StopCall(ctx, sessionID)
}

// AcceptInbound registers a provider-originated call against an agent.
func (d *Dialcore) AcceptInbound(ctx context.Context, agentID, providerSessionID, contactPhone, contactName string) (string, error) {
	return d.engine.AcceptInbound(ctx, agentID, providerSessionID, contactPhone, contactName)
}

// IngestProviderEvent applies one provider webhook event.
func (d *Dialcore) IngestProviderEvent(ctx context.Context, ev core.CallEvent) error {
	return d.engine.IngestProviderEvent(ctx, ev)
}

// CreateLead stores a new lead and announces it on the relay.
func (d *Dialcore) CreateLead(ctx context.Context, lead *core.Lead) error {
	return d.engine.CreateLead(ctx, lead)
}

// Agents returns detached copies of the registered roster.
func (d *Dialcore) Agents() []*core.Agent { return d.engine.Agents() }

// Counters returns the current per-agent daily counters.
func (d *Dialcore) Counters() []registry.CounterSnapshot { return d.engine.Counters() }

// Re-exported domain helpers for callers that only import the root package.

// Score computes the 0-10 motivation score for a factor set.
func Score(factors scoring.WeightedFactorSet) float64 { return scoring.Score(factors) }

// Classify maps a motivation score to its lead temperature.
func Classify(score float64) scoring.Temperature { return scoring.Classify(score) }

// ComputeMAO returns the maximum allowable offer for the given figures.
func ComputeMAO(arv, rehabEstimate, assignmentFee float64) float64 {
	return scoring.ComputeMAO(arv, rehabEstimate, assignmentFee)
}

// DefaultRoster returns the stock agent team used by examples and seeds.
func DefaultRoster() []*core.Agent { return registry.DefaultRoster() }

// NewID generates an identifier suitable for sessions, leads and deals.
func NewID() string { return core.NewID() }
