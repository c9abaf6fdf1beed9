// Package engine assembles the full call-center stack behind one façade.
//
// The Engine wires the agent registry, session store, dial manager, event
// router, escalation router, CRM store and relay into a single object and
// exposes the operator surface on top of them:
//
//   - call control: StartCall, StopCall, AcceptInbound, PollSession
//   - provider webhooks: IngestProviderEvent
//   - roster management: Agents, DisableAgent, ResetAgent, UpdateAgent
//   - lead intake and the deal desk: CreateLead, EvaluateDeal,
//     CreateDealFromLead, RecordContractSigned
//   - reporting: Counters, DailyReport plus the midnight reset loop
//
// Construction follows the functional options pattern. Every collaborator
// has an in-memory default so an Engine is usable out of the box; the
// config selects the PostgreSQL CRM store and the HTTP relay when their
// settings are present.
//
// Cross-cutting hooks use the callback registry in callbacks.go: callbacks
// fire before a call is placed, after a call is finalized, and at each
// daily counter reset.
package engine
