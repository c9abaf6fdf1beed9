// Package core provides the foundational domain types, interfaces and error
// taxonomy used by dialcore. It defines the core abstractions for:
//
//   - Agents (autonomous calling identities with roles, quotas and schedules)
//   - CallSessions (one call attempt's lifecycle from admission to terminal outcome)
//   - CallEvents (immutable, sequence-numbered lifecycle records)
//   - Leads, Deals and the pipeline-stage machine shared with the CRM
//   - Pluggable collaborator contracts (voice provider, CRM store, workflow relay)
//
// The package intentionally keeps implementation concerns (persistence,
// orchestration, concrete provider clients) out of scope, exposing small
// interfaces to enable custom backends and extensions. All exported
// identifiers include concise documentation to aid discoverability and
// external consumption.
package core
