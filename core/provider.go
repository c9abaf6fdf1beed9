package core

import (
	"context"
	"time"
)

// AgentProfile is the provider-facing identity of a calling agent: everything
// the voice provider needs to speak as this agent, nothing it does not.
type AgentProfile struct {
	AgentID string    `json:"agent_id"`
	Name    string    `json:"name"`
	Role    AgentRole `json:"role"`
	VoiceID string    `json:"voice_id,omitempty"`
}

// CallContext is the templated context payload handed to the provider when a
// call is placed: counterpart identity, territory and the prior-call summary
// the calling script interpolates.
type CallContext struct {
	LeadID           string            `json:"lead_id,omitempty"`
	ContactName      string            `json:"contact_name,omitempty"`
	ContactPhone     string            `json:"contact_phone"`
	Territory        string            `json:"territory,omitempty"`
	PriorCallSummary string            `json:"prior_call_summary,omitempty"`
	Variables        map[string]string `json:"variables,omitempty"`
}

// ProviderCallStatus is the provider's view of a call as seen by polling.
type ProviderCallStatus string

const (
	ProviderQueued     ProviderCallStatus = "queued"
	ProviderRinging    ProviderCallStatus = "ringing"
	ProviderInProgress ProviderCallStatus = "in_progress"
	ProviderEnded      ProviderCallStatus = "ended"
	ProviderFailed     ProviderCallStatus = "failed"
)

// Terminal reports whether the provider considers the call finished.
func (s ProviderCallStatus) Terminal() bool { return s == ProviderEnded || s == ProviderFailed }

// StatusSnapshot is the result of one provider status query.
type StatusSnapshot struct {
	Status    ProviderCallStatus `json:"status"`
	StartedAt *time.Time         `json:"started_at,omitempty"`
	EndedAt   *time.Time         `json:"ended_at,omitempty"`
	// Outcome is the provider's disposition string for terminal calls,
	// mapped onto CallOutcome by the event router.
	Outcome string `json:"outcome,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// StructuredCallData is the machine-readable extraction from a finished call:
// the motivation signals the scoring engine consumes plus routing flags.
type StructuredCallData struct {
	// DistressSignals are source-of-distress tags observed during the call
	// (tax_delinquent, pre_foreclosure, probate, vacant, ...).
	DistressSignals []string `json:"distress_signals,omitempty"`
	PropertyType    string   `json:"property_type,omitempty"`
	PropertyAge     int      `json:"property_age,omitempty"`
	Sqft            int      `json:"sqft,omitempty"`
	// MarketSignals are market-context tags (appreciating, rental_demand,
	// low_dom, ...).
	MarketSignals     []string `json:"market_signals,omitempty"`
	SellingTimeline   string   `json:"selling_timeline,omitempty"`
	MentionedPrice    *float64 `json:"mentioned_price,omitempty"`
	DoNotContact      bool     `json:"do_not_contact"`
	CallbackRequested bool     `json:"callback_requested"`
}

// Transcript is the post-call retrieval result.
type Transcript struct {
	Summary         string              `json:"summary"`
	Text            string              `json:"text,omitempty"`
	Structured      *StructuredCallData `json:"structured,omitempty"`
	RecordingRef    string              `json:"recording_ref,omitempty"`
	DurationSeconds int                 `json:"duration_seconds"`
}

// CallProvider is the external voice-call dependency. The core treats it as
// at-least-once, possibly slow and possibly failing: every method takes a
// context and may return a *ProviderError.
type CallProvider interface {
	// PlaceCall asks the provider to originate a call and returns the
	// provider-assigned session id on acceptance.
	PlaceCall(ctx context.Context, profile AgentProfile, callCtx CallContext) (string, error)

	// QueryStatus returns the provider's current view of the call.
	QueryStatus(ctx context.Context, providerSessionID string) (StatusSnapshot, error)

	// FetchTranscript retrieves the summary, structured data and recording
	// reference for a finished call.
	FetchTranscript(ctx context.Context, providerSessionID string) (Transcript, error)

	// Terminate force-stops a live call. Terminating an already-finished
	// call must be a no-op on the provider side.
	Terminate(ctx context.Context, providerSessionID string) error
}
