package core

import (
	"errors"
	"fmt"
)

// Sentinel lookup errors shared across stores.
var (
	// ErrAgentNotFound is returned when an agent id is not registered.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned when creating a session that would clash
	// with an existing one (same id, or same agent still on a live call).
	ErrSessionExists = errors.New("session already exists")
	// ErrSessionNotTerminal is returned when archiving a live session.
	ErrSessionNotTerminal = errors.New("session not terminal")
	// ErrLeadNotFound is returned by CRM implementations for unknown leads.
	ErrLeadNotFound = errors.New("lead not found")
	// ErrDealNotFound is returned by CRM implementations for unknown deals.
	ErrDealNotFound = errors.New("deal not found")
	// ErrBuyerNotFound is returned by CRM implementations for unknown buyers.
	ErrBuyerNotFound = errors.New("buyer not found")
	// ErrDoNotContact is returned when an operation would contact a lead
	// flagged do-not-contact.
	ErrDoNotContact = errors.New("lead is flagged do not contact")
)

// AdmissionReason classifies why an admission request was rejected. All
// admission rejections are recoverable: the dispatcher may retry later.
type AdmissionReason string

const (
	// ReasonNotIdle means the agent already has a live session or is
	// disabled/errored/cooling down.
	ReasonNotIdle AdmissionReason = "not_idle"
	// ReasonQuotaExceeded means the daily admission budget is spent.
	ReasonQuotaExceeded AdmissionReason = "quota_exceeded"
	// ReasonOutsideSchedule means the current time-of-day falls outside the
	// agent's calling window.
	ReasonOutsideSchedule AdmissionReason = "outside_schedule"
)

// AdmissionError reports a rejected call admission. It is a typed result, not
// a failure: callers branch on Reason rather than logging it as an error.
type AdmissionError struct {
	AgentID string
	Reason  AdmissionReason
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("admission rejected for agent %s: %s", e.AgentID, e.Reason)
}

// AsAdmission unwraps err into an *AdmissionError if possible.
func AsAdmission(err error) (*AdmissionError, bool) {
	var ae *AdmissionError
	ok := errors.As(err, &ae)
	return ae, ok
}

// ProviderError wraps a voice-provider failure. Transient errors (network,
// rate limit) are retried with backoff at the polling layer; persistent
// errors (auth, configuration) are fatal and move the agent to the error
// state.
type ProviderError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err as a provider failure for the given operation.
func NewProviderError(op string, transient bool, err error) *ProviderError {
	return &ProviderError{Op: op, Transient: transient, Err: err}
}

// IsTransientProvider reports whether err is a retryable provider failure.
func IsTransientProvider(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}

// IllegalTransitionError reports a violated agent state-machine invariant.
// This class of failure is a programming error: it is fatal, never retried
// and never silently ignored.
type IllegalTransitionError struct {
	AgentID string
	From    AgentStatus
	To      AgentStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal agent transition %s -> %s for agent %s", e.From, e.To, e.AgentID)
}

// IsIllegalTransition reports whether err is a state-machine invariant
// violation.
func IsIllegalTransition(err error) bool {
	var ite *IllegalTransitionError
	return errors.As(err, &ite)
}
