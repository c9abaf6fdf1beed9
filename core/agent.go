package core

// AgentRole categorizes an agent's place in the calling operation. The set is
// closed: admission defaults (quota, direction) key off the role.
type AgentRole string

const (
	// RoleReceptionist handles inbound calls; no daily quota applies.
	RoleReceptionist AgentRole = "receptionist"
	// RoleOutboundCaller works raw lead lists inside a calling window.
	RoleOutboundCaller AgentRole = "outbound_caller"
	// RoleFollowUp re-touches warm leads on a cadence.
	RoleFollowUp AgentRole = "follow_up"
	// RoleDisposition calls buyers to move contracted deals.
	RoleDisposition AgentRole = "disposition"
)

// AgentStatus is the agent state machine's node set.
//
// Legal transitions form the cycle idle → ringing → active → cooldown → idle,
// with ringing → cooldown permitted for calls that terminate before connecting.
// StatusDisabled and StatusError are reachable from any state (operator action
// or fatal provider failure) and return only to idle via an explicit reset.
type AgentStatus string

const (
	// StatusIdle means the agent is eligible for admission.
	StatusIdle AgentStatus = "idle"
	// StatusRinging means a call has been placed but not yet connected.
	StatusRinging AgentStatus = "ringing"
	// StatusActive means the agent is on a connected call.
	StatusActive AgentStatus = "active"
	// StatusCooldown is the mandatory post-call settle interval.
	StatusCooldown AgentStatus = "cooldown"
	// StatusDisabled is set by operator action; the agent takes no calls.
	StatusDisabled AgentStatus = "disabled"
	// StatusError marks a fatal provider or invariant failure requiring
	// operator attention.
	StatusError AgentStatus = "error"
)

// legalTransitions encodes the agent state graph. Disabled/error are handled
// separately in CanTransition since they are reachable from everywhere.
var legalTransitions = map[AgentStatus][]AgentStatus{
	StatusIdle:     {StatusRinging},
	StatusRinging:  {StatusActive, StatusCooldown},
	StatusActive:   {StatusCooldown},
	StatusCooldown: {StatusIdle},
	StatusDisabled: {StatusIdle},
	StatusError:    {StatusIdle},
}

// CanTransition reports whether moving from s to next is legal per the agent
// state graph. Transitions into disabled or error are always permitted;
// everything else follows the cycle.
func (s AgentStatus) CanTransition(next AgentStatus) bool {
	if next == StatusDisabled || next == StatusError {
		return true
	}
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Values returning true indicate the agent is attached to a live session.
func (s AgentStatus) OnCall() bool { return s == StatusRinging || s == StatusActive }

// Agent is the canonical record for one calling identity. The registry owns
// the authoritative copy; everything handed across component boundaries is a
// clone so that mutation stays serialized behind the registry's lock.
type Agent struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Role        AgentRole   `json:"role"`
	Status      AgentStatus `json:"status"`
	Territories []string    `json:"territories"`
	// Schedule is the raw calling-window expression ("9:00 AM - 11:30 AM" or
	// "09:00-11:30"); empty means always eligible. Parsed by the schedule gate.
	Schedule   string `json:"schedule,omitempty"`
	DailyQuota int    `json:"daily_quota"`
	CallsToday int    `json:"calls_today"`
	TotalCalls int    `json:"total_calls"`
	VoiceID    string `json:"voice_id,omitempty"`
	// ActiveSessionID references the agent's single non-terminal session, or
	// empty when the agent is not on a call.
	ActiveSessionID string `json:"active_session_id,omitempty"`
}

// Clone returns a deep copy safe for independent mutation.
func (a *Agent) Clone() *Agent {
	clone := *a
	clone.Territories = make([]string, len(a.Territories))
	copy(clone.Territories, a.Territories)
	return &clone
}

// QuotaExhausted reports whether the agent has consumed its daily admission
// budget. A zero quota means unlimited (the receptionist roster default).
func (a *Agent) QuotaExhausted() bool {
	return a.DailyQuota > 0 && a.CallsToday >= a.DailyQuota
}

// AgentUpdate is an explicit field-level update for an Agent. Nil fields are
// left untouched; this replaces merge-by-presence patterns with a testable
// contract.
type AgentUpdate struct {
	Status      *AgentStatus `json:"status,omitempty"`
	Schedule    *string      `json:"schedule,omitempty"`
	DailyQuota  *int         `json:"daily_quota,omitempty"`
	Territories []string     `json:"territories,omitempty"`
	VoiceID     *string      `json:"voice_id,omitempty"`
}

// Apply copies the non-nil fields onto the agent.
func (u AgentUpdate) Apply(a *Agent) {
	if u.Status != nil {
		a.Status = *u.Status
	}
	if u.Schedule != nil {
		a.Schedule = *u.Schedule
	}
	if u.DailyQuota != nil {
		a.DailyQuota = *u.DailyQuota
	}
	if u.Territories != nil {
		a.Territories = append([]string(nil), u.Territories...)
	}
	if u.VoiceID != nil {
		a.VoiceID = *u.VoiceID
	}
}
