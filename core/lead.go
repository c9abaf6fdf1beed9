package core

import "time"

// PipelineStage is the lead pipeline position. Movement is strictly forward
// (by Rank) except for the excluded stage, which may be entered from anywhere
// at any time and is never left by automated logic, and explicit operator
// overrides.
type PipelineStage string

const (
	StageNew       PipelineStage = "new"
	StageNurtured  PipelineStage = "nurtured"
	StageQualified PipelineStage = "qualified"
	StageConverted PipelineStage = "converted"
	StageExcluded  PipelineStage = "excluded"
)

// stageRank orders the forward-moving stages. Excluded sits outside the
// ordering; transitions into it are always allowed, out of it never.
var stageRank = map[PipelineStage]int{
	StageNew:       0,
	StageNurtured:  1,
	StageQualified: 2,
	StageConverted: 3,
}

// Valid reports whether the stage belongs to the closed set.
func (s PipelineStage) Valid() bool {
	_, ok := stageRank[s]
	return ok || s == StageExcluded
}

// CanAdvance reports whether an automated transition from s to next is
// permitted: forward moves only, excluded always enterable, never leavable.
func (s PipelineStage) CanAdvance(next PipelineStage) bool {
	if s == StageExcluded {
		return false
	}
	if next == StageExcluded {
		return true
	}
	from, okFrom := stageRank[s]
	to, okTo := stageRank[next]
	return okFrom && okTo && to > from
}

// Lead holds the contact/property fields the core needs to drive
// orchestration. The CRM owns the full record; this is the orchestration
// projection, never the whole thing.
type Lead struct {
	ID              string        `json:"id"`
	PropertyAddress string        `json:"property_address"`
	City            string        `json:"city"`
	County          string        `json:"county"`
	ZipCode         string        `json:"zip_code"`
	OwnerName       string        `json:"owner_name"`
	Phone           string        `json:"phone"`
	DataSource      string        `json:"data_source"`
	Stage           PipelineStage `json:"stage"`
	MotivationScore float64       `json:"motivation_score"`
	DoNotContact    bool          `json:"do_not_contact"`
	AskingPrice     *float64      `json:"asking_price,omitempty"`
	PropertyType    string        `json:"property_type,omitempty"`
	Sqft            *int          `json:"sqft,omitempty"`
	Condition       string        `json:"condition,omitempty"`
	IsVacant        bool          `json:"is_vacant"`
	TotalAttempts   int           `json:"total_attempts"`
	LastCalledAt    *time.Time    `json:"last_called_at,omitempty"`
	RecontactAt     *time.Time    `json:"recontact_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// LeadUpdate is an explicit field-level update for a Lead. Nil fields are
// left untouched.
type LeadUpdate struct {
	Stage           *PipelineStage `json:"stage,omitempty"`
	MotivationScore *float64       `json:"motivation_score,omitempty"`
	AskingPrice     *float64       `json:"asking_price,omitempty"`
	DoNotContact    *bool          `json:"do_not_contact,omitempty"`
	TotalAttempts   *int           `json:"total_attempts,omitempty"`
	LastCalledAt    *time.Time     `json:"last_called_at,omitempty"`
	RecontactAt     *time.Time     `json:"recontact_at,omitempty"`
}

// Apply copies the non-nil fields onto the lead.
func (u LeadUpdate) Apply(l *Lead) {
	if u.Stage != nil {
		l.Stage = *u.Stage
	}
	if u.MotivationScore != nil {
		l.MotivationScore = *u.MotivationScore
	}
	if u.AskingPrice != nil {
		l.AskingPrice = u.AskingPrice
	}
	if u.DoNotContact != nil {
		l.DoNotContact = *u.DoNotContact
	}
	if u.TotalAttempts != nil {
		l.TotalAttempts = *u.TotalAttempts
	}
	if u.LastCalledAt != nil {
		l.LastCalledAt = u.LastCalledAt
	}
	if u.RecontactAt != nil {
		l.RecontactAt = u.RecontactAt
	}
}

// CallLog is the flushed record of a finalized session, written to the CRM
// once ownership passes out of the core.
type CallLog struct {
	ID                string        `json:"id"`
	AgentID           string        `json:"agent_id"`
	AgentName         string        `json:"agent_name"`
	Direction         CallDirection `json:"direction"`
	ContactPhone      string        `json:"contact_phone"`
	ContactName       string        `json:"contact_name,omitempty"`
	LeadID            string        `json:"lead_id,omitempty"`
	PropertyAddress   string        `json:"property_address,omitempty"`
	County            string        `json:"county,omitempty"`
	DurationSeconds   int           `json:"duration_seconds"`
	Outcome           CallOutcome   `json:"outcome"`
	MotivationScore   *float64      `json:"motivation_score,omitempty"`
	TranscriptSummary string        `json:"transcript_summary,omitempty"`
	RecordingRef      string        `json:"recording_ref,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}
