package core

import "context"

// LeadFilter narrows CRM lead queries. Zero values mean "no constraint".
type LeadFilter struct {
	Stage    *PipelineStage
	County   string
	MinScore *float64
	Limit    int
}

// CRMStore is the persistence collaborator for leads, deals, buyers and call
// logs. The core never assumes strong consistency: a write may be eventually
// visible. Implementations must make ProposeStage enforce the forward-only
// pipeline contract; OverrideStage is the privileged operator escape hatch.
type CRMStore interface {
	GetLead(ctx context.Context, id string) (*Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]*Lead, error)
	CreateLead(ctx context.Context, lead *Lead) error
	UpdateLead(ctx context.Context, id string, upd LeadUpdate) error

	// ProposeStage advances a lead's pipeline stage. Non-forward proposals
	// are ignored (not errors): the CRM owns the stage and the core only
	// proposes.
	ProposeStage(ctx context.Context, leadID string, to PipelineStage) error

	// OverrideStage sets the stage unconditionally. Operator surface only;
	// the excluded stage still cannot be left this way by automated logic.
	OverrideStage(ctx context.Context, leadID string, to PipelineStage) error

	// MarkDoNotContact permanently excludes the lead. Irreversible by
	// automated logic.
	MarkDoNotContact(ctx context.Context, leadID string) error

	SaveCallLog(ctx context.Context, log *CallLog) error

	CreateDeal(ctx context.Context, deal *Deal) error
	UpdateDeal(ctx context.Context, id string, upd DealUpdate) error

	CreateBuyer(ctx context.Context, buyer *Buyer) error
	ListBuyers(ctx context.Context, activeOnly bool) ([]*Buyer, error)
}
