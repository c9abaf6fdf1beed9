// Package escalate turns finalized call outcomes into actions: urgent
// operator notifications for hot leads, scheduled follow-up touches for warm
// ones, far-future recontact dates for cold ones, and immediate permanent
// exclusion whenever a do-not-contact request surfaces. The router holds no
// persistent state of its own; every decision is expressed as a request to
// the CRM store or the relay.
package escalate

import (
	"context"
	"time"

	"github.com/lonestardev/dialcore/core"
	"github.com/lonestardev/dialcore/logging"
	"github.com/lonestardev/dialcore/scoring"
)

// FollowUpDelay is how far out a warm lead's next touch is scheduled.
const FollowUpDelay = 72 * time.Hour

// Outcome is the finalized call record handed to the router.
type Outcome struct {
	SessionID    string
	AgentID      string
	LeadID       string
	Score        float64
	Scored       bool
	Outcome      core.CallOutcome
	DoNotContact bool
	Summary      string
	County       string
	ContactName  string
	ContactPhone string
}

// Decision reports what the router did for one outcome.
type Decision struct {
	Temperature   scoring.Temperature
	ProposedStage core.PipelineStage
	Urgent        bool
	Excluded      bool
	FollowUpAt    *time.Time
	RecontactAt   *time.Time
}

// Options configures a Router.
type Options struct {
	Logger logging.Logger
	Clock  func() time.Time
}

// Router routes finalized outcomes to the CRM and the relay.
type Router struct {
	crm    core.CRMStore
	relay  core.Relay
	logger logging.Logger
	now    func() time.Time
}

// NewRouter wires a Router against its collaborators.
func NewRouter(crm core.CRMStore, relay core.Relay, optFns ...func(o *Options)) *Router {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Clock:  time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{
		crm:    crm,
		relay:  relay,
		logger: opts.Logger,
		now:    opts.Clock,
	}
}

// Route applies the temperature policy to a finalized call outcome.
//
// Contract:
//   - do-not-contact wins over any score: the lead is excluded permanently
//     and no follow-up is scheduled, regardless of temperature.
//   - hot (score >= 7) emits an urgent operator notification and proposes
//     stage qualified.
//   - warm (4 <= score < 7) proposes stage nurtured and schedules a
//     follow-up touch.
//   - cold, or unscored, proposes stage new with a far-future recontact
//     date.
//   - collaborator failures are logged and absorbed; routing is best effort
//     and never blocks call finalization.
func (r *Router) Route(ctx context.Context, o Outcome) Decision {
	if o.DoNotContact {
		return r.exclude(ctx, o)
	}

	temp := scoring.Cold
	if o.Scored {
		temp = scoring.Classify(o.Score)
	}

	switch temp {
	case scoring.Hot:
		return r.routeHot(ctx, o)
	case scoring.Warm:
		return r.routeWarm(ctx, o)
	default:
		return r.routeCold(ctx, o)
	}
}

// MarkDoNotContact applies the permanent exclusion immediately, outside any
// finalize pipeline. Used mid-call when the counterpart asks to never be
// contacted again.
func (r *Router) MarkDoNotContact(ctx context.Context, leadID, reason string) error {
	if err := r.crm.MarkDoNotContact(ctx, leadID); err != nil {
		r.logger.Error("do-not-contact CRM write failed", "lead_id", leadID, "error", err)
		return err
	}
	r.publish(ctx, core.RelayDoNotContact, map[string]any{
		"lead_id": leadID,
		"reason":  reason,
	})
	r.logger.Info("lead excluded", "lead_id", leadID, "reason", reason)
	return nil
}

// NotifyLiveHotLead fires the urgent operator notification while the call is
// still in progress, typically from a transfer-to-operator function
// invocation.
func (r *Router) NotifyLiveHotLead(ctx context.Context, o Outcome) {
	r.publish(ctx, core.RelayHotLeadAlert, map[string]any{
		"lead_id":       o.LeadID,
		"session_id":    o.SessionID,
		"agent_id":      o.AgentID,
		"contact_name":  o.ContactName,
		"contact_phone": o.ContactPhone,
		"live":          true,
	})
	r.logger.Info("live hot-lead transfer requested",
		"lead_id", o.LeadID, "session_id", o.SessionID, "agent_id", o.AgentID)
}

func (r *Router) exclude(ctx context.Context, o Outcome) Decision {
	if err := r.crm.MarkDoNotContact(ctx, o.LeadID); err != nil {
		r.logger.Error("do-not-contact CRM write failed", "lead_id", o.LeadID, "error", err)
	}
	r.publish(ctx, core.RelayDoNotContact, map[string]any{
		"lead_id":    o.LeadID,
		"session_id": o.SessionID,
	})
	r.logger.Info("lead excluded", "lead_id", o.LeadID, "session_id", o.SessionID)
	return Decision{
		Temperature:   scoring.Cold,
		ProposedStage: core.StageExcluded,
		Excluded:      true,
	}
}

func (r *Router) routeHot(ctx context.Context, o Outcome) Decision {
	r.publish(ctx, core.RelayHotLeadAlert, map[string]any{
		"lead_id":       o.LeadID,
		"session_id":    o.SessionID,
		"agent_id":      o.AgentID,
		"score":         o.Score,
		"county":        o.County,
		"contact_name":  o.ContactName,
		"contact_phone": o.ContactPhone,
		"summary":       o.Summary,
	})
	r.proposeStage(ctx, o.LeadID, core.StageQualified)
	r.logger.Info("hot lead escalated", "lead_id", o.LeadID, "score", o.Score)
	return Decision{
		Temperature:   scoring.Hot,
		ProposedStage: core.StageQualified,
		Urgent:        true,
	}
}

func (r *Router) routeWarm(ctx context.Context, o Outcome) Decision {
	followUp := r.now().Add(FollowUpDelay)
	r.proposeStage(ctx, o.LeadID, core.StageNurtured)
	if err := r.crm.UpdateLead(ctx, o.LeadID, core.LeadUpdate{RecontactAt: &followUp}); err != nil {
		r.logger.Error("follow-up schedule write failed", "lead_id", o.LeadID, "error", err)
	}
	r.logger.Info("warm lead queued for follow-up", "lead_id", o.LeadID, "score", o.Score, "follow_up_at", followUp)
	return Decision{
		Temperature:   scoring.Warm,
		ProposedStage: core.StageNurtured,
		FollowUpAt:    &followUp,
	}
}

func (r *Router) routeCold(ctx context.Context, o Outcome) Decision {
	recontact := r.now().Add(scoring.RecontactDelay)
	r.proposeStage(ctx, o.LeadID, core.StageNew)
	if err := r.crm.UpdateLead(ctx, o.LeadID, core.LeadUpdate{RecontactAt: &recontact}); err != nil {
		r.logger.Error("recontact schedule write failed", "lead_id", o.LeadID, "error", err)
	}
	return Decision{
		Temperature:   scoring.Cold,
		ProposedStage: core.StageNew,
		RecontactAt:   &recontact,
	}
}

func (r *Router) proposeStage(ctx context.Context, leadID string, stage core.PipelineStage) {
	if err := r.crm.ProposeStage(ctx, leadID, stage); err != nil {
		r.logger.Error("stage proposal failed", "lead_id", leadID, "stage", string(stage), "error", err)
	}
}

func (r *Router) publish(ctx context.Context, event core.RelayEvent, payload map[string]any) {
	if r.relay == nil {
		return
	}
	if err := r.relay.Publish(ctx, event, payload); err != nil {
		r.logger.Error("relay publish failed", "event", string(event), "error", err)
	}
}
