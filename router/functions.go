package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lonestardev/dialcore/core"
	"github.com/lonestardev/dialcore/escalate"
)

// FunctionContext is handed to a Function when a mid-call invocation is
// dispatched. Session is a detached snapshot; mutations go through the
// collaborators, never through the snapshot.
type FunctionContext struct {
	Session *core.CallSession
	EventID string
}

// Function is a named mid-call request the calling script can raise.
//
// Responsibilities:
//   - Validates its own arguments (the dispatch layer does not)
//   - Applies side effects through external collaborators only
//   - Returns a JSON-serializable result recorded for diagnostics
//
// A Function has no internal mutable state after construction and is safe
// for concurrent use across sessions.
type Function interface {
	Name() string
	Call(ctx context.Context, fc *FunctionContext, args map[string]any) (any, error)
}

// FunctionRegistry resolves invocation names to Function implementations.
// Registration normally happens at wiring time; the registry is nonetheless
// safe for concurrent use.
type FunctionRegistry struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{funcs: make(map[string]Function)}
}

// Register adds or replaces a function by name.
func (r *FunctionRegistry) Register(fn Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[fn.Name()] = fn
}

// Resolve returns the function registered under name.
func (r *FunctionRegistry) Resolve(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered function names.
func (r *FunctionRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		names = append(names, n)
	}
	return names
}

func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required field '%s'", key)
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("field '%s' must be non-empty string", key)
	}
	return s, nil
}

func optionalString(args map[string]any, key string) string {
	if raw, ok := args[key]; ok {
		if s, ok := raw.(string); ok {
			return s
		}
	}
	return ""
}

// createLeadFunction registers a new lead discovered during an inbound call
// and announces it on the relay.
type createLeadFunction struct {
	crm   core.CRMStore
	relay core.Relay
}

// NewCreateLeadFunction constructs the create_lead function.
func NewCreateLeadFunction(crm core.CRMStore, relay core.Relay) Function {
	return &createLeadFunction{crm: crm, relay: relay}
}

func (f *createLeadFunction) Name() string { return "create_lead" }

func (f *createLeadFunction) Call(ctx context.Context, fc *FunctionContext, args map[string]any) (any, error) {
	address, err := stringArg(args, "property_address")
	if err != nil {
		return nil, err
	}
	phone := optionalString(args, "phone")
	if phone == "" {
		phone = fc.Session.ContactPhone
	}

	lead := &core.Lead{
		ID:              core.NewID(),
		PropertyAddress: address,
		City:            optionalString(args, "city"),
		County:          optionalString(args, "county"),
		OwnerName:       optionalString(args, "owner_name"),
		Phone:           phone,
		DataSource:      "inbound_call",
		Stage:           core.StageNew,
		CreatedAt:       time.Now().UTC(),
	}
	if lead.County == "" {
		lead.County = fc.Session.County
	}
	if err := f.crm.CreateLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	if f.relay != nil {
		// fire and forget; intake must not fail on notification problems
		_ = f.relay.Publish(ctx, core.RelayNewLead, map[string]any{
			"lead_id":          lead.ID,
			"property_address": lead.PropertyAddress,
			"phone":            lead.Phone,
			"session_id":       fc.Session.ID,
		})
	}
	return map[string]any{"created": true, "lead_id": lead.ID}, nil
}

// transferToOperatorFunction pages a human operator while the call is live.
type transferToOperatorFunction struct {
	escalator *escalate.Router
}

// NewTransferToOperatorFunction constructs the transfer_to_operator function.
func NewTransferToOperatorFunction(escalator *escalate.Router) Function {
	return &transferToOperatorFunction{escalator: escalator}
}

func (f *transferToOperatorFunction) Name() string { return "transfer_to_operator" }

func (f *transferToOperatorFunction) Call(ctx context.Context, fc *FunctionContext, args map[string]any) (any, error) {
	f.escalator.NotifyLiveHotLead(ctx, escalate.Outcome{
		SessionID:    fc.Session.ID,
		AgentID:      fc.Session.AgentID,
		LeadID:       fc.Session.LeadID,
		ContactName:  fc.Session.ContactName,
		ContactPhone: fc.Session.ContactPhone,
		Summary:      optionalString(args, "reason"),
	})
	return map[string]any{"transferred": true}, nil
}

// doNotContactFunction applies the permanent exclusion the moment the
// counterpart asks for it, without waiting for the call to end.
type doNotContactFunction struct {
	escalator *escalate.Router
}

// NewDoNotContactFunction constructs the do_not_contact function.
func NewDoNotContactFunction(escalator *escalate.Router) Function {
	return &doNotContactFunction{escalator: escalator}
}

func (f *doNotContactFunction) Name() string { return "do_not_contact" }

func (f *doNotContactFunction) Call(ctx context.Context, fc *FunctionContext, args map[string]any) (any, error) {
	leadID := fc.Session.LeadID
	if leadID == "" {
		return nil, fmt.Errorf("session has no lead to exclude")
	}
	if err := f.escalator.MarkDoNotContact(ctx, leadID, optionalString(args, "reason")); err != nil {
		return nil, err
	}
	return map[string]any{"excluded": true, "lead_id": leadID}, nil
}

// scheduleCallbackFunction records the counterpart's requested callback time
// on the lead.
type scheduleCallbackFunction struct {
	crm core.CRMStore
}

// NewScheduleCallbackFunction constructs the schedule_callback function.
func NewScheduleCallbackFunction(crm core.CRMStore) Function {
	return &scheduleCallbackFunction{crm: crm}
}

func (f *scheduleCallbackFunction) Name() string { return "schedule_callback" }

func (f *scheduleCallbackFunction) Call(ctx context.Context, fc *FunctionContext, args map[string]any) (any, error) {
	leadID := fc.Session.LeadID
	if leadID == "" {
		return nil, fmt.Errorf("session has no lead to schedule")
	}
	at, err := stringArg(args, "callback_at")
	if err != nil {
		return nil, err
	}
	when, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return nil, fmt.Errorf("field 'callback_at' must be RFC3339: %w", err)
	}
	if err := f.crm.UpdateLead(ctx, leadID, core.LeadUpdate{RecontactAt: &when}); err != nil {
		return nil, fmt.Errorf("schedule callback: %w", err)
	}
	return map[string]any{"scheduled": true, "callback_at": when.Format(time.RFC3339)}, nil
}
