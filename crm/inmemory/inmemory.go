// Package inmemory provides a process-local CRMStore for tests, examples
// and single-process deployments. Data does not survive restarts; use the
// postgres implementation when it must.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/lonestardev/dialcore/core"
)

// Store keeps leads, deals, buyers and call logs in maps guarded by an
// RWMutex. Values are copied on the way in and out so callers never share
// memory with the store.
type Store struct {
	mu       sync.RWMutex
	leads    map[string]*core.Lead
	deals    map[string]*core.Deal
	buyers   map[string]*core.Buyer
	callLogs []*core.CallLog
}

// New returns an empty in-memory CRM store.
func New() *Store {
	return &Store{
		leads:  make(map[string]*core.Lead),
		deals:  make(map[string]*core.Deal),
		buyers: make(map[string]*core.Buyer),
	}
}

// GetLead returns a copy of the lead or core.ErrLeadNotFound.
func (s *Store) GetLead(_ context.Context, id string) (*core.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lead, ok := s.leads[id]
	if !ok {
		return nil, core.ErrLeadNotFound
	}
	cp := *lead
	return &cp, nil
}

// ListLeads returns leads matching the filter, newest first.
func (s *Store) ListLeads(_ context.Context, filter core.LeadFilter) ([]*core.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.Lead
	for _, lead := range s.leads {
		if filter.Stage != nil && lead.Stage != *filter.Stage {
			continue
		}
		if filter.County != "" && lead.County != filter.County {
			continue
		}
		if filter.MinScore != nil && lead.MotivationScore < *filter.MinScore {
			continue
		}
		cp := *lead
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// CreateLead stores a copy of the lead keyed by its id.
func (s *Store) CreateLead(_ context.Context, lead *core.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *lead
	s.leads[lead.ID] = &cp
	return nil
}

// UpdateLead applies the non-nil fields of the update.
func (s *Store) UpdateLead(_ context.Context, id string, upd core.LeadUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return core.ErrLeadNotFound
	}
	upd.Apply(lead)
	return nil
}

// ProposeStage advances the lead's stage when the move is forward; backward
// proposals are ignored, not errors.
func (s *Store) ProposeStage(_ context.Context, leadID string, to core.PipelineStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[leadID]
	if !ok {
		return core.ErrLeadNotFound
	}
	if lead.Stage.CanAdvance(to) {
		lead.Stage = to
	}
	return nil
}

// OverrideStage sets the stage unconditionally (operator surface).
func (s *Store) OverrideStage(_ context.Context, leadID string, to core.PipelineStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[leadID]
	if !ok {
		return core.ErrLeadNotFound
	}
	lead.Stage = to
	return nil
}

// MarkDoNotContact permanently excludes the lead.
func (s *Store) MarkDoNotContact(_ context.Context, leadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[leadID]
	if !ok {
		return core.ErrLeadNotFound
	}
	lead.DoNotContact = true
	lead.Stage = core.StageExcluded
	return nil
}

// SaveCallLog appends a copy of the call log.
func (s *Store) SaveCallLog(_ context.Context, log *core.CallLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *log
	s.callLogs = append(s.callLogs, &cp)
	return nil
}

// CallLogs returns copies of the stored call logs, newest first. Not part of
// the CRMStore contract; used by the operator surface for daily stats.
func (s *Store) CallLogs() []*core.CallLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.CallLog, 0, len(s.callLogs))
	for _, log := range s.callLogs {
		cp := *log
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// CreateDeal stores a copy of the deal.
func (s *Store) CreateDeal(_ context.Context, deal *core.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *deal
	s.deals[deal.ID] = &cp
	return nil
}

// UpdateDeal applies the non-nil fields of the update.
func (s *Store) UpdateDeal(_ context.Context, id string, upd core.DealUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	deal, ok := s.deals[id]
	if !ok {
		return core.ErrDealNotFound
	}
	upd.Apply(deal)
	return nil
}

// CreateBuyer stores a copy of the buyer.
func (s *Store) CreateBuyer(_ context.Context, buyer *core.Buyer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *buyer
	s.buyers[buyer.ID] = &cp
	return nil
}

// ListBuyers returns buyers, optionally only active ones.
func (s *Store) ListBuyers(_ context.Context, activeOnly bool) ([]*core.Buyer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.Buyer
	for _, buyer := range s.buyers {
		if activeOnly && !buyer.IsActive {
			continue
		}
		cp := *buyer
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
