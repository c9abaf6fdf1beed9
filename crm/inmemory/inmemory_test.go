package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonestardev/dialcore/core"
)

func seedLead(t *testing.T, s *Store, id string, stage core.PipelineStage) {
	t.Helper()
	require.NoError(t, s.CreateLead(context.Background(), &core.Lead{
		ID: id, County: "travis", Stage: stage, CreatedAt: time.Now().UTC(),
	}))
}

func TestProposeStageForwardOnly(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedLead(t, s, "lead-1", core.StageNurtured)

	require.NoError(t, s.ProposeStage(ctx, "lead-1", core.StageQualified))
	lead, err := s.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, core.StageQualified, lead.Stage)

	// backward proposal silently ignored
	require.NoError(t, s.ProposeStage(ctx, "lead-1", core.StageNew))
	lead, err = s.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, core.StageQualified, lead.Stage)
}

func TestProposeStageCannotLeaveExcluded(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedLead(t, s, "lead-1", core.StageNew)
	require.NoError(t, s.MarkDoNotContact(ctx, "lead-1"))

	require.NoError(t, s.ProposeStage(ctx, "lead-1", core.StageQualified))
	lead, err := s.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, core.StageExcluded, lead.Stage)
	assert.True(t, lead.DoNotContact)
}

func TestOverrideStageUnconditional(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedLead(t, s, "lead-1", core.StageQualified)

	require.NoError(t, s.OverrideStage(ctx, "lead-1", core.StageNew))
	lead, err := s.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, core.StageNew, lead.Stage)
}

func TestListLeadsFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedLead(t, s, "a", core.StageNew)
	seedLead(t, s, "b", core.StageNurtured)
	require.NoError(t, s.CreateLead(ctx, &core.Lead{
		ID: "c", County: "bexar", Stage: core.StageNew, MotivationScore: 8, CreatedAt: time.Now().UTC(),
	}))

	stage := core.StageNew
	leads, err := s.ListLeads(ctx, core.LeadFilter{Stage: &stage})
	require.NoError(t, err)
	assert.Len(t, leads, 2)

	leads, err = s.ListLeads(ctx, core.LeadFilter{County: "bexar"})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "c", leads[0].ID)

	min := 5.0
	leads, err = s.ListLeads(ctx, core.LeadFilter{MinScore: &min})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "c", leads[0].ID)
}

func TestGetLeadCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedLead(t, s, "lead-1", core.StageNew)

	lead, err := s.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	lead.Stage = core.StageConverted

	again, err := s.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, core.StageNew, again.Stage)
}

func TestUnknownLead(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.GetLead(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrLeadNotFound)
	assert.ErrorIs(t, s.MarkDoNotContact(ctx, "missing"), core.ErrLeadNotFound)
	assert.ErrorIs(t, s.ProposeStage(ctx, "missing", core.StageNurtured), core.ErrLeadNotFound)
}

func TestDealsAndBuyers(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateDeal(ctx, &core.Deal{ID: "d1", Status: core.DealNegotiating}))

	contracted := core.DealContracted
	require.NoError(t, s.UpdateDeal(ctx, "d1", core.DealUpdate{Status: &contracted}))
	assert.ErrorIs(t, s.UpdateDeal(ctx, "missing", core.DealUpdate{}), core.ErrDealNotFound)

	require.NoError(t, s.CreateBuyer(ctx, &core.Buyer{ID: "b1", IsActive: true}))
	require.NoError(t, s.CreateBuyer(ctx, &core.Buyer{ID: "b2", IsActive: false}))
	active, err := s.ListBuyers(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "b1", active[0].ID)
}
