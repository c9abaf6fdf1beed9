// Package postgres implements the CRMStore contract on PostgreSQL via bun.
// The same semantics as the in-memory store apply: ProposeStage enforces
// forward-only pipeline movement, OverrideStage is the operator escape
// hatch, and MarkDoNotContact is irreversible by automated logic.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/lonestardev/dialcore/core"
)

// Store is a PostgreSQL-backed CRMStore.
type Store struct {
	db *bun.DB
}

// New opens a connection pool for the DSN and returns the store. The
// connection is not validated here; call Ping or Migrate before serving.
func New(dsn string) *Store {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return &Store{db: bun.NewDB(sqldb, pgdialect.New())}
}

// NewFromDB wraps an existing bun handle, mainly for tests.
func NewFromDB(db *bun.DB) *Store { return &Store{db: db} }

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the CRM tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{
		(*leadModel)(nil),
		(*callLogModel)(nil),
		(*dealModel)(nil),
		(*buyerModel)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

func (s *Store) GetLead(ctx context.Context, id string) (*core.Lead, error) {
	model := new(leadModel)
	err := s.db.NewSelect().Model(model).Where("l.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrLeadNotFound
		}
		return nil, fmt.Errorf("select lead: %w", err)
	}
	return model.toCore(), nil
}

func (s *Store) ListLeads(ctx context.Context, filter core.LeadFilter) ([]*core.Lead, error) {
	var models []leadModel
	q := s.db.NewSelect().Model(&models).Order("created_at DESC")
	if filter.Stage != nil {
		q = q.Where("stage = ?", string(*filter.Stage))
	}
	if filter.County != "" {
		q = q.Where("county = ?", filter.County)
	}
	if filter.MinScore != nil {
		q = q.Where("motivation_score >= ?", *filter.MinScore)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	out := make([]*core.Lead, 0, len(models))
	for i := range models {
		out = append(out, models[i].toCore())
	}
	return out, nil
}

func (s *Store) CreateLead(ctx context.Context, lead *core.Lead) error {
	if _, err := s.db.NewInsert().Model(leadToModel(lead)).Exec(ctx); err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (s *Store) UpdateLead(ctx context.Context, id string, upd core.LeadUpdate) error {
	q := s.db.NewUpdate().Model((*leadModel)(nil)).Where("id = ?", id)
	assigned := false
	if upd.Stage != nil {
		q = q.Set("stage = ?", string(*upd.Stage))
		assigned = true
	}
	if upd.MotivationScore != nil {
		q = q.Set("motivation_score = ?", *upd.MotivationScore)
		assigned = true
	}
	if upd.AskingPrice != nil {
		q = q.Set("asking_price = ?", *upd.AskingPrice)
		assigned = true
	}
	if upd.DoNotContact != nil {
		q = q.Set("do_not_contact = ?", *upd.DoNotContact)
		assigned = true
	}
	if upd.TotalAttempts != nil {
		q = q.Set("total_attempts = ?", *upd.TotalAttempts)
		assigned = true
	}
	if upd.LastCalledAt != nil {
		q = q.Set("last_called_at = ?", *upd.LastCalledAt)
		assigned = true
	}
	if upd.RecontactAt != nil {
		q = q.Set("recontact_at = ?", *upd.RecontactAt)
		assigned = true
	}
	if !assigned {
		return nil
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	return requireRow(res, core.ErrLeadNotFound)
}

// ProposeStage advances the stage only when the move is forward. The guard
// runs in SQL so concurrent proposals cannot leapfrog each other; a
// non-forward proposal simply matches zero rows and is ignored.
func (s *Store) ProposeStage(ctx context.Context, leadID string, to core.PipelineStage) error {
	exists, err := s.db.NewSelect().Model((*leadModel)(nil)).Where("id = ?", leadID).Exists(ctx)
	if err != nil {
		return fmt.Errorf("propose stage: %w", err)
	}
	if !exists {
		return core.ErrLeadNotFound
	}
	forward := forwardStages(to)
	if len(forward) == 0 {
		return nil
	}
	_, err = s.db.NewUpdate().
		Model((*leadModel)(nil)).
		Set("stage = ?", string(to)).
		Where("id = ?", leadID).
		Where("stage IN (?)", bun.In(forward)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("propose stage: %w", err)
	}
	return nil
}

// forwardStages lists the stages from which moving to target is a legal
// forward advance.
func forwardStages(target core.PipelineStage) []string {
	all := []core.PipelineStage{
		core.StageNew, core.StageNurtured, core.StageQualified, core.StageConverted, core.StageExcluded,
	}
	var from []string
	for _, stage := range all {
		if stage != target && stage.CanAdvance(target) {
			from = append(from, string(stage))
		}
	}
	return from
}

func (s *Store) OverrideStage(ctx context.Context, leadID string, to core.PipelineStage) error {
	res, err := s.db.NewUpdate().
		Model((*leadModel)(nil)).
		Set("stage = ?", string(to)).
		Where("id = ?", leadID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("override stage: %w", err)
	}
	return requireRow(res, core.ErrLeadNotFound)
}

func (s *Store) MarkDoNotContact(ctx context.Context, leadID string) error {
	res, err := s.db.NewUpdate().
		Model((*leadModel)(nil)).
		Set("do_not_contact = ?", true).
		Set("stage = ?", string(core.StageExcluded)).
		Where("id = ?", leadID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark do-not-contact: %w", err)
	}
	return requireRow(res, core.ErrLeadNotFound)
}

func (s *Store) SaveCallLog(ctx context.Context, log *core.CallLog) error {
	model := callLogToModel(log)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if _, err := s.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return fmt.Errorf("insert call log: %w", err)
	}
	return nil
}

func (s *Store) CreateDeal(ctx context.Context, deal *core.Deal) error {
	if _, err := s.db.NewInsert().Model(dealToModel(deal)).Exec(ctx); err != nil {
		return fmt.Errorf("insert deal: %w", err)
	}
	return nil
}

func (s *Store) UpdateDeal(ctx context.Context, id string, upd core.DealUpdate) error {
	q := s.db.NewUpdate().Model((*dealModel)(nil)).Where("id = ?", id)
	assigned := false
	if upd.Status != nil {
		q = q.Set("status = ?", string(*upd.Status))
		assigned = true
	}
	if upd.BuyerID != nil {
		q = q.Set("buyer_id = ?", *upd.BuyerID)
		assigned = true
	}
	if upd.BuyerName != nil {
		q = q.Set("buyer_name = ?", *upd.BuyerName)
		assigned = true
	}
	if upd.ClosingAt != nil {
		q = q.Set("closing_at = ?", *upd.ClosingAt)
		assigned = true
	}
	if !assigned {
		return nil
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("update deal: %w", err)
	}
	return requireRow(res, core.ErrDealNotFound)
}

func (s *Store) CreateBuyer(ctx context.Context, buyer *core.Buyer) error {
	if _, err := s.db.NewInsert().Model(buyerToModel(buyer)).Exec(ctx); err != nil {
		return fmt.Errorf("insert buyer: %w", err)
	}
	return nil
}

func (s *Store) ListBuyers(ctx context.Context, activeOnly bool) ([]*core.Buyer, error) {
	var models []buyerModel
	q := s.db.NewSelect().Model(&models).Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list buyers: %w", err)
	}
	out := make([]*core.Buyer, 0, len(models))
	for i := range models {
		out = append(out, models[i].toCore())
	}
	return out, nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return notFound
	}
	return nil
}
