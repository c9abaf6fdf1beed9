package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/lonestardev/dialcore/core"
)

type leadModel struct {
	bun.BaseModel `bun:"table:leads,alias:l"`

	ID              string     `bun:"id,pk"`
	PropertyAddress string     `bun:"property_address,notnull"`
	City            string     `bun:"city"`
	County          string     `bun:"county"`
	ZipCode         string     `bun:"zip_code"`
	OwnerName       string     `bun:"owner_name"`
	Phone           string     `bun:"phone"`
	DataSource      string     `bun:"data_source"`
	Stage           string     `bun:"stage,notnull"`
	MotivationScore float64    `bun:"motivation_score"`
	DoNotContact    bool       `bun:"do_not_contact"`
	AskingPrice     *float64   `bun:"asking_price"`
	PropertyType    string     `bun:"property_type"`
	Sqft            *int       `bun:"sqft"`
	Condition       string     `bun:"condition"`
	IsVacant        bool       `bun:"is_vacant"`
	TotalAttempts   int        `bun:"total_attempts"`
	LastCalledAt    *time.Time `bun:"last_called_at"`
	RecontactAt     *time.Time `bun:"recontact_at"`
	CreatedAt       time.Time  `bun:"created_at,notnull"`
}

func leadToModel(lead *core.Lead) *leadModel {
	return &leadModel{
		ID:              lead.ID,
		PropertyAddress: lead.PropertyAddress,
		City:            lead.City,
		County:          lead.County,
		ZipCode:         lead.ZipCode,
		OwnerName:       lead.OwnerName,
		Phone:           lead.Phone,
		DataSource:      lead.DataSource,
		Stage:           string(lead.Stage),
		MotivationScore: lead.MotivationScore,
		DoNotContact:    lead.DoNotContact,
		AskingPrice:     lead.AskingPrice,
		PropertyType:    lead.PropertyType,
		Sqft:            lead.Sqft,
		Condition:       lead.Condition,
		IsVacant:        lead.IsVacant,
		TotalAttempts:   lead.TotalAttempts,
		LastCalledAt:    lead.LastCalledAt,
		RecontactAt:     lead.RecontactAt,
		CreatedAt:       lead.CreatedAt,
	}
}

func (m *leadModel) toCore() *core.Lead {
	return &core.Lead{
		ID:              m.ID,
		PropertyAddress: m.PropertyAddress,
		City:            m.City,
		County:          m.County,
		ZipCode:         m.ZipCode,
		OwnerName:       m.OwnerName,
		Phone:           m.Phone,
		DataSource:      m.DataSource,
		Stage:           core.PipelineStage(m.Stage),
		MotivationScore: m.MotivationScore,
		DoNotContact:    m.DoNotContact,
		AskingPrice:     m.AskingPrice,
		PropertyType:    m.PropertyType,
		Sqft:            m.Sqft,
		Condition:       m.Condition,
		IsVacant:        m.IsVacant,
		TotalAttempts:   m.TotalAttempts,
		LastCalledAt:    m.LastCalledAt,
		RecontactAt:     m.RecontactAt,
		CreatedAt:       m.CreatedAt,
	}
}

type callLogModel struct {
	bun.BaseModel `bun:"table:call_logs,alias:cl"`

	ID                string    `bun:"id,pk"`
	AgentID           string    `bun:"agent_id,notnull"`
	AgentName         string    `bun:"agent_name"`
	Direction         string    `bun:"direction,notnull"`
	ContactPhone      string    `bun:"contact_phone"`
	ContactName       string    `bun:"contact_name"`
	LeadID            string    `bun:"lead_id"`
	PropertyAddress   string    `bun:"property_address"`
	County            string    `bun:"county"`
	DurationSeconds   int       `bun:"duration_seconds"`
	Outcome           string    `bun:"outcome"`
	MotivationScore   *float64  `bun:"motivation_score"`
	TranscriptSummary string    `bun:"transcript_summary"`
	RecordingRef      string    `bun:"recording_ref"`
	CreatedAt         time.Time `bun:"created_at,notnull"`
}

func callLogToModel(log *core.CallLog) *callLogModel {
	return &callLogModel{
		ID:                log.ID,
		AgentID:           log.AgentID,
		AgentName:         log.AgentName,
		Direction:         string(log.Direction),
		ContactPhone:      log.ContactPhone,
		ContactName:       log.ContactName,
		LeadID:            log.LeadID,
		PropertyAddress:   log.PropertyAddress,
		County:            log.County,
		DurationSeconds:   log.DurationSeconds,
		Outcome:           string(log.Outcome),
		MotivationScore:   log.MotivationScore,
		TranscriptSummary: log.TranscriptSummary,
		RecordingRef:      log.RecordingRef,
		CreatedAt:         log.CreatedAt,
	}
}

type dealModel struct {
	bun.BaseModel `bun:"table:deals,alias:d"`

	ID                string     `bun:"id,pk"`
	LeadID            string     `bun:"lead_id,notnull"`
	PropertyAddress   string     `bun:"property_address"`
	ARV               float64    `bun:"arv"`
	RehabEstimate     float64    `bun:"rehab_estimate"`
	ContractPrice     float64    `bun:"contract_price"`
	AssignmentFee     float64    `bun:"assignment_fee"`
	MaxAllowableOffer float64    `bun:"max_allowable_offer"`
	ProfitEstimate    float64    `bun:"profit_estimate"`
	Status            string     `bun:"status,notnull"`
	BuyerID           string     `bun:"buyer_id"`
	BuyerName         string     `bun:"buyer_name"`
	TitleCompany      string     `bun:"title_company"`
	EarnestMoney      float64    `bun:"earnest_money"`
	ContractSignedAt  *time.Time `bun:"contract_signed_at"`
	ClosingAt         *time.Time `bun:"closing_at"`
	CreatedAt         time.Time  `bun:"created_at,notnull"`
}

func dealToModel(deal *core.Deal) *dealModel {
	return &dealModel{
		ID:                deal.ID,
		LeadID:            deal.LeadID,
		PropertyAddress:   deal.PropertyAddress,
		ARV:               deal.ARV,
		RehabEstimate:     deal.RehabEstimate,
		ContractPrice:     deal.ContractPrice,
		AssignmentFee:     deal.AssignmentFee,
		MaxAllowableOffer: deal.MaxAllowableOffer,
		ProfitEstimate:    deal.ProfitEstimate,
		Status:            string(deal.Status),
		BuyerID:           deal.BuyerID,
		BuyerName:         deal.BuyerName,
		TitleCompany:      deal.TitleCompany,
		EarnestMoney:      deal.EarnestMoney,
		ContractSignedAt:  deal.ContractSignedAt,
		ClosingAt:         deal.ClosingAt,
		CreatedAt:         deal.CreatedAt,
	}
}

type buyerModel struct {
	bun.BaseModel `bun:"table:buyers,alias:b"`

	ID             string    `bun:"id,pk"`
	Name           string    `bun:"name,notnull"`
	Company        string    `bun:"company"`
	Phone          string    `bun:"phone"`
	Email          string    `bun:"email"`
	PreferredAreas []string  `bun:"preferred_areas,array"`
	MaxPrice       float64   `bun:"max_price"`
	MinPrice       float64   `bun:"min_price"`
	RehabTolerance string    `bun:"rehab_tolerance"`
	Funding        string    `bun:"funding"`
	DealsPurchased int       `bun:"deals_purchased"`
	IsActive       bool      `bun:"is_active"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}

func buyerToModel(buyer *core.Buyer) *buyerModel {
	return &buyerModel{
		ID:             buyer.ID,
		Name:           buyer.Name,
		Company:        buyer.Company,
		Phone:          buyer.Phone,
		Email:          buyer.Email,
		PreferredAreas: buyer.PreferredAreas,
		MaxPrice:       buyer.MaxPrice,
		MinPrice:       buyer.MinPrice,
		RehabTolerance: buyer.RehabTolerance,
		Funding:        buyer.Funding,
		DealsPurchased: buyer.DealsPurchased,
		IsActive:       buyer.IsActive,
		CreatedAt:      buyer.CreatedAt,
	}
}

func (m *buyerModel) toCore() *core.Buyer {
	return &core.Buyer{
		ID:             m.ID,
		Name:           m.Name,
		Company:        m.Company,
		Phone:          m.Phone,
		Email:          m.Email,
		PreferredAreas: m.PreferredAreas,
		MaxPrice:       m.MaxPrice,
		MinPrice:       m.MinPrice,
		RehabTolerance: m.RehabTolerance,
		Funding:        m.Funding,
		DealsPurchased: m.DealsPurchased,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
	}
}
