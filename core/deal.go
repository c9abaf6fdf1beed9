package core

import "time"

// DealStatus is the deal lifecycle. Forward path: negotiating → contracted →
// disposition → closed, with dead reachable as a terminal branch.
type DealStatus string

const (
	DealNegotiating DealStatus = "negotiating"
	DealContracted  DealStatus = "contracted"
	DealDisposition DealStatus = "disposition"
	DealClosed      DealStatus = "closed"
	DealDead        DealStatus = "dead"
)

// Deal is the derived economic record for a qualified lead. The CRM owns
// persistence; the core computes the derived figures (MAO, profit) through
// the scoring engine and hands the record over.
type Deal struct {
	ID              string     `json:"id"`
	LeadID          string     `json:"lead_id"`
	PropertyAddress string     `json:"property_address"`
	ARV             float64    `json:"arv"`
	RehabEstimate   float64    `json:"rehab_estimate"`
	ContractPrice   float64    `json:"contract_price"`
	AssignmentFee   float64    `json:"assignment_fee"`
	MaxAllowableOffer float64  `json:"max_allowable_offer"`
	ProfitEstimate  float64    `json:"profit_estimate"`
	Status          DealStatus `json:"status"`
	BuyerID         string     `json:"buyer_id,omitempty"`
	BuyerName       string     `json:"buyer_name,omitempty"`
	TitleCompany    string     `json:"title_company,omitempty"`
	EarnestMoney    float64    `json:"earnest_money"`
	ContractSignedAt *time.Time `json:"contract_signed_at,omitempty"`
	ClosingAt       *time.Time `json:"closing_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// DealUpdate is an explicit field-level update for a Deal.
type DealUpdate struct {
	Status    *DealStatus `json:"status,omitempty"`
	BuyerID   *string     `json:"buyer_id,omitempty"`
	BuyerName *string     `json:"buyer_name,omitempty"`
	ClosingAt *time.Time  `json:"closing_at,omitempty"`
}

// Apply copies the non-nil fields onto the deal.
func (u DealUpdate) Apply(d *Deal) {
	if u.Status != nil {
		d.Status = *u.Status
	}
	if u.BuyerID != nil {
		d.BuyerID = *u.BuyerID
	}
	if u.BuyerName != nil {
		d.BuyerName = *u.BuyerName
	}
	if u.ClosingAt != nil {
		d.ClosingAt = u.ClosingAt
	}
}

// Buyer is the disposition-side counterpart record. Held read-mostly by the
// core for disposition calls; the CRM owns the full record.
type Buyer struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Company        string    `json:"company,omitempty"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email,omitempty"`
	PreferredAreas []string  `json:"preferred_areas"`
	MaxPrice       float64   `json:"max_price"`
	MinPrice       float64   `json:"min_price"`
	RehabTolerance string    `json:"rehab_tolerance,omitempty"`
	Funding        string    `json:"funding,omitempty"`
	DealsPurchased int       `json:"deals_purchased"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}
