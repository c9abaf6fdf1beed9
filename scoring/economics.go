package scoring

import "time"

// maoMultiplier is the standard wholesale 70% rule applied to ARV.
const maoMultiplier = 0.70

// DefaultAssignmentFee is assumed when a deal does not specify one.
const DefaultAssignmentFee = 10000.0

// ConditionTier is the closed rehab-condition enum. Each tier maps to a fixed
// $/sqft cost band.
type ConditionTier string

const (
	ConditionLight      ConditionTier = "light"
	ConditionModerate   ConditionTier = "moderate"
	ConditionHeavy      ConditionTier = "heavy"
	ConditionStructural ConditionTier = "structural"
)

// rehabBand is a $/sqft range for one condition tier.
type rehabBand struct{ min, max float64 }

var rehabBands = map[ConditionTier]rehabBand{
	ConditionLight:      {10, 25},
	ConditionModerate:   {25, 45},
	ConditionHeavy:      {45, 75},
	ConditionStructural: {75, 120},
}

// ComputeMAO returns the maximum allowable offer: 70% of the after-repair
// value minus rehab and the assignment fee. Negative results propagate; an
// economically infeasible deal must stay visibly negative, never floored.
func ComputeMAO(arv, rehabEstimate, assignmentFee float64) float64 {
	return arv*maoMultiplier - rehabEstimate - assignmentFee
}

// EstimateRehabRange returns the (min, max) rehab cost for the given livable
// area and condition tier. An unknown tier or non-positive area yields (0, 0).
func EstimateRehabRange(sqft int, tier ConditionTier) (float64, float64) {
	band, ok := rehabBands[tier]
	if !ok || sqft <= 0 {
		return 0, 0
	}
	return float64(sqft) * band.min, float64(sqft) * band.max
}

// Economics is the full derived-figure set for a deal, mirroring what the
// deal calculator surfaces expose.
type Economics struct {
	ARV               float64 `json:"arv"`
	RehabEstimate     float64 `json:"rehab_estimate"`
	ContractPrice     float64 `json:"contract_price"`
	AssignmentFee     float64 `json:"assignment_fee"`
	SeventyPercentARV float64 `json:"seventy_percent_arv"`
	MaxAllowableOffer float64 `json:"max_allowable_offer"`
	// ProfitEstimate is the margin at the actual contract price.
	ProfitEstimate float64 `json:"profit_estimate"`
	// ProfitAtMAO is the margin if the contract were struck exactly at MAO.
	ProfitAtMAO float64 `json:"profit_at_mao"`
}

// DealEconomics derives every economic figure for a candidate deal. A zero
// assignment fee falls back to DefaultAssignmentFee.
func DealEconomics(arv, rehabEstimate, contractPrice, assignmentFee float64) Economics {
	if assignmentFee == 0 {
		assignmentFee = DefaultAssignmentFee
	}
	mao := ComputeMAO(arv, rehabEstimate, assignmentFee)
	return Economics{
		ARV:               arv,
		RehabEstimate:     rehabEstimate,
		ContractPrice:     contractPrice,
		AssignmentFee:     assignmentFee,
		SeventyPercentARV: arv * maoMultiplier,
		MaxAllowableOffer: mao,
		ProfitEstimate:    arv - contractPrice - rehabEstimate - assignmentFee,
		ProfitAtMAO:       arv - mao - rehabEstimate - assignmentFee,
	}
}

// RecontactDelay is the fixed far-future cadence applied to cold leads when
// the escalation router parks them for a later touch.
const RecontactDelay = 90 * 24 * time.Hour
