package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_WithinScale(t *testing.T) {
	cases := []struct {
		name    string
		factors WeightedFactorSet
	}{
		{"empty", WeightedFactorSet{}},
		{"single signal", WeightedFactorSet{DistressSignals: []string{"vacant"}}},
		{"unknown signals ignored", WeightedFactorSet{DistressSignals: []string{"alien_abduction"}, PropertyType: "castle"}},
		{
			"everything stacked",
			WeightedFactorSet{
				DistressSignals: []string{"tax_delinquent", "pre_foreclosure", "probate", "code_violation", "divorce", "vacant", "absentee_owner", "tired_landlord"},
				PropertyType:    "single_family",
				PropertyAge:     75,
				Sqft:            1600,
				MarketSignals:   []string{"appreciating", "rental_demand", "low_dom"},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Score(tc.factors)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, MaxScore)
		})
	}
}

func TestScore_RescalesProportionally(t *testing.T) {
	// One tax-delinquent signal is 3 raw points, rescaled by 10/16.
	s := Score(WeightedFactorSet{DistressSignals: []string{"tax_delinquent"}})
	assert.InDelta(t, 3.0*MaxScore/RawCeiling, s, 1e-9)

	// Stacking more signals never decreases the score.
	stacked := Score(WeightedFactorSet{DistressSignals: []string{"tax_delinquent", "probate"}})
	assert.Greater(t, stacked, s)
}

func TestScore_SaturatesAtMax(t *testing.T) {
	factors := WeightedFactorSet{
		DistressSignals: []string{"tax_delinquent", "pre_foreclosure", "probate", "code_violation", "divorce", "vacant", "absentee_owner", "tired_landlord"},
		PropertyType:    "single_family",
		PropertyAge:     80,
		Sqft:            1500,
		MarketSignals:   []string{"appreciating", "rental_demand", "low_dom"},
	}
	assert.Equal(t, MaxScore, Score(factors))
}

func TestClassify_Boundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  Temperature
	}{
		{7, Hot},
		{6.999, Warm},
		{4, Warm},
		{3.999, Cold},
		{0, Cold},
		{10, Hot},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.score), "score %v", tc.score)
	}
}

func TestComputeMAO(t *testing.T) {
	assert.Equal(t, 95000.0, ComputeMAO(200000, 35000, 10000))
}

func TestComputeMAO_NegativePropagates(t *testing.T) {
	mao := ComputeMAO(100000, 60000, 15000)
	assert.Equal(t, -5000.0, mao, "infeasible deals must stay negative, not floor to zero")
}

func TestEstimateRehabRange(t *testing.T) {
	min, max := EstimateRehabRange(1500, ConditionModerate)
	assert.Equal(t, 37500.0, min)
	assert.Equal(t, 67500.0, max)
}

func TestEstimateRehabRange_UnknownTier(t *testing.T) {
	min, max := EstimateRehabRange(1500, ConditionTier("pristine"))
	assert.Zero(t, min)
	assert.Zero(t, max)
}

func TestDealEconomics(t *testing.T) {
	eco := DealEconomics(180000, 35000, 85000, 12000)
	assert.Equal(t, 126000.0, eco.SeventyPercentARV)
	assert.Equal(t, 79000.0, eco.MaxAllowableOffer)
	assert.Equal(t, 48000.0, eco.ProfitEstimate)
	assert.Equal(t, 180000.0-79000.0-35000.0-12000.0, eco.ProfitAtMAO)
}

func TestDealEconomics_DefaultAssignmentFee(t *testing.T) {
	eco := DealEconomics(200000, 35000, 90000, 0)
	assert.Equal(t, DefaultAssignmentFee, eco.AssignmentFee)
	assert.Equal(t, 95000.0, eco.MaxAllowableOffer)
}
