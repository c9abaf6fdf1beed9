// Package scoring implements the pure lead-scoring and deal-economics
// functions: motivation scoring from weighted factor groups, temperature
// classification, maximum-allowable-offer and rehab-range estimation. Every
// function is deterministic and side-effect free; the package depends only on
// the core domain types.
package scoring

import (
	"math"

	"github.com/lonestardev/dialcore/core"
)

// Temperature buckets a motivation score for routing. The boundaries are a
// hard contract consumed by the escalation router and pipeline defaults.
type Temperature string

const (
	Cold Temperature = "cold"
	Warm Temperature = "warm"
	Hot  Temperature = "hot"
)

// Classification thresholds: score >= HotThreshold is hot, >= WarmThreshold
// is warm, everything below is cold.
const (
	HotThreshold  = 7.0
	WarmThreshold = 4.0
)

// MaxScore is the upper bound of the motivation scale.
const MaxScore = 10.0

// RawCeiling is the factor-table sum at which the raw score saturates. The
// point tables can sum past 10; raw sums are proportionally rescaled against
// this ceiling onto [0, MaxScore] rather than hard-clamped, so two strong
// leads still order correctly near the top of the scale.
const RawCeiling = 16.0

// distressPoints fixes the contribution of each source-of-distress signal.
var distressPoints = map[string]float64{
	"tax_delinquent":  3,
	"pre_foreclosure": 3,
	"probate":         2.5,
	"code_violation":  2,
	"divorce":         2,
	"vacant":          1.5,
	"absentee_owner":  1,
	"tired_landlord":  1,
}

// propertyTypePoints fixes the contribution of the property type.
var propertyTypePoints = map[string]float64{
	"single_family": 1.5,
	"duplex":        1.25,
	"mobile_home":   0.5,
	"townhouse":     1,
	"condo":         0.75,
	"land":          0.5,
}

// marketPoints fixes the contribution of each market-context signal.
var marketPoints = map[string]float64{
	"appreciating":  1,
	"rental_demand": 1,
	"low_dom":       0.75,
	"high_dom":      0.25,
	"declining":     0,
}

// WeightedFactorSet is the scoring input: three independent factor groups
// plus the property attributes that feed the age/size contributions.
type WeightedFactorSet struct {
	DistressSignals []string
	PropertyType    string
	PropertyAge     int
	Sqft            int
	MarketSignals   []string
}

// FactorsFromCallData projects the machine-readable call extraction onto a
// factor set.
func FactorsFromCallData(data core.StructuredCallData) WeightedFactorSet {
	return WeightedFactorSet{
		DistressSignals: data.DistressSignals,
		PropertyType:    data.PropertyType,
		PropertyAge:     data.PropertyAge,
		Sqft:            data.Sqft,
		MarketSignals:   data.MarketSignals,
	}
}

// Score maps a factor set onto the motivation scale [0, MaxScore]. Each
// factor contributes a fixed point value from its lookup table; unknown
// signals contribute nothing. The raw sum is rescaled by MaxScore/RawCeiling
// and clamped, so the result is always within the scale regardless of how
// many signals stack.
func Score(factors WeightedFactorSet) float64 {
	raw := 0.0
	for _, signal := range factors.DistressSignals {
		raw += distressPoints[signal]
	}
	raw += propertyTypePoints[factors.PropertyType]
	raw += agePoints(factors.PropertyAge)
	raw += sizePoints(factors.Sqft)
	for _, signal := range factors.MarketSignals {
		raw += marketPoints[signal]
	}

	scaled := raw * MaxScore / RawCeiling
	return math.Min(math.Max(scaled, 0), MaxScore)
}

// agePoints rewards older housing stock, which correlates with deferred
// maintenance and motivated sellers.
func agePoints(age int) float64 {
	switch {
	case age <= 0:
		return 0
	case age >= 40:
		return 1.5
	case age >= 20:
		return 1
	default:
		return 0.5
	}
}

// sizePoints buckets livable area; the wholesale sweet spot is the modest
// single-family footprint.
func sizePoints(sqft int) float64 {
	switch {
	case sqft <= 0:
		return 0
	case sqft < 900:
		return 0.5
	case sqft <= 2200:
		return 1
	default:
		return 0.75
	}
}

// Classify buckets a motivation score. Scores at or above 7 are hot, 4
// through just under 7 are warm, everything else is cold.
func Classify(score float64) Temperature {
	switch {
	case score >= HotThreshold:
		return Hot
	case score >= WarmThreshold:
		return Warm
	default:
		return Cold
	}
}
