package analyzer

// Thresholds holds the business constants that drive insight selection.
//
// The defaults are fixed policy; overriding them changes which insights a
// report contains but never how the numbers are computed.
type Thresholds struct {
	// MinRecords is the smallest input that gets a full analysis.
	MinRecords int
	// LowRedemptionPct triggers the reminder insight when the rate is below it.
	LowRedemptionPct float64
	// HighRedemptionPct triggers the engagement insight when the rate is above it.
	HighRedemptionPct float64
	// RapidGrowthSlope triggers the capacity insight when the slope is above it.
	RapidGrowthSlope float64
	// DeclineSlope triggers the promotion insight when the slope is below it.
	DeclineSlope float64
	// ExpiredWastePct triggers the expiration insight when the share of
	// unused, expired codes is strictly above it.
	ExpiredWastePct float64
}

// DefaultThresholds returns the standard policy constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinRecords:        5,
		LowRedemptionPct:  30,
		HighRedemptionPct: 70,
		RapidGrowthSlope:  0.5,
		DeclineSlope:      -0.2,
		ExpiredWastePct:   20,
	}
}
