package models

import "time"

// UsageRecord represents a single redemption code and its usage state
type UsageRecord struct {
	ID        int        `json:"id,omitempty"`
	Code      string     `json:"code"`
	Campaign  string     `json:"campaign"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`    // Set only when Used is true
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // Independent of usage
}

// DailyUsagePoint is the number of redemptions on one calendar day (UTC)
type DailyUsagePoint struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// DailyForecast is a projected redemption count labeled with a calendar day
type DailyForecast struct {
	Index          int       `json:"index"`
	Date           time.Time `json:"date"`
	ProjectedCount int       `json:"projected_count"`
}

// AnalysisReport is the complete output of a usage analysis
type AnalysisReport struct {
	Insights              []string `json:"insights"`
	PeakUsageDays         []string `json:"peakUsageDays"`
	RedemptionRate        float64  `json:"redemptionRate"`
	ProjectedMonthlyUsage int      `json:"projectedMonthlyUsage"`
}

// StoredReport is an AnalysisReport saved locally for later publishing
type StoredReport struct {
	ID          string         `json:"id"`
	Campaign    string         `json:"campaign"`
	GeneratedAt time.Time      `json:"generated_at"`
	Published   bool           `json:"published"`
	Report      AnalysisReport `json:"report"`
}
