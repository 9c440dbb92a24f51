package analyzer

import (
	"time"

	"github.com/jgoulah/redeemstat/pkg/models"
)

// Summary holds the descriptive statistics shown alongside a report.
type Summary struct {
	Total          int        `json:"total"`
	Used           int        `json:"used"`
	Unused         int        `json:"unused"`
	UsedUntimed    int        `json:"used_untimed"` // used but without a usage time
	ExpiredUnused  int        `json:"expired_unused"`
	UsageDays      int        `json:"usage_days"`
	BusiestDay     *time.Time `json:"busiest_day,omitempty"`
	BusiestCount   int        `json:"busiest_count"`
	FirstUsedAt    *time.Time `json:"first_used_at,omitempty"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
	RedemptionRate float64    `json:"redemption_rate"`
	Slope          float64    `json:"slope"`
}

// Summarize computes descriptive statistics for records. Unlike Analyze it has
// no minimum input size.
func (a *Analyzer) Summarize(records []models.UsageRecord) Summary {
	s := Summary{
		Total:         len(records),
		Used:          countUsed(records),
		ExpiredUnused: a.countExpiredUnused(records),
	}
	s.Unused = s.Total - s.Used
	s.RedemptionRate = redemptionRate(s.Used, s.Total)

	for _, r := range records {
		if !r.Used {
			continue
		}
		t, ok := usedAt(r)
		if !ok {
			s.UsedUntimed++
			continue
		}
		if s.FirstUsedAt == nil || t.Before(*s.FirstUsedAt) {
			first := t
			s.FirstUsedAt = &first
		}
		if s.LastUsedAt == nil || t.After(*s.LastUsedAt) {
			last := t
			s.LastUsedAt = &last
		}
	}

	series := a.BuildDailySeries(records)
	s.UsageDays = len(series)
	for _, p := range series {
		if p.Count > s.BusiestCount {
			day := p.Date
			s.BusiestDay = &day
			s.BusiestCount = p.Count
		}
	}

	model, _ := a.ComputeTrendAndForecast(series, 0)
	s.Slope = model.Slope

	return s
}
