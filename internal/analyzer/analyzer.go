// Package analyzer turns raw redemption-code records into a usage report:
// redemption rate, busiest weekdays, a 30-day projection and a list of
// human-readable insights.
//
// All work is in memory and side-effect free. The only input besides the
// records is the clock used to decide whether a code has expired, which can be
// fixed with WithClock for reproducible results.
package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jgoulah/redeemstat/internal/forecast"
	"github.com/jgoulah/redeemstat/pkg/models"
)

const (
	// monthDays is the horizon used for ProjectedMonthlyUsage.
	monthDays = 30

	// NotEnoughDataInsight is the only insight of a report built from too few records.
	NotEnoughDataInsight = "Not enough data for meaningful analysis"
)

// Analyzer computes usage reports. The zero value is not usable; call New.
type Analyzer struct {
	thresholds Thresholds
	now        func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithThresholds replaces the default insight thresholds.
func WithThresholds(t Thresholds) Option {
	return func(a *Analyzer) {
		a.thresholds = t
	}
}

// WithClock sets the clock used for expiration checks and forecast anchoring.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an Analyzer with default thresholds and the system clock.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		thresholds: DefaultThresholds(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Thresholds returns the thresholds in effect.
func (a *Analyzer) Thresholds() Thresholds {
	return a.thresholds
}

// usedAt reports the usage time of r if it can be placed on the time axis.
func usedAt(r models.UsageRecord) (time.Time, bool) {
	if !r.Used || r.UsedAt == nil {
		return time.Time{}, false
	}

	return r.UsedAt.UTC(), true
}

// dayKey truncates t to midnight UTC.
func dayKey(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// BuildDailySeries counts redemptions per UTC calendar day, ascending by date.
// Only days with at least one redemption appear. Records marked used without a
// usage time are skipped.
func (a *Analyzer) BuildDailySeries(records []models.UsageRecord) []models.DailyUsagePoint {
	counts := make(map[time.Time]int)
	for _, r := range records {
		t, ok := usedAt(r)
		if !ok {
			continue
		}
		counts[dayKey(t)]++
	}

	series := make([]models.DailyUsagePoint, 0, len(counts))
	for day, c := range counts {
		series = append(series, models.DailyUsagePoint{Date: day, Count: c})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})

	return series
}

// ComputeTrendAndForecast fits a line to series and projects horizonDays steps.
//
// The regression axis is the position in the series, so days without usage do
// not advance it. Forecast dates, however, step one calendar day at a time from
// the last observed date. The two axes only agree when the series has no gaps.
// An empty series anchors forecast dates at the current UTC day.
func (a *Analyzer) ComputeTrendAndForecast(series []models.DailyUsagePoint, horizonDays int) (forecast.Model, []models.DailyForecast) {
	points := make([]forecast.Point, len(series))
	for i, p := range series {
		points[i] = forecast.Point{X: float64(i), Y: float64(p.Count)}
	}

	model := forecast.Fit(points)
	projections := forecast.Extrapolate(model, len(series), horizonDays)

	anchor := dayKey(a.now())
	if len(series) > 0 {
		anchor = series[len(series)-1].Date
	}

	out := make([]models.DailyForecast, len(projections))
	for i, p := range projections {
		out[i] = models.DailyForecast{
			Index:          p.Index,
			Date:           anchor.AddDate(0, 0, i+1),
			ProjectedCount: p.Count,
		}
	}

	return model, out
}

// ComputePeakUsageDays returns every weekday tied for the most redemptions,
// in Sunday-first order. Each redemption counts once; there is no per-date
// deduplication. No redemptions yields an empty slice.
func (a *Analyzer) ComputePeakUsageDays(records []models.UsageRecord) []string {
	var buckets [7]int
	for _, r := range records {
		t, ok := usedAt(r)
		if !ok {
			continue
		}
		buckets[t.Weekday()]++
	}

	peak := 0
	for _, c := range buckets {
		peak = max(peak, c)
	}

	days := []string{}
	if peak == 0 {
		return days
	}
	for wd, c := range buckets {
		if c == peak {
			days = append(days, time.Weekday(wd).String())
		}
	}

	return days
}

// Analyze builds the full report for records.
//
// Inputs smaller than Thresholds.MinRecords get a fixed placeholder report.
func (a *Analyzer) Analyze(records []models.UsageRecord) models.AnalysisReport {
	if len(records) < a.thresholds.MinRecords {
		return models.AnalysisReport{
			Insights:              []string{NotEnoughDataInsight},
			PeakUsageDays:         []string{},
			RedemptionRate:        0,
			ProjectedMonthlyUsage: 0,
		}
	}

	total := len(records)
	used := countUsed(records)
	rate := redemptionRate(used, total)
	peakDays := a.ComputePeakUsageDays(records)

	series := a.BuildDailySeries(records)
	model, _ := a.ComputeTrendAndForecast(series, monthDays)

	dayRate := model.Slope
	if dayRate <= 0 {
		dayRate = float64(used) / float64(max(monthDays, len(series)))
	}

	return models.AnalysisReport{
		Insights:              a.insights(peakDays, rate, model.Slope, a.countExpiredUnused(records), total),
		PeakUsageDays:         peakDays,
		RedemptionRate:        rate,
		ProjectedMonthlyUsage: forecast.RoundHalfUp(dayRate * monthDays),
	}
}

// Forecast returns a dated projection of daily redemptions for the next days.
func (a *Analyzer) Forecast(records []models.UsageRecord, days int) []models.DailyForecast {
	_, out := a.ComputeTrendAndForecast(a.BuildDailySeries(records), days)
	return out
}

func (a *Analyzer) insights(peakDays []string, rate, slope float64, expired, total int) []string {
	t := a.thresholds
	out := []string{}

	if len(peakDays) > 0 {
		out = append(out, fmt.Sprintf("Peak usage occurs on %s. Schedule announcements ahead of these days.",
			strings.Join(peakDays, ", ")))
	}

	switch {
	case rate < t.LowRedemptionPct:
		out = append(out, fmt.Sprintf("Low redemption rate (%.1f%%). Consider sending reminders to code holders.", rate))
	case rate > t.HighRedemptionPct:
		out = append(out, fmt.Sprintf("High engagement: %.1f%% of codes have been redeemed.", rate))
	}

	switch {
	case slope > t.RapidGrowthSlope:
		out = append(out, "Usage is growing rapidly. Consider issuing more codes to meet demand.")
	case slope < t.DeclineSlope:
		out = append(out, "Usage is declining. Consider a promotional push to re-engage code holders.")
	}

	if float64(expired)*100 > t.ExpiredWastePct*float64(total) {
		out = append(out, fmt.Sprintf("%d unused codes have expired (%.1f%% of all codes). Consider shorter expiry windows or reminders before expiry.",
			expired, redemptionRate(expired, total)))
	}

	return out
}

func (a *Analyzer) countExpiredUnused(records []models.UsageRecord) int {
	now := a.now()
	n := 0
	for _, r := range records {
		if !r.Used && r.ExpiresAt != nil && r.ExpiresAt.Before(now) {
			n++
		}
	}

	return n
}

func countUsed(records []models.UsageRecord) int {
	n := 0
	for _, r := range records {
		if r.Used {
			n++
		}
	}

	return n
}

// redemptionRate is part/total as a percentage. The multiplication happens
// first so that exact ratios such as 3/10 come out as exactly 30.
func redemptionRate(part, total int) float64 {
	if total == 0 {
		return 0
	}

	return float64(part) * 100 / float64(total)
}
