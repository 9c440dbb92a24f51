package analyzer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jgoulah/redeemstat/pkg/models"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestAnalyzer(opts ...Option) *Analyzer {
	return New(append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func usedOn(t time.Time) models.UsageRecord {
	return models.UsageRecord{Used: true, UsedAt: &t}
}

func usedUntimed() models.UsageRecord {
	return models.UsageRecord{Used: true}
}

func unused() models.UsageRecord {
	return models.UsageRecord{}
}

func expiredUnused() models.UsageRecord {
	exp := fixedNow.Add(-24 * time.Hour)
	return models.UsageRecord{ExpiresAt: &exp}
}

func repeat(r models.UsageRecord, n int) []models.UsageRecord {
	out := make([]models.UsageRecord, n)
	for i := range out {
		out[i] = r
	}

	return out
}

func hasInsight(report models.AnalysisReport, prefix string) bool {
	for _, s := range report.Insights {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}

	return false
}

func TestBuildDailySeries(t *testing.T) {
	a := newTestAnalyzer()

	t.Run("empty input", func(t *testing.T) {
		require.Empty(t, a.BuildDailySeries(nil))
	})

	t.Run("groups by UTC date and sorts ascending", func(t *testing.T) {
		plus5 := time.FixedZone("UTC+5", 5*60*60)
		records := []models.UsageRecord{
			usedOn(day(2024, 1, 3, 9)),
			usedOn(day(2024, 1, 1, 8)),
			usedOn(day(2024, 1, 3, 23)),
			// 02:00 local on Jan 2 is still Jan 1 in UTC.
			usedOn(time.Date(2024, 1, 2, 2, 0, 0, 0, plus5)),
			usedUntimed(),
			unused(),
		}

		got := a.BuildDailySeries(records)
		require.Equal(t, []models.DailyUsagePoint{
			{Date: day(2024, 1, 1, 0), Count: 2},
			{Date: day(2024, 1, 3, 0), Count: 2},
		}, got)
	})

	t.Run("unused records with a usage time are ignored", func(t *testing.T) {
		ts := day(2024, 1, 1, 10)
		got := a.BuildDailySeries([]models.UsageRecord{{Used: false, UsedAt: &ts}})
		require.Empty(t, got)
	})
}

func TestComputeTrendAndForecast(t *testing.T) {
	a := newTestAnalyzer()

	t.Run("gaps compress the regression axis but not the labels", func(t *testing.T) {
		series := []models.DailyUsagePoint{
			{Date: day(2024, 1, 1, 0), Count: 1},
			{Date: day(2024, 1, 10, 0), Count: 2},
		}

		model, got := a.ComputeTrendAndForecast(series, 3)
		require.InDelta(t, 1.0, model.Slope, 1e-9)
		require.InDelta(t, 1.0, model.Intercept, 1e-9)
		require.Equal(t, []models.DailyForecast{
			{Index: 2, Date: day(2024, 1, 11, 0), ProjectedCount: 3},
			{Index: 3, Date: day(2024, 1, 12, 0), ProjectedCount: 4},
			{Index: 4, Date: day(2024, 1, 13, 0), ProjectedCount: 5},
		}, got)
	})

	t.Run("empty series anchors at today", func(t *testing.T) {
		model, got := a.ComputeTrendAndForecast(nil, 2)
		require.Zero(t, model.Slope)
		require.Zero(t, model.Intercept)
		require.Equal(t, []models.DailyForecast{
			{Index: 0, Date: day(2024, 3, 2, 0), ProjectedCount: 0},
			{Index: 1, Date: day(2024, 3, 3, 0), ProjectedCount: 0},
		}, got)
	})

	t.Run("declining series clamps at zero", func(t *testing.T) {
		series := []models.DailyUsagePoint{
			{Date: day(2024, 1, 1, 0), Count: 6},
			{Date: day(2024, 1, 2, 0), Count: 3},
		}

		_, got := a.ComputeTrendAndForecast(series, 4)
		require.Len(t, got, 4)
		for _, f := range got {
			require.GreaterOrEqual(t, f.ProjectedCount, 0)
		}
		require.Equal(t, 0, got[0].ProjectedCount)
	})
}

func TestComputePeakUsageDays(t *testing.T) {
	a := newTestAnalyzer()

	t.Run("ties are all returned in weekday order", func(t *testing.T) {
		// 2024-01-01 is a Monday.
		records := []models.UsageRecord{
			usedOn(day(2024, 1, 3, 10)), // Wednesday
			usedOn(day(2024, 1, 1, 10)), // Monday
			usedOn(day(2024, 1, 8, 10)), // Monday
			usedOn(day(2024, 1, 10, 9)), // Wednesday
			usedOn(day(2024, 1, 15, 9)), // Monday
			usedOn(day(2024, 1, 17, 9)), // Wednesday
			usedOn(day(2024, 1, 5, 9)),  // Friday
		}

		require.Equal(t, []string{"Monday", "Wednesday"}, a.ComputePeakUsageDays(records))
	})

	t.Run("every event counts, even on the same date", func(t *testing.T) {
		records := []models.UsageRecord{
			usedOn(day(2024, 1, 6, 9)), // Saturday
			usedOn(day(2024, 1, 6, 10)),
			usedOn(day(2024, 1, 7, 10)), // Sunday
		}

		require.Equal(t, []string{"Saturday"}, a.ComputePeakUsageDays(records))
	})

	t.Run("no usage returns empty", func(t *testing.T) {
		got := a.ComputePeakUsageDays([]models.UsageRecord{unused(), usedUntimed()})
		require.NotNil(t, got)
		require.Empty(t, got)
	})
}

func TestAnalyze_NotEnoughData(t *testing.T) {
	a := newTestAnalyzer()
	want := models.AnalysisReport{
		Insights:              []string{NotEnoughDataInsight},
		PeakUsageDays:         []string{},
		RedemptionRate:        0,
		ProjectedMonthlyUsage: 0,
	}

	inputs := map[string][]models.UsageRecord{
		"empty":      nil,
		"all used":   repeat(usedOn(day(2024, 1, 1, 9)), 4),
		"all unused": repeat(unused(), 4),
		"mixed":      {usedOn(day(2024, 1, 1, 9)), usedUntimed(), unused(), expiredUnused()},
	}

	for name, records := range inputs {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, want, a.Analyze(records))
		})
	}
}

func TestAnalyze_RedemptionRate(t *testing.T) {
	a := newTestAnalyzer()

	records := append(repeat(unused(), 7),
		usedOn(day(2024, 1, 1, 9)),
		usedOn(day(2024, 1, 2, 9)),
		usedOn(day(2024, 1, 3, 9)),
	)

	report := a.Analyze(records)
	require.Equal(t, 30.0, report.RedemptionRate)
	require.False(t, hasInsight(report, "Low redemption rate"))
	require.False(t, hasInsight(report, "High engagement"))
}

func TestAnalyze_UntimedUsageCountsTowardRate(t *testing.T) {
	a := newTestAnalyzer()

	records := append(repeat(usedUntimed(), 4), unused())
	report := a.Analyze(records)

	require.Equal(t, 80.0, report.RedemptionRate)
	require.Empty(t, report.PeakUsageDays)
	// No series, so the fallback rate is 4 / 30 per day.
	require.Equal(t, 4, report.ProjectedMonthlyUsage)
}

func TestAnalyze_GrowthAndHighEngagement(t *testing.T) {
	a := newTestAnalyzer()

	// Daily counts 1, 2, 3 fit a slope of exactly 1.0.
	records := []models.UsageRecord{
		usedOn(day(2024, 1, 1, 9)),
		usedOn(day(2024, 1, 2, 9)),
		usedOn(day(2024, 1, 2, 10)),
		usedOn(day(2024, 1, 3, 9)),
		usedOn(day(2024, 1, 3, 10)),
		usedOn(day(2024, 1, 3, 11)),
		usedUntimed(),
		usedUntimed(),
		unused(),
		unused(),
	}

	report := a.Analyze(records)
	require.Equal(t, models.AnalysisReport{
		Insights: []string{
			"Peak usage occurs on Wednesday. Schedule announcements ahead of these days.",
			"High engagement: 80.0% of codes have been redeemed.",
			"Usage is growing rapidly. Consider issuing more codes to meet demand.",
		},
		PeakUsageDays:         []string{"Wednesday"},
		RedemptionRate:        80,
		ProjectedMonthlyUsage: 30,
	}, report)
}

func TestAnalyze_DeclineAndLowEngagement(t *testing.T) {
	a := newTestAnalyzer()

	// Daily counts 5, 4, 3, 2, 1 fit a slope of -1.
	var records []models.UsageRecord
	for i := 0; i < 5; i++ {
		records = append(records, repeat(usedOn(day(2024, 1, 1+i, 9)), 5-i)...)
	}
	records = append(records, repeat(unused(), 45)...)

	report := a.Analyze(records)
	require.Equal(t, 25.0, report.RedemptionRate)
	require.True(t, hasInsight(report, "Low redemption rate (25.0%)"))
	require.True(t, hasInsight(report, "Usage is declining"))
	require.False(t, hasInsight(report, "Usage is growing rapidly"))
	// Fallback: 15 used / max(30, 5 days) = 0.5 per day.
	require.Equal(t, 15, report.ProjectedMonthlyUsage)
}

func TestAnalyze_FlatTrendHasNoTrendInsight(t *testing.T) {
	a := newTestAnalyzer()

	var records []models.UsageRecord
	for i := 0; i < 6; i++ {
		records = append(records, usedOn(day(2024, 2, 1+i, 12)))
	}

	report := a.Analyze(records)
	require.False(t, hasInsight(report, "Usage is growing rapidly"))
	require.False(t, hasInsight(report, "Usage is declining"))
	require.Equal(t, 100.0, report.RedemptionRate)
	// 6 used / 30 days * 30
	require.Equal(t, 6, report.ProjectedMonthlyUsage)
}

func TestAnalyze_ExpirationWaste(t *testing.T) {
	a := newTestAnalyzer()
	const wastePrefix = "21 unused codes have expired"

	build := func(expired int) []models.UsageRecord {
		var records []models.UsageRecord
		records = append(records, repeat(expiredUnused(), expired)...)
		for i := 0; i < 100-expired; i++ {
			records = append(records, usedOn(day(2024, 1, 1+i%28, 9)))
		}

		return records
	}

	t.Run("21 percent triggers", func(t *testing.T) {
		report := a.Analyze(build(21))
		require.True(t, hasInsight(report, wastePrefix), "insights: %v", report.Insights)
	})

	t.Run("exactly 20 percent does not trigger", func(t *testing.T) {
		report := a.Analyze(build(20))
		require.False(t, hasInsight(report, "20 unused codes have expired"), "insights: %v", report.Insights)
	})

	t.Run("future expiry and used codes are not waste", func(t *testing.T) {
		future := fixedNow.Add(24 * time.Hour)
		past := fixedNow.Add(-time.Hour)
		usedAt := day(2024, 1, 1, 9)

		var records []models.UsageRecord
		records = append(records, repeat(models.UsageRecord{ExpiresAt: &future}, 5)...)
		records = append(records, repeat(models.UsageRecord{Used: true, UsedAt: &usedAt, ExpiresAt: &past}, 5)...)

		report := a.Analyze(records)
		for _, s := range report.Insights {
			require.NotContains(t, s, "unused codes have expired")
		}
	})
}

func TestAnalyze_Idempotent(t *testing.T) {
	a := newTestAnalyzer()

	records := []models.UsageRecord{
		usedOn(day(2024, 1, 1, 9)),
		usedOn(day(2024, 1, 3, 9)),
		usedOn(day(2024, 1, 3, 15)),
		usedUntimed(),
		expiredUnused(),
		unused(),
	}
	snapshot := append([]models.UsageRecord(nil), records...)

	first := a.Analyze(records)
	second := a.Analyze(records)
	require.Equal(t, first, second)
	require.Equal(t, snapshot, records)
}

func TestAnalyze_CustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.MinRecords = 2
	th.HighRedemptionPct = 40
	a := newTestAnalyzer(WithThresholds(th))

	records := []models.UsageRecord{
		usedOn(day(2024, 1, 1, 9)),
		unused(),
	}

	report := a.Analyze(records)
	require.Equal(t, 50.0, report.RedemptionRate)
	require.True(t, hasInsight(report, "High engagement: 50.0%"))
	require.Equal(t, th, a.Thresholds())
}

func TestForecast(t *testing.T) {
	a := newTestAnalyzer()

	records := []models.UsageRecord{
		usedOn(day(2024, 1, 1, 9)),
		usedOn(day(2024, 1, 2, 9)),
		usedOn(day(2024, 1, 2, 10)),
	}

	got := a.Forecast(records, 7)
	require.Len(t, got, 7)
	require.Equal(t, day(2024, 1, 3, 0), got[0].Date)
	require.Equal(t, 3, got[0].ProjectedCount)
	require.Equal(t, day(2024, 1, 9, 0), got[6].Date)
	require.Equal(t, 9, got[6].ProjectedCount)
}
