package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/redeemstat/internal/analyzer"
	"github.com/jgoulah/redeemstat/pkg/models"
)

var (
	analyzeCampaign string
	analyzeJSON     bool
	analyzeSave     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze redemption usage",
	Long: `Computes the redemption rate, peak weekdays, a 30-day usage projection and
insights from the stored codes. Use --save to keep the report for 'publish'.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCampaign, "campaign", "", "Analyze a single campaign (default: all codes)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the report as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Save the report for publishing")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	codes, err := db.ListCodes(analyzeCampaign)
	if err != nil {
		return fmt.Errorf("listing codes: %w", err)
	}

	a := newAnalyzer(cfg)
	report := a.Analyze(codes)
	log.Debug("analysis complete", "campaign", analyzeCampaign, "codes", len(codes))

	if analyzeSave {
		id, err := db.SaveReport(analyzeCampaign, report)
		if err != nil {
			return fmt.Errorf("saving report: %w", err)
		}
		log.Info("report saved", "report_id", id, "campaign", analyzeCampaign)
	}

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(analyzeCampaign, a.Summarize(codes), report)
	return nil
}

func printReport(campaign string, s analyzer.Summary, report models.AnalysisReport) {
	if campaign == "" {
		campaign = "all campaigns"
	}

	fmt.Printf("\nUsage report for %s\n", campaign)
	fmt.Println("----------------------------------------")
	fmt.Printf("%-26s %s\n", "Codes:", humanize.Comma(int64(s.Total)))
	fmt.Printf("%-26s %s\n", "Redeemed:", humanize.Comma(int64(s.Used)))
	if s.UsedUntimed > 0 {
		fmt.Printf("%-26s %s\n", "Redeemed (no timestamp):", humanize.Comma(int64(s.UsedUntimed)))
	}
	fmt.Printf("%-26s %s\n", "Expired unused:", humanize.Comma(int64(s.ExpiredUnused)))
	fmt.Printf("%-26s %.1f%%\n", "Redemption rate:", report.RedemptionRate)
	fmt.Printf("%-26s %d\n", "Days with redemptions:", s.UsageDays)
	if s.LastUsedAt != nil {
		fmt.Printf("%-26s %s\n", "Last redemption:", humanize.Time(*s.LastUsedAt))
	}
	if s.BusiestDay != nil {
		fmt.Printf("%-26s %s (%d)\n", "Busiest day:", s.BusiestDay.Format("2006-01-02"), s.BusiestCount)
	}
	fmt.Printf("%-26s %+.2f per day\n", "Trend:", s.Slope)
	if len(report.PeakUsageDays) > 0 {
		fmt.Printf("%-26s %s\n", "Peak weekdays:", strings.Join(report.PeakUsageDays, ", "))
	}
	fmt.Printf("%-26s %s\n", "Projected next 30 days:", humanize.Comma(int64(report.ProjectedMonthlyUsage)))
	fmt.Println("----------------------------------------")

	if len(report.Insights) > 0 {
		fmt.Println("Insights:")
		for _, insight := range report.Insights {
			fmt.Printf("  • %s\n", insight)
		}
	}
}
