package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	forecastCampaign string
	forecastDays     int
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast daily redemptions",
	Long: `Fits a linear trend to the daily redemption counts and projects it forward.

The trend is fitted over days that had redemptions only, while forecast dates
count calendar days from the last redemption. With gaps in usage the projected
dates are therefore closer together than the fitted steps.`,
	RunE: runForecast,
}

func init() {
	forecastCmd.Flags().StringVar(&forecastCampaign, "campaign", "", "Forecast a single campaign (default: all codes)")
	forecastCmd.Flags().IntVar(&forecastDays, "days", 0, "Days to forecast (default: forecast_days from config, or 7)")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	days := forecastDays
	if days <= 0 {
		days = cfg.GetForecastDays()
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	codes, err := db.ListCodes(forecastCampaign)
	if err != nil {
		return fmt.Errorf("listing codes: %w", err)
	}

	a := newAnalyzer(cfg)
	summary := a.Summarize(codes)
	projections := a.Forecast(codes, days)

	if summary.LastUsedAt != nil {
		fmt.Printf("Based on %d days with redemptions (last: %s)\n",
			summary.UsageDays, summary.LastUsedAt.UTC().Format("2006-01-02"))
	} else {
		fmt.Println("No redemptions recorded yet")
	}
	fmt.Printf("Trend: %+.2f per day\n\n", summary.Slope)

	fmt.Println("----------------------------------------")
	fmt.Printf("%-12s  %-10s  %10s\n", "Date", "Weekday", "Projected")
	fmt.Println("----------------------------------------")

	total := 0
	for _, p := range projections {
		fmt.Printf("%-12s  %-10s  %10d\n", p.Date.Format("2006-01-02"), p.Date.Weekday(), p.ProjectedCount)
		total += p.ProjectedCount
	}

	fmt.Println("----------------------------------------")
	fmt.Printf("Total: %d redemptions over %d days\n", total, days)
	return nil
}
