package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/redeemstat/internal/publisher"
)

var (
	publishAll   bool
	publishLimit int
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish saved reports",
	Long:  `Publishes reports saved with 'analyze --save' to MQTT and/or Home Assistant.`,
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().BoolVar(&publishAll, "all", false, "Force republish all reports (ignore published flag)")
	publishCmd.Flags().IntVar(&publishLimit, "limit", 0, "Limit number of reports to publish (0 = no limit)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, log, err := setup()
	if err != nil {
		return err
	}

	pub, err := publisher.New(cfg.MQTT, cfg.HomeAssistant, log)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	reports, err := db.ListReports(!publishAll)
	if err != nil {
		return fmt.Errorf("listing reports: %w", err)
	}

	if len(reports) == 0 {
		fmt.Println("No reports to publish (run 'redeemstat analyze --save' first)")
		return nil
	}

	if publishLimit > 0 && len(reports) > publishLimit {
		reports = reports[:publishLimit]
		fmt.Printf("Limiting to %d reports (--limit flag)\n", publishLimit)
	}

	published := 0
	for i, rep := range reports {
		campaign := rep.Campaign
		if campaign == "" {
			campaign = "all campaigns"
		}
		fmt.Printf("[%d/%d] Publishing %s report from %s... ", i+1, len(reports), campaign, rep.GeneratedAt.Format("2006-01-02 15:04"))
		if err := pub.Publish(rep); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			log.Warn("publish failed", "report_id", rep.ID, "error", err)
			continue
		}

		if err := db.MarkReportPublished(rep.ID); err != nil {
			fmt.Printf("✓ (warning: failed to mark as published: %v)\n", err)
		} else {
			fmt.Printf("✓\n")
		}
		published++
	}

	fmt.Printf("\nTotal reports published: %d/%d\n", published, len(reports))
	return nil
}
