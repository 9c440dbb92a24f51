package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/redeemstat/internal/importer"
	"github.com/jgoulah/redeemstat/pkg/models"
)

var (
	importCSV      string
	importCampaign string
)

var importCmd = &cobra.Command{
	Use:   "import [campaign...]",
	Short: "Import redemption codes",
	Long: `Fetches redemption codes from the hosted backend and stores them in the local
SQLite database. Existing codes have their usage state refreshed.

Without arguments the campaigns listed in config.yaml are imported.
Use --csv to import an exported sheet instead.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importCSV, "csv", "", "Import from a CSV file instead of the backend")
	importCmd.Flags().StringVar(&importCampaign, "campaign", "", "Campaign for CSV rows without one")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Import started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, log, err := setup()
	if err != nil {
		return err
	}

	var records []models.UsageRecord
	if importCSV != "" {
		f, err := os.Open(importCSV)
		if err != nil {
			return fmt.Errorf("opening CSV: %w", err)
		}
		defer f.Close()

		records, err = importer.ParseCSV(f, importCampaign)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", importCSV, err)
		}
		fmt.Printf("Read %s codes from %s\n", humanize.Comma(int64(len(records))), importCSV)
	} else {
		campaigns := args
		if len(campaigns) == 0 {
			campaigns = cfg.Campaigns
		}
		if len(campaigns) == 0 {
			return fmt.Errorf("no campaigns given. Pass campaign names or list them under 'campaigns' in config.yaml")
		}

		client, err := importer.NewClient(cfg.Backend, log)
		if err != nil {
			return fmt.Errorf("creating backend client: %w", err)
		}

		fmt.Printf("Fetching %d campaign(s) from %s...\n", len(campaigns), cfg.Backend.URL)
		records, err = client.FetchCampaigns(context.Background(), campaigns)
		if err != nil {
			var authErr *importer.AuthError
			if errors.As(err, &authErr) {
				return fmt.Errorf("%w (hint: check backend.api_key in config.yaml)", err)
			}
			return err
		}
	}

	if len(records) == 0 {
		fmt.Println("No codes found")
		return nil
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	created, updated := 0, 0
	for i := range records {
		isNew, err := db.UpsertCode(&records[i])
		if err != nil {
			return fmt.Errorf("storing code: %w", err)
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}

	log.Info("import finished", "codes", len(records), "created", created, "updated", updated)
	fmt.Printf("✓ Stored %s codes (%s new, %s updated)\n",
		humanize.Comma(int64(len(records))), humanize.Comma(int64(created)), humanize.Comma(int64(updated)))
	return nil
}
