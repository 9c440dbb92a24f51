package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var listCampaign string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored redemption codes",
	Long:  `Displays stored redemption codes and their usage state from the database.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listCampaign, "campaign", "", "Filter by campaign")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	codes, err := db.ListCodes(listCampaign)
	if err != nil {
		return fmt.Errorf("listing codes: %w", err)
	}

	if len(codes) == 0 {
		fmt.Println("No codes found")
		return nil
	}

	fmt.Println("------------------------------------------------------------------------")
	fmt.Printf("%-16s  %-16s  %-5s  %-16s  %s\n", "Campaign", "Code", "Used", "Used", "Expires")
	fmt.Println("------------------------------------------------------------------------")

	used := 0
	for _, c := range codes {
		usedStr, usedAt, expires := "no", "-", "-"
		if c.Used {
			usedStr = "yes"
			used++
		}
		if c.UsedAt != nil {
			usedAt = humanize.Time(*c.UsedAt)
		}
		if c.ExpiresAt != nil {
			expires = c.ExpiresAt.Format("2006-01-02")
		}
		fmt.Printf("%-16s  %-16s  %-5s  %-16s  %s\n", c.Campaign, c.Code, usedStr, usedAt, expires)
	}

	fmt.Println("------------------------------------------------------------------------")
	fmt.Printf("Total: %s codes (%s used)\n", humanize.Comma(int64(len(codes))), humanize.Comma(int64(used)))
	return nil
}
