package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jgoulah/redeemstat/pkg/models"
)

// timeLayouts are the timestamp formats accepted in CSV exports
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseCSV reads codes from a CSV export with a header row containing at
// least a "code" column. Recognized columns are code, campaign, used, used_at
// and expires_at; others are ignored. defaultCampaign fills empty campaigns.
func ParseCSV(r io.Reader, defaultCampaign string) ([]models.UsageRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("CSV is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["code"]; !ok {
		return nil, fmt.Errorf("CSV header has no code column")
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []models.UsageRecord
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", line, err)
		}

		rec := models.UsageRecord{
			Code:     field(row, "code"),
			Campaign: field(row, "campaign"),
		}
		if rec.Code == "" {
			continue
		}
		if rec.Campaign == "" {
			rec.Campaign = defaultCampaign
		}

		if v := field(row, "used"); v != "" {
			rec.Used, err = strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid used value %q", line, v)
			}
		}
		if rec.UsedAt, err = parseTimestamp(field(row, "used_at")); err != nil {
			return nil, fmt.Errorf("line %d: used_at: %w", line, err)
		}
		if rec.ExpiresAt, err = parseTimestamp(field(row, "expires_at")); err != nil {
			return nil, fmt.Errorf("line %d: expires_at: %w", line, err)
		}

		records = append(records, rec)
	}

	return records, nil
}

// parseTimestamp parses s in any accepted layout. Empty means no timestamp.
// Layouts without a zone are read as UTC.
func parseTimestamp(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid timestamp %q", s)
}
