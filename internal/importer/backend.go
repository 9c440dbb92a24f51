package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jgoulah/redeemstat/internal/config"
	"github.com/jgoulah/redeemstat/pkg/models"
)

// selectColumns is the column list requested from the backend
const selectColumns = "code,campaign,used,used_at,expires_at"

// pageSize is the number of rows requested per page
const pageSize = 1000

// AuthError represents an authentication failure
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return e.Message
}

// Client reads redemption codes from the hosted backend's REST row API
type Client struct {
	cfg    config.BackendConfig
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a backend client
func NewClient(cfg config.BackendConfig, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("backend api_key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}, nil
}

// codeRow matches the backend's JSON row shape
type codeRow struct {
	Code      string     `json:"code"`
	Campaign  string     `json:"campaign"`
	Used      bool    `json:"used"`
	UsedAt    *string `json:"used_at"`
	ExpiresAt *string `json:"expires_at"`
}

// record converts the row, parsing timestamps the same way CSV imports do so
// zone-less columns are read as UTC.
func (r codeRow) record(campaign string) (models.UsageRecord, error) {
	rec := models.UsageRecord{
		Code:     r.Code,
		Campaign: r.Campaign,
		Used:     r.Used,
	}
	if rec.Campaign == "" {
		rec.Campaign = campaign
	}

	var err error
	if r.UsedAt != nil {
		if rec.UsedAt, err = parseTimestamp(*r.UsedAt); err != nil {
			return rec, fmt.Errorf("code %s: used_at: %w", r.Code, err)
		}
	}
	if r.ExpiresAt != nil {
		if rec.ExpiresAt, err = parseTimestamp(*r.ExpiresAt); err != nil {
			return rec, fmt.Errorf("code %s: expires_at: %w", r.Code, err)
		}
	}
	return rec, nil
}

// FetchCampaign fetches every code of one campaign, following pagination.
// The backend may cap rows per response below pageSize, so the offset
// advances by the rows actually returned and only an empty page ends the
// loop.
func (c *Client) FetchCampaign(ctx context.Context, campaign string) ([]models.UsageRecord, error) {
	var records []models.UsageRecord
	offset := 0
	for {
		rows, err := c.fetchPage(ctx, campaign, offset)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			rec, err := row.record(campaign)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		offset += len(rows)
	}

	c.logger.Debug("fetched campaign", "campaign", campaign, "codes", len(records))
	return records, nil
}

// FetchCampaigns fetches several campaigns concurrently. Results keep the
// order of campaigns; the first failure cancels the rest.
func (c *Client) FetchCampaigns(ctx context.Context, campaigns []string) ([]models.UsageRecord, error) {
	results := make([][]models.UsageRecord, len(campaigns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, campaign := range campaigns {
		i, campaign := i, campaign
		g.Go(func() error {
			recs, err := c.FetchCampaign(gctx, campaign)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", campaign, err)
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []models.UsageRecord
	for _, recs := range results {
		out = append(out, recs...)
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, campaign string, offset int) ([]codeRow, error) {
	params := url.Values{}
	params.Set("select", selectColumns)
	if campaign != "" {
		params.Set("campaign", "eq."+campaign)
	}
	params.Set("order", "code.asc")
	params.Set("limit", fmt.Sprintf("%d", pageSize))
	params.Set("offset", fmt.Sprintf("%d", offset))

	reqURL := fmt.Sprintf("%s/rest/v1/%s?%s", strings.TrimRight(c.cfg.URL, "/"), c.cfg.GetTable(), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if c.cfg.Schema != "" {
		req.Header.Set("Accept-Profile", c.cfg.Schema)
	}

	c.logger.Debug("backend request", "url", reqURL)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		body, _ := io.ReadAll(resp.Body)
		return nil, &AuthError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("authentication failed (status %d): %s", resp.StatusCode, string(body)),
		}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var rows []codeRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return rows, nil
}
