package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jgoulah/redeemstat/pkg/models"
)

// timeLayout is fixed width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS redemption_codes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL,
		campaign TEXT NOT NULL DEFAULT '',
		used INTEGER NOT NULL DEFAULT 0,
		used_at TEXT,
		expires_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(code, campaign)
	);
	CREATE INDEX IF NOT EXISTS idx_codes_campaign ON redemption_codes(campaign);
	CREATE INDEX IF NOT EXISTS idx_codes_used_at ON redemption_codes(used_at);

	CREATE TABLE IF NOT EXISTS analysis_reports (
		id TEXT PRIMARY KEY,
		campaign TEXT NOT NULL DEFAULT '',
		generated_at TEXT NOT NULL,
		report_json TEXT NOT NULL,
		published INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_reports_published ON analysis_reports(published);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// UpsertCode inserts a code or refreshes the usage state of an existing one.
// It reports whether a new row was created.
func (db *DB) UpsertCode(rec *models.UsageRecord) (bool, error) {
	var exists int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM redemption_codes WHERE code = ? AND campaign = ?`,
		rec.Code, rec.Campaign).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking code %s: %w", rec.Code, err)
	}

	query := `
	INSERT INTO redemption_codes (code, campaign, used, used_at, expires_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(code, campaign) DO UPDATE SET
		used = excluded.used,
		used_at = excluded.used_at,
		expires_at = excluded.expires_at,
		updated_at = excluded.updated_at
	`

	now := db.now().UTC().Format(timeLayout)
	_, err = db.conn.Exec(query, rec.Code, rec.Campaign, boolToInt(rec.Used),
		formatTime(rec.UsedAt), formatTime(rec.ExpiresAt), now, now)
	if err != nil {
		return false, fmt.Errorf("upserting code %s: %w", rec.Code, err)
	}

	return exists == 0, nil
}

// ListCodes retrieves all codes for a campaign, or every code when campaign is empty
func (db *DB) ListCodes(campaign string) ([]models.UsageRecord, error) {
	query := `
	SELECT id, code, campaign, used, used_at, expires_at
	FROM redemption_codes
	WHERE (? = '' OR campaign = ?)
	ORDER BY campaign, code
	`

	rows, err := db.conn.Query(query, campaign, campaign)
	if err != nil {
		return nil, fmt.Errorf("querying codes: %w", err)
	}
	defer rows.Close()

	var results []models.UsageRecord
	for rows.Next() {
		var rec models.UsageRecord
		var used int
		var usedAt, expiresAt sql.NullString

		if err := rows.Scan(&rec.ID, &rec.Code, &rec.Campaign, &used, &usedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		rec.Used = used != 0

		if rec.UsedAt, err = parseTime(usedAt); err != nil {
			return nil, fmt.Errorf("parsing used_at: %w", err)
		}
		if rec.ExpiresAt, err = parseTime(expiresAt); err != nil {
			return nil, fmt.Errorf("parsing expires_at: %w", err)
		}

		results = append(results, rec)
	}

	return results, rows.Err()
}

// ListCampaigns returns the distinct campaigns that have codes stored
func (db *DB) ListCampaigns() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT campaign FROM redemption_codes ORDER BY campaign`)
	if err != nil {
		return nil, fmt.Errorf("querying campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		campaigns = append(campaigns, c)
	}

	return campaigns, rows.Err()
}

// SaveReport stores a report for later publishing and returns its ID
func (db *DB) SaveReport(campaign string, report models.AnalysisReport) (string, error) {
	body, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}

	id := uuid.NewString()
	_, err = db.conn.Exec(`INSERT INTO analysis_reports (id, campaign, generated_at, report_json) VALUES (?, ?, ?, ?)`,
		id, campaign, db.now().UTC().Format(timeLayout), string(body))
	if err != nil {
		return "", fmt.Errorf("inserting report: %w", err)
	}

	return id, nil
}

// GetReport retrieves a saved report by ID
func (db *DB) GetReport(id string) (*models.StoredReport, error) {
	row := db.conn.QueryRow(`SELECT id, campaign, generated_at, report_json, published FROM analysis_reports WHERE id = ?`, id)

	rep, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	return rep, nil
}

// ListReports retrieves saved reports, oldest first. With unpublishedOnly set
// only reports that have not been published are returned.
func (db *DB) ListReports(unpublishedOnly bool) ([]models.StoredReport, error) {
	query := `
	SELECT id, campaign, generated_at, report_json, published
	FROM analysis_reports
	WHERE (? = 0 OR published = 0)
	ORDER BY generated_at, rowid
	`

	rows, err := db.conn.Query(query, boolToInt(unpublishedOnly))
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var results []models.StoredReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *rep)
	}

	return results, rows.Err()
}

// MarkReportPublished marks a report as published
func (db *DB) MarkReportPublished(id string) error {
	res, err := db.conn.Exec(`UPDATE analysis_reports SET published = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking report as published: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking report as published: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*models.StoredReport, error) {
	var rep models.StoredReport
	var generatedAt, body string
	var published int

	if err := s.Scan(&rep.ID, &rep.Campaign, &generatedAt, &body, &published); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning report: %w", err)
	}

	t, err := time.Parse(timeLayout, generatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing generated_at: %w", err)
	}
	rep.GeneratedAt = t
	rep.Published = published != 0

	if err := json.Unmarshal([]byte(body), &rep.Report); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", rep.ID, err)
	}

	return &rep, nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
