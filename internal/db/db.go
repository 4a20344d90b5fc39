package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ctgov/compliance/internal/paths"
	_ "modernc.org/sqlite"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"

	// DefaultHighRiskOverdueDays is how far past its reporting due date an
	// incompliant trial must be to count as high risk.
	DefaultHighRiskOverdueDays = 90
)

// DB represents the compliance database
type DB struct {
	*sql.DB
	path string

	cache         *queryCache
	cacheObserver func(hit bool)
	now           func() time.Time
	highRiskDays  int
}

// Option configures a DB
type Option func(*DB)

// WithQueryCache enables the process-wide query cache
func WithQueryCache(size int, ttl time.Duration) Option {
	return func(db *DB) {
		db.cache = newQueryCache(size, ttl)
	}
}

// WithCacheObserver reports every cache lookup to fn
func WithCacheObserver(fn func(hit bool)) Option {
	return func(db *DB) {
		db.cacheObserver = fn
	}
}

// WithClock overrides the clock used for overdue calculations
func WithClock(now func() time.Time) Option {
	return func(db *DB) {
		db.now = now
	}
}

// WithHighRiskOverdueDays sets the high-risk threshold
func WithHighRiskOverdueDays(days int) Option {
	return func(db *DB) {
		if days > 0 {
			db.highRiskDays = days
		}
	}
}

// DefaultDBPath returns the default database path.
// Uses XDG_DATA_HOME/ctgov/ctgov.db or ~/.local/share/ctgov/ctgov.db
func DefaultDBPath() string {
	return paths.DatabasePath()
}

// Open opens or creates the database
func Open(path string, opts ...Option) (*DB, error) {
	if path == "" {
		path = DefaultDBPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	connStr := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=cache_size(-64000)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1) // SQLite works best with single connection
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := New(conn, opts...)
	db.path = path
	return db, nil
}

// New wraps an existing connection. Used by Open and by tests.
func New(conn *sql.DB, opts ...Option) *DB {
	db := &DB{
		DB:           conn,
		now:          time.Now,
		highRiskDays: DefaultHighRiskOverdueDays,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Init initializes the database schema
func (db *DB) Init() error {
	var version int
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == nil && version >= SchemaVersion {
		return nil
	}

	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := db.Exec(Views); err != nil {
		return fmt.Errorf("failed to create views: %w", err)
	}

	_, err = db.Exec("INSERT OR REPLACE INTO schema_version (version) VALUES (?)", SchemaVersion)
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return nil
}

// Backup copies the database to the specified path
func (db *DB) Backup(destPath string) error {
	if _, err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint: %w", err)
	}

	src, err := os.Open(db.path)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy: %w", err)
	}

	return nil
}

// Restore replaces the database file with a backup. The DB is closed
// afterwards and must be reopened.
func (db *DB) Restore(srcPath string) error {
	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(db.path)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy: %w", err)
	}

	return nil
}

// Stats returns database statistics
type Stats struct {
	Path             string `json:"path"`
	Size             int64  `json:"size_bytes"`
	Organizations    int    `json:"organizations"`
	Users            int    `json:"users"`
	Trials           int    `json:"trials"`
	ComplianceChecks int    `json:"compliance_checks"`
	PendingTrials    int    `json:"pending_trials"`
	Logins           int    `json:"logins"`
	LastCheck        string `json:"last_check,omitempty"`
	SchemaVersion    int    `json:"schema_version"`
}

// GetStats returns database statistics
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{Path: db.path}

	if info, err := os.Stat(db.path); err == nil {
		stats.Size = info.Size()
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM organization", &stats.Organizations},
		{"SELECT COUNT(*) FROM ctgov_user", &stats.Users},
		{"SELECT COUNT(*) FROM trial", &stats.Trials},
		{"SELECT COUNT(*) FROM trial_compliance WHERE status IS NOT NULL", &stats.ComplianceChecks},
		{"SELECT COUNT(*) FROM joined_trials WHERE compliance_status IS NULL", &stats.PendingTrials},
		{"SELECT COUNT(*) FROM login_activity", &stats.Logins},
		{"SELECT version FROM schema_version ORDER BY version DESC LIMIT 1", &stats.SchemaVersion},
	}
	for _, c := range counts {
		if err := db.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("stats %q: %w", c.query, err)
		}
	}

	var lastCheck sql.NullString
	db.QueryRow("SELECT MAX(last_checked) FROM trial_compliance").Scan(&lastCheck)
	stats.LastCheck = lastCheck.String

	return stats, nil
}

// ExportData is the JSON export document
type ExportData struct {
	ExportedAt       time.Time         `json:"exported_at"`
	SchemaVersion    int               `json:"schema_version"`
	Organizations    []Organization    `json:"organizations"`
	Users            []User            `json:"users"`
	Trials           []Trial           `json:"trials"`
	ComplianceChecks []ComplianceCheck `json:"compliance_checks"`
}

// Export exports the database to JSON
func (db *DB) Export(ctx context.Context, w io.Writer) error {
	data := ExportData{
		ExportedAt:    time.Now().UTC(),
		SchemaVersion: SchemaVersion,
	}

	rows, err := db.QueryContext(ctx, "SELECT id, name, created_at FROM organization ORDER BY id")
	if err != nil {
		return err
	}
	for rows.Next() {
		var o Organization
		var created sql.NullString
		if err := rows.Scan(&o.ID, &o.Name, &created); err != nil {
			rows.Close()
			return err
		}
		o.CreatedAt = parseTimestamp(created.String)
		data.Organizations = append(data.Organizations, o)
	}
	rows.Close()

	rows, err = db.QueryContext(ctx, "SELECT id, email, password_hash, organization_id, is_admin, created_at FROM ctgov_user ORDER BY id")
	if err != nil {
		return err
	}
	for rows.Next() {
		var u User
		var orgID sql.NullInt64
		var created sql.NullString
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &orgID, &u.IsAdmin, &created); err != nil {
			rows.Close()
			return err
		}
		u.OrganizationID = nullInt64Ptr(orgID)
		u.CreatedAt = parseTimestamp(created.String)
		data.Users = append(data.Users, u)
	}
	rows.Close()

	rows, err = db.QueryContext(ctx, `SELECT id, nct_id, title, organization_id, user_id, status,
		funding_source_class, start_date, completion_date, reporting_due_date FROM trial ORDER BY id`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var t Trial
		var orgID, userID sql.NullInt64
		var status, funding, start, completion, due sql.NullString
		if err := rows.Scan(&t.ID, &t.NCTID, &t.Title, &orgID, &userID, &status,
			&funding, &start, &completion, &due); err != nil {
			rows.Close()
			return err
		}
		t.OrganizationID = nullInt64Ptr(orgID)
		t.UserID = nullInt64Ptr(userID)
		t.Status = status.String
		t.FundingSourceClass = funding.String
		t.StartDate = start.String
		t.CompletionDate = completion.String
		t.ReportingDueDate = due.String
		data.Trials = append(data.Trials, t)
	}
	rows.Close()

	rows, err = db.QueryContext(ctx, "SELECT trial_id, status, last_checked, results_reported_date FROM trial_compliance ORDER BY trial_id")
	if err != nil {
		return err
	}
	for rows.Next() {
		var c ComplianceCheck
		var status, checked, reported sql.NullString
		if err := rows.Scan(&c.TrialID, &status, &checked, &reported); err != nil {
			rows.Close()
			return err
		}
		c.Status = nullStringPtr(status)
		c.LastChecked = checked.String
		c.ResultsReportedDate = reported.String
		data.ComplianceChecks = append(data.ComplianceChecks, c)
	}
	rows.Close()

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Import imports data from JSON
func (db *DB) Import(ctx context.Context, r io.Reader) error {
	var data ExportData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}

	defer db.purgeCache()

	return db.Transaction(ctx, func(tx *Tx) error {
		for _, o := range data.Organizations {
			_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO organization (id, name, created_at) VALUES (?, ?, ?)`,
				o.ID, o.Name, formatTimestamp(o.CreatedAt))
			if err != nil {
				return fmt.Errorf("failed to import organization: %w", err)
			}
		}

		for _, u := range data.Users {
			_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO ctgov_user
				(id, email, password_hash, organization_id, is_admin, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
				u.ID, u.Email, u.PasswordHash, u.OrganizationID, u.IsAdmin, formatTimestamp(u.CreatedAt))
			if err != nil {
				return fmt.Errorf("failed to import user: %w", err)
			}
		}

		for _, t := range data.Trials {
			_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO trial
				(id, nct_id, title, organization_id, user_id, status, funding_source_class,
				start_date, completion_date, reporting_due_date)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				t.ID, t.NCTID, t.Title, t.OrganizationID, t.UserID, nullString(t.Status),
				nullString(t.FundingSourceClass), nullString(t.StartDate),
				nullString(t.CompletionDate), nullString(t.ReportingDueDate))
			if err != nil {
				return fmt.Errorf("failed to import trial: %w", err)
			}
		}

		for _, c := range data.ComplianceChecks {
			_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO trial_compliance
				(trial_id, status, last_checked, results_reported_date) VALUES (?, ?, ?, ?)`,
				c.TrialID, c.Status, nullString(c.LastChecked), nullString(c.ResultsReportedDate))
			if err != nil {
				return fmt.Errorf("failed to import compliance check: %w", err)
			}
		}
		return nil
	})
}

// Transaction wraps a function in a database transaction
func (db *DB) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	tx := &Tx{Tx: sqlTx}
	if err := fn(tx); err != nil {
		sqlTx.Rollback()
		return err
	}

	return sqlTx.Commit()
}

// Tx wraps sql.Tx with helper methods
type Tx struct {
	*sql.Tx
}

// Vacuum optimizes the database file
func (db *DB) Vacuum() error {
	_, err := db.Exec("VACUUM")
	return err
}

// Analyze updates query planner statistics
func (db *DB) Analyze() error {
	_, err := db.Exec("ANALYZE")
	return err
}

// Optimize runs both VACUUM and ANALYZE
func (db *DB) Optimize() error {
	if err := db.Vacuum(); err != nil {
		return err
	}
	return db.Analyze()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullInt64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullIntPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func formatTimestamp(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp accepts the layouts SQLite and the driver produce.
// Unparseable input yields the zero time.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, "2006-01-02T15:04:05", dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func timePtr(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTimestamp(s.String)
	if t.IsZero() {
		return nil
	}
	return &t
}
