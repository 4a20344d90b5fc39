package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidResetToken = errors.New("invalid or expired password reset token")
)

// GetOrCreateOrg gets or creates an organization
func (db *DB) GetOrCreateOrg(ctx context.Context, name string) (*Organization, error) {
	var org Organization
	var created sql.NullString

	err := db.QueryRowContext(ctx, "SELECT id, name, created_at FROM organization WHERE name = ?", name).
		Scan(&org.ID, &org.Name, &created)

	if err == sql.ErrNoRows {
		result, err := db.ExecContext(ctx, "INSERT INTO organization (name) VALUES (?)", name)
		if err != nil {
			return nil, err
		}
		db.purgeCache()
		org.ID, _ = result.LastInsertId()
		org.Name = name
		org.CreatedAt = db.now().UTC()
	} else if err != nil {
		return nil, err
	} else {
		org.CreatedAt = parseTimestamp(created.String)
	}

	return &org, nil
}

// GetOrCreateUser gets or creates a user by email
func (db *DB) GetOrCreateUser(ctx context.Context, email, passwordHash string, orgID *int64) (*User, error) {
	user, err := db.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	result, err := db.ExecContext(ctx, "INSERT INTO ctgov_user (email, password_hash, organization_id) VALUES (?, ?, ?)",
		email, passwordHash, orgID)
	if err != nil {
		return nil, err
	}
	db.purgeCache()

	id, _ := result.LastInsertId()
	return &User{
		ID:             id,
		Email:          email,
		PasswordHash:   passwordHash,
		OrganizationID: orgID,
		CreatedAt:      db.now().UTC(),
	}, nil
}

// GetUser returns a user by id
func (db *DB) GetUser(ctx context.Context, id int64) (*User, error) {
	return db.getUser(ctx, "id = ?", id)
}

// GetUserByEmail returns a user by email
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return db.getUser(ctx, "email = ?", email)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*User, error) {
	var u User
	var orgID sql.NullInt64
	var created sql.NullString

	err := db.QueryRowContext(ctx, `SELECT id, email, password_hash, organization_id, is_admin, created_at
		FROM ctgov_user WHERE `+where, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &orgID, &u.IsAdmin, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	u.OrganizationID = nullInt64Ptr(orgID)
	u.CreatedAt = parseTimestamp(created.String)
	return &u, nil
}

// UpsertTrial inserts or updates a trial keyed by its NCT id
func (db *DB) UpsertTrial(ctx context.Context, trial *Trial) error {
	_, err := db.ExecContext(ctx, `INSERT INTO trial
		(nct_id, title, organization_id, user_id, status, funding_source_class,
		start_date, completion_date, reporting_due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(nct_id) DO UPDATE SET
		title = excluded.title, organization_id = excluded.organization_id, user_id = excluded.user_id,
		status = excluded.status, funding_source_class = excluded.funding_source_class,
		start_date = excluded.start_date, completion_date = excluded.completion_date,
		reporting_due_date = excluded.reporting_due_date, updated_at = CURRENT_TIMESTAMP`,
		trial.NCTID, trial.Title, trial.OrganizationID, trial.UserID, nullString(trial.Status),
		nullString(trial.FundingSourceClass), nullString(trial.StartDate),
		nullString(trial.CompletionDate), nullString(trial.ReportingDueDate))
	if err != nil {
		return err
	}
	db.purgeCache()

	return db.QueryRowContext(ctx, "SELECT id FROM trial WHERE nct_id = ?", trial.NCTID).Scan(&trial.ID)
}

// RecordComplianceCheck stores the latest compliance check for a trial.
// An empty LastChecked is stamped with the current time.
func (db *DB) RecordComplianceCheck(ctx context.Context, check ComplianceCheck) error {
	if check.LastChecked == "" {
		check.LastChecked = db.now().UTC().Format(timestampLayout)
	}
	if check.Status != nil && *check.Status != StatusCompliant && *check.Status != StatusIncompliant {
		return fmt.Errorf("unknown compliance status %q", *check.Status)
	}

	_, err := db.ExecContext(ctx, `INSERT INTO trial_compliance (trial_id, status, last_checked, results_reported_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(trial_id) DO UPDATE SET
		status = excluded.status, last_checked = excluded.last_checked,
		results_reported_date = excluded.results_reported_date`,
		check.TrialID, check.Status, check.LastChecked, nullString(check.ResultsReportedDate))
	if err != nil {
		return err
	}
	db.purgeCache()
	return nil
}

// RecordLoginActivity records a successful login
func (db *DB) RecordLoginActivity(ctx context.Context, userID int64) error {
	_, err := db.ExecContext(ctx, "INSERT INTO login_activity (user_id, login_time) VALUES (?, ?)",
		userID, db.now().UTC().Format(timestampLayout))
	if err != nil {
		return err
	}
	db.purgeCache()
	return nil
}

// GetLoginActivity returns the most recent login times of a user, newest first
func (db *DB) GetLoginActivity(ctx context.Context, userID int64, limit int) ([]time.Time, error) {
	rows, err := db.QueryContext(ctx, `SELECT login_time FROM login_activity
		WHERE user_id = ? ORDER BY login_time DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logins []time.Time
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		logins = append(logins, parseTimestamp(s))
	}
	return logins, rows.Err()
}

// CreatePasswordReset issues a single-use reset token valid for ttl
func (db *DB) CreatePasswordReset(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	expires := db.now().UTC().Add(ttl).Format(timestampLayout)

	_, err := db.ExecContext(ctx, "INSERT INTO password_reset (user_id, token, expires_at) VALUES (?, ?, ?)",
		userID, token, expires)
	if err != nil {
		return "", err
	}
	db.purgeCache()
	return token, nil
}

// ConsumePasswordReset marks a token used and returns its user id.
// Unknown, used and expired tokens all fail with ErrInvalidResetToken.
func (db *DB) ConsumePasswordReset(ctx context.Context, token string) (int64, error) {
	var userID int64

	err := db.Transaction(ctx, func(tx *Tx) error {
		var expires string
		var used bool
		err := tx.QueryRowContext(ctx, "SELECT user_id, expires_at, used FROM password_reset WHERE token = ?", token).
			Scan(&userID, &expires, &used)
		if err == sql.ErrNoRows {
			return ErrInvalidResetToken
		}
		if err != nil {
			return err
		}
		if used || !db.now().UTC().Before(parseTimestamp(expires)) {
			return ErrInvalidResetToken
		}

		_, err = tx.ExecContext(ctx, "UPDATE password_reset SET used = TRUE WHERE token = ?", token)
		return err
	})
	if err != nil {
		return 0, err
	}
	db.purgeCache()
	return userID, nil
}
