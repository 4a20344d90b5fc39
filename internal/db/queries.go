package db

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

const trialColumns = `trial_id, nct_id, title, organization_id, organization_name, user_id, email,
	compliance_status, trial_status, funding_source_class, start_date, completion_date,
	reporting_due_date, last_checked, results_reported_date`

// TrialFilter scopes queries over joined_trials. The zero value matches every trial.
type TrialFilter struct {
	OrgIDs []int64
	UserID int64
	Search *SearchParams
}

func (f TrialFilter) where() (string, []any) {
	var conds []string
	var args []any

	if len(f.OrgIDs) > 0 {
		conds = append(conds, "organization_id IN ("+placeholders(len(f.OrgIDs))+")")
		for _, id := range f.OrgIDs {
			args = append(args, id)
		}
	}
	if f.UserID != 0 {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if s := f.Search; s != nil {
		like := func(column, value string) {
			if value != "" {
				conds = append(conds, column+" LIKE ?")
				args = append(args, "%"+value+"%")
			}
		}
		like("title", s.Title)
		like("nct_id", s.NCTID)
		like("organization_name", s.Organization)
		like("email", s.UserEmail)

		if s.Status != "" {
			conds = append(conds, "trial_status = ?")
			args = append(args, s.Status)
		}

		column := dateColumn(s.DateType)
		if s.DateFrom != "" {
			conds = append(conds, "DATE("+column+") >= DATE(?)")
			args = append(args, s.DateFrom)
		}
		if s.DateTo != "" {
			conds = append(conds, "DATE("+column+") <= DATE(?)")
			args = append(args, s.DateTo)
		}

		var statusConds []string
		for _, status := range s.Compliance {
			switch status {
			case "compliant":
				statusConds = append(statusConds, "compliance_status = 'Compliant'")
			case "non-compliant":
				statusConds = append(statusConds, "compliance_status = 'Incompliant'")
			case "pending":
				statusConds = append(statusConds, "compliance_status IS NULL")
			}
		}
		if len(statusConds) > 0 {
			conds = append(conds, "("+strings.Join(statusConds, " OR ")+")")
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func dateColumn(dateType string) string {
	switch dateType {
	case "start":
		return "start_date"
	case "due":
		return "reporting_due_date"
	default:
		return "completion_date"
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func limitClause(page PageRequest, args []any) (string, []any) {
	if !page.Paged() {
		return "", args
	}
	return " LIMIT ? OFFSET ?", append(args, page.PerPage, page.offset())
}

// GetTrials returns trials matching filter ordered by NCT id
func (db *DB) GetTrials(ctx context.Context, filter TrialFilter, page PageRequest) ([]TrialRow, error) {
	where, args := filter.where()
	limit, args := limitClause(page, args)
	query := "SELECT " + trialColumns + " FROM joined_trials" + where + " ORDER BY nct_id ASC" + limit

	return cachedQuery(db, query, args, func() ([]TrialRow, error) {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		trials := []TrialRow{}
		for rows.Next() {
			t, err := scanTrialRow(rows)
			if err != nil {
				return nil, err
			}
			trials = append(trials, t)
		}
		return trials, rows.Err()
	})
}

func scanTrialRow(rows *sql.Rows) (TrialRow, error) {
	var t TrialRow
	var orgID, userID sql.NullInt64
	var orgName, email, compliance, status, funding sql.NullString
	var start, completion, due, checked, reported sql.NullString

	err := rows.Scan(&t.ID, &t.NCTID, &t.Title, &orgID, &orgName, &userID, &email,
		&compliance, &status, &funding, &start, &completion, &due, &checked, &reported)
	if err != nil {
		return t, err
	}

	t.OrganizationID = orgID.Int64
	t.OrganizationName = orgName.String
	t.UserID = nullInt64Ptr(userID)
	t.Email = email.String
	t.Status = compliance.String
	t.TrialStatus = status.String
	t.FundingSourceClass = funding.String
	t.StartDate = start.String
	t.CompletionDate = completion.String
	t.ReportingDueDate = due.String
	t.LastChecked = checked.String
	t.ResultsReportedDate = reported.String
	return t, nil
}

// CountTrials returns the number of trials matching filter
func (db *DB) CountTrials(ctx context.Context, filter TrialFilter) (int, error) {
	where, args := filter.where()
	return db.count(ctx, "SELECT COUNT(*) FROM joined_trials"+where, args)
}

func (db *DB) count(ctx context.Context, query string, args []any) (int, error) {
	return cachedQuery(db, query, args, func() (int, error) {
		var n int
		err := db.QueryRowContext(ctx, query, args...).Scan(&n)
		return n, err
	})
}

// GetAllTrials returns every trial
func (db *DB) GetAllTrials(ctx context.Context, page PageRequest) ([]TrialRow, error) {
	return db.GetTrials(ctx, TrialFilter{}, page)
}

// CountAllTrials returns the total number of trials
func (db *DB) CountAllTrials(ctx context.Context) (int, error) {
	return db.CountTrials(ctx, TrialFilter{})
}

// GetOrgTrials returns trials of the given organizations. No ids match nothing.
func (db *DB) GetOrgTrials(ctx context.Context, orgIDs []int64, page PageRequest) ([]TrialRow, error) {
	if len(orgIDs) == 0 {
		return []TrialRow{}, nil
	}
	return db.GetTrials(ctx, TrialFilter{OrgIDs: orgIDs}, page)
}

// CountOrgTrials counts trials of the given organizations
func (db *DB) CountOrgTrials(ctx context.Context, orgIDs []int64) (int, error) {
	if len(orgIDs) == 0 {
		return 0, nil
	}
	return db.CountTrials(ctx, TrialFilter{OrgIDs: orgIDs})
}

// GetUserTrials returns trials owned by a user
func (db *DB) GetUserTrials(ctx context.Context, userID int64, page PageRequest) ([]TrialRow, error) {
	return db.GetTrials(ctx, TrialFilter{UserID: userID}, page)
}

// CountUserTrials counts trials owned by a user
func (db *DB) CountUserTrials(ctx context.Context, userID int64) (int, error) {
	return db.CountTrials(ctx, TrialFilter{UserID: userID})
}

// SearchTrials returns trials matching the search form
func (db *DB) SearchTrials(ctx context.Context, params SearchParams, page PageRequest) ([]TrialRow, error) {
	return db.GetTrials(ctx, TrialFilter{Search: &params}, page)
}

// CountSearchTrials counts trials matching the search form
func (db *DB) CountSearchTrials(ctx context.Context, params SearchParams) (int, error) {
	return db.CountTrials(ctx, TrialFilter{Search: &params})
}

// GetComplianceRate returns compliant and incompliant totals over every
// trial matching filter, independent of any page.
func (db *DB) GetComplianceRate(ctx context.Context, filter TrialFilter) (*ComplianceCounts, error) {
	where, args := filter.where()
	query := `SELECT
		COALESCE(SUM(CASE WHEN compliance_status = 'Compliant' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN compliance_status = 'Incompliant' THEN 1 ELSE 0 END), 0)
		FROM joined_trials` + where

	return cachedQuery(db, query, args, func() (*ComplianceCounts, error) {
		var c ComplianceCounts
		if err := db.QueryRowContext(ctx, query, args...).Scan(&c.CompliantCount, &c.IncompliantCount); err != nil {
			return nil, err
		}
		return &c, nil
	})
}

func (f OrgFilter) where() (string, []any) {
	var conds []string
	var args []any

	bound := func(cond string, v *int) {
		if v != nil {
			conds = append(conds, cond)
			args = append(args, *v)
		}
	}
	bound("compliance_rate >= ?", f.MinCompliance)
	bound("compliance_rate <= ?", f.MaxCompliance)
	bound("total_trials >= ?", f.MinTrials)
	bound("total_trials <= ?", f.MaxTrials)

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// GetOrgCompliance returns per-organization compliance from compare_orgs
func (db *DB) GetOrgCompliance(ctx context.Context, filter OrgFilter, page PageRequest) ([]OrgCompliance, error) {
	where, args := filter.where()
	limit, args := limitClause(page, args)
	query := `SELECT id, name, total_trials, on_time_count, late_count, pending_count, compliance_rate
		FROM compare_orgs` + where + " ORDER BY name ASC" + limit

	return cachedQuery(db, query, args, func() ([]OrgCompliance, error) {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		orgs := []OrgCompliance{}
		for rows.Next() {
			var o OrgCompliance
			if err := rows.Scan(&o.ID, &o.Name, &o.TotalTrials, &o.OnTimeCount, &o.LateCount,
				&o.PendingCount, &o.ComplianceRate); err != nil {
				return nil, err
			}
			orgs = append(orgs, o)
		}
		return orgs, rows.Err()
	})
}

// CountOrgCompliance counts organizations matching filter
func (db *DB) CountOrgCompliance(ctx context.Context, filter OrgFilter) (int, error) {
	where, args := filter.where()
	return db.count(ctx, "SELECT COUNT(*) FROM compare_orgs"+where, args)
}

// GetComplianceRateCompare sums on-time and late trials over the
// organizations matching filter.
func (db *DB) GetComplianceRateCompare(ctx context.Context, filter OrgFilter) (*ComplianceCounts, error) {
	where, args := filter.where()
	query := "SELECT COALESCE(SUM(on_time_count), 0), COALESCE(SUM(late_count), 0) FROM compare_orgs" + where

	return cachedQuery(db, query, args, func() (*ComplianceCounts, error) {
		var c ComplianceCounts
		if err := db.QueryRowContext(ctx, query, args...).Scan(&c.CompliantCount, &c.IncompliantCount); err != nil {
			return nil, err
		}
		return &c, nil
	})
}

const timeSeriesQuery = `
WITH scoped AS (
    SELECT
        date(t.start_date, 'start of month') AS period_start,
        tc.status AS compliance_status,
        t.completion_date,
        t.reporting_due_date,
        tc.results_reported_date
    FROM trial t
    LEFT JOIN trial_compliance tc ON t.id = tc.trial_id
    WHERE t.start_date IS NOT NULL
      AND DATE(t.start_date) >= DATE(?)
      AND DATE(t.start_date) <= DATE(?)
),
monthly AS (
    SELECT period_start, compliance_status, COUNT(*) AS trials_in_month
    FROM scoped
    GROUP BY period_start, compliance_status
),
month_metrics AS (
    SELECT
        period_start,
        COUNT(*) AS new_trials,
        SUM(CASE WHEN completion_date IS NOT NULL THEN 1 ELSE 0 END) AS completed_trials,
        AVG(CASE WHEN results_reported_date > reporting_due_date
            THEN julianday(results_reported_date) - julianday(reporting_due_date) END) AS avg_reporting_delay_days,
        SUM(CASE WHEN results_reported_date > reporting_due_date THEN 1 ELSE 0 END) AS reporting_delay_trials
    FROM scoped
    GROUP BY period_start
)
SELECT
    m.period_start,
    m.compliance_status,
    m.trials_in_month,
    SUM(m.trials_in_month) OVER (PARTITION BY m.compliance_status ORDER BY m.period_start) AS cumulative_trials,
    mm.new_trials,
    mm.completed_trials,
    mm.avg_reporting_delay_days,
    mm.reporting_delay_trials
FROM monthly m
JOIN month_metrics mm ON mm.period_start = m.period_start
ORDER BY m.period_start, m.compliance_status`

// GetTrialCumulativeTimeSeries returns sparse (month, compliance status)
// buckets for trials started within [start, end].
func (db *DB) GetTrialCumulativeTimeSeries(ctx context.Context, start, end time.Time) ([]TrialComplianceRow, error) {
	args := []any{start.Format(dateLayout), end.Format(dateLayout)}

	return cachedQuery(db, timeSeriesQuery, args, func() ([]TrialComplianceRow, error) {
		rows, err := db.QueryContext(ctx, timeSeriesQuery, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var result []TrialComplianceRow
		for rows.Next() {
			var r TrialComplianceRow
			var period, status sql.NullString
			var cumulative, newTrials, completed, delayed sql.NullInt64
			var avgDelay sql.NullFloat64

			if err := rows.Scan(&period, &status, &r.TrialsInMonth, &cumulative,
				&newTrials, &completed, &avgDelay, &delayed); err != nil {
				return nil, err
			}
			r.PeriodStart = period.String
			r.ComplianceStatus = nullStringPtr(status)
			r.CumulativeTrials = nullIntPtr(cumulative)
			r.NewTrials = nullIntPtr(newTrials)
			r.CompletedTrials = nullIntPtr(completed)
			r.ReportingDelayTrials = nullIntPtr(delayed)
			if avgDelay.Valid {
				v := avgDelay.Float64
				r.AvgReportingDelayDays = &v
			}
			result = append(result, r)
		}
		return result, rows.Err()
	})
}

const reportingMetricsQuery = `SELECT
    COUNT(t.id) AS total_trials,
    SUM(CASE WHEN tc.status = 'Compliant' THEN 1 ELSE 0 END) AS compliant_count,
    SUM(CASE WHEN tc.status = 'Incompliant' THEN 1 ELSE 0 END) AS trials_with_issues_count,
    AVG(CASE WHEN tc.results_reported_date > t.reporting_due_date
        THEN julianday(tc.results_reported_date) - julianday(t.reporting_due_date) END) AS avg_reporting_delay_days
FROM trial t
LEFT JOIN trial_compliance tc ON t.id = tc.trial_id`

// GetReportingMetrics returns the aggregate row behind the reporting KPIs
func (db *DB) GetReportingMetrics(ctx context.Context) (*ReportingMetrics, error) {
	return cachedQuery(db, reportingMetricsQuery, nil, func() (*ReportingMetrics, error) {
		var m ReportingMetrics
		err := db.QueryRowContext(ctx, reportingMetricsQuery).
			Scan(&m.TotalTrials, &m.CompliantCount, &m.TrialsWithIssuesCount, &m.AvgReportingDelayDays)
		if err != nil {
			return nil, err
		}
		return &m, nil
	})
}

const orgRateExpr = `(CASE WHEN COUNT(t.id) = 0 THEN 0.0
    ELSE 100.0 * SUM(CASE WHEN tc.status = 'Compliant' THEN 1 ELSE 0 END) / COUNT(t.id) END)`

// GetOrganizationRiskAnalysis returns per-organization compliance counts
// with the number of high-risk (long overdue, incompliant) trials.
func (db *DB) GetOrganizationRiskAnalysis(ctx context.Context, filter RiskFilter) ([]OrganizationRisk, error) {
	args := []any{db.today(), db.highRiskDays}

	join := ""
	if filter.FundingSourceClass != "" {
		join = " AND t.funding_source_class = ?"
		args = append(args, filter.FundingSourceClass)
	}

	where := ""
	if filter.OrganizationName != "" {
		where = " WHERE o.name LIKE ?"
		args = append(args, "%"+filter.OrganizationName+"%")
	}

	var having []string
	if filter.MinCompliance != nil {
		having = append(having, orgRateExpr+" >= ?")
		args = append(args, *filter.MinCompliance)
	}
	if filter.MaxCompliance != nil {
		having = append(having, orgRateExpr+" <= ?")
		args = append(args, *filter.MaxCompliance)
	}
	havingClause := ""
	if len(having) > 0 {
		havingClause = " HAVING " + strings.Join(having, " AND ")
	}

	query := `SELECT
		o.id,
		o.name,
		COUNT(t.id) AS total_trials,
		COALESCE(SUM(CASE WHEN tc.status = 'Compliant' THEN 1 ELSE 0 END), 0) AS on_time_count,
		COALESCE(SUM(CASE WHEN tc.status = 'Incompliant' THEN 1 ELSE 0 END), 0) AS late_count,
		COALESCE(SUM(CASE WHEN t.id IS NOT NULL AND tc.status IS NULL THEN 1 ELSE 0 END), 0) AS pending_count,
		COALESCE(SUM(CASE WHEN tc.status = 'Incompliant' AND t.reporting_due_date IS NOT NULL
			AND julianday(?) - julianday(t.reporting_due_date) > ? THEN 1 ELSE 0 END), 0) AS high_risk_trials,
		MAX(tc.last_checked) AS last_compliance_check
	FROM organization o
	LEFT JOIN trial t ON o.id = t.organization_id` + join + `
	LEFT JOIN trial_compliance tc ON t.id = tc.trial_id` + where + `
	GROUP BY o.id, o.name` + havingClause + `
	ORDER BY o.name ASC`

	return cachedQuery(db, query, args, func() ([]OrganizationRisk, error) {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var result []OrganizationRisk
		for rows.Next() {
			var r OrganizationRisk
			var lastCheck sql.NullString
			if err := rows.Scan(&r.ID, &r.Name, &r.TotalTrials, &r.OnTimeCount, &r.LateCount,
				&r.PendingCount, &r.HighRiskTrials, &lastCheck); err != nil {
				return nil, err
			}
			r.LastComplianceCheck = timePtr(lastCheck)
			result = append(result, r)
		}
		return result, rows.Err()
	})
}

// GetOrgIncompliantTrials returns the late trials of one organization,
// most overdue first.
func (db *DB) GetOrgIncompliantTrials(ctx context.Context, orgID int64) ([]IncompliantTrial, error) {
	today := db.today()
	args := []any{today, today, orgID}
	query := `SELECT
		t.id, t.nct_id, t.title, t.start_date, t.completion_date, t.reporting_due_date,
		tc.last_checked, tc.results_reported_date,
		CASE WHEN t.reporting_due_date IS NOT NULL AND julianday(?) > julianday(t.reporting_due_date)
			THEN CAST(julianday(?) - julianday(t.reporting_due_date) AS INTEGER) END AS days_overdue
	FROM trial t
	JOIN trial_compliance tc ON t.id = tc.trial_id
	WHERE t.organization_id = ? AND tc.status = 'Incompliant'
	ORDER BY days_overdue DESC, t.nct_id ASC`

	return cachedQuery(db, query, args, func() ([]IncompliantTrial, error) {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var result []IncompliantTrial
		for rows.Next() {
			var it IncompliantTrial
			var start, completion, due, checked, reported sql.NullString
			var overdue sql.NullInt64
			if err := rows.Scan(&it.ID, &it.NCTID, &it.Title, &start, &completion, &due,
				&checked, &reported, &overdue); err != nil {
				return nil, err
			}
			it.StartDate = timePtr(start)
			it.CompletionDate = timePtr(completion)
			it.ReportingDueDate = timePtr(due)
			it.LastChecked = timePtr(checked)
			it.ResultsReportedDate = timePtr(reported)
			it.DaysOverdue = nullIntPtr(overdue)
			result = append(result, it)
		}
		return result, rows.Err()
	})
}

// GetFundingSourceClasses returns the distinct funding source classes
func (db *DB) GetFundingSourceClasses(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT funding_source_class FROM trial
		WHERE funding_source_class IS NOT NULL AND funding_source_class <> ''
		ORDER BY funding_source_class ASC`

	return cachedQuery(db, query, nil, func() ([]string, error) {
		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		classes := []string{}
		for rows.Next() {
			var c string
			if err := rows.Scan(&c); err != nil {
				return nil, err
			}
			classes = append(classes, c)
		}
		return classes, rows.Err()
	})
}

func (db *DB) today() string {
	return db.now().UTC().Format(dateLayout)
}
