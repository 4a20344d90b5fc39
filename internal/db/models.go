package db

import (
	"time"

	"github.com/shopspring/decimal"
)

// Compliance status labels as stored in trial_compliance.status.
// Pending is never stored; it is the label for a NULL status.
const (
	StatusCompliant   = "Compliant"
	StatusIncompliant = "Incompliant"
	StatusPending     = "Pending"
)

// PageRequest selects one page of a query. The zero value means unpaged.
type PageRequest struct {
	Page    int
	PerPage int
}

// Paged reports whether the request limits the result set
func (p PageRequest) Paged() bool {
	return p.PerPage > 0
}

func (p PageRequest) offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

// Organization represents a trial sponsor organization
type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User represents a registered user
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"password_hash,omitempty"`
	OrganizationID *int64    `json:"organization_id,omitempty"`
	IsAdmin        bool      `json:"is_admin"`
	CreatedAt      time.Time `json:"created_at"`
}

// Trial represents a registered clinical trial
type Trial struct {
	ID                 int64  `json:"id"`
	NCTID              string `json:"nct_id"`
	Title              string `json:"title"`
	OrganizationID     *int64 `json:"organization_id,omitempty"`
	UserID             *int64 `json:"user_id,omitempty"`
	Status             string `json:"status,omitempty"`
	FundingSourceClass string `json:"funding_source_class,omitempty"`
	StartDate          string `json:"start_date,omitempty"`
	CompletionDate     string `json:"completion_date,omitempty"`
	ReportingDueDate   string `json:"reporting_due_date,omitempty"`
}

// ComplianceCheck represents the latest compliance check for a trial.
// A nil Status means the trial is still pending.
type ComplianceCheck struct {
	TrialID             int64   `json:"trial_id"`
	Status              *string `json:"status"`
	LastChecked         string  `json:"last_checked,omitempty"`
	ResultsReportedDate string  `json:"results_reported_date,omitempty"`
}

// TrialRow is one row of the joined_trials view as shown on dashboards
type TrialRow struct {
	ID                  int64  `json:"id"`
	NCTID               string `json:"nct_id"`
	Title               string `json:"title"`
	OrganizationID      int64  `json:"organization_id"`
	OrganizationName    string `json:"name"`
	UserID              *int64 `json:"user_id"`
	Email               string `json:"email"`
	Status              string `json:"status"`
	TrialStatus         string `json:"trial_status"`
	FundingSourceClass  string `json:"funding_source_class"`
	StartDate           string `json:"start_date"`
	CompletionDate      string `json:"completion_date"`
	ReportingDueDate    string `json:"reporting_due_date"`
	LastChecked         string `json:"last_checked"`
	ResultsReportedDate string `json:"results_reported_date"`
}

// ComplianceCounts holds compliant/incompliant totals for a set of trials
type ComplianceCounts struct {
	CompliantCount   int `json:"compliant_count"`
	IncompliantCount int `json:"incompliant_count"`
}

// OrgCompliance is one row of the compare_orgs view
type OrgCompliance struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	TotalTrials    int     `json:"total_trials"`
	OnTimeCount    int     `json:"on_time_count"`
	LateCount      int     `json:"late_count"`
	PendingCount   int     `json:"pending_count"`
	ComplianceRate float64 `json:"compliance_rate"`
}

// TrialComplianceRow is one (month, compliance status) bucket of the
// cumulative time series query. Rows are sparse.
type TrialComplianceRow struct {
	PeriodStart           string   `json:"period_start"`
	ComplianceStatus      *string  `json:"compliance_status"`
	TrialsInMonth         int      `json:"trials_in_month"`
	CumulativeTrials      *int     `json:"cumulative_trials"`
	NewTrials             *int     `json:"new_trials"`
	CompletedTrials       *int     `json:"completed_trials"`
	AvgReportingDelayDays *float64 `json:"avg_reporting_delay_days"`
	ReportingDelayTrials  *int     `json:"reporting_delay_trials"`
}

// ReportingMetrics is the single aggregate row behind the reporting KPIs.
// Values are exact decimals; any of them may be NULL.
type ReportingMetrics struct {
	TotalTrials           decimal.NullDecimal `json:"total_trials"`
	CompliantCount        decimal.NullDecimal `json:"compliant_count"`
	TrialsWithIssuesCount decimal.NullDecimal `json:"trials_with_issues_count"`
	AvgReportingDelayDays decimal.NullDecimal `json:"avg_reporting_delay_days"`
}

// OrganizationRisk is one row of the organization risk analysis
type OrganizationRisk struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	TotalTrials         int        `json:"total_trials"`
	OnTimeCount         int        `json:"on_time_count"`
	LateCount           int        `json:"late_count"`
	PendingCount        int        `json:"pending_count"`
	HighRiskTrials      int        `json:"high_risk_trials"`
	LastComplianceCheck *time.Time `json:"last_compliance_check"`
}

// IncompliantTrial is a late trial of one organization
type IncompliantTrial struct {
	ID                  int64      `json:"id"`
	NCTID               string     `json:"nct_id"`
	Title               string     `json:"title"`
	StartDate           *time.Time `json:"start_date"`
	CompletionDate      *time.Time `json:"completion_date"`
	ReportingDueDate    *time.Time `json:"reporting_due_date"`
	LastChecked         *time.Time `json:"last_checked"`
	ResultsReportedDate *time.Time `json:"results_reported_date"`
	DaysOverdue         *int       `json:"days_overdue"`
}

// SearchParams holds the trial search form fields
type SearchParams struct {
	Title        string
	NCTID        string
	Organization string
	UserEmail    string
	Status       string
	DateType     string
	DateFrom     string
	DateTo       string
	// Compliance holds any of "compliant", "non-compliant", "pending"
	Compliance []string
}

// Empty reports whether no search field is set
func (p SearchParams) Empty() bool {
	return p.Title == "" && p.NCTID == "" && p.Organization == "" && p.UserEmail == "" &&
		p.Status == "" && p.DateFrom == "" && p.DateTo == "" && len(p.Compliance) == 0
}

// OrgFilter bounds the organization comparison. Nil fields are unbounded.
type OrgFilter struct {
	MinCompliance *int
	MaxCompliance *int
	MinTrials     *int
	MaxTrials     *int
}

// RiskFilter narrows the organization risk analysis. Zero values are unbounded.
type RiskFilter struct {
	MinCompliance      *int
	MaxCompliance      *int
	FundingSourceClass string
	OrganizationName   string
}
