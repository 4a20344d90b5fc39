// Package reporting turns aggregate compliance rows into the reporting
// dashboard's KPIs, ranked action items and dense monthly time series.
package reporting

import (
	"github.com/shopspring/decimal"

	"github.com/ctgov/compliance/internal/db"
)

var hundred = decimal.NewFromInt(100)

// KPIs are the headline numbers of the reporting dashboard
type KPIs struct {
	TotalTrials           int     `json:"total_trials"`
	CompliantTrials       int     `json:"compliant_trials"`
	OverallComplianceRate float64 `json:"overall_compliance_rate"`
	TrialsWithIssuesCount int     `json:"trials_with_issues_count"`
	TrialsWithIssuesPct   float64 `json:"trials_with_issues_pct"`
	AvgReportingDelayDays float64 `json:"avg_reporting_delay_days"`
	HasData               bool    `json:"has_data"`
}

// BuildKPIs normalizes the reporting metrics row. A nil row yields zero KPIs.
// Percentages and the average delay are rounded half-up to one decimal.
func BuildKPIs(row *db.ReportingMetrics) KPIs {
	if row == nil {
		return KPIs{}
	}

	total := wholeNumber(row.TotalTrials)
	compliant := wholeNumber(row.CompliantCount)
	issues := wholeNumber(row.TrialsWithIssuesCount)

	avgDelay := decimal.Zero
	if row.AvgReportingDelayDays.Valid {
		avgDelay = row.AvgReportingDelayDays.Decimal
	}

	return KPIs{
		TotalTrials:           int(total),
		CompliantTrials:       int(compliant),
		OverallComplianceRate: percent(compliant, total),
		TrialsWithIssuesCount: int(issues),
		TrialsWithIssuesPct:   percent(issues, total),
		AvgReportingDelayDays: roundHalfUp(avgDelay),
		HasData:               total > 0,
	}
}

func wholeNumber(d decimal.NullDecimal) int64 {
	if !d.Valid {
		return 0
	}
	return d.Decimal.IntPart()
}

func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return roundHalfUp(decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(total)))
}

// roundHalfUp rounds to one decimal place, ties away from zero
func roundHalfUp(d decimal.Decimal) float64 {
	return d.Round(1).InexactFloat64()
}
