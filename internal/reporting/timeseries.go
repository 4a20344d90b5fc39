package reporting

import (
	"strings"
	"time"

	"github.com/ctgov/compliance/internal/db"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "January 2006"

	// DefaultWindowDays is the length of the window when no start date is given
	DefaultWindowDays = 30
)

var seedStatuses = []string{db.StatusCompliant, db.StatusIncompliant, db.StatusPending}

// Window is an inclusive reporting date range
type Window struct {
	Start time.Time
	End   time.Time
}

// ResolveWindow parses YYYY-MM-DD bounds. Missing or invalid bounds default
// to today and the 29 days before the end; reversed bounds are swapped.
func ResolveWindow(startStr, endStr string, today time.Time) Window {
	end, ok := parseDate(endStr)
	if !ok {
		end = truncateDay(today)
	}
	start, ok := parseDate(startStr)
	if !ok {
		start = end.AddDate(0, 0, -(DefaultWindowDays - 1))
	}
	if start.After(end) {
		start, end = end, start
	}
	return Window{Start: start, End: end}
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Status is one column of the time series
type Status struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// StatusValue is one status within one month
type StatusValue struct {
	Label      string `json:"label"`
	Monthly    int    `json:"monthly"`
	Cumulative int    `json:"cumulative"`
}

// Point is one calendar month of the series
type Point struct {
	Date                  string                 `json:"date"`
	MonthLabel            string                 `json:"month_label"`
	Statuses              map[string]StatusValue `json:"statuses"`
	TotalMonthly          int                    `json:"total_monthly"`
	TotalCumulative       int                    `json:"total_cumulative"`
	NewTrials             int                    `json:"new_trials"`
	CompletedTrials       int                    `json:"completed_trials"`
	AvgReportingDelayDays *float64               `json:"avg_reporting_delay_days"`
	ReportingDelayTrials  int                    `json:"reporting_delay_trials"`
}

// TimeSeries is a dense month-by-month series
type TimeSeries struct {
	Points   []Point  `json:"points"`
	Statuses []Status `json:"statuses"`
	Latest   *Point   `json:"latest_point"`
}

// StatusKey derives the machine key of a status label
func StatusKey(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), " ", "_")
}

type statusStats struct {
	monthly    int
	cumulative *int
}

type monthMetrics struct {
	newTrials            *int
	completedTrials      *int
	avgReportingDelay    *float64
	reportingDelayTrials *int
}

type monthEntry struct {
	statuses map[string]statusStats
	metrics  monthMetrics
}

// statusVocabulary returns the seed statuses followed by any other status
// found in rows, in first-seen order.
func statusVocabulary(rows []db.TrialComplianceRow) []Status {
	var labels []string
	seen := make(map[string]bool)
	add := func(label string) {
		if !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}
	for _, label := range seedStatuses {
		add(label)
	}
	for _, r := range rows {
		if r.ComplianceStatus != nil {
			add(*r.ComplianceStatus)
		}
	}

	statuses := make([]Status, len(labels))
	for i, label := range labels {
		statuses[i] = Status{Key: StatusKey(label), Label: label}
	}
	return statuses
}

func parsePeriod(s string) (time.Time, bool) {
	for _, layout := range []string{dateLayout, "2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return firstOfMonth(t), true
		}
	}
	return time.Time{}, false
}

// indexRows folds rows by month. Status stats are per (month, status); the
// month metrics take the first non-nil value seen for each field.
func indexRows(rows []db.TrialComplianceRow) map[time.Time]*monthEntry {
	index := make(map[time.Time]*monthEntry)
	for _, r := range rows {
		month, ok := parsePeriod(r.PeriodStart)
		if !ok {
			continue
		}

		entry, ok := index[month]
		if !ok {
			entry = &monthEntry{statuses: make(map[string]statusStats)}
			index[month] = entry
		}

		label := db.StatusPending
		if r.ComplianceStatus != nil {
			label = *r.ComplianceStatus
		}
		entry.statuses[label] = statusStats{monthly: r.TrialsInMonth, cumulative: r.CumulativeTrials}

		m := &entry.metrics
		if m.newTrials == nil {
			m.newTrials = r.NewTrials
		}
		if m.completedTrials == nil {
			m.completedTrials = r.CompletedTrials
		}
		if m.avgReportingDelay == nil {
			m.avgReportingDelay = r.AvgReportingDelayDays
		}
		if m.reportingDelayTrials == nil {
			m.reportingDelayTrials = r.ReportingDelayTrials
		}
	}
	return index
}

// BuildTimeSeries produces one point per calendar month from the month of
// start through the month of end. A status without a row in some month
// keeps its last known cumulative value.
func BuildTimeSeries(rows []db.TrialComplianceRow, start, end time.Time) *TimeSeries {
	statuses := statusVocabulary(rows)
	index := indexRows(rows)

	tracker := make(map[string]int, len(statuses))
	series := &TimeSeries{Statuses: statuses, Points: []Point{}}

	endExclusive := firstOfMonth(end).AddDate(0, 1, 0)
	for month := firstOfMonth(start); month.Before(endExclusive); month = month.AddDate(0, 1, 0) {
		entry := index[month]

		point := Point{
			Date:       month.Format(dateLayout),
			MonthLabel: month.Format(monthLayout),
			Statuses:   make(map[string]StatusValue, len(statuses)),
		}

		for _, s := range statuses {
			var stats statusStats
			if entry != nil {
				stats = entry.statuses[s.Label]
			}
			if stats.cumulative != nil {
				tracker[s.Key] = *stats.cumulative
			}

			value := StatusValue{Label: s.Label, Monthly: stats.monthly, Cumulative: tracker[s.Key]}
			point.Statuses[s.Key] = value
			point.TotalMonthly += value.Monthly
			point.TotalCumulative += value.Cumulative
		}

		if entry != nil {
			point.NewTrials = deref(entry.metrics.newTrials)
			point.CompletedTrials = deref(entry.metrics.completedTrials)
			point.AvgReportingDelayDays = entry.metrics.avgReportingDelay
			point.ReportingDelayTrials = deref(entry.metrics.reportingDelayTrials)
		}

		series.Points = append(series.Points, point)
	}

	if n := len(series.Points); n > 0 {
		series.Latest = &series.Points[n-1]
	}
	return series
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
