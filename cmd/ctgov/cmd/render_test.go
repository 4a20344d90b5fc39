package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ctgov/compliance/internal/pagination"
	"github.com/ctgov/compliance/internal/reporting"
)

func TestPagerLine(t *testing.T) {
	tests := []struct {
		name    string
		page    int
		entries int
		want    string
	}{
		{"single page", 1, 5, "[1]"},
		{"middle", 5, 200, "1 2 3 4 [5] 6 7 … 19 20"},
		{"near end", 19, 200, "1 2 … 17 18 [19] 20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := pagination.New[int](nil, tt.page, 10, tt.entries)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if got := pagerLine(p.DefaultPages(), p.Page); got != tt.want {
				t.Errorf("pagerLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPageSummary(t *testing.T) {
	if got := pageSummary[int](nil); got != "No entries" {
		t.Errorf("pageSummary(nil) = %q", got)
	}

	p, err := pagination.New[int](nil, 2, 10, 25)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := pageSummary(p), "Showing 11-20 of 25 (page 2/3)"; got != want {
		t.Errorf("pageSummary() = %q, want %q", got, want)
	}
}

func TestWriteSeriesCSV(t *testing.T) {
	delay := 12.5
	series := &reporting.TimeSeries{
		Statuses: []reporting.Status{{Key: "compliant", Label: "Compliant"}, {Key: "pending", Label: "Pending"}},
		Points: []reporting.Point{
			{
				Date:       "2024-01-01",
				MonthLabel: "January 2024",
				Statuses: map[string]reporting.StatusValue{
					"compliant": {Label: "Compliant", Monthly: 2, Cumulative: 2},
					"pending":   {Label: "Pending", Monthly: 1, Cumulative: 1},
				},
				TotalMonthly:          3,
				TotalCumulative:       3,
				NewTrials:             3,
				AvgReportingDelayDays: &delay,
				ReportingDelayTrials:  2,
			},
			{
				Date:       "2024-02-01",
				MonthLabel: "February 2024",
				Statuses: map[string]reporting.StatusValue{
					"compliant": {Label: "Compliant", Cumulative: 2},
					"pending":   {Label: "Pending", Cumulative: 1},
				},
				TotalCumulative: 3,
			},
		},
	}

	var buf bytes.Buffer
	if err := writeSeriesCSV(&buf, series); err != nil {
		t.Fatalf("writeSeriesCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"date,month,compliant_monthly,compliant_cumulative,pending_monthly,pending_cumulative,total_monthly,total_cumulative,new_trials,completed_trials,avg_reporting_delay_days,reporting_delay_trials",
		"2024-01-01,January 2024,2,2,1,1,3,3,3,0,12.5,2",
		"2024-02-01,February 2024,0,2,0,1,0,3,0,0,,0",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestKPIArgs(t *testing.T) {
	kpiActionPage, kpiFocusOrg, kpiMinCompliance, kpiMaxCompliance = 2, 0, 50, -1
	t.Cleanup(func() { kpiActionPage, kpiFocusOrg, kpiMinCompliance, kpiMaxCompliance = 1, 0, -1, -1 })

	args := kpiArgs()
	if got := args.Get("action_page"); got != "2" {
		t.Errorf("action_page = %q, want 2", got)
	}
	if got := args.Get("min_compliance"); got != "50" {
		t.Errorf("min_compliance = %q, want 50", got)
	}
	if args.Has("focus_org_id") || args.Has("max_compliance") {
		t.Errorf("unset flags leaked into args: %v", args)
	}
}

func TestFormatHelpers(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{formatBytes(512), "512 B"},
		{formatBytes(1536), "1.5 KB"},
		{formatBytes(5 * 1024 * 1024), "5.0 MB"},
		{truncate("Hypertension Study", 8), "Hyperte…"},
		{truncate("Short", 8), "Short"},
		{truncateStr("/very/long/path/to/ctgov.db", 12), ".../ctgov.db"},
		{orDash(""), "—"},
		{formatDelay(nil), "—"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
