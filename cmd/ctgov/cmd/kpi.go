package cmd

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ctgov/compliance/internal/dashboard"
	"github.com/ctgov/compliance/internal/reporting"
)

var (
	kpiActionPage    int
	kpiFocusOrg      int
	kpiMinCompliance int
	kpiMaxCompliance int
)

var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Display reporting KPIs and action items",
	Long: `Display the headline reporting numbers and the organizations that need
follow-up, worst on-time rate first.

Examples:
  ctgov kpi
  ctgov kpi --action-page 2
  ctgov kpi --focus-org 12
  ctgov kpi --format json`,
	RunE: runKPI,
}

func init() {
	rootCmd.AddCommand(kpiCmd)
	kpiCmd.Flags().IntVar(&kpiActionPage, "action-page", 1, "page of action items")
	kpiCmd.Flags().IntVar(&kpiFocusOrg, "focus-org", 0, "organization id to drill into")
	kpiCmd.Flags().IntVar(&kpiMinCompliance, "min-compliance", -1, "minimum organization compliance rate")
	kpiCmd.Flags().IntVar(&kpiMaxCompliance, "max-compliance", -1, "maximum organization compliance rate")
	kpiCmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table|json)")
}

func runKPI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	svc := dashboard.NewService(database, dashboard.WithActionItemsPerPage(cfg.Reporting.ActionItemsPerPage))
	result, err := svc.ProcessReporting(cmd.Context(), nil, kpiArgs())
	if err != nil {
		return err
	}

	if format == "json" {
		return writeJSON(result)
	}
	printKPIs(result.KPIs)
	printActionItems(result)
	if result.FocusOrg != nil {
		printFocusOrg(result.FocusOrg)
	}
	return nil
}

func kpiArgs() url.Values {
	args := url.Values{}
	args.Set("action_page", strconv.Itoa(kpiActionPage))
	if kpiFocusOrg > 0 {
		args.Set("focus_org_id", strconv.Itoa(kpiFocusOrg))
	}
	if kpiMinCompliance >= 0 {
		args.Set("min_compliance", strconv.Itoa(kpiMinCompliance))
	}
	if kpiMaxCompliance >= 0 {
		args.Set("max_compliance", strconv.Itoa(kpiMaxCompliance))
	}
	return args
}

func kpiCell(label, value string) string {
	return boxStyle.Render(kpiLabelStyle.Render(label) + "\n" + kpiValueStyle.Render(value))
}

func printKPIs(k reporting.KPIs) {
	fmt.Println(titleStyle.Render("Reporting KPIs"))
	if !k.HasData {
		fmt.Println(mutedStyle.Render("No trials recorded yet"))
		fmt.Println()
		return
	}

	fmt.Println(lipgloss.JoinHorizontal(lipgloss.Top,
		kpiCell("Trials", strconv.Itoa(k.TotalTrials)),
		kpiCell("Compliant", fmt.Sprintf("%d (%.1f%%)", k.CompliantTrials, k.OverallComplianceRate)),
		kpiCell("With issues", fmt.Sprintf("%d (%.1f%%)", k.TrialsWithIssuesCount, k.TrialsWithIssuesPct)),
		kpiCell("Avg delay", fmt.Sprintf("%.1f days", k.AvgReportingDelayDays)),
	))
	fmt.Println()
}

func printActionItems(result *dashboard.ReportingContext) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("Action items (%d)", result.TotalActionItems)))
	if len(result.ActionItems) == 0 {
		fmt.Println(goodStyle.Render("Every organization is fully compliant"))
		return
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-6s  %-30s  %8s  %5s  %7s  %9s  %s", "ID", "ORGANIZATION", "ON TIME", "LATE", "PENDING", "HIGH RISK", "NEXT STEP")))
	for _, item := range result.ActionItems {
		rate := fmt.Sprintf("%7.1f%%", item.ComplianceRate)
		rateStyle := pendingStyle
		if item.ComplianceRate < 50 {
			rateStyle = badStyle
		}
		fmt.Printf("%-6d  %-30s  %s  %5d  %7d  %9d  %s\n",
			item.ID, truncate(item.Name, 30), rateStyle.Render(rate),
			item.LateCount, item.PendingCount, item.HighRiskTrials, actionLabels(item.Actions))
	}

	if p := result.ActionPagination; p != nil {
		fmt.Println(mutedStyle.Render(pageSummary(p)))
		if p.TotalPages > 1 {
			fmt.Println(pagerLine(p.DefaultPages(), p.Page))
		}
	}
	fmt.Println()
}

func actionLabels(actions []reporting.Action) string {
	labels := make([]string, 0, len(actions))
	for _, a := range actions {
		labels = append(labels, a.Label)
	}
	return strings.Join(labels, "; ")
}

func printFocusOrg(focus *dashboard.FocusOrg) {
	fmt.Println(titleStyle.Render("Late trials of " + focus.Item.Name))
	if len(focus.Trials) == 0 {
		fmt.Println(mutedStyle.Render("No late trials"))
		return
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-12s  %-40s  %-12s  %-12s  %s", "NCT ID", "TITLE", "DUE", "REPORTED", "OVERDUE")))
	for _, t := range focus.Trials {
		fmt.Printf("%-12s  %-40s  %-12s  %-12s  %s\n",
			t.NCTID, truncate(t.Title, 40), t.ReportingDueDate, t.ResultsReportedDate,
			badStyle.Render(fmt.Sprintf("%d days", t.DaysOverdue)))
	}
}
