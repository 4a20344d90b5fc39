package cmd

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ctgov/compliance/internal/dashboard"
	"github.com/ctgov/compliance/internal/db"
)

var (
	trialsPage       int
	trialsPerPage    int
	trialsOrgIDs     string
	trialsUserID     int64
	trialsTitle      string
	trialsNCTID      string
	trialsCompliance []string
)

var trialsCmd = &cobra.Command{
	Use:   "trials",
	Short: "List trials with their compliance status",
	Long: `Print one page of trials from the same listings the dashboards serve.

Examples:
  ctgov trials
  ctgov trials --page 3 --per-page 10
  ctgov trials --org 1,2
  ctgov trials --user 7
  ctgov trials --compliance pending --compliance non-compliant
  ctgov trials --format json`,
	RunE: runTrials,
}

func init() {
	rootCmd.AddCommand(trialsCmd)
	trialsCmd.Flags().IntVarP(&trialsPage, "page", "p", 1, "page number")
	trialsCmd.Flags().IntVar(&trialsPerPage, "per-page", 25, "trials per page (1-100)")
	trialsCmd.Flags().StringVar(&trialsOrgIDs, "org", "", "comma separated organization ids")
	trialsCmd.Flags().Int64Var(&trialsUserID, "user", 0, "user id")
	trialsCmd.Flags().StringVar(&trialsTitle, "title", "", "search by title")
	trialsCmd.Flags().StringVar(&trialsNCTID, "nct-id", "", "search by NCT id")
	trialsCmd.Flags().StringSliceVar(&trialsCompliance, "compliance", nil, "compliance filter (compliant|non-compliant|pending)")
	trialsCmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table|json)")
}

func runTrials(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	svc := dashboard.NewService(database)
	paging := &dashboard.Paging{Page: trialsPage, PerPage: trialsPerPage}
	ctx := cmd.Context()

	var result *dashboard.TrialsContext
	switch {
	case trialsOrgIDs != "":
		result, err = svc.ProcessOrganization(ctx, trialsOrgIDs, paging, url.Values{})
	case trialsUserID != 0:
		result, err = svc.ProcessUser(ctx, trialsUserID, paging, url.Values{})
	case trialsTitle != "" || trialsNCTID != "" || len(trialsCompliance) > 0:
		params := db.SearchParams{Title: trialsTitle, NCTID: trialsNCTID, Compliance: trialsCompliance}
		result, err = svc.ProcessSearch(ctx, params, paging, url.Values{})
	default:
		result, err = svc.ProcessIndex(ctx, paging, url.Values{})
	}
	if err != nil {
		return err
	}

	if format == "json" {
		return writeJSON(result)
	}
	printTrials(result)
	return nil
}

func printTrials(result *dashboard.TrialsContext) {
	if result.UserEmail != "" {
		fmt.Println(titleStyle.Render("Trials of " + result.UserEmail))
	} else {
		fmt.Println(titleStyle.Render("Trials"))
	}
	fmt.Println()

	if len(result.Trials) == 0 {
		fmt.Println(mutedStyle.Render("No trials found"))
		return
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-12s  %-40s  %-24s  %-12s  %-12s", "NCT ID", "TITLE", "ORGANIZATION", "STATUS", "DUE")))
	for _, t := range result.Trials {
		status := statusStyle(t.Status).Render(fmt.Sprintf("%-12s", t.Status))
		fmt.Printf("%-12s  %-40s  %-24s  %s  %-12s\n",
			t.NCTID, truncate(t.Title, 40), truncate(t.OrganizationName, 24), status, orDash(t.ReportingDueDate))
	}
	fmt.Println()

	fmt.Printf("%s  %s\n",
		goodStyle.Render(strconv.Itoa(result.OnTimeCount)+" on time"),
		badStyle.Render(strconv.Itoa(result.LateCount)+" late"))

	if p := result.Pagination; p != nil {
		fmt.Println(mutedStyle.Render(pageSummary(p)))
		if p.TotalPages > 1 {
			fmt.Println(pagerLine(p.DefaultPages(), p.Page))
		}
	}
}
