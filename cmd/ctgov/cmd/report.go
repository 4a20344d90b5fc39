package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ctgov/compliance/internal/reporting"
)

var (
	reportStart  string
	reportEnd    string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Monthly cumulative compliance report",
	Long:  `Show or export the month-by-month compliance series behind the reporting dashboard.`,
}

var reportShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the monthly series",
	Long: `Print one row per calendar month in the window with the monthly and
cumulative count of every compliance status.

Without --start and --end the window is the last 30 days.`,
	RunE: runReportShow,
}

var reportExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the monthly series",
	Long:  `Export the monthly series to CSV or JSON on stdout.`,
	RunE:  runReportExport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportExportCmd)

	reportCmd.PersistentFlags().StringVar(&reportStart, "start", "", "window start (YYYY-MM-DD)")
	reportCmd.PersistentFlags().StringVar(&reportEnd, "end", "", "window end (YYYY-MM-DD)")
	reportExportCmd.Flags().StringVar(&reportFormat, "format", "csv", "output format (csv, json)")
}

func loadSeries(cmd *cobra.Command) (*reporting.TimeSeries, reporting.Window, error) {
	window := reporting.ResolveWindow(reportStart, reportEnd, time.Now())

	cfg, err := loadConfig()
	if err != nil {
		return nil, window, err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return nil, window, err
	}
	defer database.Close()

	rows, err := database.GetTrialCumulativeTimeSeries(cmd.Context(), window.Start, window.End)
	if err != nil {
		return nil, window, fmt.Errorf("failed to load time series: %w", err)
	}
	return reporting.BuildTimeSeries(rows, window.Start, window.End), window, nil
}

func runReportShow(cmd *cobra.Command, args []string) error {
	series, window, err := loadSeries(cmd)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Compliance %s to %s",
		window.Start.Format(time.DateOnly), window.End.Format(time.DateOnly))))
	fmt.Println()

	header := fmt.Sprintf("%-16s", "MONTH")
	for _, s := range series.Statuses {
		header += fmt.Sprintf("  %14s", strings.ToUpper(truncate(s.Label, 14)))
	}
	header += fmt.Sprintf("  %8s  %8s  %9s", "NEW", "DONE", "AVG DELAY")
	fmt.Println(headerStyle.Render(header))

	for _, p := range series.Points {
		fmt.Printf("%-16s", p.MonthLabel)
		for _, s := range series.Statuses {
			v := p.Statuses[s.Key]
			cell := fmt.Sprintf("%14s", fmt.Sprintf("%d (+%d)", v.Cumulative, v.Monthly))
			fmt.Print("  " + statusStyle(s.Label).Render(cell))
		}
		fmt.Printf("  %8d  %8d  %9s\n", p.NewTrials, p.CompletedTrials, formatDelay(p.AvgReportingDelayDays))
	}

	if latest := series.Latest; latest != nil {
		fmt.Println()
		fmt.Println(mutedStyle.Render(fmt.Sprintf("%d trials through %s", latest.TotalCumulative, latest.MonthLabel)))
	}
	return nil
}

func runReportExport(cmd *cobra.Command, args []string) error {
	series, _, err := loadSeries(cmd)
	if err != nil {
		return err
	}

	switch reportFormat {
	case "json":
		return writeJSON(series)
	case "csv":
		return writeSeriesCSV(os.Stdout, series)
	default:
		return fmt.Errorf("unknown format %q (use csv or json)", reportFormat)
	}
}

// writeSeriesCSV writes one row per month with a monthly and cumulative
// column per status
func writeSeriesCSV(out io.Writer, series *reporting.TimeSeries) error {
	w := csv.NewWriter(out)

	header := []string{"date", "month"}
	for _, s := range series.Statuses {
		header = append(header, s.Key+"_monthly", s.Key+"_cumulative")
	}
	header = append(header, "total_monthly", "total_cumulative", "new_trials", "completed_trials",
		"avg_reporting_delay_days", "reporting_delay_trials")
	if err := w.Write(header); err != nil {
		return err
	}

	for _, p := range series.Points {
		record := []string{p.Date, p.MonthLabel}
		for _, s := range series.Statuses {
			v := p.Statuses[s.Key]
			record = append(record, strconv.Itoa(v.Monthly), strconv.Itoa(v.Cumulative))
		}
		delay := ""
		if p.AvgReportingDelayDays != nil {
			delay = strconv.FormatFloat(*p.AvgReportingDelayDays, 'f', -1, 64)
		}
		record = append(record,
			strconv.Itoa(p.TotalMonthly),
			strconv.Itoa(p.TotalCumulative),
			strconv.Itoa(p.NewTrials),
			strconv.Itoa(p.CompletedTrials),
			delay,
			strconv.Itoa(p.ReportingDelayTrials),
		)
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatDelay(days *float64) string {
	if days == nil {
		return "—"
	}
	return fmt.Sprintf("%.1fd", *days)
}
