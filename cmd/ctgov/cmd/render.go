package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ctgov/compliance/internal/pagination"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#CCCCCC"))
	goodStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	badStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#5B8DEF")).Padding(0, 1)
	kpiValueStyle = lipgloss.NewStyle().Bold(true)
	kpiLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

// statusStyle colours a compliance status label
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "Compliant":
		return goodStyle
	case "Incompliant":
		return badStyle
	case "Pending":
		return pendingStyle
	default:
		return mutedStyle
	}
}

// pagerLine renders the page navigation, marking the current page and
// each gap in the sequence with an ellipsis
func pagerLine(pages iter.Seq[int], current int) string {
	var parts []string
	for num := range pages {
		switch num {
		case pagination.Gap:
			parts = append(parts, "…")
		case current:
			parts = append(parts, "["+strconv.Itoa(num)+"]")
		default:
			parts = append(parts, strconv.Itoa(num))
		}
	}
	return strings.Join(parts, " ")
}

// pageSummary is the "Showing x-y of n" footer of a paginated listing
func pageSummary[T any](p *pagination.Page[T]) string {
	if p == nil || p.TotalEntries == 0 {
		return "No entries"
	}
	return fmt.Sprintf("Showing %d-%d of %d (page %d/%d)", p.StartIndex, p.EndIndex, p.TotalEntries, p.Page, p.TotalPages)
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func writeJSON(v any) error {
	return encodeJSON(os.Stdout, v)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
