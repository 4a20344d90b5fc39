package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/ctgov/compliance/internal/db"
	"github.com/ctgov/compliance/internal/pagination"
	"github.com/ctgov/compliance/internal/reporting"
)

const (
	dateLayout      = "2006-01-02"
	dateLabelLayout = "Jan 02, 2006"
	missingDate     = "—"
)

// ReportingFilters echoes the filters the reporting dashboard applied
type ReportingFilters struct {
	MinCompliance      *int   `json:"min_compliance"`
	MaxCompliance      *int   `json:"max_compliance"`
	FundingSourceClass string `json:"funding_source_class"`
	OrganizationName   string `json:"organization_name"`
	FocusOrgID         *int   `json:"focus_org_id"`
}

// FocusTrial is a late trial of the focus organization with display labels
type FocusTrial struct {
	ID                  int64  `json:"id"`
	NCTID               string `json:"nct_id"`
	Title               string `json:"title"`
	StartDate           string `json:"start_date"`
	CompletionDate      string `json:"completion_date"`
	ReportingDueDate    string `json:"reporting_due_date"`
	LastChecked         string `json:"last_checked"`
	ResultsReportedDate string `json:"results_reported_date"`
	DaysOverdue         int    `json:"days_overdue"`
}

// FocusOrg is the drill-down of one action item
type FocusOrg struct {
	Item   reporting.ActionItem `json:"item"`
	Trials []FocusTrial         `json:"trials"`
}

// ReportingContext is the context of the reporting dashboard
type ReportingContext struct {
	Template             string                                 `json:"template"`
	StartDate            string                                 `json:"start_date"`
	EndDate              string                                 `json:"end_date"`
	TimeSeries           []reporting.Point                      `json:"time_series"`
	StatusColumns        []reporting.Status                     `json:"status_columns"`
	LatestPoint          *reporting.Point                       `json:"latest_point"`
	KPIs                 reporting.KPIs                         `json:"kpis"`
	OrgCompliance        []db.OrgCompliance                     `json:"org_compliance"`
	Pagination           *pagination.Page[db.OrgCompliance]     `json:"pagination"`
	PerPage              int                                    `json:"per_page"`
	ActionItems          []reporting.ActionItem                 `json:"action_items"`
	ActionPagination     *pagination.Page[reporting.ActionItem] `json:"action_pagination"`
	TotalActionItems     int                                    `json:"total_action_items"`
	FocusOrg             *FocusOrg                              `json:"focus_org"`
	FundingSourceClasses []string                               `json:"funding_source_classes"`
	Filters              ReportingFilters                       `json:"filters"`
}

// ReportingFiltersFromArgs reads the reporting filters. Non-digit numbers
// are treated as unset.
func ReportingFiltersFromArgs(args Args) ReportingFilters {
	return ReportingFilters{
		MinCompliance:      parseRequestArg(arg(args, "min_compliance")),
		MaxCompliance:      parseRequestArg(arg(args, "max_compliance")),
		FundingSourceClass: arg(args, "funding_source_class"),
		OrganizationName:   arg(args, "organization_name"),
		FocusOrgID:         parseRequestArg(arg(args, "focus_org_id")),
	}
}

// ProcessReporting builds the reporting dashboard: the monthly series over
// [start_date, end_date], KPIs, the paged organization table and the
// independently paged action items keyed by action_page.
func (s *Service) ProcessReporting(ctx context.Context, paging *Paging, args Args) (*ReportingContext, error) {
	window := reporting.ResolveWindow(arg(args, "start_date"), arg(args, "end_date"), s.now())
	filters := ReportingFiltersFromArgs(args)

	rows, err := s.store.GetTrialCumulativeTimeSeries(ctx, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("getting time series: %w", err)
	}
	series := reporting.BuildTimeSeries(rows, window.Start, window.End)

	metrics, err := s.store.GetReportingMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting reporting metrics: %w", err)
	}

	orgFilter := db.OrgFilter{MinCompliance: filters.MinCompliance, MaxCompliance: filters.MaxCompliance}
	page, perPage := s.paging(paging, args)
	total, err := s.store.CountOrgCompliance(ctx, orgFilter)
	if err != nil {
		return nil, fmt.Errorf("counting organizations: %w", err)
	}
	orgs, err := paginate(page, perPage, total, func(pr db.PageRequest) ([]db.OrgCompliance, error) {
		return s.store.GetOrgCompliance(ctx, orgFilter, pr)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching organizations: %w", err)
	}

	risk, err := s.store.GetOrganizationRiskAnalysis(ctx, db.RiskFilter{
		MinCompliance:      filters.MinCompliance,
		MaxCompliance:      filters.MaxCompliance,
		FundingSourceClass: filters.FundingSourceClass,
		OrganizationName:   filters.OrganizationName,
	})
	if err != nil {
		return nil, fmt.Errorf("getting organization risk: %w", err)
	}
	items := reporting.BuildActionItems(risk)

	actionPage, _ := pagination.Args(arg(args, "action_page"), "")
	actions, err := paginate(actionPage, s.actionItemsPerPage, len(items), func(pr db.PageRequest) ([]reporting.ActionItem, error) {
		lo := (pr.Page - 1) * pr.PerPage
		return items[lo:min(lo+pr.PerPage, len(items))], nil
	})
	if err != nil {
		return nil, err
	}

	focus, err := s.focusOrg(ctx, filters.FocusOrgID, items)
	if err != nil {
		return nil, err
	}

	classes, err := s.store.GetFundingSourceClasses(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting funding source classes: %w", err)
	}

	return &ReportingContext{
		Template:             TemplateReporting,
		StartDate:            window.Start.Format(dateLayout),
		EndDate:              window.End.Format(dateLayout),
		TimeSeries:           series.Points,
		StatusColumns:        series.Statuses,
		LatestPoint:          series.Latest,
		KPIs:                 reporting.BuildKPIs(metrics),
		OrgCompliance:        orgs.Items,
		Pagination:           orgs,
		PerPage:              orgs.PerPage,
		ActionItems:          actions.Items,
		ActionPagination:     actions,
		TotalActionItems:     len(items),
		FocusOrg:             focus,
		FundingSourceClasses: classes,
		Filters:              filters,
	}, nil
}

// focusOrg loads the late trials of the focus organization when it is
// one of the action items.
func (s *Service) focusOrg(ctx context.Context, id *int, items []reporting.ActionItem) (*FocusOrg, error) {
	if id == nil {
		return nil, nil
	}
	for _, item := range items {
		if item.ID != int64(*id) {
			continue
		}

		trials, err := s.store.GetOrgIncompliantTrials(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("getting incompliant trials of organization %d: %w", item.ID, err)
		}

		focus := &FocusOrg{Item: item, Trials: make([]FocusTrial, 0, len(trials))}
		for _, t := range trials {
			ft := FocusTrial{
				ID:                  t.ID,
				NCTID:               t.NCTID,
				Title:               t.Title,
				StartDate:           dateLabel(t.StartDate),
				CompletionDate:      dateLabel(t.CompletionDate),
				ReportingDueDate:    dateLabel(t.ReportingDueDate),
				LastChecked:         dateLabel(t.LastChecked),
				ResultsReportedDate: dateLabel(t.ResultsReportedDate),
			}
			if t.DaysOverdue != nil {
				ft.DaysOverdue = *t.DaysOverdue
			}
			focus.Trials = append(focus.Trials, ft)
		}
		return focus, nil
	}
	return nil, nil
}

func dateLabel(t *time.Time) string {
	if t == nil || t.IsZero() {
		return missingDate
	}
	return t.Format(dateLabelLayout)
}
