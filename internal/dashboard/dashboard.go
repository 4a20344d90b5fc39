// Package dashboard assembles the context of each dashboard from the query
// store. Every Process method is a pure function of its inputs and the
// store's current data.
package dashboard

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/ctgov/compliance/internal/db"
	"github.com/ctgov/compliance/internal/pagination"
)

// Templates rendered for each dashboard
const (
	TemplateHome         = "dashboards/home.html"
	TemplateOrganization = "dashboards/organization.html"
	TemplateCompare      = "dashboards/compare.html"
	TemplateUser         = "dashboards/user.html"
	TemplateReporting    = "dashboards/reporting.html"
)

// DefaultActionItemsPerPage is the page size of the reporting action items
const DefaultActionItemsPerPage = 7

// ErrInvalidInput marks a request that can never succeed as given
var ErrInvalidInput = errors.New("invalid input")

// Store is the query collaborator behind the dashboards
type Store interface {
	GetAllTrials(ctx context.Context, page db.PageRequest) ([]db.TrialRow, error)
	CountAllTrials(ctx context.Context) (int, error)
	GetOrgTrials(ctx context.Context, orgIDs []int64, page db.PageRequest) ([]db.TrialRow, error)
	CountOrgTrials(ctx context.Context, orgIDs []int64) (int, error)
	GetUserTrials(ctx context.Context, userID int64, page db.PageRequest) ([]db.TrialRow, error)
	CountUserTrials(ctx context.Context, userID int64) (int, error)
	SearchTrials(ctx context.Context, params db.SearchParams, page db.PageRequest) ([]db.TrialRow, error)
	CountSearchTrials(ctx context.Context, params db.SearchParams) (int, error)
	GetComplianceRate(ctx context.Context, filter db.TrialFilter) (*db.ComplianceCounts, error)

	GetOrgCompliance(ctx context.Context, filter db.OrgFilter, page db.PageRequest) ([]db.OrgCompliance, error)
	CountOrgCompliance(ctx context.Context, filter db.OrgFilter) (int, error)
	GetComplianceRateCompare(ctx context.Context, filter db.OrgFilter) (*db.ComplianceCounts, error)

	GetTrialCumulativeTimeSeries(ctx context.Context, start, end time.Time) ([]db.TrialComplianceRow, error)
	GetReportingMetrics(ctx context.Context) (*db.ReportingMetrics, error)
	GetOrganizationRiskAnalysis(ctx context.Context, filter db.RiskFilter) ([]db.OrganizationRisk, error)
	GetOrgIncompliantTrials(ctx context.Context, orgID int64) ([]db.IncompliantTrial, error)
	GetFundingSourceClasses(ctx context.Context) ([]string, error)

	GetUser(ctx context.Context, id int64) (*db.User, error)
}

// Args is request-style input such as url.Values
type Args interface {
	Get(key string) string
}

// Paging holds explicit page arguments. When nil, page and per_page are
// read from the request args.
type Paging struct {
	Page    int
	PerPage int
}

// Service builds dashboard contexts
type Service struct {
	store              Store
	now                func() time.Time
	actionItemsPerPage int
}

// Option configures a Service
type Option func(*Service)

// WithClock sets the source of "today" for date defaults
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithActionItemsPerPage sets the reporting action items page size
func WithActionItemsPerPage(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.actionItemsPerPage = n
		}
	}
}

// NewService creates a dashboard service over store
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:              store,
		now:                time.Now,
		actionItemsPerPage: DefaultActionItemsPerPage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) paging(explicit *Paging, args Args) (int, int) {
	if explicit != nil {
		return explicit.Page, explicit.PerPage
	}
	return pagination.Args(arg(args, "page"), arg(args, "per_page"))
}

func arg(args Args, key string) string {
	if args == nil {
		return ""
	}
	return args.Get(key)
}

// paginate clamps the requested page against total before fetching it,
// so the fetched slice always matches the reported page.
func paginate[T any](page, perPage, total int, fetch func(db.PageRequest) ([]T, error)) (*pagination.Page[T], error) {
	p, err := pagination.New[T](nil, page, perPage, total)
	if err != nil {
		return nil, err
	}
	items, err := fetch(db.PageRequest{Page: p.Page, PerPage: p.PerPage})
	if err != nil {
		return nil, err
	}
	if items != nil {
		p.Items = items
	}
	return p, nil
}

// parseRequestArg returns the value of an all-digit string, else nil
func parseRequestArg(s string) *int {
	if s == "" {
		return nil
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
