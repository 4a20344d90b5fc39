package dashboard

import (
	"context"
	"fmt"

	"github.com/ctgov/compliance/internal/db"
	"github.com/ctgov/compliance/internal/pagination"
)

// CompareContext is the context of the organization comparison dashboard
type CompareContext struct {
	Template           string                             `json:"template"`
	OrgCompliance      []db.OrgCompliance                 `json:"org_compliance"`
	Pagination         *pagination.Page[db.OrgCompliance] `json:"pagination"`
	PerPage            int                                `json:"per_page"`
	OnTimeCount        int                                `json:"on_time_count"`
	LateCount          int                                `json:"late_count"`
	TotalOrganizations int                                `json:"total_organizations"`
}

// OrgFilterFromArgs reads the comparison bounds. Anything but digits is
// treated as unset.
func OrgFilterFromArgs(args Args) db.OrgFilter {
	return db.OrgFilter{
		MinCompliance: parseRequestArg(arg(args, "min_compliance")),
		MaxCompliance: parseRequestArg(arg(args, "max_compliance")),
		MinTrials:     parseRequestArg(arg(args, "min_trials")),
		MaxTrials:     parseRequestArg(arg(args, "max_trials")),
	}
}

// FundingSourceClasses lists the funding source classes to filter by
func (s *Service) FundingSourceClasses(ctx context.Context) ([]string, error) {
	return s.store.GetFundingSourceClasses(ctx)
}

// ProcessCompare builds the organization comparison dashboard
func (s *Service) ProcessCompare(ctx context.Context, paging *Paging, args Args) (*CompareContext, error) {
	filter := OrgFilterFromArgs(args)
	page, perPage := s.paging(paging, args)

	total, err := s.store.CountOrgCompliance(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("counting organizations: %w", err)
	}

	p, err := paginate(page, perPage, total, func(pr db.PageRequest) ([]db.OrgCompliance, error) {
		return s.store.GetOrgCompliance(ctx, filter, pr)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching organizations: %w", err)
	}

	counts, err := s.store.GetComplianceRateCompare(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("getting compliance counts: %w", err)
	}

	return &CompareContext{
		Template:           TemplateCompare,
		OrgCompliance:      p.Items,
		Pagination:         p,
		PerPage:            p.PerPage,
		OnTimeCount:        counts.CompliantCount,
		LateCount:          counts.IncompliantCount,
		TotalOrganizations: total,
	}, nil
}
