package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ctgov/compliance/internal/db"
	"github.com/ctgov/compliance/internal/pagination"
)

// TrialsContext is the context of every trial-listing dashboard
type TrialsContext struct {
	Template    string                        `json:"template"`
	Trials      []db.TrialRow                 `json:"trials"`
	Pagination  *pagination.Page[db.TrialRow] `json:"pagination"`
	PerPage     int                           `json:"per_page"`
	OnTimeCount int                           `json:"on_time_count"`
	LateCount   int                           `json:"late_count"`
	IsSearch    bool                          `json:"is_search,omitempty"`
	OrgIDs      string                        `json:"org_ids,omitempty"`
	UserID      int64                         `json:"user_id,omitempty"`
	UserEmail   string                        `json:"user_email,omitempty"`
}

type trialQuery struct {
	filter db.TrialFilter
	count  func(context.Context) (int, error)
	fetch  func(context.Context, db.PageRequest) ([]db.TrialRow, error)
}

// listTrials counts, pages, fetches and tallies compliance over the whole
// filtered set, in that order.
func (s *Service) listTrials(ctx context.Context, template string, q trialQuery, paging *Paging, args Args) (*TrialsContext, error) {
	page, perPage := s.paging(paging, args)

	total, err := q.count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting trials: %w", err)
	}

	p, err := paginate(page, perPage, total, func(pr db.PageRequest) ([]db.TrialRow, error) {
		return q.fetch(ctx, pr)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching trials: %w", err)
	}

	counts, err := s.store.GetComplianceRate(ctx, q.filter)
	if err != nil {
		return nil, fmt.Errorf("getting compliance counts: %w", err)
	}

	return &TrialsContext{
		Template:    template,
		Trials:      p.Items,
		Pagination:  p,
		PerPage:     p.PerPage,
		OnTimeCount: counts.CompliantCount,
		LateCount:   counts.IncompliantCount,
	}, nil
}

// ProcessIndex builds the home dashboard listing every trial
func (s *Service) ProcessIndex(ctx context.Context, paging *Paging, args Args) (*TrialsContext, error) {
	return s.listTrials(ctx, TemplateHome, trialQuery{
		count: s.store.CountAllTrials,
		fetch: s.store.GetAllTrials,
	}, paging, args)
}

// ProcessSearch builds the search results. With no search field set it
// returns just the template so the form is shown.
func (s *Service) ProcessSearch(ctx context.Context, params db.SearchParams, paging *Paging, args Args) (*TrialsContext, error) {
	if params.Empty() {
		return &TrialsContext{Template: TemplateHome}, nil
	}

	tc, err := s.listTrials(ctx, TemplateHome, trialQuery{
		filter: db.TrialFilter{Search: &params},
		count: func(ctx context.Context) (int, error) {
			return s.store.CountSearchTrials(ctx, params)
		},
		fetch: func(ctx context.Context, pr db.PageRequest) ([]db.TrialRow, error) {
			return s.store.SearchTrials(ctx, params, pr)
		},
	}, paging, args)
	if err != nil {
		return nil, err
	}
	tc.IsSearch = true
	return tc, nil
}

// ProcessOrganization builds the dashboard of one or more organizations.
// raw is a comma separated id list that arrives URL-encoded twice.
func (s *Service) ProcessOrganization(ctx context.Context, raw string, paging *Paging, args Args) (*TrialsContext, error) {
	decoded := decodeTwice(raw)
	orgIDs, err := ParseOrgIDs(decoded)
	if err != nil {
		return nil, err
	}

	tc, err := s.listTrials(ctx, TemplateOrganization, trialQuery{
		filter: db.TrialFilter{OrgIDs: orgIDs},
		count: func(ctx context.Context) (int, error) {
			return s.store.CountOrgTrials(ctx, orgIDs)
		},
		fetch: func(ctx context.Context, pr db.PageRequest) ([]db.TrialRow, error) {
			return s.store.GetOrgTrials(ctx, orgIDs, pr)
		},
	}, paging, args)
	if err != nil {
		return nil, err
	}
	tc.OrgIDs = decoded
	return tc, nil
}

// decodeTwice undoes the double URL encoding of organization id lists.
// A step that fails to decode keeps its input.
func decodeTwice(s string) string {
	for range 2 {
		if d, err := url.PathUnescape(s); err == nil {
			s = d
		}
	}
	return s
}

// ParseOrgIDs splits a comma separated id list, dropping empty tokens
func ParseOrgIDs(s string) ([]int64, error) {
	var ids []int64
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: organization id %q", ErrInvalidInput, tok)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no organization ids in %q", ErrInvalidInput, s)
	}
	return ids, nil
}

// ProcessUser builds the dashboard of one user's trials. A user without
// trials gets an empty listing with the email from the user record.
func (s *Service) ProcessUser(ctx context.Context, userID int64, paging *Paging, args Args) (*TrialsContext, error) {
	page, perPage := s.paging(paging, args)

	total, err := s.store.CountUserTrials(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting user trials: %w", err)
	}

	if total == 0 {
		tc := &TrialsContext{
			Template: TemplateUser,
			Trials:   []db.TrialRow{},
			PerPage:  perPage,
			UserID:   userID,
		}
		if tc.PerPage == 0 {
			tc.PerPage = pagination.DefaultPerPage
		}
		user, err := s.store.GetUser(ctx, userID)
		switch {
		case err == nil:
			tc.UserEmail = user.Email
		case !errors.Is(err, db.ErrNotFound):
			return nil, fmt.Errorf("getting user: %w", err)
		}
		return tc, nil
	}

	tc, err := s.listTrials(ctx, TemplateUser, trialQuery{
		filter: db.TrialFilter{UserID: userID},
		count: func(context.Context) (int, error) {
			return total, nil
		},
		fetch: func(ctx context.Context, pr db.PageRequest) ([]db.TrialRow, error) {
			return s.store.GetUserTrials(ctx, userID, pr)
		},
	}, &Paging{Page: page, PerPage: perPage}, nil)
	if err != nil {
		return nil, err
	}
	tc.UserID = userID
	if len(tc.Trials) > 0 {
		tc.UserEmail = tc.Trials[0].Email
	}
	return tc, nil
}
