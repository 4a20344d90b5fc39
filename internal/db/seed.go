package db

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Fixture is a YAML document of sample data for `ctgov db seed`
type Fixture struct {
	Organizations []FixtureOrganization `yaml:"organizations"`
	Users         []FixtureUser         `yaml:"users"`
	Trials        []FixtureTrial        `yaml:"trials"`
	Logins        []string              `yaml:"logins"`
}

// FixtureOrganization is an organization entry
type FixtureOrganization struct {
	Name string `yaml:"name"`
}

// FixtureUser is a user entry; Organization refers to an organization by name
type FixtureUser struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
	Organization string `yaml:"organization"`
}

// FixtureTrial is a trial entry with an optional compliance check
type FixtureTrial struct {
	NCTID              string             `yaml:"nct_id"`
	Title              string             `yaml:"title"`
	Organization       string             `yaml:"organization"`
	User               string             `yaml:"user"`
	Status             string             `yaml:"status"`
	FundingSourceClass string             `yaml:"funding_source_class"`
	StartDate          string             `yaml:"start_date"`
	CompletionDate     string             `yaml:"completion_date"`
	ReportingDueDate   string             `yaml:"reporting_due_date"`
	Compliance         *FixtureCompliance `yaml:"compliance"`
}

// FixtureCompliance is a compliance check; an empty Status means pending
type FixtureCompliance struct {
	Status              string `yaml:"status"`
	LastChecked         string `yaml:"last_checked"`
	ResultsReportedDate string `yaml:"results_reported_date"`
}

// SeedResult counts what Seed wrote
type SeedResult struct {
	Organizations int
	Users         int
	Trials        int
	Checks        int
	Logins        int
}

// LoadFixture decodes a YAML fixture
func LoadFixture(r io.Reader) (*Fixture, error) {
	var f Fixture
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}
	return &f, nil
}

// Seed loads a fixture. It is idempotent: organizations and users are
// matched by name/email and trials are upserted by NCT id.
func (db *DB) Seed(ctx context.Context, f *Fixture) (*SeedResult, error) {
	res := &SeedResult{}
	orgIDs := make(map[string]int64)
	userIDs := make(map[string]int64)

	orgID := func(name string) (*int64, error) {
		if name == "" {
			return nil, nil
		}
		if id, ok := orgIDs[name]; ok {
			return &id, nil
		}
		org, err := db.GetOrCreateOrg(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("organization %q: %w", name, err)
		}
		orgIDs[name] = org.ID
		res.Organizations++
		return &org.ID, nil
	}

	for _, o := range f.Organizations {
		if _, err := orgID(o.Name); err != nil {
			return nil, err
		}
	}

	for _, u := range f.Users {
		org, err := orgID(u.Organization)
		if err != nil {
			return nil, err
		}
		user, err := db.GetOrCreateUser(ctx, u.Email, u.PasswordHash, org)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", u.Email, err)
		}
		userIDs[u.Email] = user.ID
		res.Users++
	}

	for _, ft := range f.Trials {
		org, err := orgID(ft.Organization)
		if err != nil {
			return nil, err
		}
		trial := &Trial{
			NCTID:              ft.NCTID,
			Title:              ft.Title,
			OrganizationID:     org,
			Status:             ft.Status,
			FundingSourceClass: ft.FundingSourceClass,
			StartDate:          ft.StartDate,
			CompletionDate:     ft.CompletionDate,
			ReportingDueDate:   ft.ReportingDueDate,
		}
		if ft.User != "" {
			id, ok := userIDs[ft.User]
			if !ok {
				return nil, fmt.Errorf("trial %s: unknown user %q", ft.NCTID, ft.User)
			}
			trial.UserID = &id
		}
		if err := db.UpsertTrial(ctx, trial); err != nil {
			return nil, fmt.Errorf("trial %s: %w", ft.NCTID, err)
		}
		res.Trials++

		if ft.Compliance == nil {
			continue
		}
		check := ComplianceCheck{
			TrialID:             trial.ID,
			LastChecked:         ft.Compliance.LastChecked,
			ResultsReportedDate: ft.Compliance.ResultsReportedDate,
		}
		if ft.Compliance.Status != "" {
			status := ft.Compliance.Status
			check.Status = &status
		}
		if err := db.RecordComplianceCheck(ctx, check); err != nil {
			return nil, fmt.Errorf("trial %s compliance: %w", ft.NCTID, err)
		}
		res.Checks++
	}

	for _, email := range f.Logins {
		id, ok := userIDs[email]
		if !ok {
			return nil, fmt.Errorf("login: unknown user %q", email)
		}
		if err := db.RecordLoginActivity(ctx, id); err != nil {
			return nil, err
		}
		res.Logins++
	}

	return res, nil
}
