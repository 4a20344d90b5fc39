package reporting

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/ctgov/compliance/internal/db"
)

// Action types
const (
	ActionEmail   = "email"
	ActionContact = "contact"
)

// Action is a suggested remediation step
type Action struct {
	Label string `json:"label"`
	Type  string `json:"type"`
}

// ActionItem is an organization below full compliance
type ActionItem struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	ComplianceRate      float64    `json:"compliance_rate"`
	LateCount           int        `json:"late_count"`
	PendingCount        int        `json:"pending_count"`
	HighRiskTrials      int        `json:"high_risk_trials"`
	TotalTrials         int        `json:"total_trials"`
	LastComplianceCheck *time.Time `json:"last_compliance_check"`
	Actions             []Action   `json:"actions"`
}

// BuildActionItems ranks organizations by on-time rate, worst first.
// Organizations without trials or at 100% are left out; ties keep input order.
func BuildActionItems(orgs []db.OrganizationRisk) []ActionItem {
	items := []ActionItem{}
	for _, org := range orgs {
		if org.TotalTrials == 0 {
			continue
		}

		rate := math.Round(float64(org.OnTimeCount)/float64(org.TotalTrials)*100*10) / 10
		if rate == 100 {
			continue
		}

		items = append(items, ActionItem{
			ID:                  org.ID,
			Name:                org.Name,
			ComplianceRate:      rate,
			LateCount:           org.LateCount,
			PendingCount:        org.PendingCount,
			HighRiskTrials:      org.HighRiskTrials,
			TotalTrials:         org.TotalTrials,
			LastComplianceCheck: org.LastComplianceCheck,
			Actions:             actionsFor(org),
		})
	}

	slices.SortStableFunc(items, func(a, b ActionItem) int {
		switch {
		case a.ComplianceRate < b.ComplianceRate:
			return -1
		case a.ComplianceRate > b.ComplianceRate:
			return 1
		}
		return 0
	})
	return items
}

func actionsFor(org db.OrganizationRisk) []Action {
	if org.LateCount > 0 {
		noun := "trials"
		if org.LateCount == 1 {
			noun = "trial"
		}
		return []Action{{
			Label: fmt.Sprintf("Email reporting lead about %d late %s", org.LateCount, noun),
			Type:  ActionEmail,
		}}
	}
	return []Action{{
		Label: "Contact organization to confirm reporting cadence",
		Type:  ActionContact,
	}}
}
