package reporting

import (
	"testing"

	"github.com/ctgov/compliance/internal/db"
)

func TestBuildActionItems(t *testing.T) {
	orgs := []db.OrganizationRisk{
		{ID: 1, Name: "Empty Org", TotalTrials: 0},
		{ID: 2, Name: "Perfect Org", TotalTrials: 4, OnTimeCount: 4},
		{ID: 3, Name: "Half Org", TotalTrials: 4, OnTimeCount: 2, LateCount: 1, PendingCount: 1},
		{ID: 4, Name: "Bad Org", TotalTrials: 3, OnTimeCount: 0, LateCount: 3},
		{ID: 5, Name: "Also Half", TotalTrials: 2, OnTimeCount: 1, PendingCount: 1},
		{ID: 6, Name: "Nearly", TotalTrials: 3, OnTimeCount: 2, PendingCount: 1},
	}

	items := BuildActionItems(orgs)

	wantIDs := []int64{4, 3, 5, 6}
	if len(items) != len(wantIDs) {
		t.Fatalf("BuildActionItems() returned %d items, want %d", len(items), len(wantIDs))
	}
	for i, id := range wantIDs {
		if items[i].ID != id {
			t.Errorf("items[%d].ID = %d, want %d", i, items[i].ID, id)
		}
	}

	wantRates := []float64{0, 50, 50, 66.7}
	for i, rate := range wantRates {
		if items[i].ComplianceRate != rate {
			t.Errorf("items[%d].ComplianceRate = %v, want %v", i, items[i].ComplianceRate, rate)
		}
	}

	for i := 1; i < len(items); i++ {
		if items[i-1].ComplianceRate > items[i].ComplianceRate {
			t.Errorf("items not sorted ascending at %d", i)
		}
	}
}

func TestBuildActionItems_Actions(t *testing.T) {
	tests := []struct {
		name      string
		org       db.OrganizationRisk
		wantLabel string
		wantType  string
	}{
		{
			name:      "one late trial",
			org:       db.OrganizationRisk{TotalTrials: 2, OnTimeCount: 1, LateCount: 1},
			wantLabel: "Email reporting lead about 1 late trial",
			wantType:  ActionEmail,
		},
		{
			name:      "several late trials",
			org:       db.OrganizationRisk{TotalTrials: 5, LateCount: 3},
			wantLabel: "Email reporting lead about 3 late trials",
			wantType:  ActionEmail,
		},
		{
			name:      "only pending",
			org:       db.OrganizationRisk{TotalTrials: 2, OnTimeCount: 1, PendingCount: 1},
			wantLabel: "Contact organization to confirm reporting cadence",
			wantType:  ActionContact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := BuildActionItems([]db.OrganizationRisk{tt.org})
			if len(items) != 1 {
				t.Fatalf("BuildActionItems() returned %d items, want 1", len(items))
			}
			actions := items[0].Actions
			if len(actions) != 1 {
				t.Fatalf("Actions = %v, want exactly one", actions)
			}
			if actions[0].Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", actions[0].Label, tt.wantLabel)
			}
			if actions[0].Type != tt.wantType {
				t.Errorf("Type = %q, want %q", actions[0].Type, tt.wantType)
			}
		})
	}
}

func TestBuildActionItems_Empty(t *testing.T) {
	items := BuildActionItems(nil)
	if items == nil || len(items) != 0 {
		t.Errorf("BuildActionItems(nil) = %v, want empty non-nil slice", items)
	}
}

func TestBuildActionItems_NearlyPerfectKept(t *testing.T) {
	// 999/1000 rounds to 99.9 and stays in the list
	items := BuildActionItems([]db.OrganizationRisk{{ID: 1, TotalTrials: 1000, OnTimeCount: 999, LateCount: 1}})
	if len(items) != 1 || items[0].ComplianceRate != 99.9 {
		t.Errorf("BuildActionItems() = %+v, want one item at 99.9", items)
	}

	// 9999/10000 rounds to 100.0 and is dropped
	items = BuildActionItems([]db.OrganizationRisk{{ID: 2, TotalTrials: 10000, OnTimeCount: 9999, LateCount: 1}})
	if len(items) != 0 {
		t.Errorf("BuildActionItems() = %+v, want none", items)
	}
}
