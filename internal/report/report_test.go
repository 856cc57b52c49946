package report

import (
	"testing"

	"github.com/lamw/vplus-usage-exporter/internal/provider"
)

func TestFilterDeployments_CaseInsensitive(t *testing.T) {
	records := []provider.DeploymentUsage{
		{ID: "dep-1", Name: "SDDC-Prod"},
		{ID: "dep-2", Name: "sddc-lab"},
		{ID: "other-3", Name: "edge"},
	}

	tests := []struct {
		name   string
		filter string
		want   int
	}{
		{"empty filter keeps everything", "", 3},
		{"matches by name ignoring case", "PROD", 1},
		{"matches by id", "dep-", 2},
		{"no match", "missing", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterDeployments(records, tt.filter)
			if len(got) != tt.want {
				t.Errorf("FilterDeployments(%q) returned %d records, want %d", tt.filter, len(got), tt.want)
			}
		})
	}
}

func TestFilterSubscriptions_MatchesOfferNameAndID(t *testing.T) {
	records := []provider.SubscriptionLineItem{
		{ID: "sub-1", OfferName: "vSphere+ Commitment"},
		{ID: "sub-2", OfferName: "Cloud Universal Bundle"},
	}

	if got := FilterSubscriptions(records, "vsphere"); len(got) != 1 || got[0].ID != "sub-1" {
		t.Errorf("FilterSubscriptions(vsphere) = %+v, want sub-1 only", got)
	}
	if got := FilterSubscriptions(records, "SUB-2"); len(got) != 1 || got[0].ID != "sub-2" {
		t.Errorf("FilterSubscriptions(SUB-2) = %+v, want sub-2 only", got)
	}
}

func TestSubscriptionRows_Simple(t *testing.T) {
	records := []provider.SubscriptionLineItem{
		{
			ID:            "sub-1",
			Status:        "ACTIVE",
			Quantity:      3,
			Units:         "Hosts",
			Type:          "TERM",
			Flexible:      false,
			Seller:        "VMWARE",
			BillingOption: "PREPAID",
			Term:          "1 Year",
			Region:        "us-west-2",
			StartDate:     "2026-01-01",
			EndDate:       "2027-01-01",
		},
	}

	rows := SubscriptionRows(records, true)
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}

	r := rows[0]
	if r.Quantity != "3" {
		t.Errorf("Quantity = %v, want 3", r.Quantity)
	}
	if r.Units != "Hosts" || r.Type != "TERM" || r.Location != "us-west-2" {
		t.Errorf("Row = %+v, want Hosts/TERM/us-west-2", r)
	}
}

func TestSubscriptionRows_BundledExpanded(t *testing.T) {
	records := []provider.SubscriptionLineItem{
		{
			ID:       "sub-2",
			Status:   "ACTIVE",
			Quantity: 1,
			Units:    "Bundle",
			Type:     "TERM",
			Term:     "3 Year",
			Region:   "us-east-1",
			OfferContext: map[string]string{
				"vSphere+": "128 Cores",
				"vSAN+":    "20 TiB",
			},
		},
	}

	rows := SubscriptionRows(records, true)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	// Rows come out sorted by product name
	r1, r2 := rows[0], rows[1]
	if r1.Type != "vSAN+" || r1.Quantity != "20" || r1.Units != "TiB" {
		t.Errorf("Row 1 = %v/%v/%v, want vSAN+/20/TiB", r1.Type, r1.Quantity, r1.Units)
	}
	if r2.Type != "vSphere+" || r2.Quantity != "128" || r2.Units != "Cores" {
		t.Errorf("Row 2 = %v/%v/%v, want vSphere+/128/Cores", r2.Type, r2.Quantity, r2.Units)
	}

	// Shared fields are inherited from the subscription
	if r1.ID != "sub-2" || r1.Status != "ACTIVE" || r1.Term != "3 Year" || r1.Location != "us-east-1" {
		t.Errorf("Row 1 shared fields = %+v, want inherited from sub-2", r1)
	}
}

func TestSubscriptionRows_BundledCollapsed(t *testing.T) {
	records := []provider.SubscriptionLineItem{
		{
			ID:       "sub-2",
			Quantity: 1,
			Units:    "Bundle",
			Type:     "TERM",
			OfferContext: map[string]string{
				"vSphere+": "128 Cores",
				"vSAN+":    "20 TiB",
			},
		},
	}

	rows := SubscriptionRows(records, false)
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}

	r := rows[0]
	if r.Type != "vSAN+, vSphere+" {
		t.Errorf("Type = %v, want comma-joined product names", r.Type)
	}
	if r.Quantity != "1" || r.Units != "Bundle" {
		t.Errorf("Quantity/Units = %v/%v, want 1/Bundle", r.Quantity, r.Units)
	}
}

func TestSplitQuantity(t *testing.T) {
	tests := []struct {
		name         string
		in           string
		wantQuantity string
		wantUnits    string
	}{
		{"count and unit", "128 Cores", "128", "Cores"},
		{"count only", "42", "42", ""},
		{"multi-word unit", "5 TiB capacity", "5", "TiB capacity"},
		{"extra whitespace", "  7   Hosts ", "7", "Hosts"},
		{"empty value", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quantity, units := splitQuantity(tt.in)
			if quantity != tt.wantQuantity || units != tt.wantUnits {
				t.Errorf("splitQuantity(%q) = (%q, %q), want (%q, %q)",
					tt.in, quantity, units, tt.wantQuantity, tt.wantUnits)
			}
		})
	}
}

func TestFormatQuantity(t *testing.T) {
	if got := formatQuantity(3); got != "3" {
		t.Errorf("formatQuantity(3) = %v, want 3", got)
	}
	if got := formatQuantity(20.5); got != "20.5" {
		t.Errorf("formatQuantity(20.5) = %v, want 20.5", got)
	}
}
