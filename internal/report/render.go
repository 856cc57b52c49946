package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderDeploymentsTable writes the deployment usage report to w, with a
// footer summing vSphere+ and vSAN+ usage across all rows.
func RenderDeploymentsTable(w io.Writer, rows []DeploymentRow) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "NAME", "VSPHERE (CORES)", "VSAN (TIB)"})

	var totalVSphere, totalVSAN float64
	for _, r := range rows {
		t.AppendRow(table.Row{r.ID, r.Name, formatQuantity(r.VSphereUsage), formatQuantity(r.VSANUsage)})
		totalVSphere += r.VSphereUsage
		totalVSAN += r.VSANUsage
	}

	t.AppendFooter(table.Row{"", "TOTAL", formatQuantity(totalVSphere), formatQuantity(totalVSAN)})
	t.Render()
}

// RenderSubscriptionsTable writes the subscription report to w
func RenderSubscriptionsTable(w io.Writer, rows []SubscriptionRow) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{
		"ID", "STATUS", "QTY", "UNITS", "TYPE", "FLEXIBLE", "SELLER",
		"BILLING", "TERM", "LOCATION", "START", "END",
	})

	for _, r := range rows {
		t.AppendRow(table.Row{
			r.ID, r.Status, r.Quantity, r.Units, r.Type, r.Flexible, r.Seller,
			r.BillingOption, r.Term, r.Location, r.StartDate, r.EndDate,
		})
	}

	t.Render()
}

// RenderJSON writes v to w as indented JSON
func RenderJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
