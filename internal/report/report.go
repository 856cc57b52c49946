// Package report turns provider records into display-ready rows and
// renders them as tables or JSON.
package report

import (
	"sort"
	"strconv"
	"strings"

	"github.com/lamw/vplus-usage-exporter/internal/provider"
)

// DeploymentRow is one deployment in the usage report
type DeploymentRow struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	VSphereUsage float64 `json:"vsphere_usage"`
	VSANUsage    float64 `json:"vsan_usage"`
}

// SubscriptionRow is one line of the subscription report. Quantity is a
// string: expanded bundle rows carry the raw count parsed out of the
// product bag, which is not guaranteed numeric.
type SubscriptionRow struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Quantity      string `json:"quantity"`
	Units         string `json:"units"`
	Type          string `json:"type"`
	Flexible      bool   `json:"flexible"`
	Seller        string `json:"seller"`
	BillingOption string `json:"billing_option"`
	Term          string `json:"term"`
	Location      string `json:"location"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
}

// FilterDeployments keeps the deployments whose name or ID contains the
// filter, case-insensitively. An empty filter keeps everything.
func FilterDeployments(records []provider.DeploymentUsage, filter string) []provider.DeploymentUsage {
	if filter == "" {
		return records
	}

	var out []provider.DeploymentUsage
	for _, r := range records {
		if matches(filter, r.Name, r.ID) {
			out = append(out, r)
		}
	}
	return out
}

// FilterSubscriptions keeps the subscriptions whose offer name or ID
// contains the filter, case-insensitively. An empty filter keeps everything.
func FilterSubscriptions(records []provider.SubscriptionLineItem, filter string) []provider.SubscriptionLineItem {
	if filter == "" {
		return records
	}

	var out []provider.SubscriptionLineItem
	for _, r := range records {
		if matches(filter, r.OfferName, r.ID) {
			out = append(out, r)
		}
	}
	return out
}

// matches reports whether any of the values contains filter, ignoring case
func matches(filter string, values ...string) bool {
	filter = strings.ToLower(filter)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), filter) {
			return true
		}
	}
	return false
}

// DeploymentRows maps usage records to report rows
func DeploymentRows(records []provider.DeploymentUsage) []DeploymentRow {
	rows := make([]DeploymentRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, DeploymentRow{
			ID:           r.ID,
			Name:         r.Name,
			VSphereUsage: r.VSphereUsage,
			VSANUsage:    r.VSANUsage,
		})
	}
	return rows
}

// SubscriptionRows flattens line items into report rows.
//
// A subscription with an empty product bag yields one row. A bundled
// subscription yields, with expand set, one row per bag entry (sorted by
// product name) with quantity and units parsed out of the bag value;
// without expand it yields a single row whose type lists the bundled
// product names.
func SubscriptionRows(records []provider.SubscriptionLineItem, expand bool) []SubscriptionRow {
	var rows []SubscriptionRow

	for _, r := range records {
		base := SubscriptionRow{
			ID:            r.ID,
			Status:        r.Status,
			Quantity:      formatQuantity(r.Quantity),
			Units:         r.Units,
			Type:          r.Type,
			Flexible:      r.Flexible,
			Seller:        r.Seller,
			BillingOption: r.BillingOption,
			Term:          r.Term,
			Location:      r.Region,
			StartDate:     r.StartDate,
			EndDate:       r.EndDate,
		}

		if !r.Bundled() {
			rows = append(rows, base)
			continue
		}

		products := sortedKeys(r.OfferContext)

		if !expand {
			base.Type = strings.Join(products, ", ")
			rows = append(rows, base)
			continue
		}

		for _, product := range products {
			row := base
			row.Type = product
			row.Quantity, row.Units = splitQuantity(r.OfferContext[product])
			rows = append(rows, row)
		}
	}

	return rows
}

// splitQuantity splits a product bag value like "128 Cores" into the count
// (first whitespace-separated field) and the unit remainder. A value with
// no whitespace is all count and no units.
func splitQuantity(v string) (quantity, units string) {
	fields := strings.Fields(v)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

// formatQuantity renders a numeric quantity without trailing zeros
func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
