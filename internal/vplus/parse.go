package vplus

import (
	"github.com/lamw/vplus-usage-exporter/internal/provider"
)

// Known product identifiers in deployment usage entries. Entries for any
// other product are ignored.
const (
	ProductVSphere = "VSPHERE"
	ProductVSAN    = "VSAN"
)

// deploymentsResponse is the deployment usage collection envelope
type deploymentsResponse struct {
	Deployments []deploymentJSON `json:"deployments"`
}

// deploymentJSON is one deployment as returned by the API
type deploymentJSON struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Usages []usageJSON `json:"usages"`
}

// usageJSON is one per-product usage entry within a deployment
type usageJSON struct {
	Product   string  `json:"product"`
	UsageType string  `json:"usage_type"`
	Quantity  float64 `json:"quantity"`
}

// subscriptionJSON is one subscription as returned by the API
type subscriptionJSON struct {
	ID             string            `json:"id"`
	OfferName      string            `json:"offer_name"`
	Status         string            `json:"status"`
	Quantity       float64           `json:"quantity"`
	Units          string            `json:"units"`
	Type           string            `json:"type"`
	Flexible       bool              `json:"flexible"`
	Seller         string            `json:"seller"`
	BillingOption  string            `json:"billing_option"`
	CommitmentTerm string            `json:"commitment_term"`
	Region         string            `json:"region"`
	StartDate      string            `json:"start_date"`
	EndDate        string            `json:"end_date"`
	OfferContext   map[string]string `json:"offer_context"`
}

// parseDeployments maps API deployments to usage records, summing the
// usage entries of the two known products. Deployments with no recognized
// entries are kept with zero usage.
func parseDeployments(deployments []deploymentJSON) []provider.DeploymentUsage {
	records := make([]provider.DeploymentUsage, 0, len(deployments))

	for _, d := range deployments {
		record := provider.DeploymentUsage{
			ID:   d.ID,
			Name: d.Name,
		}
		for _, u := range d.Usages {
			switch u.Product {
			case ProductVSphere:
				record.VSphereUsage += u.Quantity
			case ProductVSAN:
				record.VSANUsage += u.Quantity
			}
		}
		records = append(records, record)
	}

	return records
}

// parseSubscriptions maps API subscriptions to line item records
func parseSubscriptions(subscriptions []subscriptionJSON) []provider.SubscriptionLineItem {
	records := make([]provider.SubscriptionLineItem, 0, len(subscriptions))

	for _, s := range subscriptions {
		records = append(records, provider.SubscriptionLineItem{
			ID:            s.ID,
			OfferName:     s.OfferName,
			Status:        s.Status,
			Quantity:      s.Quantity,
			Units:         s.Units,
			Type:          s.Type,
			Flexible:      s.Flexible,
			Seller:        s.Seller,
			BillingOption: s.BillingOption,
			Term:          s.CommitmentTerm,
			Region:        s.Region,
			StartDate:     s.StartDate,
			EndDate:       s.EndDate,
			OfferContext:  s.OfferContext,
		})
	}

	return records
}
