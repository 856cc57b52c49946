package provider

import (
	"context"
)

// ProviderType identifies a consumption data source
type ProviderType string

// Supported sources
const (
	ProviderVSpherePlus ProviderType = "vsphere-plus"
)

// UsageProvider is the interface a consumption data source must implement.
// Both the CLI reports and the Prometheus collector consume it.
type UsageProvider interface {
	// QueryDeployments retrieves per-deployment usage totals
	QueryDeployments(ctx context.Context) ([]DeploymentUsage, error)

	// QuerySubscriptions retrieves the subscription line items
	QuerySubscriptions(ctx context.Context) ([]SubscriptionLineItem, error)

	// Name returns the provider type
	Name() ProviderType

	// OrgID returns the organization the provider is scoped to
	OrgID() string
}

// DeploymentUsage is a flat per-deployment usage record. The two usage
// figures are derived by scanning the deployment's per-product usage
// entries and picking out the two known product identifiers.
type DeploymentUsage struct {
	ID           string  // Deployment identifier
	Name         string  // Display name
	VSphereUsage float64 // vSphere+ usage (cores)
	VSANUsage    float64 // vSAN+ usage (TiB)
}

// SubscriptionLineItem is one subscription as returned by the subscription
// collection. A non-empty OfferContext marks a bundled multi-product
// subscription: each key is a contained product name and each value is a
// "<count> <unit>" string ("128 Cores").
type SubscriptionLineItem struct {
	ID            string
	OfferName     string
	Status        string // ACTIVE, EXPIRED, CANCELLED, ...
	Quantity      float64
	Units         string // Hosts, Cores, ...
	Type          string // TERM, ON_DEMAND, ...
	Flexible      bool
	Seller        string // VMWARE, AWS, ...
	BillingOption string // PREPAID, MONTHLY, ...
	Term          string // Commitment term ("1 Year")
	Region        string
	StartDate     string // YYYY-MM-DD
	EndDate       string // YYYY-MM-DD

	// OfferContext is the dynamic product bag of a bundled subscription.
	// Empty or nil for single-product subscriptions.
	OfferContext map[string]string
}

// Bundled reports whether the subscription carries multiple line items.
func (s SubscriptionLineItem) Bundled() bool {
	return len(s.OfferContext) > 0
}
