// Package provider defines the provider-neutral consumption records and the
// UsageProvider interface shared by the CLI reports and the Prometheus
// collector.
//
// The main types are:
//   - UsageProvider: interface implemented by API clients (useful for testing)
//   - DeploymentUsage: per-deployment vSphere+/vSAN+ usage totals
//   - SubscriptionLineItem: one subscription, with its dynamic product bag
//     for the bundled multi-product case
package provider
