// Package collector implements the Prometheus collector for vSphere+
// consumption metrics.
//
// The collector fetches both consumption collections (deployment usage and
// subscriptions) on a background interval and serves the cached records on
// scrape, so hitting /metrics never triggers an API call. A failure of one
// collection keeps the other's fresh data.
//
// Exported metrics:
//   - vplus_deployment_vsphere_usage_cores
//   - vplus_deployment_vsan_usage_tib
//   - vplus_subscription_quantity
//   - up, refresh duration/errors/timestamp, cached record counts, and
//     build info under the vplus_exporter_ prefix
package collector
