// Package vplus provides the consumption API client.
//
// This package implements a client for the two consumption collections of
// the vSphere+ service and parses the results into provider records. It
// handles:
//   - Bearer authentication using connection state from the csp package,
//     with a single on-demand token re-exchange when the saved connection
//     has expired
//   - Deployment usage queries, summing per-product usage entries into
//     per-deployment vSphere+/vSAN+ totals
//   - Subscription queries, preserving the dynamic offer_context bag of
//     bundled multi-product subscriptions
//   - Automatic timeout handling and exponential backoff for transient
//     transport failures (client errors are not retried)
//
// The main type is Client, which implements provider.UsageProvider.
//
// Example usage:
//
//	client := vplus.NewClient(cfg, conn, log)
//
//	deployments, err := client.QueryDeployments(context.Background())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, d := range deployments {
//		fmt.Printf("%s: vSphere %.0f cores, vSAN %.1f TiB\n",
//			d.Name, d.VSphereUsage, d.VSANUsage)
//	}
package vplus
