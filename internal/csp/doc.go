// Package csp handles authentication against the cloud services platform.
//
// The platform issues long-lived API refresh tokens; every API call needs a
// short-lived access token instead. This package performs that exchange and
// manages the resulting connection state:
//   - Authenticator: POSTs the refresh token to the authorize endpoint and
//     builds a Connection from the response
//   - Connection: servers, org ID, access token and expiry; provides the
//     request headers bag and save/load to ~/.vplus/connection.json
//
// The org ID, when not configured explicitly, is read from the access
// token's context_name JWT claim.
//
// Example usage:
//
//	auth := csp.NewAuthenticator("https://console.cloud.vmware.com", log)
//	conn, err := auth.Connect(ctx, refreshToken, "", "https://vmc.vmware.com")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := csp.Save(conn, path); err != nil {
//		log.Fatal(err)
//	}
package csp
