// Package config provides configuration management for the vSphere+ usage
// reporter.
//
// This package handles loading configuration from YAML files, applying
// environment variable overrides, setting defaults, and validating the
// configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (highest priority)
//  2. YAML configuration file
//  3. Default values (lowest priority)
//
// A missing configuration file is not an error: everything can be supplied
// through environment variables, which is the usual container deployment.
//
// Supported environment variables:
//   - VPLUS_CSP_SERVER: Cloud services platform base URL (token exchange)
//   - VPLUS_SERVER: Consumption API base URL
//   - VPLUS_ORG_ID: Organization ID (derived from the token when unset)
//   - VPLUS_REFRESH_TOKEN: Long-lived CSP API token
//   - VPLUS_CONNECTION_FILE: Saved connection path override
//   - VPLUS_REFRESH_INTERVAL: Exporter refresh interval in seconds (minimum: 60)
//   - VPLUS_HTTP_PORT: HTTP server port (1-65535)
//   - VPLUS_LOG_LEVEL: Log level (debug, info, warn, error)
//   - VPLUS_API_TIMEOUT: Per-request timeout in seconds (1-300)
//
// Example configuration file (config.yaml):
//
//	csp_server: "https://console.cloud.vmware.com"
//	server: "https://vmc.vmware.com"
//	org_id: "0284..."
//	refresh_token: "..."
//	refresh_interval: 3600  # 1 hour
//	http_port: 8080
//	log_level: "info"
package config
