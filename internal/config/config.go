package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration validation constants
const (
	MinRefreshInterval = 60    // Minimum refresh interval in seconds
	MinPort            = 1     // Minimum valid port number
	MaxPort            = 65535 // Maximum valid port number
	MaxAPITimeout      = 300   // Maximum API timeout in seconds

	// Default values
	DefaultCSPServer       = "https://console.cloud.vmware.com"
	DefaultServer          = "https://vmc.vmware.com"
	DefaultRefreshInterval = 3600 // 1 hour in seconds
	DefaultHTTPPort        = 8080
	DefaultLogLevel        = "info"
	DefaultAPITimeout      = 30 // API timeout in seconds
)

// Config represents the application configuration
type Config struct {
	CSPServer       string `yaml:"csp_server"`       // Cloud services platform (token exchange)
	Server          string `yaml:"server"`           // Consumption API server
	OrgID           string `yaml:"org_id"`           // Optional; derived from the access token when empty
	RefreshToken    string `yaml:"refresh_token"`    // Long-lived CSP API token
	ConnectionFile  string `yaml:"connection_file"`  // Optional override of the saved connection path
	RefreshInterval int    `yaml:"refresh_interval"` // Exporter refresh interval in seconds
	HTTPPort        int    `yaml:"http_port"`
	LogLevel        string `yaml:"log_level"`
	APITimeout      int    `yaml:"api_timeout"` // Per-request timeout in seconds
}

// Load loads configuration from a YAML file and applies environment variable
// overrides. A missing file is not an error: the configuration can be
// supplied entirely through environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	// #nosec G304 -- Config file path is provided by the operator via CLI flag, not user input
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// Fall through to env vars and defaults
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Apply defaults
	applyDefaults(&cfg)

	// Override with environment variables
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment variable error: %w", err)
	}

	// Validate
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for configuration
func applyDefaults(cfg *Config) {
	if cfg.CSPServer == "" {
		cfg.CSPServer = DefaultCSPServer
	}
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = DefaultHTTPPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.APITimeout == 0 {
		cfg.APITimeout = DefaultAPITimeout
	}
}

// applyEnvOverrides applies environment variable overrides to configuration
func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv("VPLUS_CSP_SERVER"); val != "" {
		cfg.CSPServer = val
	}

	if val := os.Getenv("VPLUS_SERVER"); val != "" {
		cfg.Server = val
	}

	if val := os.Getenv("VPLUS_ORG_ID"); val != "" {
		cfg.OrgID = val
	}

	if val := os.Getenv("VPLUS_REFRESH_TOKEN"); val != "" {
		cfg.RefreshToken = val
	}

	if val := os.Getenv("VPLUS_CONNECTION_FILE"); val != "" {
		cfg.ConnectionFile = val
	}

	if val := os.Getenv("VPLUS_REFRESH_INTERVAL"); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid VPLUS_REFRESH_INTERVAL: must be an integer, got %q", val)
		}
		cfg.RefreshInterval = i
	}

	if val := os.Getenv("VPLUS_HTTP_PORT"); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid VPLUS_HTTP_PORT: must be an integer, got %q", val)
		}
		cfg.HTTPPort = i
	}

	if val := os.Getenv("VPLUS_LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}

	if val := os.Getenv("VPLUS_API_TIMEOUT"); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid VPLUS_API_TIMEOUT: must be an integer, got %q", val)
		}
		cfg.APITimeout = i
	}

	return nil
}

// validate validates the configuration
func validate(cfg *Config) error {
	if !strings.HasPrefix(cfg.CSPServer, "http://") && !strings.HasPrefix(cfg.CSPServer, "https://") {
		return fmt.Errorf("csp_server must be an http(s) URL, got %q", cfg.CSPServer)
	}

	if !strings.HasPrefix(cfg.Server, "http://") && !strings.HasPrefix(cfg.Server, "https://") {
		return fmt.Errorf("server must be an http(s) URL, got %q", cfg.Server)
	}

	if cfg.RefreshToken == "" {
		return fmt.Errorf("no refresh token configured (set refresh_token or VPLUS_REFRESH_TOKEN)")
	}

	if cfg.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive, got %d", cfg.RefreshInterval)
	}

	if cfg.RefreshInterval < MinRefreshInterval {
		return fmt.Errorf("refresh_interval must be at least %d seconds", MinRefreshInterval)
	}

	if cfg.HTTPPort < MinPort || cfg.HTTPPort > MaxPort {
		return fmt.Errorf("http_port must be between %d and %d", MinPort, MaxPort)
	}

	if cfg.APITimeout <= 0 {
		return fmt.Errorf("api_timeout must be positive, got %d", cfg.APITimeout)
	}

	if cfg.APITimeout > MaxAPITimeout {
		return fmt.Errorf("api_timeout should not exceed %d seconds, got %d", MaxAPITimeout, cfg.APITimeout)
	}

	return nil
}
