package csp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// expirySkew is subtracted from the token lifetime so a connection is
// treated as expired slightly before the server would reject it.
const expirySkew = 60 * time.Second

// Connection is the process-wide connection state created by a token
// exchange and read by both reports. It is safe to persist: the access
// token is short-lived and the refresh token is never written.
type Connection struct {
	CSPServer   string    `json:"csp_server"`
	Server      string    `json:"server"`
	OrgID       string    `json:"org_id"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Headers returns the request headers carrying the access token. The
// consumption API accepts either header; both are set.
func (c *Connection) Headers() map[string]string {
	return map[string]string{
		"csp-auth-token": c.AccessToken,
		"Authorization":  "Bearer " + c.AccessToken,
		"Content-Type":   "application/json",
	}
}

// Expired reports whether the connection's access token has expired
// (with a small skew) as of now.
func (c *Connection) Expired(now time.Time) bool {
	if c == nil || c.AccessToken == "" {
		return true
	}
	return !now.Before(c.ExpiresAt.Add(-expirySkew))
}

// DefaultConnectionFile returns the default saved connection path,
// ~/.vplus/connection.json.
func DefaultConnectionFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".vplus", "connection.json"), nil
}

// Save writes the connection state to path, creating the parent directory
// if needed. The file is written 0600: it contains a bearer token.
func Save(conn *Connection, path string) error {
	data, err := json.MarshalIndent(conn, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode connection: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create connection directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write connection file: %w", err)
	}

	return nil
}

// Load reads previously saved connection state from path.
func Load(path string) (*Connection, error) {
	// #nosec G304 -- Connection file path comes from configuration, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read connection file: %w", err)
	}

	var conn Connection
	if err := json.Unmarshal(data, &conn); err != nil {
		return nil, fmt.Errorf("failed to parse connection file: %w", err)
	}

	return &conn, nil
}
