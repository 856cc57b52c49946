package csp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lamw/vplus-usage-exporter/internal/clock"
	"github.com/lamw/vplus-usage-exporter/internal/logger"
)

// authorizePath is the CSP API-token exchange endpoint
const authorizePath = "/csp/gateway/am/api/auth/api-tokens/authorize"

// maxErrorBodySize caps how much of an error response body is read back
// into the returned error
const maxErrorBodySize = 4 * 1024

// Authenticator exchanges a long-lived CSP API refresh token for a
// short-lived access token.
type Authenticator struct {
	cspServer  string
	httpClient *http.Client
	logger     *logger.Logger
	clock      clock.Clock // Time provider for testing
}

// tokenResponse is the CSP authorize endpoint response body
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// NewAuthenticator creates an Authenticator against the given CSP server
func NewAuthenticator(cspServer string, log *logger.Logger) *Authenticator {
	return &Authenticator{
		cspServer:  strings.TrimRight(cspServer, "/"),
		httpClient: &http.Client{},
		logger:     log,
		clock:      clock.RealClock{}, // Use real system time by default
	}
}

// Connect performs the token exchange and returns the resulting connection
// state. When orgID is empty it is derived from the access token's claims.
// server is the consumption API base URL the connection will be used
// against; it is recorded in the connection, not contacted here.
func (a *Authenticator) Connect(ctx context.Context, refreshToken, orgID, server string) (*Connection, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token provided")
	}

	form := url.Values{}
	form.Set("refresh_token", refreshToken)

	endpoint := a.cspServer + authorizePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("Exchanging refresh token for access token", "endpoint", endpoint)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if token.AccessToken == "" {
		return nil, fmt.Errorf("token exchange returned an empty access token")
	}

	if orgID == "" {
		orgID, err = orgIDFromToken(token.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("no org_id configured and none found in token: %w", err)
		}
	}

	conn := &Connection{
		CSPServer:   a.cspServer,
		Server:      strings.TrimRight(server, "/"),
		OrgID:       orgID,
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   a.clock.Now().Add(time.Duration(token.ExpiresIn) * time.Second),
	}

	a.logger.Info("Authenticated with cloud services platform",
		"org_id", conn.OrgID,
		"expires_at", conn.ExpiresAt.Format(time.RFC3339))

	return conn, nil
}

// orgIDFromToken extracts the organization ID from the access token's
// context_name claim. The signature is deliberately not verified: the token
// was just issued to us over TLS and the claim is only used for request
// routing, not authorization.
func orgIDFromToken(accessToken string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return "", fmt.Errorf("failed to parse access token: %w", err)
	}

	orgID, ok := claims["context_name"].(string)
	if !ok || orgID == "" {
		return "", fmt.Errorf("access token has no context_name claim")
	}

	return orgID, nil
}
