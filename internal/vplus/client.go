package vplus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lamw/vplus-usage-exporter/internal/clock"
	"github.com/lamw/vplus-usage-exporter/internal/config"
	"github.com/lamw/vplus-usage-exporter/internal/csp"
	"github.com/lamw/vplus-usage-exporter/internal/logger"
	"github.com/lamw/vplus-usage-exporter/internal/provider"
)

// API retry constants
const (
	// MaxRetryElapsedTime is the maximum time to spend retrying a failed API call
	MaxRetryElapsedTime = 2 * time.Minute

	// InitialRetryInterval is the initial backoff interval for retries
	InitialRetryInterval = 1 * time.Second

	// MaxRetryInterval is the maximum backoff interval between retries
	MaxRetryInterval = 30 * time.Second
)

// maxErrorBodySize caps how much of an error response body is read back
// into the returned error
const maxErrorBodySize = 4 * 1024

// Client issues authenticated requests against the consumption API and
// implements provider.UsageProvider
type Client struct {
	cfg        *config.Config
	auth       *csp.Authenticator
	httpClient *http.Client
	logger     *logger.Logger
	clock      clock.Clock // Time provider for testing

	mu   sync.Mutex
	conn *csp.Connection
}

// Verify that Client implements provider.UsageProvider
var _ provider.UsageProvider = (*Client)(nil)

// NewClient creates a new consumption API client. conn may be nil or
// expired; the client re-exchanges the configured refresh token on demand.
func NewClient(cfg *config.Config, conn *csp.Connection, log *logger.Logger) *Client {
	return &Client{
		cfg:        cfg,
		auth:       csp.NewAuthenticator(cfg.CSPServer, log),
		httpClient: &http.Client{},
		logger:     log,
		clock:      clock.RealClock{}, // Use real system time by default
		conn:       conn,
	}
}

// Name returns the provider type
func (c *Client) Name() provider.ProviderType {
	return provider.ProviderVSpherePlus
}

// OrgID returns the organization the client is scoped to, or the configured
// org ID before the first connection.
func (c *Client) OrgID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn.OrgID
	}
	return c.cfg.OrgID
}

// Connection returns the current connection state, for persisting after a
// successful call. Nil before the first connection.
func (c *Client) Connection() *csp.Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// ensureConnection makes sure a usable connection exists, exchanging the
// refresh token when the saved one is missing or expired. This is a single
// on-demand exchange, not a renewal loop.
func (c *Client) ensureConnection(ctx context.Context) (*csp.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.Expired(c.clock.Now()) {
		return c.conn, nil
	}

	if c.conn != nil {
		c.logger.Debug("Saved connection expired, re-exchanging refresh token",
			"expired_at", c.conn.ExpiresAt.Format(time.RFC3339))
	}

	conn, err := c.auth.Connect(ctx, c.cfg.RefreshToken, c.cfg.OrgID, c.cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	return conn, nil
}

// QueryDeployments retrieves per-deployment usage totals for the org
func (c *Client) QueryDeployments(ctx context.Context) ([]provider.DeploymentUsage, error) {
	conn, err := c.ensureConnection(ctx)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/api/usage/v1alpha1/orgs/%s/deployments", conn.OrgID)

	var resp deploymentsResponse
	if err := c.getJSON(ctx, conn, path, &resp); err != nil {
		return nil, fmt.Errorf("deployment usage query failed: %w", err)
	}

	records := parseDeployments(resp.Deployments)
	c.logger.Debug("Fetched deployment usage", "org_id", conn.OrgID, "count", len(records))
	return records, nil
}

// QuerySubscriptions retrieves the subscription line items for the org
func (c *Client) QuerySubscriptions(ctx context.Context) ([]provider.SubscriptionLineItem, error) {
	conn, err := c.ensureConnection(ctx)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/vmc/api/orgs/%s/subscriptions", conn.OrgID)

	var resp []subscriptionJSON
	if err := c.getJSON(ctx, conn, path, &resp); err != nil {
		return nil, fmt.Errorf("subscription query failed: %w", err)
	}

	records := parseSubscriptions(resp)
	c.logger.Debug("Fetched subscriptions", "org_id", conn.OrgID, "count", len(records))
	return records, nil
}

// getJSON performs an authenticated GET with retry logic and decodes the
// response body into out
func (c *Client) getJSON(ctx context.Context, conn *csp.Connection, path string, out interface{}) error {
	// Configure exponential backoff
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = InitialRetryInterval
	bo.MaxInterval = MaxRetryInterval
	bo.MaxElapsedTime = MaxRetryElapsedTime

	operation := func() error {
		err := c.getJSONOnce(ctx, conn, path, out)
		if err != nil {
			var pe *backoff.PermanentError
			if !errors.As(err, &pe) {
				c.logger.Debug("API call failed, will retry", "path", path, "error", err)
			}
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("GET %s failed after retries: %w", path, err)
	}

	return nil
}

// getJSONOnce performs the actual API call without retry logic
func (c *Client) getJSONOnce(ctx context.Context, conn *csp.Connection, path string, out interface{}) error {
	// Create context with timeout for the API call (from config)
	apiTimeout := time.Duration(c.cfg.APITimeout) * time.Second
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, conn.Server+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range conn.Headers() {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		serr := &statusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
		if serr.permanent() {
			return backoff.Permanent(serr)
		}
		return serr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// A malformed body will not fix itself on retry
		return backoff.Permanent(fmt.Errorf("failed to parse response: %w", err))
	}

	return nil
}

// statusError is a non-2xx API response
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// permanent reports whether retrying cannot fix the response (client
// errors other than request timeout and throttling)
func (e *statusError) permanent() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}
