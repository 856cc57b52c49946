package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lamw/vplus-usage-exporter/internal/collector"
	"github.com/lamw/vplus-usage-exporter/internal/config"
	"github.com/lamw/vplus-usage-exporter/internal/logger"
	"github.com/lamw/vplus-usage-exporter/internal/provider"
)

// stubProvider implements provider.UsageProvider for server tests
type stubProvider struct {
	deployments   []provider.DeploymentUsage
	subscriptions []provider.SubscriptionLineItem
	err           error
}

func (s *stubProvider) QueryDeployments(ctx context.Context) ([]provider.DeploymentUsage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.deployments, nil
}

func (s *stubProvider) QuerySubscriptions(ctx context.Context) ([]provider.SubscriptionLineItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.subscriptions, nil
}

func (s *stubProvider) Name() provider.ProviderType {
	return provider.ProviderVSpherePlus
}

func (s *stubProvider) OrgID() string {
	return "org-1"
}

func newTestServer(stub *stubProvider) (*Server, *collector.UsageCollector) {
	cfg := &config.Config{RefreshInterval: 3600, HTTPPort: 8080, APITimeout: 30}
	log := logger.NewWithWriter(io.Discard, "error")
	c := collector.NewUsageCollector(stub, cfg, log)
	return NewServer(cfg, c, "org-1", log), c
}

// refresh triggers one collector refresh through the public API and waits
// for the initial fetch (StartBackgroundRefresh fetches synchronously
// before spawning the loop)
func refresh(c *collector.UsageCollector, t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	c.StartBackgroundRefresh(ctx)
	cancel()
}

func TestHandleHealth_Returns200(t *testing.T) {
	s, _ := newTestServer(&stubProvider{})

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("Body = %v, want healthy status", rec.Body.String())
	}
}

func TestHandleReady_BeforeFirstRefresh_Returns503(t *testing.T) {
	s, _ := newTestServer(&stubProvider{})

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", rec.Code)
	}
}

func TestHandleReady_AfterRefresh_Returns200(t *testing.T) {
	stub := &stubProvider{
		deployments: []provider.DeploymentUsage{{ID: "dep-1", Name: "sddc-prod"}},
	}
	s, c := newTestServer(stub)
	refresh(c, t)

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", rec.Code)
	}
}

func TestHandleReady_RefreshError_Returns503(t *testing.T) {
	stub := &stubProvider{err: errors.New("API down")}
	s, c := newTestServer(stub)
	refresh(c, t)

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", rec.Code)
	}
}

func TestHandleIndex_ShowsConnectionState(t *testing.T) {
	stub := &stubProvider{
		deployments: []provider.DeploymentUsage{
			{ID: "dep-1", Name: "sddc-prod"},
			{ID: "dep-2", Name: "sddc-lab"},
		},
		subscriptions: []provider.SubscriptionLineItem{
			{ID: "sub-1", OfferName: "vSphere+ Commitment"},
		},
	}
	s, c := newTestServer(stub)
	refresh(c, t)

	rec := httptest.NewRecorder()
	s.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{"Ready", "org-1", ">2<", ">1<"} {
		if !strings.Contains(body, want) {
			t.Errorf("Index page missing %q:\n%s", want, body)
		}
	}
}

func TestHandleIndex_BeforeRefresh_ShowsNotReady(t *testing.T) {
	s, _ := newTestServer(&stubProvider{})

	rec := httptest.NewRecorder()
	s.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "Not Ready") {
		t.Errorf("Index page missing Not Ready status:\n%s", body)
	}
	if !strings.Contains(body, "Never") {
		t.Errorf("Index page missing Never for last refresh:\n%s", body)
	}
}
