package collector

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/lamw/vplus-usage-exporter/internal/config"
	"github.com/lamw/vplus-usage-exporter/internal/logger"
	"github.com/lamw/vplus-usage-exporter/internal/provider"
	"github.com/prometheus/client_golang/prometheus"
)

// fakeProvider implements provider.UsageProvider for tests
type fakeProvider struct {
	deployments      []provider.DeploymentUsage
	subscriptions    []provider.SubscriptionLineItem
	deploymentErr    error
	subscriptionErr  error
	deploymentCalls  int
	subscriptionCall int
}

func (f *fakeProvider) QueryDeployments(ctx context.Context) ([]provider.DeploymentUsage, error) {
	f.deploymentCalls++
	if f.deploymentErr != nil {
		return nil, f.deploymentErr
	}
	return f.deployments, nil
}

func (f *fakeProvider) QuerySubscriptions(ctx context.Context) ([]provider.SubscriptionLineItem, error) {
	f.subscriptionCall++
	if f.subscriptionErr != nil {
		return nil, f.subscriptionErr
	}
	return f.subscriptions, nil
}

func (f *fakeProvider) Name() provider.ProviderType {
	return provider.ProviderVSpherePlus
}

func (f *fakeProvider) OrgID() string {
	return "org-1"
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, "error")
}

func testConfig() *config.Config {
	return &config.Config{RefreshInterval: 3600, HTTPPort: 8080, APITimeout: 30}
}

func testRecords() ([]provider.DeploymentUsage, []provider.SubscriptionLineItem) {
	deployments := []provider.DeploymentUsage{
		{ID: "dep-1", Name: "sddc-prod", VSphereUsage: 128, VSANUsage: 20.5},
		{ID: "dep-2", Name: "sddc-lab", VSphereUsage: 32, VSANUsage: 4.5},
	}
	subscriptions := []provider.SubscriptionLineItem{
		{ID: "sub-1", OfferName: "vSphere+ Commitment", Status: "ACTIVE", Quantity: 3, Units: "Hosts", Type: "TERM"},
	}
	return deployments, subscriptions
}

// collectMetrics drains a Collect call into a slice
func collectMetrics(c *UsageCollector) []prometheus.Metric {
	ch := make(chan prometheus.Metric, 128)
	c.Collect(ch)
	close(ch)

	var metrics []prometheus.Metric
	for m := range ch {
		metrics = append(metrics, m)
	}
	return metrics
}

func TestRefresh_Success(t *testing.T) {
	deployments, subscriptions := testRecords()
	fake := &fakeProvider{deployments: deployments, subscriptions: subscriptions}
	c := NewUsageCollector(fake, testConfig(), testLogger())

	if c.IsReady() {
		t.Error("IsReady() = true before first refresh, want false")
	}

	c.refresh(context.Background())

	if !c.IsReady() {
		t.Error("IsReady() = false after successful refresh, want true")
	}
	if err := c.LastError(); err != nil {
		t.Errorf("LastError() = %v, want nil", err)
	}
	if got := c.DeploymentCount(); got != 2 {
		t.Errorf("DeploymentCount() = %d, want 2", got)
	}
	if got := c.SubscriptionCount(); got != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", got)
	}
	if c.LastRefreshTime().IsZero() {
		t.Error("LastRefreshTime() is zero after refresh")
	}
}

func TestRefresh_PartialFailure_KeepsGoodCollection(t *testing.T) {
	_, subscriptions := testRecords()
	fake := &fakeProvider{
		deploymentErr: errors.New("deployment endpoint down"),
		subscriptions: subscriptions,
	}
	c := NewUsageCollector(fake, testConfig(), testLogger())

	c.refresh(context.Background())

	// Partial data beats no data
	if !c.IsReady() {
		t.Error("IsReady() = false after partial refresh, want true")
	}
	if c.LastError() == nil {
		t.Error("LastError() = nil, want the deployment error")
	}
	if got := c.SubscriptionCount(); got != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", got)
	}
	if got := c.DeploymentCount(); got != 0 {
		t.Errorf("DeploymentCount() = %d, want 0", got)
	}
}

func TestRefresh_AllFail_NotReady(t *testing.T) {
	fake := &fakeProvider{
		deploymentErr:   errors.New("down"),
		subscriptionErr: errors.New("down"),
	}
	c := NewUsageCollector(fake, testConfig(), testLogger())

	c.refresh(context.Background())

	if c.IsReady() {
		t.Error("IsReady() = true after total failure, want false")
	}
	if c.LastError() == nil {
		t.Error("LastError() = nil, want error")
	}
}

func TestRefresh_FailureKeepsPreviousData(t *testing.T) {
	deployments, subscriptions := testRecords()
	fake := &fakeProvider{deployments: deployments, subscriptions: subscriptions}
	c := NewUsageCollector(fake, testConfig(), testLogger())

	c.refresh(context.Background())

	// Second refresh fails entirely; cached records must survive
	fake.deploymentErr = errors.New("down")
	fake.subscriptionErr = errors.New("down")
	c.refresh(context.Background())

	if got := c.DeploymentCount(); got != 2 {
		t.Errorf("DeploymentCount() = %d, want cached 2", got)
	}
	if got := c.SubscriptionCount(); got != 1 {
		t.Errorf("SubscriptionCount() = %d, want cached 1", got)
	}
}

func TestCollect_ExportsUsageMetrics(t *testing.T) {
	deployments, subscriptions := testRecords()
	fake := &fakeProvider{deployments: deployments, subscriptions: subscriptions}
	c := NewUsageCollector(fake, testConfig(), testLogger())

	c.refresh(context.Background())
	metrics := collectMetrics(c)

	// 2 deployments x 2 usage gauges + 1 subscription gauge + up + duration
	// + last refresh timestamp + 2 record counts + build info = 11
	if len(metrics) != 11 {
		t.Errorf("Collect() produced %d metrics, want 11", len(metrics))
	}
}

func TestCollect_BeforeRefresh(t *testing.T) {
	fake := &fakeProvider{}
	c := NewUsageCollector(fake, testConfig(), testLogger())

	metrics := collectMetrics(c)

	// up + duration + 2 record counts + build info; no usage gauges, no
	// refresh timestamp yet
	if len(metrics) != 5 {
		t.Errorf("Collect() produced %d metrics, want 5", len(metrics))
	}
}
