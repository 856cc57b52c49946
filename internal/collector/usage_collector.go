package collector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lamw/vplus-usage-exporter/internal/clock"
	"github.com/lamw/vplus-usage-exporter/internal/config"
	"github.com/lamw/vplus-usage-exporter/internal/logger"
	"github.com/lamw/vplus-usage-exporter/internal/provider"
	"github.com/lamw/vplus-usage-exporter/internal/version"
	"github.com/prometheus/client_golang/prometheus"
)

// UsageCollector implements prometheus.Collector for vSphere+ consumption
// metrics. Data is fetched on a background interval and served from memory,
// so a scrape never triggers an API call.
type UsageCollector struct {
	usageProvider provider.UsageProvider
	cfg           *config.Config
	logger        *logger.Logger
	clock         clock.Clock // Time provider for testing

	// Metrics
	vsphereUsageMetric    *prometheus.Desc
	vsanUsageMetric       *prometheus.Desc
	subscriptionMetric    *prometheus.Desc
	upMetric              *prometheus.Desc
	refreshDurationMetric *prometheus.Desc
	refreshErrorsTotal    *prometheus.CounterVec // Proper counter metric
	lastRefreshTimeMetric *prometheus.Desc
	recordCountMetric     *prometheus.Desc
	buildInfo             *prometheus.GaugeVec // Build version information

	// State
	mu                  sync.RWMutex
	lastDeployments     []provider.DeploymentUsage
	lastSubscriptions   []provider.SubscriptionLineItem
	lastError           error
	lastRefresh         time.Time
	lastRefreshDuration time.Duration
	refreshStarted      atomic.Bool // Prevent multiple refresh goroutines
	isReady             bool
}

// NewUsageCollector creates a new UsageCollector
func NewUsageCollector(usageProvider provider.UsageProvider, cfg *config.Config, log *logger.Logger) *UsageCollector {
	refreshErrorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vplus_exporter_refresh_errors_total",
			Help: "Total number of consumption data refresh errors since startup",
		},
		[]string{"provider"},
	)

	buildInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vplus_exporter_build_info",
			Help: "Build version information",
		},
		[]string{"version", "git_commit", "build_date", "go_version"},
	)
	buildInfo.With(prometheus.Labels(version.Get().Map())).Set(1)

	return &UsageCollector{
		usageProvider: usageProvider,
		cfg:           cfg,
		logger:        log,
		clock:         clock.RealClock{}, // Use real system time by default
		vsphereUsageMetric: prometheus.NewDesc(
			"vplus_deployment_vsphere_usage_cores",
			"vSphere+ core usage per deployment",
			[]string{"org_id", "deployment_id", "deployment_name"},
			nil,
		),
		vsanUsageMetric: prometheus.NewDesc(
			"vplus_deployment_vsan_usage_tib",
			"vSAN+ capacity usage per deployment in TiB",
			[]string{"org_id", "deployment_id", "deployment_name"},
			nil,
		),
		subscriptionMetric: prometheus.NewDesc(
			"vplus_subscription_quantity",
			"Committed quantity per subscription",
			[]string{"org_id", "subscription_id", "offer_name", "status", "type", "units"},
			nil,
		),
		upMetric: prometheus.NewDesc(
			"up",
			"Was the last consumption refresh successful (1 = success, 0 = failure)",
			[]string{"provider"},
			nil,
		),
		refreshDurationMetric: prometheus.NewDesc(
			"vplus_exporter_refresh_duration_seconds",
			"Duration of the last consumption data refresh in seconds",
			[]string{"provider"},
			nil,
		),
		refreshErrorsTotal: refreshErrorsTotal,
		lastRefreshTimeMetric: prometheus.NewDesc(
			"vplus_exporter_last_refresh_timestamp_seconds",
			"Unix timestamp of the last refresh attempt",
			[]string{"provider"},
			nil,
		),
		recordCountMetric: prometheus.NewDesc(
			"vplus_exporter_records_count",
			"Number of records currently cached, per collection",
			[]string{"provider", "collection"},
			nil,
		),
		buildInfo: buildInfo,
	}
}

// Describe implements prometheus.Collector
func (c *UsageCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.vsphereUsageMetric
	ch <- c.vsanUsageMetric
	ch <- c.subscriptionMetric
	ch <- c.upMetric
	ch <- c.refreshDurationMetric
	c.refreshErrorsTotal.Describe(ch)
	ch <- c.lastRefreshTimeMetric
	ch <- c.recordCountMetric
	c.buildInfo.Describe(ch)
}

// Collect implements prometheus.Collector
func (c *UsageCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	providerName := string(c.usageProvider.Name())
	orgID := c.usageProvider.OrgID()

	for _, d := range c.lastDeployments {
		ch <- prometheus.MustNewConstMetric(
			c.vsphereUsageMetric,
			prometheus.GaugeValue,
			d.VSphereUsage,
			orgID, d.ID, d.Name,
		)
		ch <- prometheus.MustNewConstMetric(
			c.vsanUsageMetric,
			prometheus.GaugeValue,
			d.VSANUsage,
			orgID, d.ID, d.Name,
		)
	}

	for _, s := range c.lastSubscriptions {
		ch <- prometheus.MustNewConstMetric(
			c.subscriptionMetric,
			prometheus.GaugeValue,
			s.Quantity,
			orgID, s.ID, s.OfferName, s.Status, s.Type, s.Units,
		)
	}

	// Send up metric
	upValue := 0.0
	if c.lastError == nil && c.isReady {
		upValue = 1.0
	}
	ch <- prometheus.MustNewConstMetric(
		c.upMetric,
		prometheus.GaugeValue,
		upValue,
		providerName,
	)

	// Send refresh duration metric
	ch <- prometheus.MustNewConstMetric(
		c.refreshDurationMetric,
		prometheus.GaugeValue,
		c.lastRefreshDuration.Seconds(),
		providerName,
	)

	// Collect refresh errors counter (survives across refreshes)
	c.refreshErrorsTotal.Collect(ch)

	// Send last refresh time metric
	if !c.lastRefresh.IsZero() {
		ch <- prometheus.MustNewConstMetric(
			c.lastRefreshTimeMetric,
			prometheus.GaugeValue,
			float64(c.lastRefresh.Unix()),
			providerName,
		)
	}

	// Send record count metrics
	ch <- prometheus.MustNewConstMetric(
		c.recordCountMetric,
		prometheus.GaugeValue,
		float64(len(c.lastDeployments)),
		providerName, "deployments",
	)
	ch <- prometheus.MustNewConstMetric(
		c.recordCountMetric,
		prometheus.GaugeValue,
		float64(len(c.lastSubscriptions)),
		providerName, "subscriptions",
	)

	// Collect build info metric
	c.buildInfo.Collect(ch)
}

// StartBackgroundRefresh starts a goroutine that periodically refreshes the
// consumption data. Uses an atomic flag to prevent multiple refresh
// goroutines.
func (c *UsageCollector) StartBackgroundRefresh(ctx context.Context) {
	if !c.refreshStarted.CompareAndSwap(false, true) {
		c.logger.Warn("Background refresh already started, skipping")
		return
	}

	// Initial fetch
	c.refresh(ctx)

	// Background refresh loop
	ticker := time.NewTicker(time.Duration(c.cfg.RefreshInterval) * time.Second)
	go func() {
		defer ticker.Stop()
		defer c.refreshStarted.Store(false) // Reset on exit
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Stopping background refresh")
				return
			case <-ticker.C:
				c.refresh(ctx)
			}
		}
	}()
}

// refresh queries both collections and updates the cached data. A failure
// of one collection keeps the other's fresh data (partial data beats no
// data) but still counts as a refresh error.
func (c *UsageCollector) refresh(ctx context.Context) {
	providerName := c.usageProvider.Name()
	c.logger.Info("Refreshing consumption data", "provider", providerName)
	start := time.Now()

	var errs []error

	deployments, err := c.usageProvider.QueryDeployments(ctx)
	if err != nil {
		c.logger.Error("Failed to refresh deployment usage", "provider", providerName, "error", err)
		errs = append(errs, err)
	}

	subscriptions, err := c.usageProvider.QuerySubscriptions(ctx)
	if err != nil {
		c.logger.Error("Failed to refresh subscriptions", "provider", providerName, "error", err)
		errs = append(errs, err)
	}

	duration := time.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastRefresh = c.clock.Now()
	c.lastRefreshDuration = duration
	c.lastError = errors.Join(errs...)

	if len(errs) < 2 {
		// At least one collection refreshed; serve what we have
		if deployments != nil || len(errs) == 0 {
			c.lastDeployments = deployments
		}
		if subscriptions != nil || len(errs) == 0 {
			c.lastSubscriptions = subscriptions
		}
		c.isReady = true
	}

	if len(errs) > 0 {
		c.refreshErrorsTotal.With(prometheus.Labels{"provider": string(providerName)}).Inc()
		return
	}

	c.logger.Info("Successfully refreshed consumption data",
		"provider", providerName,
		"deployment_count", len(deployments),
		"subscription_count", len(subscriptions),
		"duration_seconds", duration.Seconds())
}

// IsReady returns true if the collector has successfully fetched data at
// least once
func (c *UsageCollector) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isReady
}

// LastError returns the last error encountered during refresh
func (c *UsageCollector) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// LastRefreshTime returns the time of the last refresh attempt
func (c *UsageCollector) LastRefreshTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}

// DeploymentCount returns the number of cached deployment records
func (c *UsageCollector) DeploymentCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lastDeployments)
}

// SubscriptionCount returns the number of cached subscription records
func (c *UsageCollector) SubscriptionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lastSubscriptions)
}
