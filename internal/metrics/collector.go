package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tessera-io/tessera/internal/models"
)

// CollectorStore defines the queries the collector needs.
type CollectorStore interface {
	CountDevicesByStatus(ctx context.Context) (map[models.DeviceStatus]int, error)
	CountLicensesByStatus(ctx context.Context) (map[models.LicenseStatus]int, error)
}

// Collector periodically refreshes the device and license gauges from the
// store. Counters are incremented inline by the services; only population
// gauges need polling.
type Collector struct {
	store    CollectorStore
	metrics  *Metrics
	interval time.Duration
	logger   zerolog.Logger
	stop     chan struct{}
	done     chan struct{}
}

// NewCollector creates a Collector refreshing at the given interval.
func NewCollector(store CollectorStore, m *Metrics, interval time.Duration, logger zerolog.Logger) *Collector {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Collector{
		store:    store,
		metrics:  m,
		interval: interval,
		logger:   logger.With().Str("component", "metrics_collector").Logger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins refreshing in the background. An initial refresh runs
// immediately so gauges are populated before the first tick.
func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)

	c.refresh(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

// Stop halts the collector and waits for the background goroutine to exit.
func (c *Collector) Stop() {
	close(c.stop)
	<-c.done
}

// Refresh updates the gauges once. Exposed for tests and for callers that
// want an on-demand refresh.
func (c *Collector) Refresh(ctx context.Context) error {
	return c.refreshErr(ctx)
}

func (c *Collector) refresh(ctx context.Context) {
	if err := c.refreshErr(ctx); err != nil {
		c.logger.Error().Err(err).Msg("gauge refresh failed")
	}
}

func (c *Collector) refreshErr(ctx context.Context) error {
	devices, err := c.store.CountDevicesByStatus(ctx)
	if err != nil {
		return err
	}
	for _, status := range []models.DeviceStatus{models.DeviceStatusActive, models.DeviceStatusBlocked} {
		c.metrics.SetDeviceCount(string(status), devices[status])
	}

	licenses, err := c.store.CountLicensesByStatus(ctx)
	if err != nil {
		return err
	}
	statuses := []models.LicenseStatus{
		models.LicenseStatusActive,
		models.LicenseStatusExpired,
		models.LicenseStatusRevoked,
		models.LicenseStatusSuspended,
	}
	for _, status := range statuses {
		c.metrics.SetLicenseCount(string(status), licenses[status])
	}

	return nil
}
