// Package metrics provides Prometheus metrics for Tessera.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the licensing server.
type Metrics struct {
	// ActivationCounter counts activation attempts by outcome.
	ActivationCounter *prometheus.CounterVec
	// HeartbeatCounter counts heartbeat validations by outcome.
	HeartbeatCounter *prometheus.CounterVec
	// SimilarityHistogram observes reported fingerprint similarity by outcome.
	SimilarityHistogram *prometheus.HistogramVec
	// DeviceGauge tracks the number of devices by status.
	DeviceGauge *prometheus.GaugeVec
	// LicenseGauge tracks the number of licenses by status.
	LicenseGauge *prometheus.GaugeVec
	// BackupCounter counts snapshots taken by reason.
	BackupCounter *prometheus.CounterVec
	// RestoreCounter counts completed restores.
	RestoreCounter prometheus.Counter
}

// New creates the metric instruments and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ActivationCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_activations_total",
			Help: "Total activation attempts by outcome.",
		}, []string{"outcome"}),
		HeartbeatCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_heartbeats_total",
			Help: "Total heartbeat validations by outcome.",
		}, []string{"outcome"}),
		SimilarityHistogram: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tessera_fingerprint_similarity",
			Help:    "Reported fingerprint similarity scores by validation outcome.",
			Buckets: []float64{0.5, 0.7, 0.8, 0.85, 0.9, 0.95, 0.99, 1.0},
		}, []string{"outcome"}),
		DeviceGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tessera_devices",
			Help: "Number of registered devices by status.",
		}, []string{"status"}),
		LicenseGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tessera_licenses",
			Help: "Number of licenses by status.",
		}, []string{"status"}),
		BackupCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_backups_total",
			Help: "Total state snapshots taken by reason.",
		}, []string{"reason"}),
		RestoreCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tessera_restores_total",
			Help: "Total completed state restores.",
		}),
	}

	collectors := []prometheus.Collector{
		m.ActivationCounter,
		m.HeartbeatCounter,
		m.SimilarityHistogram,
		m.DeviceGauge,
		m.LicenseGauge,
		m.BackupCounter,
		m.RestoreCounter,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}

	return m, nil
}

// RecordActivation increments the activation counter for the given outcome.
func (m *Metrics) RecordActivation(outcome string) {
	m.ActivationCounter.WithLabelValues(outcome).Inc()
}

// RecordHeartbeat increments the heartbeat counter for the given outcome.
func (m *Metrics) RecordHeartbeat(outcome string) {
	m.HeartbeatCounter.WithLabelValues(outcome).Inc()
}

// ObserveSimilarity records a reported similarity score under its outcome.
func (m *Metrics) ObserveSimilarity(outcome string, similarity float64) {
	m.SimilarityHistogram.WithLabelValues(outcome).Observe(similarity)
}

// SetDeviceCount sets the device gauge for a status.
func (m *Metrics) SetDeviceCount(status string, count int) {
	m.DeviceGauge.WithLabelValues(status).Set(float64(count))
}

// SetLicenseCount sets the license gauge for a status.
func (m *Metrics) SetLicenseCount(status string, count int) {
	m.LicenseGauge.WithLabelValues(status).Set(float64(count))
}

// RecordBackup increments the backup counter for the given reason.
func (m *Metrics) RecordBackup(reason string) {
	m.BackupCounter.WithLabelValues(reason).Inc()
}

// RecordRestore increments the restore counter.
func (m *Metrics) RecordRestore() {
	m.RestoreCounter.Inc()
}
