// Package metrics holds the Prometheus collectors exported by serve and
// watch mode.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
)

// Metrics holds all Prometheus metrics for the scanner.
type Metrics struct {
	Devices       *prometheus.GaugeVec
	Cards         prometheus.Gauge
	ScansTotal    prometheus.Counter
	ScanDuration  prometheus.Histogram
	LastScan      prometheus.Gauge
	DeviceChanges *prometheus.CounterVec
}

// New creates and registers all collectors on the default registry. Call it
// once per process.
func New() *Metrics {
	return &Metrics{
		Devices: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "audioscan_devices",
			Help: "Devices in the deduplicated view of the most recent scan, by direction",
		}, []string{"direction"}),
		Cards: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "audioscan_cards",
			Help: "Sound cards known to the hardware registry at the most recent scan",
		}),
		ScansTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audioscan_scans_total",
			Help: "Total number of completed scan passes",
		}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "audioscan_scan_duration_seconds",
			Help:    "Wall time of one scan pass",
			Buckets: prometheus.DefBuckets,
		}),
		LastScan: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "audioscan_last_scan_timestamp_seconds",
			Help: "Unix time of the most recent completed scan",
		}),
		DeviceChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "audioscan_device_changes_total",
			Help: "Device list changes observed by watch mode",
		}, []string{"change"}),
	}
}

// ObserveScan records one completed scan pass. The summary covers the full
// deduplicated view, never a filtered subset. Duplex endpoints count once in
// the total series but appear in both direction series.
func (m *Metrics) ObserveScan(duration time.Duration, summary catalog.Summary, cards int) {
	m.ScansTotal.Inc()
	m.ScanDuration.Observe(duration.Seconds())
	m.Devices.WithLabelValues("total").Set(float64(summary.TotalDevices))
	m.Devices.WithLabelValues("input").Set(float64(summary.InputDevices))
	m.Devices.WithLabelValues("output").Set(float64(summary.OutputDevices))
	m.Cards.Set(float64(cards))
	m.LastScan.SetToCurrentTime()
}

// IncrementDeviceChange counts one observed device list change of the given
// kind, "added" or "removed".
func (m *Metrics) IncrementDeviceChange(kind string) {
	m.DeviceChanges.WithLabelValues(kind).Inc()
}
