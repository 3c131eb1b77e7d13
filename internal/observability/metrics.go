package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the Prometheus instruments for the automation
// engine. All helpers are nil-safe so callers can run without metrics
// wired up.
type Metrics struct {
	// DeviceOperations counts per-device outcomes, labeled by
	// operation (deploy, backup, rollback, compliance) and status.
	DeviceOperations *prometheus.CounterVec

	// BatchDuration observes the wall time of whole batches.
	BatchDuration *prometheus.HistogramVec

	// WorkersInFlight tracks device workers currently executing.
	WorkersInFlight prometheus.Gauge

	// ComplianceScore records the last audit score per device.
	ComplianceScore *prometheus.GaugeVec

	// HTTPRequests counts API requests by method, route, and status.
	HTTPRequests *prometheus.CounterVec

	// HTTPDuration observes API request latency by method and route.
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics registers the instruments with reg and returns them
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DeviceOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netconfig",
			Name:      "device_operations_total",
			Help:      "Per-device operation outcomes.",
		}, []string{"operation", "status"}),

		BatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "netconfig",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of fleet batches.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"operation"}),

		WorkersInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "netconfig",
			Name:      "workers_in_flight",
			Help:      "Device workers currently executing.",
		}),

		ComplianceScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "netconfig",
			Name:      "compliance_score",
			Help:      "Last compliance audit score per device.",
		}, []string{"device"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netconfig",
			Name:      "http_requests_total",
			Help:      "API requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),

		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "netconfig",
			Name:      "http_request_duration_seconds",
			Help:      "API request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveDeviceOperation records one device outcome
func (m *Metrics) ObserveDeviceOperation(operation string, success bool) {
	if m == nil {
		return
	}
	status := "failure"
	if success {
		status = "success"
	}
	m.DeviceOperations.WithLabelValues(operation, status).Inc()
}

// ObserveBatch records the duration of a completed batch
func (m *Metrics) ObserveBatch(operation string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BatchDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// WorkerStarted marks a device worker as running
func (m *Metrics) WorkerStarted() {
	if m == nil {
		return
	}
	m.WorkersInFlight.Inc()
}

// WorkerFinished marks a device worker as done
func (m *Metrics) WorkerFinished() {
	if m == nil {
		return
	}
	m.WorkersInFlight.Dec()
}

// ObserveComplianceScore records a device's latest audit score
func (m *Metrics) ObserveComplianceScore(device string, score float64) {
	if m == nil {
		return
	}
	m.ComplianceScore.WithLabelValues(device).Set(score)
}

// ObserveHTTPRequest records one API request
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
