package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveDeviceOperation(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.ObserveDeviceOperation("deploy", true)
	metrics.ObserveDeviceOperation("deploy", true)
	metrics.ObserveDeviceOperation("deploy", false)

	success := testutil.ToFloat64(metrics.DeviceOperations.WithLabelValues("deploy", "success"))
	if success != 2 {
		t.Errorf("expected 2 successes, got %v", success)
	}
	failure := testutil.ToFloat64(metrics.DeviceOperations.WithLabelValues("deploy", "failure"))
	if failure != 1 {
		t.Errorf("expected 1 failure, got %v", failure)
	}
}

func TestWorkerGauge(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.WorkerStarted()
	metrics.WorkerStarted()
	metrics.WorkerFinished()

	if got := testutil.ToFloat64(metrics.WorkersInFlight); got != 1 {
		t.Errorf("expected 1 in flight, got %v", got)
	}
}

func TestComplianceScoreGauge(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.ObserveComplianceScore("core-sw-01", 66.7)
	if got := testutil.ToFloat64(metrics.ComplianceScore.WithLabelValues("core-sw-01")); got != 66.7 {
		t.Errorf("expected 66.7, got %v", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics

	metrics.ObserveDeviceOperation("deploy", true)
	metrics.ObserveBatch("deploy", time.Second)
	metrics.WorkerStarted()
	metrics.WorkerFinished()
	metrics.ObserveComplianceScore("core-sw-01", 100)
	metrics.ObserveHTTPRequest("GET", "/api/v1/devices", 200, time.Millisecond)
}
