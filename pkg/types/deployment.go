package types

import (
	"math"
	"time"
)

// Operation names appearing in batch results and deployment history
const (
	OperationDeploy     = "deploy"
	OperationBackup     = "backup"
	OperationRollback   = "rollback"
	OperationCompliance = "compliance"
)

// DeviceResult is the outcome of one device inside a batch operation.
// Exactly one result exists per targeted device, in target order.
type DeviceResult struct {
	Device     string            `json:"device"`
	Success    bool              `json:"success"`
	Message    string            `json:"message,omitempty"`
	Error      string            `json:"error,omitempty"`
	BackupID   *string           `json:"backup_id,omitempty"`
	SnapshotID string            `json:"snapshot_id,omitempty"`
	Compliance *ComplianceReport `json:"compliance,omitempty"`

	// PersistenceError records a failed snapshot/history write that
	// happened after the device operation itself succeeded. It never
	// changes the Success flag.
	PersistenceError string `json:"persistence_error,omitempty"`

	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// BatchSummary carries the aggregate counts for a batch operation
type BatchSummary struct {
	TotalDevices int `json:"total_devices"`
	Successful   int `json:"successful"`
	Failed       int `json:"failed"`
	Compliant    int `json:"compliant,omitempty"`
}

// BatchResult is the aggregated outcome of a fleet operation. Success
// means at least one device succeeded; per-device detail lives in
// Results, index-aligned with the resolved target list.
type BatchResult struct {
	Operation    string         `json:"operation"`
	DeploymentID string         `json:"deployment_id,omitempty"`
	Success      bool           `json:"success"`
	Results      []DeviceResult `json:"results"`
	Summary      BatchSummary   `json:"summary"`
	BackupDir    string         `json:"backup_dir,omitempty"`
	DryRun       *DryRunPreview `json:"dry_run,omitempty"`

	// HistoryError records a failed deployment-record write. The batch
	// outcome is unaffected; operators can re-derive history from logs.
	HistoryError string `json:"history_error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// DryRunPreview is the result of a deploy invoked with dry-run: the
// rendered text plus static validation findings, with nothing pushed
// and nothing persisted.
type DryRunPreview struct {
	Template string   `json:"template"`
	Preview  string   `json:"preview"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// DeploymentRecord is the immutable history entry written once per
// deploy or rollback invocation. Devices and Results are index-aligned.
type DeploymentRecord struct {
	DeploymentID string            `json:"deployment_id"`
	Operation    string            `json:"operation"`
	Template     string            `json:"template,omitempty"`
	Devices      []string          `json:"devices"`
	Variables    map[string]string `json:"variables,omitempty"`
	Results      []DeviceResult    `json:"results"`
	SuccessRate  float64           `json:"success_rate"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Summarize counts successes and failures across a result set. For
// compliance audits it also counts the devices whose report came back
// clean.
func Summarize(results []DeviceResult) BatchSummary {
	summary := BatchSummary{TotalDevices: len(results)}
	for i := range results {
		if results[i].Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
		if results[i].Compliance != nil && results[i].Compliance.Compliant {
			summary.Compliant++
		}
	}
	return summary
}

// SuccessRate returns the percentage of successful results rounded to
// one decimal place. An empty result set rates as 0.
func SuccessRate(results []DeviceResult) float64 {
	if len(results) == 0 {
		return 0
	}
	succeeded := 0
	for i := range results {
		if results[i].Success {
			succeeded++
		}
	}
	rate := float64(succeeded) / float64(len(results)) * 100
	return math.Round(rate*10) / 10
}

// AnySucceeded reports whether at least one device in the batch succeeded
func AnySucceeded(results []DeviceResult) bool {
	for i := range results {
		if results[i].Success {
			return true
		}
	}
	return false
}
