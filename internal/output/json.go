package output

import (
	"encoding/json"

	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// JSONFormatter handles JSON output formatting
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// FormatDeviceList formats the device inventory as JSON
func (j *JSONFormatter) FormatDeviceList(devices []*types.Device) ([]byte, error) {
	return json.MarshalIndent(devices, "", "  ")
}

// FormatBatchResult formats a fleet operation outcome as JSON
func (j *JSONFormatter) FormatBatchResult(batch *types.BatchResult) ([]byte, error) {
	return json.MarshalIndent(batch, "", "  ")
}

// FormatHistoryList formats deployment records as JSON
func (j *JSONFormatter) FormatHistoryList(records []*types.DeploymentRecord) ([]byte, error) {
	return json.MarshalIndent(records, "", "  ")
}

// FormatSnapshotList formats configuration snapshots as JSON
func (j *JSONFormatter) FormatSnapshotList(snapshots []*types.ConfigSnapshot) ([]byte, error) {
	return json.MarshalIndent(snapshots, "", "  ")
}
