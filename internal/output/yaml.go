package output

import (
	"gopkg.in/yaml.v3"

	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// YAMLFormatter handles YAML output formatting
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// FormatDeviceList formats the device inventory as YAML. Devices are
// converted to their list representation first so secrets and internal
// ids stay out of the document.
func (y *YAMLFormatter) FormatDeviceList(devices []*types.Device) ([]byte, error) {
	items := make([]DeviceListItem, len(devices))
	for i, device := range devices {
		items[i] = ConvertDeviceToListItem(device)
	}
	return yaml.Marshal(items)
}

// FormatBatchResult formats a fleet operation outcome as YAML
func (y *YAMLFormatter) FormatBatchResult(batch *types.BatchResult) ([]byte, error) {
	return yaml.Marshal(batch)
}

// FormatHistoryList formats deployment records as YAML
func (y *YAMLFormatter) FormatHistoryList(records []*types.DeploymentRecord) ([]byte, error) {
	items := make([]HistoryListItem, len(records))
	for i, record := range records {
		items[i] = ConvertRecordToListItem(record)
	}
	return yaml.Marshal(items)
}

// FormatSnapshotList formats configuration snapshots as YAML
func (y *YAMLFormatter) FormatSnapshotList(snapshots []*types.ConfigSnapshot) ([]byte, error) {
	items := make([]SnapshotListItem, len(snapshots))
	for i, snapshot := range snapshots {
		items[i] = ConvertSnapshotToListItem(snapshot)
	}
	return yaml.Marshal(items)
}
