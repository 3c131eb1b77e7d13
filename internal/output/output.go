package output

import (
	"fmt"

	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// OutputFormat represents the available output formats
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// Config holds output configuration
type Config struct {
	// Default format when none specified
	DefaultFormat OutputFormat

	// Color settings
	EnableColors bool

	// Table settings
	TableHeaders bool

	// Timestamp format
	TimeFormat string
}

// ParseOutputFormat parses a string into OutputFormat
func ParseOutputFormat(format string) (OutputFormat, error) {
	switch format {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: table, json, yaml)", format)
	}
}

// DeviceListItem represents a device in list output
type DeviceListItem struct {
	Name     string `json:"name" yaml:"name" table:"Name"`
	Host     string `json:"host" yaml:"host" table:"Host"`
	Type     string `json:"type" yaml:"type" table:"Type"`
	Port     int    `json:"port" yaml:"port" table:"Port"`
	Status   string `json:"status" yaml:"status" table:"Status"`
	LastSeen string `json:"last_seen" yaml:"last_seen" table:"Last Seen"`
}

// HistoryListItem represents a deployment record in list output
type HistoryListItem struct {
	ID          string  `json:"id" yaml:"id" table:"ID"`
	Operation   string  `json:"operation" yaml:"operation" table:"Operation"`
	Template    string  `json:"template,omitempty" yaml:"template,omitempty" table:"Template"`
	Devices     int     `json:"devices" yaml:"devices" table:"Devices"`
	SuccessRate float64 `json:"success_rate" yaml:"success_rate" table:"Success %"`
	CreatedAt   string  `json:"created_at" yaml:"created_at" table:"Created"`
}

// SnapshotListItem represents a configuration snapshot in list output
type SnapshotListItem struct {
	ID         string `json:"id" yaml:"id" table:"ID"`
	Device     string `json:"device" yaml:"device" table:"Device"`
	Deployment string `json:"deployment" yaml:"deployment" table:"Deployment"`
	Hash       string `json:"hash" yaml:"hash" table:"Hash"`
	Applied    bool   `json:"applied" yaml:"applied" table:"Applied"`
	CreatedAt  string `json:"created_at" yaml:"created_at" table:"Created"`
}

// ConvertDeviceToListItem converts a device to its list representation
func ConvertDeviceToListItem(device *types.Device) DeviceListItem {
	lastSeen := "never"
	if device.LastSeen != nil {
		lastSeen = device.LastSeen.Format("2006-01-02 15:04:05")
	}
	return DeviceListItem{
		Name:     device.Name,
		Host:     device.Host,
		Type:     device.DeviceType,
		Port:     device.Port,
		Status:   string(device.Status),
		LastSeen: lastSeen,
	}
}

// ConvertRecordToListItem converts a deployment record to its list representation
func ConvertRecordToListItem(record *types.DeploymentRecord) HistoryListItem {
	return HistoryListItem{
		ID:          shortID(record.DeploymentID),
		Operation:   record.Operation,
		Template:    record.Template,
		Devices:     len(record.Devices),
		SuccessRate: record.SuccessRate,
		CreatedAt:   record.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ConvertSnapshotToListItem converts a snapshot to its list representation
func ConvertSnapshotToListItem(snapshot *types.ConfigSnapshot) SnapshotListItem {
	deployment := "ad-hoc"
	if !snapshot.IsAdHoc() {
		deployment = shortID(snapshot.DeploymentID)
	}
	return SnapshotListItem{
		ID:         snapshot.ID,
		Device:     snapshot.DeviceName,
		Deployment: deployment,
		Hash:       shortID(snapshot.ContentHash),
		Applied:    snapshot.Applied,
		CreatedAt:  snapshot.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// shortID truncates long identifiers and hashes for table display
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// formatDuration renders a millisecond duration for humans
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}
