package output

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// TableFormatter handles table output formatting
type TableFormatter struct {
	config Config
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(config Config) *TableFormatter {
	return &TableFormatter{config: config}
}

// FormatDeviceList formats the device inventory as a table
func (t *TableFormatter) FormatDeviceList(devices []*types.Device) ([]byte, error) {
	if len(devices) == 0 {
		return []byte("No devices registered.\n"), nil
	}

	items := make([]DeviceListItem, len(devices))
	for i, device := range devices {
		items[i] = ConvertDeviceToListItem(device)
	}
	return t.formatStructList(items)
}

// FormatHistoryList formats deployment records as a table
func (t *TableFormatter) FormatHistoryList(records []*types.DeploymentRecord) ([]byte, error) {
	if len(records) == 0 {
		return []byte("No deployment history found.\n"), nil
	}

	items := make([]HistoryListItem, len(records))
	for i, record := range records {
		items[i] = ConvertRecordToListItem(record)
	}
	return t.formatStructList(items)
}

// FormatSnapshotList formats configuration snapshots as a table
func (t *TableFormatter) FormatSnapshotList(snapshots []*types.ConfigSnapshot) ([]byte, error) {
	if len(snapshots) == 0 {
		return []byte("No snapshots found.\n"), nil
	}

	items := make([]SnapshotListItem, len(snapshots))
	for i, snapshot := range snapshots {
		items[i] = ConvertSnapshotToListItem(snapshot)
	}
	return t.formatStructList(items)
}

// FormatBatchResult formats a fleet operation outcome as a table: a
// header block, one row per device, and the aggregate summary
func (t *TableFormatter) FormatBatchResult(batch *types.BatchResult) ([]byte, error) {
	if batch.DryRun != nil {
		return t.formatDryRun(batch)
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	title := strings.ToUpper(batch.Operation[:1]) + batch.Operation[1:] + " Result"
	fmt.Fprintf(w, "%s\n", title)
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", len(title)))
	if batch.DeploymentID != "" {
		fmt.Fprintf(w, "ID:\t%s\n", batch.DeploymentID)
	}
	fmt.Fprintf(w, "Started:\t%s\n", batch.StartedAt.Format(t.config.TimeFormat))
	fmt.Fprintf(w, "Duration:\t%s\n", formatDuration(batch.DurationMs))
	if batch.BackupDir != "" {
		fmt.Fprintf(w, "Backup dir:\t%s\n", batch.BackupDir)
	}
	fmt.Fprintf(w, "\n")

	if batch.Operation == types.OperationCompliance {
		t.writeComplianceRows(w, batch.Results)
	} else {
		t.writeDeviceRows(w, batch.Results)
	}

	fmt.Fprintf(w, "\nSummary:\t%d device(s), %d succeeded, %d failed",
		batch.Summary.TotalDevices, batch.Summary.Successful, batch.Summary.Failed)
	if batch.Operation == types.OperationCompliance {
		fmt.Fprintf(w, ", %d compliant", batch.Summary.Compliant)
	}
	fmt.Fprintf(w, "\n")

	if batch.HistoryError != "" {
		fmt.Fprintf(w, "Warning:\thistory not recorded: %s\n", batch.HistoryError)
	}

	w.Flush()
	return buf.Bytes(), nil
}

func (t *TableFormatter) writeDeviceRows(w *tabwriter.Writer, results []types.DeviceResult) {
	fmt.Fprintf(w, "Device\tOutcome\tDetail\tBackup\tSnapshot\n")
	fmt.Fprintf(w, "------\t-------\t------\t------\t--------\n")

	for _, r := range results {
		outcome := "ok"
		detail := r.Message
		if !r.Success {
			outcome = "failed"
			detail = r.Error
		}
		if r.PersistenceError != "" {
			detail += " (not persisted: " + r.PersistenceError + ")"
		}

		backup := "-"
		if r.BackupID != nil {
			backup = shortID(*r.BackupID)
		}
		snapshot := "-"
		if r.SnapshotID != "" {
			snapshot = shortID(r.SnapshotID)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.Device, outcome, truncateString(detail, 60), backup, snapshot)
	}
}

func (t *TableFormatter) writeComplianceRows(w *tabwriter.Writer, results []types.DeviceResult) {
	fmt.Fprintf(w, "Device\tOutcome\tScore\tIssues\n")
	fmt.Fprintf(w, "------\t-------\t-----\t------\n")

	for _, r := range results {
		if !r.Success || r.Compliance == nil {
			fmt.Fprintf(w, "%s\tfailed\t-\t%s\n", r.Device, truncateString(r.Error, 60))
			continue
		}

		issues := "none"
		if len(r.Compliance.Issues) > 0 {
			names := make([]string, len(r.Compliance.Issues))
			for i, issue := range r.Compliance.Issues {
				names[i] = issue.Policy
			}
			issues = strings.Join(names, ", ")
		}
		fmt.Fprintf(w, "%s\tok\t%.1f%%\t%s\n", r.Device, r.Compliance.Score, truncateString(issues, 60))
	}
}

// formatDryRun renders the preview block for a deploy --dry-run
func (t *TableFormatter) formatDryRun(batch *types.BatchResult) ([]byte, error) {
	var buf bytes.Buffer
	preview := batch.DryRun

	fmt.Fprintf(&buf, "Dry Run: %s\n", preview.Template)
	fmt.Fprintf(&buf, "=========%s\n", strings.Repeat("=", len(preview.Template)))

	if preview.Valid {
		fmt.Fprintf(&buf, "Validation: passed\n")
	} else {
		fmt.Fprintf(&buf, "Validation: FAILED\n")
	}
	for _, e := range preview.Errors {
		fmt.Fprintf(&buf, "  error: %s\n", e)
	}
	for _, warning := range preview.Warnings {
		fmt.Fprintf(&buf, "  warning: %s\n", warning)
	}

	if preview.Preview != "" {
		fmt.Fprintf(&buf, "\nRendered configuration:\n")
		fmt.Fprintf(&buf, "-----------------------\n")
		fmt.Fprintf(&buf, "%s\n", strings.TrimRight(preview.Preview, "\n"))
	}

	return buf.Bytes(), nil
}

// formatStructList formats a slice of structs as a table using reflection
// over `table:` tags
func (t *TableFormatter) formatStructList(items interface{}) ([]byte, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	v := reflect.ValueOf(items)
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("items must be a slice")
	}
	if v.Len() == 0 {
		return []byte("No items found.\n"), nil
	}

	itemType := v.Index(0).Type()

	var headers []string
	var fieldNames []string
	for i := 0; i < itemType.NumField(); i++ {
		field := itemType.Field(i)
		tableTag := field.Tag.Get("table")
		if tableTag != "" {
			headers = append(headers, tableTag)
			fieldNames = append(fieldNames, field.Name)
		}
	}

	if t.config.TableHeaders {
		fmt.Fprintf(w, "%s\n", strings.Join(headers, "\t"))
		dashes := make([]string, len(headers))
		for i, h := range headers {
			dashes[i] = strings.Repeat("-", len(h))
		}
		fmt.Fprintf(w, "%s\n", strings.Join(dashes, "\t"))
	}

	for i := 0; i < v.Len(); i++ {
		item := v.Index(i)
		var row []string
		for _, fieldName := range fieldNames {
			fieldValue := item.FieldByName(fieldName)
			value := fmt.Sprintf("%v", fieldValue.Interface())
			if len(value) > 50 {
				value = value[:47] + "..."
			}
			row = append(row, value)
		}
		fmt.Fprintf(w, "%s\n", strings.Join(row, "\t"))
	}

	w.Flush()
	return buf.Bytes(), nil
}

// truncateString truncates a string to the specified length
func truncateString(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
