package output

import (
	"fmt"
	"io"
	"os"

	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// Renderer formats domain objects in the configured output format and
// writes them to the configured writer
type Renderer struct {
	config   Config
	writer   io.Writer
	jsonOut  *JSONFormatter
	yamlOut  *YAMLFormatter
	tableOut *TableFormatter
}

// NewRenderer creates a new output renderer writing to stdout
func NewRenderer(config Config) *Renderer {
	if config.TimeFormat == "" {
		config.TimeFormat = "2006-01-02 15:04:05"
	}
	if config.DefaultFormat == "" {
		config.DefaultFormat = FormatTable
	}

	return &Renderer{
		config:   config,
		writer:   os.Stdout,
		jsonOut:  NewJSONFormatter(),
		yamlOut:  NewYAMLFormatter(),
		tableOut: NewTableFormatter(config),
	}
}

// SetWriter redirects rendered output, mainly for tests
func (r *Renderer) SetWriter(w io.Writer) {
	r.writer = w
}

// RenderDeviceList writes the device inventory in the configured format
func (r *Renderer) RenderDeviceList(devices []*types.Device) error {
	var (
		data []byte
		err  error
	)
	switch r.config.DefaultFormat {
	case FormatJSON:
		data, err = r.jsonOut.FormatDeviceList(devices)
	case FormatYAML:
		data, err = r.yamlOut.FormatDeviceList(devices)
	case FormatTable:
		data, err = r.tableOut.FormatDeviceList(devices)
	default:
		return fmt.Errorf("unsupported format: %s", r.config.DefaultFormat)
	}
	if err != nil {
		return err
	}
	return r.write(data)
}

// RenderBatchResult writes a fleet operation outcome in the configured format
func (r *Renderer) RenderBatchResult(batch *types.BatchResult) error {
	var (
		data []byte
		err  error
	)
	switch r.config.DefaultFormat {
	case FormatJSON:
		data, err = r.jsonOut.FormatBatchResult(batch)
	case FormatYAML:
		data, err = r.yamlOut.FormatBatchResult(batch)
	case FormatTable:
		data, err = r.tableOut.FormatBatchResult(batch)
	default:
		return fmt.Errorf("unsupported format: %s", r.config.DefaultFormat)
	}
	if err != nil {
		return err
	}
	return r.write(data)
}

// RenderHistoryList writes deployment records in the configured format
func (r *Renderer) RenderHistoryList(records []*types.DeploymentRecord) error {
	var (
		data []byte
		err  error
	)
	switch r.config.DefaultFormat {
	case FormatJSON:
		data, err = r.jsonOut.FormatHistoryList(records)
	case FormatYAML:
		data, err = r.yamlOut.FormatHistoryList(records)
	case FormatTable:
		data, err = r.tableOut.FormatHistoryList(records)
	default:
		return fmt.Errorf("unsupported format: %s", r.config.DefaultFormat)
	}
	if err != nil {
		return err
	}
	return r.write(data)
}

// RenderSnapshotList writes configuration snapshots in the configured format
func (r *Renderer) RenderSnapshotList(snapshots []*types.ConfigSnapshot) error {
	var (
		data []byte
		err  error
	)
	switch r.config.DefaultFormat {
	case FormatJSON:
		data, err = r.jsonOut.FormatSnapshotList(snapshots)
	case FormatYAML:
		data, err = r.yamlOut.FormatSnapshotList(snapshots)
	case FormatTable:
		data, err = r.tableOut.FormatSnapshotList(snapshots)
	default:
		return fmt.Errorf("unsupported format: %s", r.config.DefaultFormat)
	}
	if err != nil {
		return err
	}
	return r.write(data)
}

func (r *Renderer) write(data []byte) error {
	_, err := r.writer.Write(data)
	return err
}

// DisplayError shows an error message
func (r *Renderer) DisplayError(err error) {
	if r.config.EnableColors {
		fmt.Fprintf(os.Stderr, "\033[31mError: %v\033[0m\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

// DisplaySuccess shows a success message
func (r *Renderer) DisplaySuccess(message string) {
	if r.config.EnableColors {
		fmt.Fprintf(r.writer, "\033[32m%s\033[0m\n", message)
	} else {
		fmt.Fprintf(r.writer, "%s\n", message)
	}
}

// DisplayWarning shows a warning message
func (r *Renderer) DisplayWarning(message string) {
	if r.config.EnableColors {
		fmt.Fprintf(os.Stderr, "\033[33mWarning: %s\033[0m\n", message)
	} else {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", message)
	}
}
