package template

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// Engine renders configuration templates. Rendering is pure: the same
// template text and variables always produce the same output, and
// nothing is touched outside the returned string.
type Engine struct {
	// FuncMap contains the helper functions available to templates.
	FuncMap template.FuncMap

	// Delimiters for template parsing (default: {{ }}).
	LeftDelim  string
	RightDelim string
}

// NewEngine creates an engine with the default helpers and delimiters
func NewEngine() *Engine {
	return &Engine{
		FuncMap:    defaultFuncMap(),
		LeftDelim:  "{{",
		RightDelim: "}}",
	}
}

// Render substitutes vars into tmplText. Parse failures and references
// to variables absent from vars both return an error; a config with a
// silently skipped placeholder must never reach a device.
func (e *Engine) Render(name, tmplText string, vars map[string]string) (string, error) {
	t := template.New(name)
	t.Funcs(e.FuncMap)
	t.Option("missingkey=error")

	if e.LeftDelim != "" && e.RightDelim != "" {
		t.Delims(e.LeftDelim, e.RightDelim)
	}

	parsed, err := t.Parse(tmplText)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := parsed.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}

	return buf.String(), nil
}

// MergeVariables fills device-derived defaults underneath the caller's
// variables. Caller values always win; nothing the caller set is
// dropped or renamed.
func MergeVariables(device *types.Device, overrides map[string]string) map[string]string {
	merged := map[string]string{
		"hostname":      device.Name,
		"management_ip": device.Host,
		"device_type":   device.DeviceType,
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// SampleVariables returns the synthetic variable set used by dry-run
// rendering when no device is contacted.
func SampleVariables() map[string]string {
	return map[string]string{
		"hostname":      "sample-device",
		"management_ip": "192.168.1.1",
		"device_type":   "cisco_ios",
	}
}

// defaultFuncMap returns the helpers templates may call
func defaultFuncMap() template.FuncMap {
	return template.FuncMap{
		// String functions
		"upper":      strings.ToUpper,
		"lower":      strings.ToLower,
		"trim":       strings.TrimSpace,
		"trimPrefix": strings.TrimPrefix,
		"trimSuffix": strings.TrimSuffix,
		"replace":    strings.ReplaceAll,
		"contains":   strings.Contains,
		"hasPrefix":  strings.HasPrefix,
		"hasSuffix":  strings.HasSuffix,
		"split":      strings.Split,
		"join":       strings.Join,
		"repeat":     strings.Repeat,

		// Conditional functions
		"default": defaultValue,
		"coalesce": func(values ...string) string {
			for _, v := range values {
				if v != "" {
					return v
				}
			}
			return ""
		},

		// Formatting
		"indent": indent,
		"quote": func(s string) string {
			return fmt.Sprintf("%q", s)
		},
	}
}

// defaultValue returns the default when the input is empty
func defaultValue(def, value string) string {
	if value == "" {
		return def
	}
	return value
}

// indent adds indentation to each non-empty line of a string
func indent(spaces int, s string) string {
	pad := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}
