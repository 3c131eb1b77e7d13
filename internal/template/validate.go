package template

import (
	"fmt"
	"strings"

	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// Validate runs platform-specific static checks against a rendered
// configuration. Errors mark configs that must not be pushed; warnings
// flag likely mistakes the operator may still choose to deploy.
func Validate(rendered, deviceType string) *types.ValidationResult {
	result := &types.ValidationResult{Valid: true}

	trimmed := strings.TrimSpace(rendered)
	if trimmed == "" {
		result.AddError("configuration is empty")
		return result
	}

	switch deviceType {
	case types.PlatformCiscoIOS, types.PlatformCiscoNXOS, types.PlatformAristaEOS:
		validateIOSFamily(trimmed, result)
	case types.PlatformJuniperJunos:
		validateJunos(trimmed, result)
	default:
		result.AddWarning(fmt.Sprintf("no validation rules for device type %q", deviceType))
	}

	return result
}

// validateIOSFamily checks IOS-style configurations (Cisco IOS, NX-OS,
// Arista EOS share the same line-oriented grammar)
func validateIOSFamily(config string, result *types.ValidationResult) {
	lines := strings.Split(config, "\n")

	hasHostname := false
	lastLine := ""
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}
		lastLine = line

		if strings.HasPrefix(line, "hostname ") {
			hasHostname = true
		}

		if strings.HasPrefix(line, "banner ") {
			if err := checkBannerDelimiters(line); err != "" {
				result.AddError(err)
			}
		}
	}

	if !hasHostname {
		result.AddWarning("configuration has no hostname statement")
	}
	if lastLine != "end" {
		result.AddWarning("configuration does not end with 'end'")
	}
}

// validateJunos checks Junos-style brace-structured configurations
func validateJunos(config string, result *types.ValidationResult) {
	depth := 0
	for _, r := range config {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				result.AddError("unbalanced braces: '}' without matching '{'")
				return
			}
		}
	}
	if depth != 0 {
		result.AddError(fmt.Sprintf("unbalanced braces: %d unclosed", depth))
	}

	if !strings.Contains(config, "host-name") {
		result.AddWarning("configuration has no host-name statement")
	}
}

// checkBannerDelimiters verifies a one-line banner command closes its
// delimiter. Returns an error message, or empty when the banner is
// well formed.
func checkBannerDelimiters(line string) string {
	// banner <kind> <delim>message<delim>
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 3 {
		return fmt.Sprintf("banner has no message: %q", line)
	}

	body := strings.TrimSpace(fields[2])
	if body == "" {
		return fmt.Sprintf("banner has no message: %q", line)
	}

	delim := body[:1]
	if strings.Count(body, delim) < 2 {
		return fmt.Sprintf("banner delimiter %q is not closed: %q", delim, line)
	}
	return ""
}
