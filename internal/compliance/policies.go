package compliance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/keepithuman/netconfig-automation/internal/logger"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// policyFile is the on-disk shape of a policy definition file
type policyFile struct {
	Policies map[string]types.CompliancePolicy `yaml:"policies"`
}

// DefaultPolicies returns the built-in baseline used when no policy
// file is present
func DefaultPolicies() map[string]types.CompliancePolicy {
	return map[string]types.CompliancePolicy{
		"ssh_enabled": {
			Description: "SSH version 2 must be enabled",
			CheckType:   types.CheckContains,
			Pattern:     "ip ssh version 2",
			Severity:    types.SeverityHigh,
		},
		"no_telnet": {
			Description: "Telnet must not be accepted on VTY lines",
			CheckType:   types.CheckNotContains,
			Pattern:     "transport input telnet",
			Severity:    types.SeverityHigh,
		},
		"banner_configured": {
			Description: "Login banner must be configured",
			CheckType:   types.CheckContains,
			Pattern:     "banner login",
			Severity:    types.SeverityMedium,
		},
	}
}

// LoadPolicies reads policies from path, falling back to the built-in
// defaults when the file does not exist. A file that exists but cannot
// be parsed is an error; silently ignoring it would audit against the
// wrong baseline.
func LoadPolicies(path string, log logger.Logger) (map[string]types.CompliancePolicy, error) {
	if log == nil {
		log = logger.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("no policy file at " + path + ", using default policies")
			return DefaultPolicies(), nil
		}
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}

	if len(file.Policies) == 0 {
		log.Warn("policy file " + path + " defines no policies, using defaults")
		return DefaultPolicies(), nil
	}

	return file.Policies, nil
}
