package types

// Check types understood by the compliance evaluator. A policy with any
// other check type passes by default so a typo in a policy file audits
// the fleet too loosely rather than flagging every device.
const (
	CheckContains    = "contains"
	CheckNotContains = "not_contains"
	CheckRegex       = "regex"
	CheckLineExists  = "line_exists"
)

// Policy severities
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// CompliancePolicy is a single text-level check applied to a device's
// running configuration. Policies are keyed by name in the policy set.
type CompliancePolicy struct {
	Description string `json:"description" yaml:"description"`
	CheckType   string `json:"check_type" yaml:"check_type"`
	Pattern     string `json:"pattern" yaml:"pattern"`
	Severity    string `json:"severity" yaml:"severity"`
}

// PolicyIssue is one failed policy on one device
type PolicyIssue struct {
	Policy      string `json:"policy"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// ComplianceReport is the audit outcome for a single device. Score is
// the percentage of passed checks rounded to one decimal; a device is
// compliant only when no policy failed.
type ComplianceReport struct {
	Compliant    bool          `json:"compliant"`
	Score        float64       `json:"score"`
	ChecksTotal  int           `json:"checks_total"`
	ChecksPassed int           `json:"checks_passed"`
	Issues       []PolicyIssue `json:"issues"`
}
