package compliance

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/keepithuman/netconfig-automation/internal/logger"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

// Checker evaluates device configurations against a set of named
// policies. Evaluation order is the sorted policy names so reports are
// deterministic regardless of map iteration.
type Checker struct {
	policies map[string]types.CompliancePolicy
	logger   logger.Logger
}

// NewChecker creates a checker over the given policies
func NewChecker(policies map[string]types.CompliancePolicy, log logger.Logger) *Checker {
	if log == nil {
		log = logger.NewNop()
	}
	return &Checker{
		policies: policies,
		logger:   log,
	}
}

// Policies returns the policy set the checker evaluates
func (c *Checker) Policies() map[string]types.CompliancePolicy {
	return c.policies
}

// Check evaluates every policy against the configuration and builds
// the report. A device is compliant only when all checks pass.
func (c *Checker) Check(config string) *types.ComplianceReport {
	report := &types.ComplianceReport{Compliant: true}

	names := make([]string, 0, len(c.policies))
	for name := range c.policies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		policy := c.policies[name]
		report.ChecksTotal++

		if c.evaluate(name, policy, config) {
			report.ChecksPassed++
			continue
		}

		report.Compliant = false
		report.Issues = append(report.Issues, types.PolicyIssue{
			Policy:      name,
			Description: policy.Description,
			Severity:    policy.Severity,
		})
	}

	report.Score = score(report.ChecksPassed, report.ChecksTotal)
	return report
}

// evaluate runs a single check. Policies the checker cannot interpret
// (unknown check type, unparseable regex) pass with a warning rather
// than marking the fleet non-compliant over a policy-file mistake.
func (c *Checker) evaluate(name string, policy types.CompliancePolicy, config string) bool {
	switch policy.CheckType {
	case types.CheckContains:
		return strings.Contains(config, policy.Pattern)

	case types.CheckNotContains:
		return !strings.Contains(config, policy.Pattern)

	case types.CheckRegex:
		re, err := regexp.Compile(policy.Pattern)
		if err != nil {
			c.logger.Warn("skipping policy " + name + ": invalid regex pattern")
			return true
		}
		return re.MatchString(config)

	case types.CheckLineExists:
		for _, line := range strings.Split(config, "\n") {
			if strings.Contains(line, policy.Pattern) {
				return true
			}
		}
		return false

	default:
		c.logger.Warn("skipping policy " + name + ": unknown check type " + policy.CheckType)
		return true
	}
}

// score converts a pass count to a percentage rounded to one decimal
func score(passed, total int) float64 {
	if total == 0 {
		return 100.0
	}
	rate := float64(passed) / float64(total) * 100
	return math.Round(rate*10) / 10
}
