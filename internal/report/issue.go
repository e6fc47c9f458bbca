// Package report holds the validation result shape shared by every checker
// and the renderers that turn it into text or JSON.
package report

import (
	"fmt"
	"strings"
)

// Severity of a single issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ParseSeverity accepts error, warning or info in any case
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityError:
		return SeverityError, nil
	case SeverityWarning:
		return SeverityWarning, nil
	case SeverityInfo:
		return SeverityInfo, nil
	default:
		return "", fmt.Errorf("invalid severity %q (must be error, warning, or info)", s)
	}
}

// Rule identifiers reported by the structural checkers. Compliance issues
// carry the id of the compliance rule that produced them.
const (
	RuleModuleNotFound         = "module-not-found"
	RuleNoCircularDependencies = "no-circular-dependencies"
	RuleTypeNotFound           = "type-not-found"
	RuleRespectLayerBoundaries = "respect-layer-boundaries"
	RuleLayerDefined           = "layer-defined"
	RuleCallTargetNotFound     = "call-target-not-found"
	RuleUsedDependencies       = "used-dependencies-declared"
	RuleDeclaredDependencies   = "declared-dependencies-must-be-used"
	RuleImportTargetNotFound   = "import-target-not-found"
	RuleValidModuleStructure   = "valid-module-structure"
	RuleValidTypeExpression    = "valid-type-expression"
	RuleValidCallReference     = "valid-call-reference"
	RuleValidComplianceRule    = "valid-compliance-rule"
)

// Issue is a single validation finding
type Issue struct {
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Location string   `json:"location,omitempty"` // Stable path such as module.Export.method
}

// String renders the issue on one line without styling
func (i Issue) String() string {
	if i.Location == "" {
		return fmt.Sprintf("[%s] %s", i.RuleID, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.RuleID, i.Location, i.Message)
}

// Errorf builds an error-severity issue
func Errorf(rule, location, format string, args ...any) Issue {
	return Issue{RuleID: rule, Severity: SeverityError, Location: location, Message: fmt.Sprintf(format, args...)}
}

// Warnf builds a warning-severity issue
func Warnf(rule, location, format string, args ...any) Issue {
	return Issue{RuleID: rule, Severity: SeverityWarning, Location: location, Message: fmt.Sprintf(format, args...)}
}

// less orders issues by rule id, then location, then message
func less(a, b Issue) bool {
	if a.RuleID != b.RuleID {
		return a.RuleID < b.RuleID
	}
	if a.Location != b.Location {
		return a.Location < b.Location
	}
	return a.Message < b.Message
}
