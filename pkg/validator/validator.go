// Package validator implements TR-181 path, data-type, and constraint
// validation.
package validator

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/brahmanandan/tr181-comparator/pkg/model"
)

// Result carries the errors and warnings produced by validating one node
// or document.
type Result struct {
	Errors   []string
	Warnings []string
}

// IsValid reports whether no errors (warnings are allowed) were recorded.
func (r Result) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *Result) addErrorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) addWarningf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Merge folds other's errors and warnings into r.
func (r *Result) Merge(other Result) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Options configures a Validator's leniency and namespace rules.
type Options struct {
	// AllowTemplates permits "{i}"-style placeholders in paths; only true
	// for operator requirement documents.
	AllowTemplates bool
	// LenientCWMP relaxes type-mismatch errors to warnings, since CWMP
	// sources commonly report typed values as strings.
	LenientCWMP bool
	// CustomExtraObjects augments the standard TR-181 top-level object
	// set used by IsCustomPath.
	CustomExtraObjects map[string]bool
}

// Validator validates TR181 nodes against path syntax, declared data
// type, and value_range constraints.
type Validator struct {
	opts Options
}

// New creates a Validator with the given options.
func New(opts Options) *Validator {
	return &Validator{opts: opts}
}

// ValidateNode runs structural, path, type, and range validation for a
// single node. If actualValue is non-nil it is validated instead of
// node.Value (used when comparing a requirement node against a live
// device value); otherwise node.Value is validated if present.
func (v *Validator) ValidateNode(node model.Node, actualValue any) Result {
	var result Result

	if err := node.Validate(); err != nil {
		result.addErrorf("%v", err)
	}

	if err := ValidatePath(node.Path, v.opts.AllowTemplates); err != nil {
		result.addErrorf("%v", err)
	}

	value := actualValue
	if value == nil {
		value = node.Value
	}
	if value != nil {
		v.validateType(node, value, &result)
		v.validateRange(node, value, &result)
	}

	if node.ValueRange != nil {
		v.validateRangeSpec(node, &result)
	}

	if node.IsCustom && !IsCustomPath(node.Path, v.opts.CustomExtraObjects) {
		result.addWarningf("node %q marked custom but its path lies within the standard TR-181 namespace", node.Path)
	}

	return result
}

func (v *Validator) validateType(node model.Node, value any, result *Result) {
	_, err := Coerce(node.DataType, value)
	if err == nil {
		return
	}
	if v.opts.LenientCWMP {
		result.addWarningf("node %q: %v (tolerated: CWMP-origin value)", node.Path, err)
		return
	}
	result.addErrorf("node %q: %v", node.Path, err)
}

func (v *Validator) validateRange(node model.Node, value any, result *Result) {
	rangeSpec := node.ValueRange
	if rangeSpec == nil {
		return
	}

	if len(rangeSpec.AllowedValues) > 0 {
		if !containsValue(rangeSpec.AllowedValues, value) {
			result.addErrorf("node %q: value %v not in allowed values %v", node.Path, value, rangeSpec.AllowedValues)
		}
		return // enumeration membership short-circuits the other range checks
	}

	if num, ok := asFloat(value); ok {
		if rangeSpec.Min != nil {
			if min, ok := asFloat(rangeSpec.Min); ok && num < min {
				result.addErrorf("node %q: value %v below minimum %v", node.Path, value, rangeSpec.Min)
			}
		}
		if rangeSpec.Max != nil {
			if max, ok := asFloat(rangeSpec.Max); ok && num > max {
				result.addErrorf("node %q: value %v above maximum %v", node.Path, value, rangeSpec.Max)
			}
		}
	}

	if s, ok := value.(string); ok {
		if rangeSpec.MaxLength > 0 && len(s) > rangeSpec.MaxLength {
			result.addErrorf("node %q: string length %d exceeds maximum %d", node.Path, len(s), rangeSpec.MaxLength)
		}
		if rangeSpec.Pattern != "" {
			re, err := regexp.Compile(rangeSpec.Pattern)
			if err != nil {
				result.addWarningf("node %q: invalid regex pattern %q: %v", node.Path, rangeSpec.Pattern, err)
			} else if !re.MatchString(s) {
				result.addErrorf("node %q: value %q does not match pattern %q", node.Path, s, rangeSpec.Pattern)
			}
		}
	}
}

func (v *Validator) validateRangeSpec(node model.Node, result *Result) {
	rangeSpec := node.ValueRange

	if rangeSpec.Min != nil && rangeSpec.Max != nil {
		min, minOK := asFloat(rangeSpec.Min)
		max, maxOK := asFloat(rangeSpec.Max)
		if minOK && maxOK && min > max {
			result.addErrorf("node %q: minimum %v is greater than maximum %v", node.Path, rangeSpec.Min, rangeSpec.Max)
		}
	}

	if rangeSpec.Pattern != "" {
		if _, err := regexp.Compile(rangeSpec.Pattern); err != nil {
			result.addErrorf("node %q: invalid regex pattern %q: %v", node.Path, rangeSpec.Pattern, err)
		}
	}

	if rangeSpec.MaxLength < 0 {
		result.addErrorf("node %q: max_length must be positive, got %d", node.Path, rangeSpec.MaxLength)
	}
}

func containsValue(allowed []any, value any) bool {
	for _, a := range allowed {
		if reflect.DeepEqual(a, value) {
			return true
		}
		// Compare numerically when both sides look numeric (int 6 vs "6").
		if af, aok := asFloat(a); aok {
			if vf, vok := asFloat(value); vok && af == vf {
				return true
			}
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Summary aggregates validation statistics across many nodes.
type Summary struct {
	TotalNodes     int
	ValidNodes     int
	InvalidNodes   int
	TotalErrors    int
	TotalWarnings  int
	ValidationRate float64
}

// Summarize computes a Summary from a set of per-path validation results.
func Summarize(results map[string]Result) Summary {
	s := Summary{TotalNodes: len(results)}
	for _, r := range results {
		if r.IsValid() {
			s.ValidNodes++
		}
		s.TotalErrors += len(r.Errors)
		s.TotalWarnings += len(r.Warnings)
	}
	s.InvalidNodes = s.TotalNodes - s.ValidNodes
	if s.TotalNodes > 0 {
		s.ValidationRate = float64(s.ValidNodes) / float64(s.TotalNodes)
	}
	return s
}
