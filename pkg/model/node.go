// Package model defines the TR-181 node representation shared by every
// extractor, validator, and comparator in this module.
package model

import "fmt"

// AccessLevel is the TR-181 parameter access mode.
type AccessLevel string

const (
	AccessReadOnly  AccessLevel = "read-only"
	AccessReadWrite AccessLevel = "read-write"
	AccessWriteOnly AccessLevel = "write-only"
)

// Severity classifies a comparison difference or validation finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// DataType is a normalized TR-181 value type.
type DataType string

const (
	DataTypeString       DataType = "string"
	DataTypeInt          DataType = "int"
	DataTypeUnsignedInt  DataType = "unsignedInt"
	DataTypeLong         DataType = "long"
	DataTypeUnsignedLong DataType = "unsignedLong"
	DataTypeBoolean      DataType = "boolean"
	DataTypeDateTime     DataType = "dateTime"
	DataTypeBase64       DataType = "base64"
	DataTypeHexBinary    DataType = "hexBinary"
)

// ValueRange bundles the constraints a node's value must satisfy.
type ValueRange struct {
	Min           any      `json:"min,omitempty" yaml:"min,omitempty"`
	Max           any      `json:"max,omitempty" yaml:"max,omitempty"`
	AllowedValues []any    `json:"allowedValues,omitempty" yaml:"allowedValues,omitempty"`
	Pattern       string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MaxLength     int      `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
}

// Event describes a TR-181 event and the parameter paths it carries.
type Event struct {
	Name        string   `json:"name" yaml:"name"`
	Path        string   `json:"path" yaml:"path"`
	Parameters  []string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Function describes a TR-181 function and its input/output parameter paths.
type Function struct {
	Name             string   `json:"name" yaml:"name"`
	Path             string   `json:"path" yaml:"path"`
	InputParameters  []string `json:"inputParameters,omitempty" yaml:"inputParameters,omitempty"`
	OutputParameters []string `json:"outputParameters,omitempty" yaml:"outputParameters,omitempty"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Node is the atomic TR-181 parameter or object record produced by an
// extractor and consumed by the validator and comparison engines.
type Node struct {
	Path        string      `json:"path" yaml:"path"`
	Name        string      `json:"name" yaml:"name"`
	DataType    DataType    `json:"dataType" yaml:"dataType"`
	Access      AccessLevel `json:"access" yaml:"access"`
	Value       any         `json:"value,omitempty" yaml:"value,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Parent      string      `json:"parent,omitempty" yaml:"-"`
	Children    []string    `json:"children,omitempty" yaml:"-"`
	IsObject    bool        `json:"isObject,omitempty" yaml:"isObject,omitempty"`
	IsCustom    bool        `json:"isCustom,omitempty" yaml:"isCustom,omitempty"`
	ValueRange  *ValueRange `json:"valueRange,omitempty" yaml:"valueRange,omitempty"`
	Events      []Event     `json:"events,omitempty" yaml:"events,omitempty"`
	Functions   []Function  `json:"functions,omitempty" yaml:"functions,omitempty"`
}

// Validate checks the structural invariants every Node must satisfy
// regardless of source: non-empty path/name/dataType and a known access
// level. It does not check TR-181 path syntax; that is the validator
// package's job.
func (n Node) Validate() error {
	if n.Path == "" {
		return fmt.Errorf("node path cannot be empty")
	}
	if n.Name == "" {
		return fmt.Errorf("node %q: name cannot be empty", n.Path)
	}
	if n.DataType == "" {
		return fmt.Errorf("node %q: data_type cannot be empty", n.Path)
	}
	switch n.Access {
	case AccessReadOnly, AccessReadWrite, AccessWriteOnly:
	default:
		return fmt.Errorf("node %q: invalid access level %q", n.Path, n.Access)
	}
	return nil
}

// NameFromPath derives the last path segment, stripping a trailing dot
// that marks an object node.
func NameFromPath(path string) string {
	trimmed := path
	if len(trimmed) > 0 && trimmed[len(trimmed)-1] == '.' {
		trimmed = trimmed[:len(trimmed)-1]
	}
	last := trimmed
	for i := len(trimmed) - 1; i >= 0; i-- {
		if trimmed[i] == '.' {
			last = trimmed[i+1:]
			break
		}
	}
	return last
}
