// Package trerrors defines the error taxonomy shared across the TR-181
// comparator pipeline: error kinds, severities, recovery hints, and the
// structured TR181Error that carries them.
package trerrors

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind classifies an error for retry and reporting decisions.
type Kind string

const (
	KindConnection    Kind = "connection"
	KindAuthentication Kind = "authentication"
	KindTimeout       Kind = "timeout"
	KindProtocol      Kind = "protocol"
	KindValidation    Kind = "validation"
	KindConfiguration Kind = "configuration"
)

// Severity is the operational severity of an error.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RecoveryAction describes one suggested remediation for an error.
type RecoveryAction struct {
	Type        string
	Description string
	Automatic   bool
	Parameters  map[string]any
}

// Context carries the operation/component/attempt metadata attached to
// every TR181Error, plus a correlation id linking it to observability
// events emitted for the same logical operation.
type Context struct {
	Operation     string
	Component     string
	Attempt       int
	MaxAttempts   int
	CorrelationID string
	Metadata      map[string]any
}

// NewContext creates a Context with a fresh correlation id.
func NewContext(operation, component string) Context {
	return Context{
		Operation:     operation,
		Component:     component,
		Attempt:       1,
		MaxAttempts:   1,
		CorrelationID: uuid.NewString(),
		Metadata:      map[string]any{},
	}
}

// TR181Error is the structured error type carried through retry,
// degradation, extraction, validation, and comparison.
type TR181Error struct {
	Op       string // operation that failed, e.g. "extract", "connect"
	Kind     Kind
	Severity Severity
	Context  Context
	Cause    error
	Recovery []RecoveryAction
	Message  string
	at       time.Time
}

// Error implements the error interface.
func (e *TR181Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As chains.
func (e *TR181Error) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is against the cause, allowing callers to test for
// a specific underlying error through a TR181Error wrapper.
func (e *TR181Error) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// Code returns a correlation-friendly error code, kind and timestamp
// joined.
func (e *TR181Error) Code() string {
	return fmt.Sprintf("TR181_%s_%s", e.Kind, e.at.UTC().Format("20060102150405"))
}

// UserMessage renders a human-readable message followed by any recovery
// suggestions.
func (e *TR181Error) UserMessage() string {
	msg := "Error: " + e.Message
	if len(e.Recovery) > 0 {
		msg += "\n\nSuggested actions:"
		for i, action := range e.Recovery {
			msg += fmt.Sprintf("\n%d. %s", i+1, action.Description)
		}
	}
	return msg
}

// Retryable reports whether this error's kind belongs to the given
// retryable-kind set.
func (e *TR181Error) Retryable(retryableKinds ...Kind) bool {
	for _, k := range retryableKinds {
		if e.Kind == k {
			return true
		}
	}
	return false
}

// Builder constructs TR181Errors with a fluent method chain.
type Builder struct {
	err TR181Error
}

// New starts a Builder for the given operation.
func New(op string) *Builder {
	return &Builder{err: TR181Error{Op: op, Severity: SeverityMedium, at: time.Now()}}
}

func (b *Builder) Kind(k Kind) *Builder {
	b.err.Kind = k
	return b
}

func (b *Builder) Severity(s Severity) *Builder {
	b.err.Severity = s
	return b
}

func (b *Builder) Message(format string, args ...any) *Builder {
	b.err.Message = fmt.Sprintf(format, args...)
	return b
}

func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

func (b *Builder) Context(ctx Context) *Builder {
	b.err.Context = ctx
	return b
}

func (b *Builder) Recovery(actions ...RecoveryAction) *Builder {
	b.err.Recovery = append(b.err.Recovery, actions...)
	return b
}

// Build returns the constructed *TR181Error.
func (b *Builder) Build() *TR181Error {
	if b.err.at.IsZero() {
		b.err.at = time.Now()
	}
	return &b.err
}

// Connection builds a connection-establishment error with the standard
// retry/check-network/check-config recovery actions.
func Connection(endpoint string, cause error) *TR181Error {
	return New("connect").
		Kind(KindConnection).
		Severity(SeverityHigh).
		Message("failed to connect to %s", endpoint).
		Cause(cause).
		Recovery(
			RecoveryAction{Type: "retry", Description: "retry the connection with exponential backoff", Automatic: true},
			RecoveryAction{Type: "check_network", Description: "verify network connectivity and endpoint availability"},
			RecoveryAction{Type: "check_config", Description: "verify connection configuration (URL, port, credentials)"},
		).
		Build()
}

// Authentication builds a non-retryable authentication error.
func Authentication(method string, cause error) *TR181Error {
	return New("authenticate").
		Kind(KindAuthentication).
		Severity(SeverityHigh).
		Message("authentication failed (method=%s)", method).
		Cause(cause).
		Recovery(
			RecoveryAction{Type: "check_credentials", Description: "verify username, password, or authentication tokens"},
			RecoveryAction{Type: "check_permissions", Description: "ensure account has necessary permissions"},
		).
		Build()
}

// Timeout builds a retryable timeout error.
func Timeout(op string, duration time.Duration, cause error) *TR181Error {
	return New(op).
		Kind(KindTimeout).
		Severity(SeverityMedium).
		Message("operation %s exceeded deadline of %s", op, duration).
		Cause(cause).
		Recovery(
			RecoveryAction{Type: "increase_timeout", Description: fmt.Sprintf("consider increasing the timeout (current: %s)", duration)},
			RecoveryAction{Type: "retry_smaller_batch", Description: "retry with a smaller batch size", Automatic: true},
		).
		Build()
}

// Protocol builds a protocol-level error for a named protocol.
func Protocol(protocol string, cause error) *TR181Error {
	return New("protocol").
		Kind(KindProtocol).
		Severity(SeverityHigh).
		Message("%s protocol error", protocol).
		Cause(cause).
		Recovery(
			RecoveryAction{Type: "check_protocol_version", Description: fmt.Sprintf("verify %s protocol version compatibility", protocol)},
		).
		Build()
}

// Validation builds a non-retryable validation error, optionally scoped to
// a node path.
func Validation(message string, nodePath string) *TR181Error {
	b := New("validate").
		Kind(KindValidation).
		Severity(SeverityMedium).
		Message("%s", message).
		Recovery(RecoveryAction{Type: "check_data_format", Description: "verify data format matches TR-181 specifications"})
	if nodePath != "" {
		b.Recovery(RecoveryAction{Type: "inspect_node", Description: "inspect node data for path: " + nodePath, Parameters: map[string]any{"node_path": nodePath}})
	}
	return b.Build()
}

// Configuration builds a fatal configuration error.
func Configuration(key string, cause error) *TR181Error {
	return New("configure").
		Kind(KindConfiguration).
		Severity(SeverityHigh).
		Message("invalid configuration for key %q", key).
		Cause(cause).
		Recovery(RecoveryAction{Type: "validate_config", Description: "validate all configuration values"}).
		Build()
}
