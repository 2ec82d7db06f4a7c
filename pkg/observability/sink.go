package observability

import (
	"sync"

	"github.com/brahmanandan/tr181-comparator/pkg/trerrors"
)

// ErrorSink records errors encountered during retry and degradation for
// later inspection, replacing a process-wide error-history singleton
// with an explicit collaborator callers can pass around or omit.
type ErrorSink struct {
	mu      sync.Mutex
	history []*trerrors.TR181Error
	metrics *Registry
	log     *Logger
}

// NewErrorSink creates an ErrorSink. metrics and log may be nil, in
// which case the corresponding side effect is skipped.
func NewErrorSink(metrics *Registry, log *Logger) *ErrorSink {
	return &ErrorSink{metrics: metrics, log: log}
}

// Report records err, incrementing validation-error metrics when err's
// kind is trerrors.KindValidation and logging at error level.
func (s *ErrorSink) Report(category Category, err *trerrors.TR181Error) {
	if err == nil {
		return
	}

	s.mu.Lock()
	s.history = append(s.history, err)
	s.mu.Unlock()

	if s.metrics != nil && err.Kind == trerrors.KindValidation {
		s.metrics.ValidationErrorsTotal.WithLabelValues(string(err.Kind)).Inc()
	}
	if s.log != nil {
		s.log.Error(category, err.Message, err)
	}
}

// History returns a snapshot of every error reported so far, most
// recent last.
func (s *ErrorSink) History() []*trerrors.TR181Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*trerrors.TR181Error, len(s.history))
	copy(out, s.history)
	return out
}

// ByKind filters History to errors of the given kind.
func (s *ErrorSink) ByKind(kind trerrors.Kind) []*trerrors.TR181Error {
	var matched []*trerrors.TR181Error
	for _, e := range s.History() {
		if e.Kind == kind {
			matched = append(matched, e)
		}
	}
	return matched
}

// Clear discards all recorded history.
func (s *ErrorSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}
