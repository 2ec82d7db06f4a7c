// Package degradation implements graceful degradation for batch operations:
// apply an operation to many items, tolerate per-item failure, and report a
// PartialResult the caller can judge against a minimum success rate.
package degradation

import (
	"context"
	"fmt"
	"sync"

	"github.com/brahmanandan/tr181-comparator/pkg/observability"
	"github.com/brahmanandan/tr181-comparator/pkg/trerrors"
)

// Failure pairs a failed item with the error it produced.
type Failure[T any] struct {
	Item T
	Err  error
}

// PartialResult aggregates the outcome of applying an operation to a list
// of items, some of which may fail.
type PartialResult[T any, R any] struct {
	Successful  []R
	Failed      []Failure[T]
	Total       int
	SuccessRate float64
}

// IsAcceptable reports whether the success rate meets minRate.
func (p PartialResult[T, R]) IsAcceptable(minRate float64) bool {
	return p.SuccessRate >= minRate
}

// Manager applies an operation to a list of items, catching all
// per-item errors, and bounds the number of in-flight operations.
type Manager struct {
	// MaxInFlight bounds concurrent operations; 0 or negative means
	// sequential processing in order.
	MaxInFlight int

	// Operation labels the metrics and error-sink reports Run produces.
	// Left empty, Run still runs correctly; it just reports under an
	// empty operation label.
	Operation string
	Metrics   *observability.Registry
	Sink      *observability.ErrorSink
}

// NewManager creates a Manager with the given bound on concurrent
// in-flight operations. A non-positive value runs sequentially.
func NewManager(maxInFlight int) *Manager {
	return &Manager{MaxInFlight: maxInFlight}
}

// WithObservability attaches the operation label, error sink, and
// metrics registry Run reports into. metrics and sink may be nil.
func (m *Manager) WithObservability(operation string, sink *observability.ErrorSink, metrics *observability.Registry) *Manager {
	m.Operation = operation
	m.Sink = sink
	m.Metrics = metrics
	return m
}

// Run applies op to every item in items, recording successes and
// failures. Results are ordered by input index regardless of completion
// order. A cancelled ctx stops launching new work but still returns a
// PartialResult for whatever completed.
func Run[T any, R any](ctx context.Context, m *Manager, items []T, op func(ctx context.Context, item T) (R, error)) PartialResult[T, R] {
	total := len(items)
	successes := make([]*R, total)
	failures := make([]*Failure[T], total)

	if m == nil || m.MaxInFlight <= 1 {
		runSequential(ctx, items, op, successes, failures)
	} else {
		runBounded(ctx, m.MaxInFlight, items, op, successes, failures)
	}

	result := PartialResult[T, R]{Total: total}
	for i := range items {
		if successes[i] != nil {
			result.Successful = append(result.Successful, *successes[i])
		} else if failures[i] != nil {
			result.Failed = append(result.Failed, *failures[i])
		}
	}
	if total > 0 {
		result.SuccessRate = float64(len(result.Successful)) / float64(total)
	}

	if m != nil {
		if m.Metrics != nil {
			m.Metrics.RecordDegradationRun(m.Operation, result.SuccessRate)
		}
		if m.Sink != nil {
			for _, failure := range result.Failed {
				reportFailure(m.Sink, m.Operation, failure.Err)
			}
		}
	}

	return result
}

// reportFailure records a per-item failure into sink, wrapping it in a
// TR181Error when the caller's op returned a plain error rather than
// one already carrying kind/severity.
func reportFailure(sink *observability.ErrorSink, operation string, err error) {
	if err == nil {
		return
	}
	trErr, ok := err.(*trerrors.TR181Error)
	if !ok {
		trErr = trerrors.Protocol(operation, err)
	}
	sink.Report(observability.CategoryDegradation, trErr)
}

func runSequential[T any, R any](ctx context.Context, items []T, op func(context.Context, T) (R, error), successes []*R, failures []*Failure[T]) {
	for i, item := range items {
		if ctx.Err() != nil {
			failures[i] = &Failure[T]{Item: item, Err: ctx.Err()}
			continue
		}
		r, err := op(ctx, item)
		if err != nil {
			failures[i] = &Failure[T]{Item: item, Err: err}
			continue
		}
		successes[i] = &r
	}
}

func runBounded[T any, R any](ctx context.Context, maxInFlight int, items []T, op func(context.Context, T) (R, error), successes []*R, failures []*Failure[T]) {
	sem := make(chan struct{}, maxInFlight)
	var wg sync.WaitGroup

	for i, item := range items {
		if ctx.Err() != nil {
			failures[i] = &Failure[T]{Item: item, Err: ctx.Err()}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					failures[i] = &Failure[T]{Item: item, Err: fmt.Errorf("panic: %v", r)}
				}
			}()

			r, err := op(ctx, item)
			if err != nil {
				failures[i] = &Failure[T]{Item: item, Err: err}
				return
			}
			successes[i] = &r
		}(i, item)
	}

	wg.Wait()
}
