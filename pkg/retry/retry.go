// Package retry implements exponential backoff with jitter for operations
// against the extractor transport layer.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/brahmanandan/tr181-comparator/pkg/observability"
	"github.com/brahmanandan/tr181-comparator/pkg/trerrors"
)

// Config configures the backoff schedule and which error kinds are
// eligible for retry.
type Config struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	BackoffFactor  float64
	RetryableKinds []trerrors.Kind

	// Metrics and Sink, when set, let Do report its attempts and final
	// failures into the same observability collaborators the extractors
	// use. Both may be left nil.
	Metrics *observability.Registry
	Sink    *observability.ErrorSink
}

// DefaultConfig returns sane defaults for retrying transport operations.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		BaseDelay:     time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
		RetryableKinds: []trerrors.Kind{
			trerrors.KindConnection,
			trerrors.KindTimeout,
			trerrors.KindProtocol,
		},
	}
}

// Attempt records one execution attempt for attempt-history reporting.
type Attempt struct {
	Number int
	Delay  time.Duration
	Err    error
}

// Do executes op, retrying on errors whose kind is in cfg.RetryableKinds
// with exponential backoff and jitter in [0, BaseDelay/2), the jittered
// delay capped at MaxDelay. Non-retryable
// errors (including plain errors not wrapped as *trerrors.TR181Error)
// propagate immediately. After MaxAttempts the last error is returned with
// the full attempt history attached via TR181Error.Context.Metadata.
func Do(ctx context.Context, cfg Config, operationName string, op func(ctx context.Context) error) error {
	var history []Attempt

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := op(ctx)
		recordAttempt(cfg, operationName, err)
		if err == nil {
			return nil
		}

		history = append(history, Attempt{Number: attempt, Err: err})

		tr181Err, ok := err.(*trerrors.TR181Error)
		if !ok || !tr181Err.Retryable(cfg.RetryableKinds...) {
			reportFinal(cfg, tr181Err)
			return err
		}

		if attempt == cfg.MaxAttempts {
			final := attachHistory(tr181Err, history)
			reportFinal(cfg, final)
			return final
		}

		delay := backoffDelay(cfg, attempt)
		history[len(history)-1].Delay = delay

		select {
		case <-ctx.Done():
			final := attachHistory(tr181Err, history)
			reportFinal(cfg, final)
			return final
		case <-time.After(delay):
		}
	}

	return nil
}

func recordAttempt(cfg Config, operationName string, err error) {
	if cfg.Metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	cfg.Metrics.RecordRetryAttempt(operationName, outcome)
}

// reportFinal records a terminal (non-retryable or exhausted) error into
// cfg.Sink. A nil trErr (the failing op returned a plain, non-TR181Error)
// is not reportable through the sink's typed history and is skipped.
func reportFinal(cfg Config, trErr *trerrors.TR181Error) {
	if cfg.Sink == nil || trErr == nil {
		return
	}
	cfg.Sink.Report(observability.CategoryRetry, trErr)
}

// backoffDelay computes the delay before the given (1-based) attempt's
// retry: base * factor^(attempt-1), jittered by up to half the base delay,
// capped at MaxDelay.
func backoffDelay(cfg Config, attempt int) time.Duration {
	base := float64(cfg.BaseDelay)
	raw := base * pow(cfg.BackoffFactor, attempt-1)

	jitterRange := base / 2
	jitter := rand.Float64() * jitterRange

	delay := time.Duration(raw + jitter)
	if maxDelay := cfg.MaxDelay; maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

func attachHistory(err *trerrors.TR181Error, history []Attempt) *trerrors.TR181Error {
	if err.Context.Metadata == nil {
		err.Context.Metadata = map[string]any{}
	}
	err.Context.Metadata["attempts"] = history
	err.Context.Attempt = len(history)
	return err
}
