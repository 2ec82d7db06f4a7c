package degradation

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestRunAccountingSequential(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	result := Run(context.Background(), NewManager(0), items, func(ctx context.Context, item int) (int, error) {
		if item%2 == 0 {
			return 0, errors.New("even items fail")
		}
		return item * 10, nil
	})

	if len(result.Successful) != 3 {
		t.Fatalf("expected 3 successes, got %d", len(result.Successful))
	}
	if len(result.Failed) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(result.Failed))
	}
	if result.Total != 5 {
		t.Fatalf("expected total 5, got %d", result.Total)
	}
	if result.SuccessRate != 0.6 {
		t.Fatalf("expected success rate 0.6, got %v", result.SuccessRate)
	}
}

func TestRunOrderingStableUnderBoundedParallel(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	result := Run(context.Background(), NewManager(8), items, func(ctx context.Context, item int) (int, error) {
		if item%3 == 0 {
			return 0, errors.New("divisible by 3")
		}
		return item, nil
	})

	if result.Total != 100 {
		t.Fatalf("expected total 100, got %d", result.Total)
	}
	// Successful results must appear in ascending input order even though
	// goroutines may complete out of order.
	for i := 1; i < len(result.Successful); i++ {
		if result.Successful[i] < result.Successful[i-1] {
			t.Fatalf("successful results not in input order: %v", result.Successful)
		}
	}
}

func TestPartialResultIsAcceptable(t *testing.T) {
	pr := PartialResult[int, int]{Total: 10, Successful: make([]int, 7), SuccessRate: 0.7}
	if !pr.IsAcceptable(0.5) {
		t.Fatal("expected 0.7 success rate to be acceptable at 0.5 threshold")
	}
	if pr.IsAcceptable(0.8) {
		t.Fatal("expected 0.7 success rate to be unacceptable at 0.8 threshold")
	}
}

// TestDegradationAccountingProperty checks that for any mix of per-item
// outcomes, |successful| + |failed| == |items| and
// success_rate == |successful|/|items|.
func TestDegradationAccountingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("accounting invariant holds for any pass/fail pattern", prop.ForAll(
		func(outcomes []bool) bool {
			result := Run(context.Background(), NewManager(4), outcomes, func(ctx context.Context, ok bool) (bool, error) {
				if !ok {
					return false, errors.New("item marked to fail")
				}
				return true, nil
			})

			if len(result.Successful)+len(result.Failed) != len(outcomes) {
				return false
			}
			if len(outcomes) == 0 {
				return result.SuccessRate == 0.0
			}
			expectedRate := float64(len(result.Successful)) / float64(len(outcomes))
			return result.SuccessRate == expectedRate
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
