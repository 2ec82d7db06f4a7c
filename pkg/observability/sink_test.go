package observability

import (
	"testing"

	"github.com/brahmanandan/tr181-comparator/pkg/trerrors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestErrorSinkReportAndHistory(t *testing.T) {
	sink := NewErrorSink(nil, nil)

	err1 := trerrors.New("extract").Kind(trerrors.KindConnection).Message("boom").Build()
	err2 := trerrors.New("validate").Kind(trerrors.KindValidation).Message("bad range").Build()

	sink.Report(CategoryExtraction, err1)
	sink.Report(CategoryValidation, err2)

	history := sink.History()
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0] != err1 || history[1] != err2 {
		t.Fatalf("expected history in report order")
	}
}

func TestErrorSinkByKind(t *testing.T) {
	sink := NewErrorSink(nil, nil)
	sink.Report(CategoryExtraction, trerrors.New("extract").Kind(trerrors.KindConnection).Message("a").Build())
	sink.Report(CategoryValidation, trerrors.New("validate").Kind(trerrors.KindValidation).Message("b").Build())
	sink.Report(CategoryValidation, trerrors.New("validate").Kind(trerrors.KindValidation).Message("c").Build())

	validationErrs := sink.ByKind(trerrors.KindValidation)
	if len(validationErrs) != 2 {
		t.Fatalf("expected 2 validation errors, got %d", len(validationErrs))
	}
}

func TestErrorSinkClear(t *testing.T) {
	sink := NewErrorSink(nil, nil)
	sink.Report(CategoryExtraction, trerrors.New("extract").Kind(trerrors.KindConnection).Message("a").Build())
	sink.Clear()
	if len(sink.History()) != 0 {
		t.Fatal("expected history to be empty after Clear")
	}
}

func TestErrorSinkIgnoresNil(t *testing.T) {
	sink := NewErrorSink(nil, nil)
	sink.Report(CategoryExtraction, nil)
	if len(sink.History()) != 0 {
		t.Fatal("expected nil error to be ignored")
	}
}

func TestErrorSinkIncrementsValidationMetric(t *testing.T) {
	reg := NewRegistry(prometheus.NewRegistry())
	sink := NewErrorSink(reg, NewNop())

	sink.Report(CategoryValidation, trerrors.New("validate").Kind(trerrors.KindValidation).Message("bad").Build())

	if got := testutil.ToFloat64(reg.ValidationErrorsTotal.WithLabelValues(string(trerrors.KindValidation))); got != 1 {
		t.Fatalf("expected validation error counter to be 1, got %v", got)
	}
}
