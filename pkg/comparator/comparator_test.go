package comparator

import (
	"testing"

	"github.com/brahmanandan/tr181-comparator/pkg/model"
	"github.com/brahmanandan/tr181-comparator/pkg/observability"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func node(path string, dataType model.DataType, value any) model.Node {
	return model.Node{Path: path, Name: model.NameFromPath(path), DataType: dataType, Access: model.AccessReadWrite, Value: value}
}

func TestCompareFindsUniqueNodes(t *testing.T) {
	source1 := []model.Node{node("Device.A", model.DataTypeString, "x"), node("Device.B", model.DataTypeString, "y")}
	source2 := []model.Node{node("Device.A", model.DataTypeString, "x")}

	result := New(Options{}).Compare(source1, source2)

	if len(result.OnlyInSource1) != 1 || result.OnlyInSource1[0].Path != "Device.B" {
		t.Fatalf("expected Device.B unique to source1, got %+v", result.OnlyInSource1)
	}
	if len(result.OnlyInSource2) != 0 {
		t.Fatalf("expected nothing unique to source2, got %+v", result.OnlyInSource2)
	}
	if result.Summary.CommonNodes != 1 {
		t.Fatalf("expected 1 common node, got %d", result.Summary.CommonNodes)
	}
}

func TestCompareDetectsValueMismatch(t *testing.T) {
	source1 := []model.Node{node("Device.A", model.DataTypeInt, int64(1))}
	source2 := []model.Node{node("Device.A", model.DataTypeInt, int64(2))}

	result := New(Options{}).Compare(source1, source2)

	if len(result.Differences) != 1 || result.Differences[0].Kind != model.DiffValueMismatch {
		t.Fatalf("expected a single value mismatch, got %+v", result.Differences)
	}
}

func TestCompareDetectsTypeAndAccessMismatch(t *testing.T) {
	n1 := node("Device.A", model.DataTypeInt, nil)
	n2 := node("Device.A", model.DataTypeString, nil)
	n2.Access = model.AccessReadOnly

	result := New(Options{}).Compare([]model.Node{n1}, []model.Node{n2})

	kinds := make(map[model.DifferenceKind]bool)
	for _, d := range result.Differences {
		kinds[d.Kind] = true
	}
	if !kinds[model.DiffTypeMismatch] || !kinds[model.DiffAccessMismatch] {
		t.Fatalf("expected type and access mismatches, got %+v", result.Differences)
	}
}

func TestCompareCollapseObjectLeaf(t *testing.T) {
	source1 := []model.Node{node("Device.WiFi.Radio.", model.DataTypeString, nil)}
	source2 := []model.Node{node("Device.WiFi.Radio", model.DataTypeString, nil)}

	withoutCollapse := New(Options{}).Compare(source1, source2)
	if withoutCollapse.Summary.CommonNodes != 0 {
		t.Fatalf("expected trailing dot to be significant by default, got %d common", withoutCollapse.Summary.CommonNodes)
	}

	withCollapse := New(Options{CollapseObjectLeaf: true}).Compare(source1, source2)
	if withCollapse.Summary.CommonNodes != 1 {
		t.Fatalf("expected collapsed object/leaf to match, got %d common", withCollapse.Summary.CommonNodes)
	}
}

func TestCompareDeterministicAcrossRuns(t *testing.T) {
	source1 := []model.Node{
		node("Device.C", model.DataTypeInt, int64(1)),
		node("Device.A", model.DataTypeInt, int64(1)),
		node("Device.B", model.DataTypeInt, int64(1)),
	}
	source2 := []model.Node{
		node("Device.A", model.DataTypeString, int64(1)),
		node("Device.B", model.DataTypeString, int64(1)),
		node("Device.C", model.DataTypeString, int64(1)),
	}

	e := New(Options{})
	first := e.Compare(source1, source2)
	second := e.Compare(source1, source2)

	if len(first.Differences) != len(second.Differences) {
		t.Fatalf("expected deterministic difference count, got %d vs %d", len(first.Differences), len(second.Differences))
	}
	for i := range first.Differences {
		if first.Differences[i].Path != second.Differences[i].Path {
			t.Fatalf("expected deterministic ordering at index %d: %q vs %q", i, first.Differences[i].Path, second.Differences[i].Path)
		}
	}
}

func TestCompareRecordsObservabilityMetrics(t *testing.T) {
	registry := observability.NewRegistry(prometheus.NewRegistry())
	e := New(Options{}).WithObservability(registry)

	source1 := []model.Node{node("Device.A", model.DataTypeInt, int64(1))}
	source2 := []model.Node{node("Device.A", model.DataTypeInt, int64(2))}
	e.Compare(source1, source2)

	if got := testutil.ToFloat64(registry.ComparisonsTotal); got != 1 {
		t.Fatalf("expected 1 comparison recorded, got %v", got)
	}
	if got := testutil.ToFloat64(registry.DifferencesFound); got != 1 {
		t.Fatalf("expected 1 difference recorded, got %v", got)
	}
}

// TestCompareSymmetryProperty checks that swapping the two sources
// produces the mirror of each original difference (same path and kind,
// source1/source2 swapped where applicable).
func TestCompareSymmetryProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	e := New(Options{})

	properties.Property("comparing A,B then B,A yields the mirror of each difference", prop.ForAll(
		func(v1, v2 int64) bool {
			n1 := node("Device.X", model.DataTypeInt, v1)
			n2 := node("Device.X", model.DataTypeInt, v2)

			forward := e.Compare([]model.Node{n1}, []model.Node{n2})
			backward := e.Compare([]model.Node{n2}, []model.Node{n1})

			if len(forward.Differences) != len(backward.Differences) {
				return false
			}
			for i, d := range forward.Differences {
				if d.Swapped() != backward.Differences[i] {
					return false
				}
			}
			return true
		},
		gen.Int64Range(-100, 100),
		gen.Int64Range(-100, 100),
	))

	properties.TestingRun(t)
}
