// Package comparator compares TR-181 node sets from two sources and
// reports the set of paths unique to each side plus per-attribute
// differences for paths present in both.
package comparator

import (
	"reflect"
	"sort"
	"time"

	"github.com/brahmanandan/tr181-comparator/pkg/model"
	"github.com/brahmanandan/tr181-comparator/pkg/observability"
	"github.com/brahmanandan/tr181-comparator/pkg/validator"
)

// Options tunes comparison semantics.
type Options struct {
	// CollapseObjectLeaf treats "Device.Foo." and "Device.Foo" as the
	// same path when matching nodes across sources. Off by default: the
	// trailing dot is significant, since it is how TR-181 distinguishes
	// an object container from a leaf parameter of the same name.
	CollapseObjectLeaf bool
}

// Summary aggregates counts from a Result.
type Summary struct {
	TotalNodesSource1 int
	TotalNodesSource2 int
	CommonNodes       int
	DifferencesCount  int
}

// Result is the outcome of comparing two node sets.
type Result struct {
	OnlyInSource1 []model.Node
	OnlyInSource2 []model.Node
	Differences   []model.Difference
	Summary       Summary
}

// Engine compares two TR-181 node sets path by path.
type Engine struct {
	opts    Options
	metrics *observability.Registry
}

// New creates an Engine with the given Options.
func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

// WithObservability attaches a metrics registry, enabling
// tr181_comparisons_total/tr181_differences_found_total. metrics may be
// nil.
func (e *Engine) WithObservability(metrics *observability.Registry) *Engine {
	e.metrics = metrics
	return e
}

// Compare builds a deterministic Result: output ordering is always by
// sorted path (and, within a path, by a fixed attribute order), so two
// runs over the same inputs produce byte-identical output.
func (e *Engine) Compare(source1, source2 []model.Node) Result {
	start := time.Now()
	map1 := e.buildNodeMap(source1)
	map2 := e.buildNodeMap(source2)

	result := Result{
		OnlyInSource1: e.findUnique(map1, map2),
		OnlyInSource2: e.findUnique(map2, map1),
		Differences:   e.findDifferences(map1, map2),
		Summary: Summary{
			TotalNodesSource1: len(source1),
			TotalNodesSource2: len(source2),
			CommonNodes:       commonCount(map1, map2),
		},
	}
	result.Summary.DifferencesCount = len(result.Differences)
	if e.metrics != nil {
		e.metrics.RecordComparison(time.Since(start).Seconds(), result.Summary.DifferencesCount)
	}
	return result
}

func (e *Engine) buildNodeMap(nodes []model.Node) map[string]model.Node {
	m := make(map[string]model.Node, len(nodes))
	for _, n := range nodes {
		m[e.key(n.Path)] = n
	}
	return m
}

func (e *Engine) key(path string) string {
	if e.opts.CollapseObjectLeaf && len(path) > 0 && path[len(path)-1] == '.' {
		return path[:len(path)-1]
	}
	return path
}

func (e *Engine) findUnique(from, against map[string]model.Node) []model.Node {
	var unique []model.Node
	for key, node := range from {
		if _, ok := against[key]; !ok {
			unique = append(unique, node)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Path < unique[j].Path })
	return unique
}

func commonCount(map1, map2 map[string]model.Node) int {
	count := 0
	for key := range map1 {
		if _, ok := map2[key]; ok {
			count++
		}
	}
	return count
}

func (e *Engine) findDifferences(map1, map2 map[string]model.Node) []model.Difference {
	var keys []string
	for key := range map1 {
		if _, ok := map2[key]; ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var diffs []model.Difference
	for _, key := range keys {
		diffs = append(diffs, compareNodes(map1[key], map2[key])...)
	}
	return diffs
}

// compareNodes returns every attribute-level difference between two
// nodes sharing a path, in a fixed attribute order so output is
// reproducible regardless of map iteration order.
func compareNodes(n1, n2 model.Node) []model.Difference {
	var diffs []model.Difference
	path := n1.Path

	if n1.DataType != n2.DataType {
		diffs = append(diffs, model.Difference{Path: path, Kind: model.DiffTypeMismatch, Source1Value: n1.DataType, Source2Value: n2.DataType, Severity: model.SeverityError})
	}
	if n1.Access != n2.Access {
		diffs = append(diffs, model.Difference{Path: path, Kind: model.DiffAccessMismatch, Source1Value: n1.Access, Source2Value: n2.Access, Severity: model.SeverityWarning})
	}
	if valueDiffers(n1.Value, n2.Value) {
		diffs = append(diffs, model.Difference{Path: path, Kind: model.DiffValueMismatch, Source1Value: n1.Value, Source2Value: n2.Value, Severity: model.SeverityInfo})
	}
	if n1.Description != n2.Description {
		diffs = append(diffs, model.Difference{Path: path, Kind: model.DiffDescriptionDiff, Source1Value: n1.Description, Source2Value: n2.Description, Severity: model.SeverityInfo})
	}
	if n1.IsObject != n2.IsObject {
		diffs = append(diffs, model.Difference{Path: path, Kind: model.DiffObjectMismatch, Source1Value: n1.IsObject, Source2Value: n2.IsObject, Severity: model.SeverityWarning})
	}
	if n1.IsCustom != n2.IsCustom {
		diffs = append(diffs, model.Difference{Path: path, Kind: model.DiffCustomMismatch, Source1Value: n1.IsCustom, Source2Value: n2.IsCustom, Severity: model.SeverityInfo})
	}
	rangeMismatch := rangesDiffer(n1.ValueRange, n2.ValueRange)
	if rangeMismatch && (n1.ValueRange == nil || n2.ValueRange == nil) {
		// Only one side declares a range: it is a mismatch only when the
		// other side carries a value that falls outside that range.
		constrained, value := n1, n2.Value
		if constrained.ValueRange == nil {
			constrained, value = n2, n1.Value
		}
		checker := validator.New(validator.Options{AllowTemplates: true, LenientCWMP: true})
		rangeMismatch = value != nil && !checker.ValidateNode(constrained, value).IsValid()
	}
	if rangeMismatch {
		diffs = append(diffs, model.Difference{Path: path, Kind: model.DiffRangeMismatch, Source1Value: n1.ValueRange, Source2Value: n2.ValueRange, Severity: model.SeverityWarning})
	}
	if stringSetsDiffer(n1.Children, n2.Children) {
		diffs = append(diffs, model.Difference{Path: path, Kind: model.DiffChildrenMismatch, Source1Value: n1.Children, Source2Value: n2.Children, Severity: model.SeverityInfo})
	}
	if eventsDiffer(n1.Events, n2.Events) {
		diffs = append(diffs, model.Difference{Path: path, Kind: model.DiffEventsMismatch, Source1Value: len(n1.Events), Source2Value: len(n2.Events), Severity: model.SeverityInfo})
	}
	if functionsDiffer(n1.Functions, n2.Functions) {
		diffs = append(diffs, model.Difference{Path: path, Kind: model.DiffFunctionsMismatch, Source1Value: len(n1.Functions), Source2Value: len(n2.Functions), Severity: model.SeverityInfo})
	}

	return diffs
}

// valueDiffers compares values only when both nodes carry one; a node
// without a value never produces a value mismatch.
func valueDiffers(v1, v2 any) bool {
	if v1 == nil || v2 == nil {
		return false
	}
	return !reflect.DeepEqual(v1, v2)
}

func rangesDiffer(r1, r2 *model.ValueRange) bool {
	if r1 == nil && r2 == nil {
		return false
	}
	if r1 == nil || r2 == nil {
		return true
	}
	return !reflect.DeepEqual(r1.Min, r2.Min) ||
		!reflect.DeepEqual(r1.Max, r2.Max) ||
		!reflect.DeepEqual(r1.AllowedValues, r2.AllowedValues) ||
		r1.Pattern != r2.Pattern ||
		r1.MaxLength != r2.MaxLength
}

func stringSetsDiffer(a, b []string) bool {
	if a == nil && b == nil {
		return false
	}
	if a == nil || b == nil {
		return true
	}
	return !sameSet(a, b)
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}

func eventsDiffer(a, b []model.Event) bool {
	if a == nil && b == nil {
		return false
	}
	if a == nil || b == nil {
		return true
	}
	if len(a) != len(b) {
		return true
	}
	setA := make(map[[2]string]bool, len(a))
	for _, e := range a {
		setA[[2]string{e.Name, e.Path}] = true
	}
	for _, e := range b {
		if !setA[[2]string{e.Name, e.Path}] {
			return true
		}
	}
	return false
}

func functionsDiffer(a, b []model.Function) bool {
	if a == nil && b == nil {
		return false
	}
	if a == nil || b == nil {
		return true
	}
	if len(a) != len(b) {
		return true
	}
	setA := make(map[[2]string]bool, len(a))
	for _, f := range a {
		setA[[2]string{f.Name, f.Path}] = true
	}
	for _, f := range b {
		if !setA[[2]string{f.Name, f.Path}] {
			return true
		}
	}
	return false
}
