package comparator

import (
	"context"
	"fmt"
	"time"

	"github.com/brahmanandan/tr181-comparator/pkg/model"
	"github.com/brahmanandan/tr181-comparator/pkg/transport"
	"github.com/brahmanandan/tr181-comparator/pkg/validator"
)

// NodeValidation pairs a path with the validation outcome of comparing
// its requirement node against its device implementation.
type NodeValidation struct {
	Path   string
	Result validator.Result
}

// EventTestOutcome records the result of probing one device event.
type EventTestOutcome struct {
	EventName  string
	EventPath  string
	Subscribed bool
	Error      string
}

// FunctionTestOutcome records the result of probing one device function.
type FunctionTestOutcome struct {
	FunctionName string
	FunctionPath string
	Called       bool
	Error        string
	Outputs      map[string]any
}

// EnhancedResult layers validation and optional event/function test
// results on top of a basic Result.
type EnhancedResult struct {
	Basic           Result
	NodeValidations []NodeValidation
	EventTests      []EventTestOutcome
	FunctionTests   []FunctionTestOutcome
}

// EnhancedEngine composes an Engine with a Validator and, when a Hook is
// supplied, live event/function probing.
type EnhancedEngine struct {
	engine *Engine
	v      *validator.Validator
}

// NewEnhanced creates an EnhancedEngine.
func NewEnhanced(opts Options, validatorOpts validator.Options) *EnhancedEngine {
	return &EnhancedEngine{engine: New(opts), v: validator.New(validatorOpts)}
}

// CompareWithValidation runs the basic comparison, then validates every
// node common to both sources, and — when hook is non-nil — probes each
// requirement node's declared events and functions against the live
// device. An event or function test failure never aborts the overall
// comparison; it is recorded as an outcome like any other finding.
func (e *EnhancedEngine) CompareWithValidation(ctx context.Context, requirementNodes, deviceNodes []model.Node, hook transport.Hook) EnhancedResult {
	basic := e.engine.Compare(requirementNodes, deviceNodes)

	deviceByPath := make(map[string]model.Node, len(deviceNodes))
	for _, n := range deviceNodes {
		deviceByPath[n.Path] = n
	}

	result := EnhancedResult{Basic: basic}
	for _, reqNode := range requirementNodes {
		deviceNode, ok := deviceByPath[reqNode.Path]
		if !ok {
			continue
		}
		result.NodeValidations = append(result.NodeValidations, NodeValidation{
			Path:   reqNode.Path,
			Result: e.validateImplementation(reqNode, deviceNode),
		})
	}

	if hook != nil {
		for _, reqNode := range requirementNodes {
			for _, event := range reqNode.Events {
				result.EventTests = append(result.EventTests, testEvent(ctx, hook, event))
			}
			for _, fn := range reqNode.Functions {
				result.FunctionTests = append(result.FunctionTests, testFunction(ctx, hook, fn, deviceByPath))
			}
		}
	}

	return result
}

// validateImplementation checks a device node's implementation against
// the requirement node that specified it: data type, access level,
// range compliance, and object/children consistency.
func (e *EnhancedEngine) validateImplementation(req, dev model.Node) validator.Result {
	var result validator.Result

	if req.DataType != dev.DataType {
		result.Errors = append(result.Errors, fmt.Sprintf("data type mismatch for %s: expected %s, got %s", req.Path, req.DataType, dev.DataType))
	}
	if req.Access != dev.Access {
		result.Warnings = append(result.Warnings, fmt.Sprintf("access level mismatch for %s: expected %s, got %s", req.Path, req.Access, dev.Access))
	}

	if req.ValueRange != nil && dev.Value != nil {
		rangeCheckNode := req
		rangeCheckNode.DataType = dev.DataType
		result.Merge(e.v.ValidateNode(rangeCheckNode, dev.Value))
	}
	if dev.Value != nil {
		result.Merge(e.v.ValidateNode(dev, nil))
	}

	if req.IsObject != dev.IsObject {
		result.Warnings = append(result.Warnings, fmt.Sprintf("object type mismatch for %s: expected is_object=%v, got is_object=%v", req.Path, req.IsObject, dev.IsObject))
	}

	if req.IsObject && len(req.Children) > 0 && len(dev.Children) > 0 {
		deviceChildren := make(map[string]bool, len(dev.Children))
		for _, c := range dev.Children {
			deviceChildren[c] = true
		}
		var missing []string
		for _, c := range req.Children {
			if !deviceChildren[c] {
				missing = append(missing, c)
			}
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("missing child nodes for %s: %v", req.Path, missing))
		}
	}

	return result
}

// testEvent subscribes to a requirement-declared event on the live
// device, recording success or the specific failure without returning
// an error the caller must handle.
func testEvent(ctx context.Context, hook transport.Hook, event model.Event) EventTestOutcome {
	outcome := EventTestOutcome{EventName: event.Name, EventPath: event.Path}
	if err := hook.SubscribeToEvent(ctx, event.Path); err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Subscribed = true
	return outcome
}

// testFunction calls a requirement-declared function on the live
// device, synthesizing a value for every declared input parameter from
// the type defaults of the matching device node's data type (zero-value
// numerics, false booleans, empty strings, current time for dateTime).
// An input parameter with no matching device node gets an empty string.
func testFunction(ctx context.Context, hook transport.Hook, fn model.Function, deviceByPath map[string]model.Node) FunctionTestOutcome {
	outcome := FunctionTestOutcome{FunctionName: fn.Name, FunctionPath: fn.Path}

	inputs := make(map[string]any, len(fn.InputParameters))
	for _, paramPath := range fn.InputParameters {
		inputs[paramPath] = synthesizeInput(deviceByPath[paramPath])
	}

	outputs, err := hook.CallFunction(ctx, fn.Path, inputs)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Called = true
	outcome.Outputs = outputs
	return outcome
}

func synthesizeInput(param model.Node) any {
	switch param.DataType {
	case model.DataTypeInt, model.DataTypeLong, model.DataTypeUnsignedInt, model.DataTypeUnsignedLong:
		return int64(0)
	case model.DataTypeBoolean:
		return false
	case model.DataTypeDateTime:
		return time.Now().UTC().Format(time.RFC3339)
	case model.DataTypeBase64, model.DataTypeHexBinary:
		return ""
	default:
		return ""
	}
}
