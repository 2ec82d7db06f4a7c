package comparator

import (
	"context"
	"errors"
	"testing"

	"github.com/brahmanandan/tr181-comparator/pkg/model"
	"github.com/brahmanandan/tr181-comparator/pkg/transport"
	"github.com/brahmanandan/tr181-comparator/pkg/validator"
)

type fakeHook struct {
	subscribeErr map[string]error
	callErr      map[string]error
	callOutputs  map[string]map[string]any
}

func (f *fakeHook) Connect(ctx context.Context) error    { return nil }
func (f *fakeHook) Disconnect(ctx context.Context) error { return nil }
func (f *fakeHook) GetParameterNames(ctx context.Context, path string, nextLevel bool) ([]string, error) {
	return nil, nil
}
func (f *fakeHook) GetParameterValues(ctx context.Context, paths []string) (map[string]any, error) {
	return nil, nil
}
func (f *fakeHook) GetParameterAttributes(ctx context.Context, paths []string) (map[string]transport.ParameterAttributes, error) {
	return nil, nil
}
func (f *fakeHook) SetParameterValues(ctx context.Context, values map[string]any) error { return nil }
func (f *fakeHook) SubscribeToEvent(ctx context.Context, eventPath string) error {
	return f.subscribeErr[eventPath]
}
func (f *fakeHook) CallFunction(ctx context.Context, functionPath string, inputs map[string]any) (map[string]any, error) {
	if err, ok := f.callErr[functionPath]; ok {
		return nil, err
	}
	return f.callOutputs[functionPath], nil
}

func TestCompareWithValidationDetectsTypeMismatch(t *testing.T) {
	req := []model.Node{node("Device.A", model.DataTypeInt, nil)}
	dev := []model.Node{node("Device.A", model.DataTypeString, nil)}

	e := NewEnhanced(Options{}, validator.Options{})
	result := e.CompareWithValidation(context.Background(), req, dev, nil)

	if len(result.NodeValidations) != 1 {
		t.Fatalf("expected 1 node validation, got %d", len(result.NodeValidations))
	}
	if result.NodeValidations[0].Result.IsValid() {
		t.Fatal("expected data type mismatch to be reported as an error")
	}
}

func TestCompareWithValidationMissingChildren(t *testing.T) {
	req := model.Node{Path: "Device.WiFi.", IsObject: true, Children: []string{"Device.WiFi.SSID", "Device.WiFi.Channel"}, DataType: model.DataTypeString, Access: model.AccessReadOnly}
	dev := model.Node{Path: "Device.WiFi.", IsObject: true, Children: []string{"Device.WiFi.SSID"}, DataType: model.DataTypeString, Access: model.AccessReadOnly}

	e := NewEnhanced(Options{}, validator.Options{})
	result := e.CompareWithValidation(context.Background(), []model.Node{req}, []model.Node{dev}, nil)

	if len(result.NodeValidations) != 1 || result.NodeValidations[0].Result.IsValid() {
		t.Fatalf("expected missing child to be flagged, got %+v", result.NodeValidations)
	}
}

func TestCompareWithValidationTestsEventsAndFunctions(t *testing.T) {
	req := model.Node{
		Path:     "Device.WiFi.Radio.1.",
		DataType: model.DataTypeString,
		Access:   model.AccessReadOnly,
		Events:   []model.Event{{Name: "RadioFault", Path: "Device.WiFi.Radio.1.RadioFault!"}},
		Functions: []model.Function{{
			Name:            "Reset",
			Path:            "Device.WiFi.Radio.1.Reset()",
			InputParameters: []string{"Device.WiFi.Radio.1.Channel"},
		}},
	}
	dev := model.Node{Path: "Device.WiFi.Radio.1.", DataType: model.DataTypeString, Access: model.AccessReadOnly}
	hook := &fakeHook{
		subscribeErr: map[string]error{"Device.WiFi.Radio.1.RadioFault!": errors.New("unsupported")},
		callOutputs:  map[string]map[string]any{"Device.WiFi.Radio.1.Reset()": {"Status": "OK"}},
	}

	e := NewEnhanced(Options{}, validator.Options{})
	result := e.CompareWithValidation(context.Background(), []model.Node{req}, []model.Node{dev}, hook)

	if len(result.EventTests) != 1 || result.EventTests[0].Subscribed {
		t.Fatalf("expected failed event subscription, got %+v", result.EventTests)
	}
	if len(result.FunctionTests) != 1 || !result.FunctionTests[0].Called {
		t.Fatalf("expected successful function call, got %+v", result.FunctionTests)
	}
	if result.FunctionTests[0].Outputs["Status"] != "OK" {
		t.Fatalf("expected function output Status=OK, got %+v", result.FunctionTests[0].Outputs)
	}
}

func TestSynthesizeInputDefaultsByType(t *testing.T) {
	cases := []struct {
		dataType model.DataType
		check    func(v any) bool
	}{
		{model.DataTypeInt, func(v any) bool { return v == int64(0) }},
		{model.DataTypeBoolean, func(v any) bool { return v == false }},
		{model.DataTypeString, func(v any) bool { return v == "" }},
	}
	for _, tc := range cases {
		got := synthesizeInput(model.Node{DataType: tc.dataType})
		if !tc.check(got) {
			t.Fatalf("unexpected synthesized input for %s: %v", tc.dataType, got)
		}
	}
}
