package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brahmanandan/tr181-comparator/pkg/model"
	"github.com/brahmanandan/tr181-comparator/pkg/retry"
	"github.com/brahmanandan/tr181-comparator/pkg/transport"
	"github.com/brahmanandan/tr181-comparator/pkg/trerrors"
)

type fakeHook struct {
	names      []string
	values     map[string]any
	attrs      map[string]transport.ParameterAttributes
	setErr     map[string]error
	subErr     map[string]error
	connectErr error
}

func (f *fakeHook) Connect(ctx context.Context) error    { return f.connectErr }
func (f *fakeHook) Disconnect(ctx context.Context) error { return nil }
func (f *fakeHook) GetParameterNames(ctx context.Context, path string, nextLevel bool) ([]string, error) {
	return f.names, nil
}
func (f *fakeHook) GetParameterValues(ctx context.Context, paths []string) (map[string]any, error) {
	out := make(map[string]any)
	for _, p := range paths {
		out[p] = f.values[p]
	}
	return out, nil
}
func (f *fakeHook) GetParameterAttributes(ctx context.Context, paths []string) (map[string]transport.ParameterAttributes, error) {
	out := make(map[string]transport.ParameterAttributes)
	for _, p := range paths {
		out[p] = f.attrs[p]
	}
	return out, nil
}
func (f *fakeHook) SetParameterValues(ctx context.Context, values map[string]any) error {
	for path := range values {
		if err, ok := f.setErr[path]; ok {
			return err
		}
	}
	return nil
}
func (f *fakeHook) SubscribeToEvent(ctx context.Context, eventPath string) error {
	return f.subErr[eventPath]
}
func (f *fakeHook) CallFunction(ctx context.Context, functionPath string, inputs map[string]any) (map[string]any, error) {
	return nil, nil
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}
}

func TestExtractBuildsNodesWithParentLinks(t *testing.T) {
	hook := &fakeHook{
		names: []string{"Device.WiFi.", "Device.WiFi.SSID"},
		values: map[string]any{
			"Device.WiFi.SSID": "home-network",
		},
		attrs: map[string]transport.ParameterAttributes{
			"Device.WiFi.SSID": {Type: "string", Access: "read-write"},
		},
	}
	e := New(hook, transport.DeviceConfig{Endpoint: "192.0.2.1", Type: "rest"}, fastRetry())

	nodes, err := e.Extract(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}

	var ssid model.Node
	for _, n := range nodes {
		if n.Path == "Device.WiFi.SSID" {
			ssid = n
		}
	}
	if ssid.Parent != "Device.WiFi." {
		t.Fatalf("expected parent Device.WiFi., got %q", ssid.Parent)
	}
	if ssid.Value != "home-network" {
		t.Fatalf("expected value home-network, got %v", ssid.Value)
	}
}

func TestExtractPropagatesConnectError(t *testing.T) {
	hook := &fakeHook{connectErr: errors.New("refused")}
	e := New(hook, transport.DeviceConfig{Endpoint: "192.0.2.1"}, fastRetry())

	if _, err := e.Extract(context.Background()); err == nil {
		t.Fatal("expected connect error to propagate")
	}
}

func TestExtractEmptyDeviceReturnsNoNodes(t *testing.T) {
	hook := &fakeHook{}
	e := New(hook, transport.DeviceConfig{Endpoint: "192.0.2.1"}, fastRetry())

	nodes, err := e.Extract(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 0 {
		t.Fatalf("expected no nodes, got %d", len(nodes))
	}
}

func TestExtractRejectsInvalidDeviceConfig(t *testing.T) {
	hook := &fakeHook{}
	e := New(hook, transport.DeviceConfig{}, fastRetry())

	_, err := e.Extract(context.Background())
	if err == nil {
		t.Fatal("expected an error for a device config missing an endpoint")
	}
	var trErr *trerrors.TR181Error
	if !errors.As(err, &trErr) || trErr.Kind != trerrors.KindConfiguration {
		t.Fatalf("expected a configuration-kind error, got %v", err)
	}
}

func TestValidateWarnsOnEmptyDevice(t *testing.T) {
	hook := &fakeHook{}
	e := New(hook, transport.DeviceConfig{Endpoint: "192.0.2.1"}, fastRetry())

	result, err := e.Validate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected a warning for an empty device")
	}
}

func TestTestWriteAccessReportsPerPathResult(t *testing.T) {
	hook := &fakeHook{setErr: map[string]error{"Device.WiFi.SSID": errors.New("read-only")}}
	e := New(hook, transport.DeviceConfig{Endpoint: "192.0.2.1"}, fastRetry())

	results := e.TestWriteAccess(context.Background(), map[string]any{
		"Device.WiFi.SSID":    "new-name",
		"Device.WiFi.Channel": 6,
	})

	if results["Device.WiFi.SSID"] {
		t.Fatal("expected SSID write to fail")
	}
	if !results["Device.WiFi.Channel"] {
		t.Fatal("expected Channel write to succeed")
	}
}

func TestTestEventSubscriptionReportsPerPathResult(t *testing.T) {
	hook := &fakeHook{subErr: map[string]error{"Device.WiFi.RadioFault": errors.New("unsupported")}}
	e := New(hook, transport.DeviceConfig{Endpoint: "192.0.2.1"}, fastRetry())

	results := e.TestEventSubscription(context.Background(), []string{"Device.WiFi.RadioFault", "Device.Boot"})

	if results["Device.WiFi.RadioFault"] {
		t.Fatal("expected RadioFault subscription to fail")
	}
	if !results["Device.Boot"] {
		t.Fatal("expected Boot subscription to succeed")
	}
}
