// Package device extracts TR-181 nodes from any device reachable
// through a transport.Hook, independent of the underlying protocol
// (REST, CWMP, or a custom hook implementation).
package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brahmanandan/tr181-comparator/pkg/extractor"
	"github.com/brahmanandan/tr181-comparator/pkg/model"
	"github.com/brahmanandan/tr181-comparator/pkg/observability"
	"github.com/brahmanandan/tr181-comparator/pkg/retry"
	"github.com/brahmanandan/tr181-comparator/pkg/transport"
	"github.com/brahmanandan/tr181-comparator/pkg/trerrors"
	"github.com/brahmanandan/tr181-comparator/pkg/validator"
	"go.uber.org/zap"
)

// Extractor pulls TR-181 nodes from a single device through its Hook.
type Extractor struct {
	hook        transport.Hook
	device      transport.DeviceConfig
	retryConfig retry.Config

	connected  bool
	lastSource extractor.SourceInfo

	log     *observability.Logger
	metrics *observability.Registry
	sink    *observability.ErrorSink
}

// New creates a device Extractor bound to hook.
func New(hook transport.Hook, device transport.DeviceConfig, retryConfig retry.Config) *Extractor {
	return &Extractor{hook: hook, device: device, retryConfig: retryConfig, log: observability.NewNop()}
}

// WithObservability attaches a logger and metrics registry, and builds
// an ErrorSink from them that this Extractor's retry attempts report
// into. Either argument may be nil.
func (e *Extractor) WithObservability(log *observability.Logger, metrics *observability.Registry) *Extractor {
	if log != nil {
		e.log = log
	}
	e.metrics = metrics
	e.sink = observability.NewErrorSink(metrics, e.log)
	e.retryConfig.Metrics = metrics
	e.retryConfig.Sink = e.sink
	return e
}

// Close releases the underlying connection if Extract or Validate left
// one open. Safe to call on an Extractor that never connected, and safe
// to call more than once.
func (e *Extractor) Close(ctx context.Context) error {
	return e.releaseConnection(ctx)
}

func (e *Extractor) releaseConnection(ctx context.Context) error {
	if !e.connected {
		return nil
	}
	err := e.hook.Disconnect(ctx)
	e.connected = false
	if err != nil {
		e.log.Warn(observability.CategoryTransport, "failed to disconnect device session",
			zap.String("endpoint", e.device.Endpoint), zap.Error(err))
	}
	return err
}

func (e *Extractor) releaseOnFailure(ctx context.Context) {
	if err := e.releaseConnection(ctx); err != nil {
		e.log.Warn(observability.CategoryTransport, "failed to release device connection after failed extraction",
			zap.String("endpoint", e.device.Endpoint), zap.Error(err))
	}
}

// Extract discovers the device's full parameter set and builds a Node
// for every path, fetching attributes for all paths in one
// GetParameterAttributes call and values in one GetParameterValues call.
// There is no per-path fallback: if either call fails, the whole
// extraction fails. A successful extraction leaves the connection open for reuse; an
// extraction that errors out releases it.
func (e *Extractor) Extract(ctx context.Context) ([]model.Node, error) {
	start := time.Now()

	if err := e.ensureConnected(ctx); err != nil {
		e.finishExtraction(start, 0, err)
		return nil, err
	}

	var names []string
	err := retry.Do(ctx, e.retryConfig, "discover_parameters", func(ctx context.Context) error {
		n, err := e.hook.GetParameterNames(ctx, "Device.", false)
		if err != nil {
			return trerrors.Protocol(e.device.Type, err)
		}
		names = n
		return nil
	})
	if err != nil {
		e.releaseOnFailure(ctx)
		e.finishExtraction(start, 0, err)
		return nil, err
	}
	if len(names) == 0 {
		e.recordSourceInfo(0)
		e.finishExtraction(start, 0, nil)
		return nil, nil
	}

	nodes, err := e.buildNodes(ctx, names)
	if err != nil {
		e.releaseOnFailure(ctx)
		e.finishExtraction(start, 0, err)
		return nil, err
	}

	e.recordSourceInfo(len(nodes))
	e.finishExtraction(start, len(nodes), nil)
	return nodes, nil
}

func (e *Extractor) finishExtraction(start time.Time, nodeCount int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		e.log.Warn(observability.CategoryExtraction, "device extraction completed with errors", zap.String("endpoint", e.device.Endpoint), zap.Error(err))
	} else {
		e.log.Info(observability.CategoryExtraction, "device extraction completed", zap.String("endpoint", e.device.Endpoint), zap.Int("nodes", nodeCount))
	}
	if e.metrics != nil {
		e.metrics.RecordExtraction(e.device.Type, outcome, time.Since(start).Seconds(), nodeCount)
	}
}

// Validate checks the device is reachable and reports at least one
// parameter, without requiring a full extraction. The connection it
// opens for the check is always released before Validate returns,
// regardless of outcome.
func (e *Extractor) Validate(ctx context.Context) (validator.Result, error) {
	var result validator.Result

	if err := e.ensureConnected(ctx); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, nil
	}
	defer e.releaseOnFailure(ctx)

	names, err := e.hook.GetParameterNames(ctx, "Device.", false)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("parameter discovery failed: %v", err))
		return result, nil
	}
	if len(names) == 0 {
		result.Warnings = append(result.Warnings, "device reported no parameters under Device.")
	}
	return result, nil
}

// SourceInfo reports metadata about the most recent Extract call.
func (e *Extractor) SourceInfo() extractor.SourceInfo {
	return e.lastSource
}

func (e *Extractor) recordSourceInfo(nodeCount int) {
	e.lastSource = extractor.SourceInfo{
		Type:       e.device.Type,
		Identifier: e.device.Endpoint,
		Timestamp:  time.Now(),
		Metadata: map[string]any{
			"device_name": e.device.Name,
			"node_count":  nodeCount,
		},
	}
}

func (e *Extractor) ensureConnected(ctx context.Context) error {
	if e.connected {
		return nil
	}
	if err := e.device.Validate(); err != nil {
		return trerrors.New("device_connect").
			Kind(trerrors.KindConfiguration).
			Message("invalid device configuration for %s: %v", e.device.Endpoint, err).
			Build()
	}
	err := retry.Do(ctx, e.retryConfig, "device_connect", func(ctx context.Context) error {
		return e.hook.Connect(ctx)
	})
	if err != nil {
		return trerrors.Connection(e.device.Endpoint, err)
	}
	e.connected = true
	return nil
}

func (e *Extractor) buildNodes(ctx context.Context, paths []string) ([]model.Node, error) {
	attributes, err := e.hook.GetParameterAttributes(ctx, paths)
	if err != nil {
		return nil, trerrors.Protocol(e.device.Type, err)
	}
	values, err := e.hook.GetParameterValues(ctx, paths)
	if err != nil {
		return nil, trerrors.Protocol(e.device.Type, err)
	}

	byPath := make(map[string]*model.Node, len(paths))
	for _, path := range paths {
		raw := attributes[path]

		node := model.Node{
			Path:        path,
			Name:        model.NameFromPath(path),
			Description: raw.Description,
			IsObject:    strings.HasSuffix(path, "."),
		}

		node.DataType = model.DataTypeString
		if raw.Type != "" {
			dt, ok := validator.NormalizeSourceType(raw.Type)
			node.DataType = dt
			if !ok {
				e.log.Warn(observability.CategoryValidation, "unrecognized source data type, defaulting to string",
					zap.String("path", path), zap.String("source_type", raw.Type))
			}
		}

		node.Access = model.AccessReadOnly
		if raw.Access != "" {
			node.Access = validator.NormalizeSourceAccess(raw.Access)
		}

		if v, ok := values[path]; ok && v != nil {
			coerced, err := validator.Coerce(node.DataType, v)
			if err != nil {
				e.log.Warn(observability.CategoryValidation, "value coercion failed, keeping raw value",
					zap.String("path", path), zap.String("data_type", string(node.DataType)), zap.Error(err))
				node.Value = v
			} else {
				node.Value = coerced
			}
		}

		node.IsCustom = validator.IsCustomPath(path, nil)
		copyNode := node
		byPath[path] = &copyNode
	}

	for path, node := range byPath {
		parent := validator.ParentPath(path)
		if parent == "" || parent == path {
			continue
		}
		if parentNode, ok := byPath[parent]; ok {
			node.Parent = parent
			parentNode.Children = append(parentNode.Children, path)
		}
	}

	nodes := make([]model.Node, 0, len(paths))
	for _, path := range paths {
		if node, ok := byPath[path]; ok {
			nodes = append(nodes, *node)
		}
	}
	return nodes, nil
}

// TestWriteAccess attempts to set each path in testValues and reports
// which writes succeeded, without altering the device's other state.
// Used by operators to confirm a parameter's declared write access is
// actually honored.
func (e *Extractor) TestWriteAccess(ctx context.Context, testValues map[string]any) map[string]bool {
	results := make(map[string]bool, len(testValues))
	for path, value := range testValues {
		err := e.hook.SetParameterValues(ctx, map[string]any{path: value})
		results[path] = err == nil
	}
	return results
}

// TestEventSubscription attempts to subscribe to each event path and
// reports which subscriptions were acknowledged.
func (e *Extractor) TestEventSubscription(ctx context.Context, eventPaths []string) map[string]bool {
	results := make(map[string]bool, len(eventPaths))
	for _, path := range eventPaths {
		results[path] = e.hook.SubscribeToEvent(ctx, path) == nil
	}
	return results
}
