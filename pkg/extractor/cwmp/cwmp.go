// Package cwmp extracts TR-181 nodes from a CWMP/TR-069 source by
// recursively discovering parameter names and retrieving their
// attributes and values in bounded batches.
package cwmp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brahmanandan/tr181-comparator/pkg/degradation"
	"github.com/brahmanandan/tr181-comparator/pkg/extractor"
	"github.com/brahmanandan/tr181-comparator/pkg/model"
	"github.com/brahmanandan/tr181-comparator/pkg/observability"
	"github.com/brahmanandan/tr181-comparator/pkg/retry"
	"github.com/brahmanandan/tr181-comparator/pkg/transport"
	"github.com/brahmanandan/tr181-comparator/pkg/trerrors"
	"github.com/brahmanandan/tr181-comparator/pkg/validator"
	"go.uber.org/zap"
)

// Config tunes discovery and retrieval behavior for one Extractor.
type Config struct {
	// BatchSize bounds how many parameter paths are requested per
	// GetParameterAttributes/GetParameterValues call.
	BatchSize int
	// MaxDepth bounds how many "." segments deep discovery will
	// recurse, guarding against a device that reports a cyclic or
	// unbounded object tree.
	MaxDepth int
	// MinSuccessRate is the fraction of discovered leaf parameters that
	// must be retrieved successfully for extraction to be considered
	// usable. Extraction still returns whatever it managed to collect;
	// this only affects whether Extract returns an error alongside it.
	MinSuccessRate float64
	// MaxInFlight bounds concurrent batch requests during retrieval.
	MaxInFlight int
	RetryConfig retry.Config
}

// DefaultConfig returns conservative discovery and retrieval settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:      50,
		MaxDepth:       32,
		MinSuccessRate: 0.5,
		MaxInFlight:    4,
		RetryConfig:    retry.DefaultConfig(),
	}
}

// Extractor pulls TR-181 nodes from a CWMP-speaking transport.Hook.
type Extractor struct {
	hook   transport.Hook
	device transport.DeviceConfig
	cfg    Config

	mu         sync.Mutex
	connected  bool
	lastSource extractor.SourceInfo

	log     *observability.Logger
	metrics *observability.Registry
	sink    *observability.ErrorSink
}

// New creates a CWMP Extractor bound to hook using cfg.
func New(hook transport.Hook, device transport.DeviceConfig, cfg Config) *Extractor {
	return &Extractor{hook: hook, device: device, cfg: cfg, log: observability.NewNop()}
}

// WithObservability attaches a logger and metrics registry, enabling
// structured logs and tr181_extraction_* metrics for this Extractor. It
// also builds an ErrorSink from the same collaborators and threads it
// through to the retry and degradation packages, so per-attempt and
// per-batch failures accumulate in one place. Either argument may be
// nil.
func (e *Extractor) WithObservability(log *observability.Logger, metrics *observability.Registry) *Extractor {
	if log != nil {
		e.log = log
	}
	e.metrics = metrics
	e.sink = observability.NewErrorSink(metrics, e.log)
	e.cfg.RetryConfig.Metrics = metrics
	e.cfg.RetryConfig.Sink = e.sink
	return e
}

// Close releases the underlying connection if Extract or Validate left
// one open. Safe to call on an Extractor that never connected, and safe
// to call more than once.
func (e *Extractor) Close(ctx context.Context) error {
	return e.releaseConnection(ctx)
}

func (e *Extractor) releaseConnection(ctx context.Context) error {
	e.mu.Lock()
	connected := e.connected
	e.mu.Unlock()
	if !connected {
		return nil
	}

	err := e.hook.Disconnect(ctx)

	e.mu.Lock()
	e.connected = false
	e.mu.Unlock()

	if err != nil {
		e.log.Warn(observability.CategoryTransport, "failed to disconnect cwmp session",
			zap.String("endpoint", e.device.Endpoint), zap.Error(err))
	}
	return err
}

func (e *Extractor) releaseOnFailure(ctx context.Context) {
	if err := e.releaseConnection(ctx); err != nil {
		e.log.Warn(observability.CategoryTransport, "failed to release cwmp connection after failed extraction",
			zap.String("endpoint", e.device.Endpoint), zap.Error(err))
	}
}

// Extract discovers and retrieves the full TR-181 node set from the
// CWMP source, degrading gracefully on a per-parameter basis rather
// than aborting the whole extraction when some parameters fail. A
// successful extraction leaves the connection open for reuse by a
// subsequent call; an extraction that errors out releases it.
func (e *Extractor) Extract(ctx context.Context) ([]model.Node, error) {
	start := time.Now()
	e.log.Info(observability.CategoryExtraction, "cwmp extraction started", zap.String("endpoint", e.device.Endpoint))

	if err := e.ensureConnected(ctx); err != nil {
		e.finishExtraction(start, 0, err)
		return nil, err
	}

	paths, err := e.discoverParameters(ctx)
	if err != nil {
		e.releaseOnFailure(ctx)
		e.finishExtraction(start, 0, err)
		return nil, err
	}
	if len(paths) == 0 {
		e.recordSourceInfo(0, 0)
		e.finishExtraction(start, 0, nil)
		return nil, nil
	}

	leaves := leafPaths(paths)

	attributes := e.getAttributesBatch(ctx, leaves)
	values := e.getValuesBatch(ctx, leaves)

	retrieved := 0
	failedLeaves := make(map[string]bool)
	for _, path := range leaves {
		if v, ok := values[path]; ok && v != nil {
			retrieved++
		} else {
			failedLeaves[path] = true
		}
	}

	included := make([]string, 0, len(paths))
	for _, p := range paths {
		if !failedLeaves[p] {
			included = append(included, p)
		}
	}
	nodes := e.buildNodeStructure(included, attributes, values)

	e.recordSourceInfo(len(paths), len(nodes))

	successRate := 1.0
	if len(leaves) > 0 {
		successRate = float64(retrieved) / float64(len(leaves))
	}
	minRate := e.cfg.MinSuccessRate
	if minRate <= 0 {
		minRate = DefaultConfig().MinSuccessRate
	}
	if successRate < minRate {
		var failedList []string
		for p := range failedLeaves {
			failedList = append(failedList, p)
		}
		sort.Strings(failedList)
		extractErr := trerrors.New("extract").
			Kind(trerrors.KindConnection).
			Severity(trerrors.SeverityMedium).
			Message("only %d/%d leaf parameter values retrieved (success rate %.2f below minimum %.2f)", retrieved, len(leaves), successRate, minRate).
			Context(trerrors.Context{Operation: "extract", Metadata: map[string]any{"failed_paths": failedList}}).
			Build()
		e.releaseOnFailure(ctx)
		e.finishExtraction(start, len(nodes), extractErr)
		return nodes, extractErr
	}

	e.finishExtraction(start, len(nodes), nil)
	return nodes, nil
}

func (e *Extractor) finishExtraction(start time.Time, nodeCount int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		e.log.Warn(observability.CategoryExtraction, "cwmp extraction completed with errors", zap.String("endpoint", e.device.Endpoint), zap.Error(err))
	} else {
		e.log.Info(observability.CategoryExtraction, "cwmp extraction completed", zap.String("endpoint", e.device.Endpoint), zap.Int("nodes", nodeCount))
	}
	if e.metrics != nil {
		e.metrics.RecordExtraction("cwmp", outcome, time.Since(start).Seconds(), nodeCount)
	}
}

// Validate checks that the CWMP source is reachable and returns a
// useful parameter set, without requiring a full extraction. The
// connection it opens for the check is always released before Validate
// returns, regardless of outcome.
func (e *Extractor) Validate(ctx context.Context) (validator.Result, error) {
	var result validator.Result

	if err := e.ensureConnected(ctx); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, nil
	}
	defer e.releaseOnFailure(ctx)

	testParams, err := e.hook.GetParameterNames(ctx, "Device.DeviceInfo.", false)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("GetParameterNames test failed: %v", err))
		return result, nil
	}
	if len(testParams) == 0 {
		result.Warnings = append(result.Warnings, "no parameters found under Device.DeviceInfo.; source may be empty")
		return result, nil
	}

	if _, err := e.hook.GetParameterValues(ctx, testParams[:1]); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("GetParameterValues test failed: %v", err))
	}

	return result, nil
}

// SourceInfo reports metadata about the most recent Extract call.
func (e *Extractor) SourceInfo() extractor.SourceInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSource
}

func (e *Extractor) recordSourceInfo(discovered, built int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSource = extractor.SourceInfo{
		Type:       "cwmp",
		Identifier: e.device.Endpoint,
		Timestamp:  time.Now(),
		Metadata: map[string]any{
			"device_type":           e.device.Type,
			"parameters_discovered": discovered,
			"nodes_built":           built,
		},
	}
}

func (e *Extractor) ensureConnected(ctx context.Context) error {
	e.mu.Lock()
	connected := e.connected
	e.mu.Unlock()
	if connected {
		return nil
	}

	if err := e.device.Validate(); err != nil {
		return trerrors.New("cwmp_connect").
			Kind(trerrors.KindConfiguration).
			Message("invalid device configuration for %s: %v", e.device.Endpoint, err).
			Build()
	}

	err := retry.Do(ctx, e.cfg.RetryConfig, "cwmp_connect", func(ctx context.Context) error {
		return e.hook.Connect(ctx)
	})
	if err != nil {
		return trerrors.Connection(e.device.Endpoint, err)
	}

	e.mu.Lock()
	e.connected = true
	e.mu.Unlock()
	return nil
}

// discoverParameters performs a breadth-first walk of the device's
// parameter tree. Every returned leaf path is also speculatively
// probed with a trailing "." to pick up numbered instances the device
// did not list directly under its parent object (e.g.
// Device.WiFi.Radio. discovering Device.WiFi.Radio.1.).
func (e *Extractor) discoverParameters(ctx context.Context) ([]string, error) {
	var allParameters []string
	seenParameter := make(map[string]bool)
	explored := make(map[string]bool)
	queue := []string{"Device."}

	for depth := 0; len(queue) > 0 && depth < e.cfg.MaxDepth; depth++ {
		var next []string

		for _, current := range queue {
			if explored[current] {
				continue
			}
			explored[current] = true

			params, err := e.getParameterNamesRetried(ctx, current)
			if err != nil {
				if current == "Device." {
					return nil, trerrors.Connection(e.device.Endpoint, err)
				}
				continue
			}

			for _, p := range params {
				if !seenParameter[p] {
					seenParameter[p] = true
					allParameters = append(allParameters, p)
				}

				if strings.HasSuffix(p, ".") {
					if !explored[p] {
						next = append(next, p)
					}
					continue
				}

				instancePath := p + "."
				if explored[instancePath] {
					continue
				}
				if instanceParams, err := e.getParameterNamesRetried(ctx, instancePath); err == nil && len(instanceParams) > 0 {
					next = append(next, instancePath)
				}
			}
		}

		queue = next
	}

	sort.Strings(allParameters)
	return allParameters, nil
}

func (e *Extractor) getParameterNamesRetried(ctx context.Context, path string) ([]string, error) {
	var result []string
	err := retry.Do(ctx, e.cfg.RetryConfig, "get_parameter_names", func(ctx context.Context) error {
		names, err := e.hook.GetParameterNames(ctx, path, false)
		if err != nil {
			return err
		}
		result = names
		return nil
	})
	return result, err
}

// leafPaths filters out object paths (those ending in "."), which
// never carry a scalar value and so are never batched for attribute or
// value retrieval.
func leafPaths(paths []string) []string {
	leaves := make([]string, 0, len(paths))
	for _, p := range paths {
		if !strings.HasSuffix(p, ".") {
			leaves = append(leaves, p)
		}
	}
	return leaves
}

func (e *Extractor) getAttributesBatch(ctx context.Context, paths []string) map[string]transport.ParameterAttributes {
	batches := chunk(paths, e.cfg.BatchSize)
	manager := degradation.NewManager(e.cfg.MaxInFlight).WithObservability("cwmp_get_parameter_attributes", e.sink, e.metrics)

	results := degradation.Run(ctx, manager, batches, func(ctx context.Context, batch []string) (map[string]transport.ParameterAttributes, error) {
		return e.hook.GetParameterAttributes(ctx, batch)
	})

	merged := make(map[string]transport.ParameterAttributes)
	for _, m := range results.Successful {
		for k, v := range m {
			merged[k] = v
		}
	}
	// Retry the failed batches one path at a time so a single
	// misbehaving parameter doesn't discard its whole batch.
	for _, failure := range results.Failed {
		for _, path := range failure.Item {
			single, err := e.hook.GetParameterAttributes(ctx, []string{path})
			if err != nil {
				e.reportPathFailure("cwmp_get_parameter_attribute", path, err)
				continue
			}
			for k, v := range single {
				merged[k] = v
			}
		}
	}
	return merged
}

func (e *Extractor) getValuesBatch(ctx context.Context, paths []string) map[string]any {
	batches := chunk(paths, e.cfg.BatchSize)
	manager := degradation.NewManager(e.cfg.MaxInFlight).WithObservability("cwmp_get_parameter_values", e.sink, e.metrics)

	results := degradation.Run(ctx, manager, batches, func(ctx context.Context, batch []string) (map[string]any, error) {
		return e.hook.GetParameterValues(ctx, batch)
	})

	merged := make(map[string]any)
	for _, m := range results.Successful {
		for k, v := range m {
			merged[k] = v
		}
	}
	for _, failure := range results.Failed {
		for _, path := range failure.Item {
			single, err := e.hook.GetParameterValues(ctx, []string{path})
			if err != nil {
				e.reportPathFailure("cwmp_get_parameter_value", path, err)
				merged[path] = nil
				continue
			}
			for k, v := range single {
				merged[k] = v
			}
		}
	}
	return merged
}

// reportPathFailure records a permanent (batch-and-per-path) fetch
// failure for one parameter into the ErrorSink, when one is attached.
func (e *Extractor) reportPathFailure(operation, path string, cause error) {
	if e.sink == nil {
		return
	}
	trErr := trerrors.New(operation).
		Kind(trerrors.KindProtocol).
		Severity(trerrors.SeverityLow).
		Message("failed to retrieve %s for %s", operation, path).
		Cause(cause).
		Context(trerrors.Context{Operation: operation, Metadata: map[string]any{"path": path}}).
		Build()
	e.sink.Report(observability.CategoryDegradation, trErr)
}

// buildNodeStructure assembles the final Node list in two passes: first
// create every node, normalizing each raw source type/access and
// coercing its raw value, then wire parent/child links now that every
// path's Node exists to reference.
func (e *Extractor) buildNodeStructure(paths []string, attributes map[string]transport.ParameterAttributes, values map[string]any) []model.Node {
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

	nodes := make([]model.Node, 0, len(byPath))
	for _, path := range paths {
		if node, ok := byPath[path]; ok {
			nodes = append(nodes, *node)
		}
	}
	return nodes
}

func chunk(paths []string, size int) [][]string {
	if size <= 0 {
		size = len(paths)
		if size == 0 {
			return nil
		}
	}
	var batches [][]string
	for i := 0; i < len(paths); i += size {
		end := i + size
		if end > len(paths) {
			end = len(paths)
		}
		batches = append(batches, paths[i:end])
	}
	return batches
}
