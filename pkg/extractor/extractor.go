// Package extractor defines the uniform interface every TR-181 node
// source implements, whether it is a live CWMP device, a generic
// hook-based device, or an operator requirement document.
package extractor

import (
	"context"
	"time"

	"github.com/brahmanandan/tr181-comparator/pkg/model"
	"github.com/brahmanandan/tr181-comparator/pkg/validator"
)

// SourceInfo describes where a set of nodes came from, for reporting and
// audit purposes.
type SourceInfo struct {
	Type       string
	Identifier string
	Timestamp  time.Time
	Metadata   map[string]any
}

// Extractor produces TR-181 nodes from one source and can self-validate
// that the source is reachable and well-formed.
type Extractor interface {
	// Extract returns the nodes currently available from this source.
	Extract(ctx context.Context) ([]model.Node, error)
	// Validate checks that the source is reachable and its data usable,
	// without necessarily returning the full node set.
	Validate(ctx context.Context) (validator.Result, error)
	// SourceInfo reports metadata about the most recent extraction.
	SourceInfo() SourceInfo
}
