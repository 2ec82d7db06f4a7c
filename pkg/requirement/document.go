// Package requirement loads and saves operator-requirement documents: a
// named subset of TR-181 nodes an operator expects a device to expose,
// used as one side of a comparison alongside a live extraction.
package requirement

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brahmanandan/tr181-comparator/pkg/model"
	"github.com/brahmanandan/tr181-comparator/pkg/validator"
)

// Format is the on-disk serialization of a requirement document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Document is an operator-requirement subset: a named, versioned list of
// nodes the operator expects to find on compliant devices.
type Document struct {
	Name        string      `json:"name" yaml:"name"`
	Version     string      `json:"version,omitempty" yaml:"version,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes       []model.Node `json:"nodes" yaml:"nodes"`
}

// DetectFormat infers the document format from a file extension,
// defaulting to JSON for anything else.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads a requirement document from path, returning an empty
// Document if the file does not exist or is empty so a new subset can be
// built up incrementally.
func Load(path string) (*Document, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return &Document{Name: filepath.Base(path)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("requirement: stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return &Document{Name: filepath.Base(path)}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("requirement: read %s: %w", path, err)
	}

	doc := &Document{}
	switch DetectFormat(path) {
	case FormatYAML:
		if err := yaml.Unmarshal(raw, doc); err != nil {
			return nil, fmt.Errorf("requirement: parse yaml %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(raw, doc); err != nil {
			return nil, fmt.Errorf("requirement: parse json %s: %w", path, err)
		}
	}

	if doc.Name == "" {
		doc.Name = filepath.Base(path)
	}
	return doc, nil
}

// Save writes the document to path atomically: it stages the content in
// a temporary file in the same directory and renames it into place, so
// a crash mid-write never leaves a corrupt or truncated document.
func Save(path string, doc *Document) error {
	if err := Validate(doc, true); err != nil {
		return fmt.Errorf("requirement: refusing to save invalid document: %w", err)
	}

	var raw []byte
	var err error
	switch DetectFormat(path) {
	case FormatYAML:
		raw, err = yaml.Marshal(doc)
	default:
		raw, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("requirement: encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("requirement: create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".requirement-*.tmp")
	if err != nil {
		return fmt.Errorf("requirement: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("requirement: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("requirement: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("requirement: rename into place: %w", err)
	}
	return nil
}

// Validate checks a document's structural integrity: unique node paths,
// valid path syntax (templates allowed), and, unless allowEmpty, at
// least one node.
func Validate(doc *Document, allowEmpty bool) error {
	if !allowEmpty && len(doc.Nodes) == 0 {
		return fmt.Errorf("document %q has no nodes", doc.Name)
	}

	seen := make(map[string]bool, len(doc.Nodes))
	v := validator.New(validator.Options{AllowTemplates: true})

	for _, node := range doc.Nodes {
		if seen[node.Path] {
			return fmt.Errorf("duplicate node path %q", node.Path)
		}
		seen[node.Path] = true

		result := v.ValidateNode(node, nil)
		if !result.IsValid() {
			return fmt.Errorf("node %q: %s", node.Path, strings.Join(result.Errors, "; "))
		}
	}
	return nil
}

// CustomNodes returns the subset of the document's nodes marked custom.
func (d *Document) CustomNodes() []model.Node {
	var custom []model.Node
	for _, n := range d.Nodes {
		if n.IsCustom {
			custom = append(custom, n)
		}
	}
	return custom
}

// StandardNodes returns the subset of the document's nodes not marked
// custom.
func (d *Document) StandardNodes() []model.Node {
	var standard []model.Node
	for _, n := range d.Nodes {
		if !n.IsCustom {
			standard = append(standard, n)
		}
	}
	return standard
}

// AddNode appends node to the document, rejecting a duplicate path.
func (d *Document) AddNode(node model.Node) error {
	for _, existing := range d.Nodes {
		if existing.Path == node.Path {
			return fmt.Errorf("node path already exists: %s", node.Path)
		}
	}
	d.Nodes = append(d.Nodes, node)
	return nil
}

// RemoveNode deletes the node at path, reporting whether one was found.
func (d *Document) RemoveNode(path string) bool {
	for i, n := range d.Nodes {
		if n.Path == path {
			d.Nodes = append(d.Nodes[:i], d.Nodes[i+1:]...)
			return true
		}
	}
	return false
}
