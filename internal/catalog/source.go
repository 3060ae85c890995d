package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/danieljhkim/comfydepot/internal/fsops"
)

// ErrCatalogMissing indicates the catalog file does not exist.
var ErrCatalogMissing = errors.New("catalog file not found")

// Source loads and persists one catalog document.
type Source[D any] interface {
	Load(ctx context.Context) (D, error)
	Save(ctx context.Context, doc D) error
}

// NodeFile is the custom node list stored as JSON.
type NodeFile struct {
	fs   fsops.FS
	path string
}

// NewNodeFile creates a NodeFile for path.
func NewNodeFile(fs fsops.FS, path string) *NodeFile {
	return &NodeFile{fs: fs, path: path}
}

// Path returns the file location.
func (f *NodeFile) Path() string { return f.path }

// Load reads the node list.
func (f *NodeFile) Load(ctx context.Context) (*NodeDocument, error) {
	doc := NewNodeDocument()
	if err := readJSON(ctx, f.fs, f.path, doc); err != nil {
		return nil, err
	}
	if doc.Nodes == nil {
		doc.Nodes = []NodeEntry{}
	}
	return doc, nil
}

// Save writes the node list atomically.
func (f *NodeFile) Save(ctx context.Context, doc *NodeDocument) error {
	return writeJSON(ctx, f.fs, f.path, doc)
}

// ModelFile is the workflow model manifest stored as JSON.
type ModelFile struct {
	fs   fsops.FS
	path string
}

// NewModelFile creates a ModelFile for path.
func NewModelFile(fs fsops.FS, path string) *ModelFile {
	return &ModelFile{fs: fs, path: path}
}

// Path returns the file location.
func (f *ModelFile) Path() string { return f.path }

// Load reads the manifest.
func (f *ModelFile) Load(ctx context.Context) (*ModelDocument, error) {
	doc := NewModelDocument()
	if err := readJSON(ctx, f.fs, f.path, doc); err != nil {
		return nil, err
	}
	if doc.Workflows == nil {
		doc.Workflows = map[string]Workflow{}
	}
	if doc.Models == nil {
		doc.Models = map[string]ModelEntry{}
	}
	return doc, nil
}

// Save writes the manifest atomically.
func (f *ModelFile) Save(ctx context.Context, doc *ModelDocument) error {
	return writeJSON(ctx, f.fs, f.path, doc)
}

func readJSON(ctx context.Context, fs fsops.FS, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", path, ErrCatalogMissing)
		}
		return fmt.Errorf("failed to read catalog: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return nil
}

func writeJSON(ctx context.Context, fs fsops.FS, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	data = append(data, '\n')
	if err := fs.AtomicWrite(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	return nil
}
