// Package backup locates safety copies of removed items.
//
// A backup store mirrors the layout of a managed root: models/loras/x.safetensors
// is backed up at <backup>/loras/x.safetensors. Every location it hands out is
// approved by pathguard against the backup root.
package backup

import (
	"fmt"
	"os"

	"github.com/danieljhkim/comfydepot/internal/pathguard"
)

// Store maps an item slot to its backup location. ok is false when no safe
// location exists.
type Store interface {
	PathFor(relPath, filename string) (path string, ok bool)
}

// DirStore is a Store backed by a directory.
type DirStore struct {
	root string
}

// NewDirStore creates the backup root if needed and returns a DirStore.
func NewDirStore(root string) (*DirStore, error) {
	if root == "" {
		return nil, fmt.Errorf("backup root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup root: %w", err)
	}
	return &DirStore{root: root}, nil
}

// Root returns the backup directory.
func (s *DirStore) Root() string {
	return s.root
}

// PathFor returns the guarded backup location for a slot.
func (s *DirStore) PathFor(relPath, filename string) (string, bool) {
	p, err := pathguard.Resolve(s.root, relPath, filename)
	if err != nil {
		return "", false
	}
	return p, true
}
