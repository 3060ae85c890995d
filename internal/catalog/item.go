// Package catalog holds the declared state comfydepot converges disk to.
//
// Two JSON documents back the catalog: the custom node list (plugins cloned
// with git) and the workflow model manifest (weight files downloaded over
// HTTP, grouped by workflow and VRAM tier). Both are flattened into
// ManagedItem snapshots for the planner; the planner never reads the files.
package catalog

import (
	"errors"
	"fmt"
)

// Kind distinguishes the two managed roots.
type Kind string

const (
	// KindNode is a plugin directory under custom_nodes/, installed by git clone.
	KindNode Kind = "node"

	// KindModel is a weight file under models/<folder>/, installed by download.
	KindModel Kind = "model"
)

var (
	// ErrRequiredItemProtected is returned when a required item would be
	// disabled or removed.
	ErrRequiredItemProtected = errors.New("required item is protected")

	// ErrItemNotFound indicates an unknown item id.
	ErrItemNotFound = errors.New("item not found")

	// ErrDuplicateItem indicates an add collided with an existing id or locator.
	ErrDuplicateItem = errors.New("item already exists")
)

// ManagedItem is one plugin or model file the catalog declares.
type ManagedItem struct {
	// ID is the stable identifier, unique within its catalog
	ID string `json:"id"`

	// Kind is node or model
	Kind Kind `json:"kind"`

	// DisplayName is the human-readable name
	DisplayName string `json:"displayName"`

	// Description is free text shown in listings
	Description string `json:"description,omitempty"`

	// SourceLocator is a git URL (node) or a download URL (model)
	SourceLocator string `json:"sourceLocator"`

	// Enabled reports whether the item should be present on disk
	Enabled bool `json:"enabled"`

	// Required items can never be disabled or removed
	Required bool `json:"required"`

	// RelativePath is the subdirectory under the managed root; empty means the root
	RelativePath string `json:"relativePath"`

	// LocalName is the folder or file name on disk
	LocalName string `json:"localName"`

	// SizeMB is the expected size for models (informational)
	SizeMB int64 `json:"sizeMb,omitempty"`
}

// Key identifies the on-disk slot of an item.
func (i ManagedItem) Key() string {
	return SlotKey(i.RelativePath, i.LocalName)
}

// SlotKey builds the identity used to match catalog items with disk entries.
func SlotKey(relPath, name string) string {
	if relPath == "" {
		return name
	}
	return relPath + "/" + name
}

// Label returns the display name, falling back to the id.
func (i ManagedItem) Label() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.ID
}

func requiredError(i ManagedItem, op string) error {
	return fmt.Errorf("cannot %s %q: %w", op, i.Label(), ErrRequiredItemProtected)
}
