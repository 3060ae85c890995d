package catalog

import (
	"fmt"
	"strings"
)

// NodeDocument is the on-disk custom node list (custom_nodes.json).
type NodeDocument struct {
	Version string      `json:"version"`
	Nodes   []NodeEntry `json:"nodes"`
}

// NodeEntry is one plugin declaration.
type NodeEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
	Required    bool   `json:"required,omitempty"`
	Folder      string `json:"folder,omitempty"`
}

// NewNodeDocument returns an empty node list.
func NewNodeDocument() *NodeDocument {
	return &NodeDocument{Version: "1.0.0", Nodes: []NodeEntry{}}
}

// Items returns a snapshot of the nodes as managed items. Entries whose
// local name cannot be derived keep an empty LocalName.
func (d *NodeDocument) Items() []ManagedItem {
	items := make([]ManagedItem, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		items = append(items, n.item())
	}
	return items
}

func (n NodeEntry) item() ManagedItem {
	name, _ := DeriveLocalName(n.URL, n.Folder)
	display := n.Name
	if display == "" {
		display = n.ID
	}
	return ManagedItem{
		ID:            n.ID,
		Kind:          KindNode,
		DisplayName:   display,
		Description:   n.Description,
		SourceLocator: n.URL,
		Enabled:       n.Enabled,
		Required:      n.Required,
		LocalName:     name,
	}
}

// Find returns the node with the given id.
func (d *NodeDocument) Find(id string) (ManagedItem, error) {
	i := d.index(id)
	if i < 0 {
		return ManagedItem{}, fmt.Errorf("node %q: %w", id, ErrItemNotFound)
	}
	return d.Nodes[i].item(), nil
}

// SetEnabled toggles a node. Disabling a required node is refused.
func (d *NodeDocument) SetEnabled(id string, enabled bool) (ManagedItem, error) {
	i := d.index(id)
	if i < 0 {
		return ManagedItem{}, fmt.Errorf("node %q: %w", id, ErrItemNotFound)
	}
	if d.Nodes[i].Required && !enabled {
		return ManagedItem{}, requiredError(d.Nodes[i].item(), "disable")
	}
	d.Nodes[i].Enabled = enabled
	return d.Nodes[i].item(), nil
}

// Add appends a new enabled node. The id is derived from name. A node whose
// id, url or checkout folder matches an existing entry is refused.
func (d *NodeDocument) Add(name, url, description, folder string) (ManagedItem, error) {
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	if name == "" || url == "" {
		return ManagedItem{}, fmt.Errorf("name and url are required")
	}
	local, err := DeriveLocalName(url, folder)
	if err != nil {
		return ManagedItem{}, err
	}

	id := NodeIDFromName(name)
	for _, n := range d.Nodes {
		if n.ID == id || n.URL == url {
			return ManagedItem{}, fmt.Errorf("node %q: %w", n.Name, ErrDuplicateItem)
		}
		// case-insensitive filesystems put both in one folder
		if existing := n.item().LocalName; strings.EqualFold(existing, local) {
			return ManagedItem{}, fmt.Errorf("node %q already uses folder %q: %w", n.Name, existing, ErrDuplicateItem)
		}
	}

	entry := NodeEntry{
		ID:          id,
		Name:        name,
		URL:         url,
		Description: strings.TrimSpace(description),
		Enabled:     true,
		Folder:      strings.TrimSpace(folder),
	}
	d.Nodes = append(d.Nodes, entry)
	return entry.item(), nil
}

// Remove deletes a node declaration. Required nodes are refused.
func (d *NodeDocument) Remove(id string) (ManagedItem, error) {
	i := d.index(id)
	if i < 0 {
		return ManagedItem{}, fmt.Errorf("node %q: %w", id, ErrItemNotFound)
	}
	removed := d.Nodes[i].item()
	if removed.Required {
		return ManagedItem{}, requiredError(removed, "remove")
	}
	d.Nodes = append(d.Nodes[:i], d.Nodes[i+1:]...)
	return removed, nil
}

func (d *NodeDocument) index(id string) int {
	for i, n := range d.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}
