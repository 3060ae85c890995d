package catalog

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrWorkflowNotFound indicates an unknown workflow id.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrUnknownTier indicates a tier name outside VRAMTiers.
	ErrUnknownTier = errors.New("unknown VRAM tier")
)

// ModelDocument is the workflow model manifest (workflow_models.json).
type ModelDocument struct {
	Version   string                `json:"version"`
	Folders   []string              `json:"target_folders"`
	Workflows map[string]Workflow   `json:"workflows"`
	Models    map[string]ModelEntry `json:"models"`
}

// Workflow groups model sets by VRAM size.
type Workflow struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Category    string              `json:"category,omitempty"`
	ModelSets   map[string]ModelSet `json:"model_sets"`
}

// ModelSet is the list of models a workflow needs at one VRAM size.
type ModelSet struct {
	Name   string   `json:"name"`
	VRAMGB int      `json:"vram_gb"`
	Models []string `json:"models"`
}

// ModelEntry describes one weight file.
type ModelEntry struct {
	Name       string `json:"name"`
	Filename   string `json:"filename"`
	URL        string `json:"url"`
	TargetPath string `json:"target_path"`
	SizeMB     int64  `json:"size_mb"`
	Required   bool   `json:"required,omitempty"`
}

// WorkflowSummary is a listing row for a workflow.
type WorkflowSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Tiers    []string `json:"tiers"`
}

// Label is "Name (category)", as shown in pickers.
func (w WorkflowSummary) Label() string {
	if w.Category == "" {
		return w.Name
	}
	return fmt.Sprintf("%s (%s)", w.Name, w.Category)
}

// NewModelDocument returns an empty manifest.
func NewModelDocument() *ModelDocument {
	return &ModelDocument{
		Version:   "1.1.0",
		Workflows: map[string]Workflow{},
		Models:    map[string]ModelEntry{},
	}
}

// Summaries lists workflows sorted by label.
func (d *ModelDocument) Summaries() []WorkflowSummary {
	out := make([]WorkflowSummary, 0, len(d.Workflows))
	for id, wf := range d.Workflows {
		name := wf.Name
		if name == "" {
			name = id
		}
		tiers, _ := d.Tiers(id)
		out = append(out, WorkflowSummary{ID: id, Name: name, Category: wf.Category, Tiers: tiers})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label() < out[j].Label() })
	return out
}

// Tiers returns the VRAM tiers a workflow defines model sets for.
func (d *ModelDocument) Tiers(workflowID string) ([]string, error) {
	wf, ok := d.Workflows[workflowID]
	if !ok {
		return nil, fmt.Errorf("%q: %w", workflowID, ErrWorkflowNotFound)
	}
	seen := map[string]bool{}
	for _, set := range wf.ModelSets {
		if t := TierFor(set.VRAMGB); t != "" {
			seen[t] = true
		}
	}
	tiers := make([]string, 0, len(seen))
	for t := range seen {
		tiers = append(tiers, t)
	}
	sort.Strings(tiers)
	return tiers, nil
}

// Items returns the desired model set for a workflow and tier, plus every
// required model, sorted by id. All returned items are enabled.
func (d *ModelDocument) Items(workflowID, tier string) ([]ManagedItem, error) {
	wf, ok := d.Workflows[workflowID]
	if !ok {
		return nil, fmt.Errorf("%q: %w", workflowID, ErrWorkflowNotFound)
	}
	sizes, ok := VRAMTiers[tier]
	if !ok {
		return nil, fmt.Errorf("%q: %w", tier, ErrUnknownTier)
	}

	ids := map[string]bool{}
	for _, set := range wf.ModelSets {
		for _, s := range sizes {
			if set.VRAMGB == s {
				for _, id := range set.Models {
					ids[id] = true
				}
			}
		}
	}
	for id, m := range d.Models {
		if m.Required {
			ids[id] = true
		}
	}

	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	items := make([]ManagedItem, 0, len(sorted))
	for _, id := range sorted {
		items = append(items, d.item(id))
	}
	return items, nil
}

// AllItems returns every declared model, sorted by id.
func (d *ModelDocument) AllItems() []ManagedItem {
	ids := make([]string, 0, len(d.Models))
	for id := range d.Models {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]ManagedItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, d.item(id))
	}
	return items
}

// Model returns the model with the given id.
func (d *ModelDocument) Model(id string) (ManagedItem, error) {
	if _, ok := d.Models[id]; !ok {
		return ManagedItem{}, fmt.Errorf("model %q: %w", id, ErrItemNotFound)
	}
	return d.item(id), nil
}

func (d *ModelDocument) item(id string) ManagedItem {
	m, ok := d.Models[id]
	if !ok {
		// Referenced by a set but never declared: filename falls back to the id
		// and the missing URL makes the planner skip it.
		m = ModelEntry{Filename: id}
	}
	name, _ := DeriveLocalName(m.URL, m.Filename)
	display := m.Name
	if display == "" {
		display = m.Filename
	}
	return ManagedItem{
		ID:            id,
		Kind:          KindModel,
		DisplayName:   display,
		SourceLocator: m.URL,
		Enabled:       true,
		Required:      m.Required,
		RelativePath:  m.TargetPath,
		LocalName:     name,
		SizeMB:        m.SizeMB,
	}
}

// TargetFolders returns the declared target folders, falling back to the
// distinct target paths of the models.
func (d *ModelDocument) TargetFolders() []string {
	if len(d.Folders) > 0 {
		out := append([]string(nil), d.Folders...)
		sort.Strings(out)
		return out
	}
	seen := map[string]bool{}
	for _, m := range d.Models {
		if m.TargetPath != "" {
			seen[m.TargetPath] = true
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
