package catalog

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// FolderPolicy approves model folders; *pathguard.Allowlist satisfies it.
type FolderPolicy interface {
	Check(relPath string) error
}

// WorkflowDraft is a workflow as authored from a parsed workflow file.
type WorkflowDraft struct {
	ID          string
	Name        string
	Description string
	Category    string
	Models      []DraftModel
}

// DraftModel is one model row of a draft.
type DraftModel struct {
	Filename   string
	TargetPath string
	URL        string
	Name       string
	SizeMB     int64

	// Tiers the model belongs to; empty means every tier
	Tiers []string
}

// PutWorkflow writes a draft into the manifest, replacing the workflow's
// model sets. Each tier expands to one set per VRAM size ("12GB"). A model
// already declared for the same file and folder keeps its id; new ids derive
// from the filename, with the folder appended when the id is taken. It returns the ids of the draft's models
// in draft order. The document is left unchanged on error.
func (d *ModelDocument) PutWorkflow(draft WorkflowDraft, policy FolderPolicy) ([]string, error) {
	id := strings.TrimSpace(draft.ID)
	if id == "" {
		return nil, fmt.Errorf("workflow id is required")
	}

	type row struct {
		id    string
		entry ModelEntry
		tiers []string
	}
	rows := make([]row, 0, len(draft.Models))
	listed := map[string]bool{}
	taken := map[string]ModelEntry{}
	for mid, m := range d.Models {
		taken[mid] = m
	}

	for _, m := range draft.Models {
		file, err := validateLocalName(strings.TrimSpace(m.Filename))
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", m.Filename, err)
		}
		target := strings.Trim(path.Clean("/"+strings.TrimSpace(m.TargetPath)), "/")
		if err := policy.Check(target); err != nil {
			return nil, fmt.Errorf("model %q: %w", file, err)
		}
		tiers, err := draftTiers(m.Tiers)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", file, err)
		}

		entry := ModelEntry{Name: m.Name, Filename: file, URL: strings.TrimSpace(m.URL), TargetPath: target, SizeMB: m.SizeMB}
		if entry.Name == "" {
			entry.Name = file
		}
		mid := modelID(taken, file, target)
		if listed[mid] {
			continue
		}
		listed[mid] = true
		if prev, ok := taken[mid]; ok {
			entry = mergeEntry(prev, entry)
		}
		taken[mid] = entry
		rows = append(rows, row{id: mid, entry: entry, tiers: tiers})
	}

	if d.Models == nil {
		d.Models = map[string]ModelEntry{}
	}
	if d.Workflows == nil {
		d.Workflows = map[string]Workflow{}
	}
	wf, ok := d.Workflows[id]
	if !ok {
		wf = Workflow{Name: id}
	}
	if draft.Name != "" {
		wf.Name = draft.Name
	}
	if draft.Description != "" {
		wf.Description = draft.Description
	}
	if draft.Category != "" {
		wf.Category = draft.Category
	}

	sets := map[string]ModelSet{}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		d.Models[r.id] = r.entry
		ids = append(ids, r.id)
		for _, tier := range r.tiers {
			for _, vram := range VRAMTiers[tier] {
				name := fmt.Sprintf("%dGB", vram)
				set := sets[name]
				set.Name = name + " VRAM"
				set.VRAMGB = vram
				set.Models = append(set.Models, r.id)
				sets[name] = set
			}
		}
	}
	wf.ModelSets = sets
	d.Workflows[id] = wf
	return ids, nil
}

func draftTiers(tiers []string) ([]string, error) {
	if len(tiers) == 0 {
		return TierNames(), nil
	}
	out := make([]string, 0, len(tiers))
	seen := map[string]bool{}
	for _, t := range tiers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if _, ok := VRAMTiers[t]; !ok {
			return nil, fmt.Errorf("%q: %w", t, ErrUnknownTier)
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out, nil
}

// ModelIDFromFilename is the default model id: lowercase with dots and
// dashes turned into underscores.
func ModelIDFromFilename(filename string) string {
	return strings.ToLower(strings.NewReplacer(".", "_", "-", "_").Replace(filename))
}

// modelID returns the id already declaring file in target, or a new one
// that does not clash with a model declared for another slot.
func modelID(taken map[string]ModelEntry, file, target string) string {
	existing := ""
	for id, m := range taken {
		if m.Filename == file && m.TargetPath == target && (existing == "" || id < existing) {
			existing = id
		}
	}
	if existing != "" {
		return existing
	}

	base := ModelIDFromFilename(file)
	suffix := strings.NewReplacer("/", "_", ".", "_").Replace(target)
	if _, ok := taken[base]; !ok {
		return base
	}
	id := base + "_" + suffix
	for n := 2; ; n++ {
		if _, ok := taken[id]; !ok {
			return id
		}
		id = fmt.Sprintf("%s_%s_%d", base, suffix, n)
	}
}

// mergeEntry keeps what an existing declaration knows that the draft does not.
func mergeEntry(prev, next ModelEntry) ModelEntry {
	if next.URL == "" {
		next.URL = prev.URL
	}
	if next.SizeMB == 0 {
		next.SizeMB = prev.SizeMB
	}
	if next.Name == next.Filename && prev.Name != "" {
		next.Name = prev.Name
	}
	next.Required = prev.Required
	return next
}

// AddTargetFolder adds folder to target_folders. It reports false when the
// folder was already listed.
func (d *ModelDocument) AddTargetFolder(folder string, policy FolderPolicy) (bool, error) {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		return false, fmt.Errorf("folder name is required")
	}
	if err := policy.Check(folder); err != nil {
		return false, err
	}
	for _, f := range d.Folders {
		if f == folder {
			return false, nil
		}
	}
	d.Folders = append(d.Folders, folder)
	sort.Strings(d.Folders)
	return true, nil
}

// RemoveTargetFolder drops folder from target_folders.
func (d *ModelDocument) RemoveTargetFolder(folder string) error {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	for i, f := range d.Folders {
		if f == folder {
			d.Folders = append(d.Folders[:i], d.Folders[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("target folder %q: %w", folder, ErrItemNotFound)
}
