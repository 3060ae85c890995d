package planner

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/fsops"
	"github.com/danieljhkim/comfydepot/internal/pathguard"
)

// ErrRootMissing is returned when the managed root does not exist.
var ErrRootMissing = errors.New("managed root does not exist")

// DefaultModelExtensions are the weight file suffixes considered models.
var DefaultModelExtensions = []string{".safetensors", ".ckpt", ".pt", ".pth", ".bin", ".gguf"}

// UpdateChecker reports whether an installed item has upstream changes.
type UpdateChecker interface {
	HasUpdate(ctx context.Context, path string) (bool, error)
}

// BackupLocator maps a model slot to its location in a backup store.
type BackupLocator interface {
	PathFor(relPath, filename string) (string, bool)
}

// Input is everything Build needs. Items is a snapshot; the planner does
// not reload the catalog.
type Input struct {
	Kind  catalog.Kind
	Root  string
	Items []catalog.ManagedItem
	Probe fsops.Probe

	// Allowlist applies to models only
	Allowlist *pathguard.Allowlist

	// Extensions filters model orphans; defaults to DefaultModelExtensions
	Extensions []string

	// Folders limits the model orphan scan to these folders, minus any the
	// allowlist refuses; empty scans every allowlisted folder
	Folders []string

	// RemoveDisabled plans removal of installed but disabled items
	RemoveDisabled bool

	// CheckUpdates consults UpdateChecker for installed items
	CheckUpdates  bool
	UpdateChecker UpdateChecker

	// Backup, when set, lets installs restore a file instead of downloading it
	Backup BackupLocator
}

// Build generates a deterministic plan for one managed root.
func Build(ctx context.Context, in Input) (*Plan, error) {
	exists, err := in.Probe.Exists(in.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to check managed root %s: %w", in.Root, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", in.Root, ErrRootMissing)
	}

	kept := keptSlots(in.Items)
	plan := NewPlan(in.Kind, in.Root)
	for _, item := range in.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		action, err := classify(ctx, in, item, kept)
		if err != nil {
			return nil, err
		}
		plan.AddAction(action)
	}

	orphans, err := findOrphans(in)
	if err != nil {
		return nil, err
	}
	for _, o := range orphans {
		plan.AddOrphan(o)
	}

	return plan, nil
}

// keptSlots returns the slots claimed by an enabled or required item. Slot
// keys are case-folded so two names that differ only in case collide.
func keptSlots(items []catalog.ManagedItem) map[string]bool {
	kept := map[string]bool{}
	for _, item := range items {
		if item.LocalName != "" && (item.Enabled || item.Required) {
			kept[slotOf(item)] = true
		}
	}
	return kept
}

func slotOf(item catalog.ManagedItem) string {
	return strings.ToLower(catalog.SlotKey(cleanRel(item.RelativePath), item.LocalName))
}

// classify decides the action for one item. Errors returned here are
// filesystem check failures that make the whole plan unreliable.
func classify(ctx context.Context, in Input, item catalog.ManagedItem, kept map[string]bool) (Action, error) {
	action := Action{Type: ActionSkip, Item: item}

	if strings.TrimSpace(item.SourceLocator) == "" {
		action.Reason = ReasonNoSource
		return action, nil
	}

	dest, err := approve(in, item)
	if err != nil {
		action.Reason = ReasonUnsafePath
		action.Err = fmt.Errorf("%s: %w", item.Label(), err)
		return action, nil
	}
	action.Path = dest

	present, err := in.Probe.Exists(dest)
	if err != nil {
		return Action{}, fmt.Errorf("failed to check %s: %w", dest, err)
	}

	switch {
	case !present && item.Enabled:
		action.Type = ActionInstall
		if in.Backup != nil {
			if bp, ok := in.Backup.PathFor(item.RelativePath, item.LocalName); ok {
				if found, _ := in.Probe.Exists(bp); found {
					action.BackupPath = bp
				}
			}
		}
	case present && item.Enabled:
		action.Reason = ReasonInstalled
		if in.CheckUpdates && in.UpdateChecker != nil {
			changed, err := in.UpdateChecker.HasUpdate(ctx, dest)
			// A failed check still plans the update so the pull reports the cause.
			if err != nil || changed {
				action.Type = ActionUpdate
				action.Reason = ""
			}
		}
	case present && !item.Enabled:
		switch {
		case item.Required:
			action.Reason = ReasonRequired
		case kept[slotOf(item)]:
			action.Reason = ReasonSharedSlot
		case in.RemoveDisabled:
			action.Type = ActionRemove
		default:
			action.Reason = ReasonDisabled
		}
	default:
		action.Reason = ReasonAbsent
	}

	return action, nil
}

// approve runs the allowlist (models) and PathGuard for an item.
func approve(in Input, item catalog.ManagedItem) (string, error) {
	name := item.LocalName
	if name == "" {
		if _, err := catalog.DeriveLocalName(item.SourceLocator, ""); err != nil {
			return "", &pathguard.RejectionError{Input: item.SourceLocator, Reason: err.Error()}
		}
		return "", &pathguard.RejectionError{Input: item.SourceLocator, Reason: "no local name"}
	}

	if in.Kind == catalog.KindModel {
		if err := in.Allowlist.Check(item.RelativePath); err != nil {
			return "", err
		}
	}

	return pathguard.Resolve(in.Root, item.RelativePath, name)
}

// cleanRel normalizes a relative folder for slot matching.
func cleanRel(rel string) string {
	rel = strings.Trim(strings.TrimSpace(rel), "/")
	if rel == "" {
		return ""
	}
	rel = path.Clean(rel)
	if rel == "." {
		return ""
	}
	return rel
}
