package engine

import (
	"context"
	"fmt"

	"github.com/danieljhkim/comfydepot/internal/backup"
	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/pathguard"
)

// NodeStatus reports the on-disk state of every node in the catalog.
func (e *Engine) NodeStatus(ctx context.Context) ([]ItemStatus, error) {
	doc, err := e.nodes.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load node catalog: %w", err)
	}
	return e.status(catalog.KindNode, doc.Items())
}

// ModelStatus reports the on-disk state of the models of a workflow tier, or
// of every declared model when workflow is empty.
func (e *Engine) ModelStatus(ctx context.Context, workflow, tier string) ([]ItemStatus, error) {
	doc, err := e.models.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load model catalog: %w", err)
	}

	items := doc.AllItems()
	if workflow != "" {
		if items, err = doc.Items(workflow, tier); err != nil {
			return nil, err
		}
	}
	return e.status(catalog.KindModel, items)
}

func (e *Engine) status(kind catalog.Kind, items []catalog.ManagedItem) ([]ItemStatus, error) {
	root := e.root(kind)
	store := e.backupFor(kind)

	out := make([]ItemStatus, 0, len(items))
	for _, item := range items {
		st := ItemStatus{Item: item}

		path, err := e.locate(kind, root, item)
		if err != nil {
			st.State = StateUnsafe
			st.Error = err.Error()
			out = append(out, st)
			continue
		}
		st.Path = path

		present, err := e.fs.Exists(path)
		if err != nil {
			return nil, fmt.Errorf("failed to check %s: %w", path, err)
		}

		switch {
		case present && item.Enabled:
			st.State = StateInstalled
		case present:
			st.State = StateDisabled
		case store != nil && e.inBackup(store, item):
			st.State = StateBackup
		default:
			st.State = StateMissing
		}
		out = append(out, st)
	}
	return out, nil
}

// locate applies the same checks as the planner before any disk lookup.
func (e *Engine) locate(kind catalog.Kind, root string, item catalog.ManagedItem) (string, error) {
	if item.LocalName == "" {
		return "", pathguard.ErrUnsafePath
	}
	if kind == catalog.KindModel {
		if err := e.allowlist.Check(item.RelativePath); err != nil {
			return "", err
		}
	}
	return pathguard.Resolve(root, item.RelativePath, item.LocalName)
}

func (e *Engine) inBackup(store backup.Store, item catalog.ManagedItem) bool {
	bp, ok := store.PathFor(item.RelativePath, item.LocalName)
	if !ok {
		return false
	}
	found, _ := e.fs.Exists(bp)
	return found
}
