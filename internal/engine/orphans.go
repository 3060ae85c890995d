package engine

import (
	"context"
	"fmt"

	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/hash"
	"github.com/danieljhkim/comfydepot/internal/logging"
	"github.com/danieljhkim/comfydepot/internal/pathguard"
	"github.com/danieljhkim/comfydepot/internal/planner"
)

// Orphans lists entries under the managed root of kind that no catalog item
// accounts for.
func (e *Engine) Orphans(ctx context.Context, kind catalog.Kind) ([]planner.Orphan, error) {
	items, folders, err := e.knownItems(ctx, kind)
	if err != nil {
		return nil, err
	}
	in := e.plannerInput(kind, items)
	in.Folders = folders
	orphans, err := planner.FindOrphans(in)
	if err != nil {
		return nil, err
	}
	e.metrics.SetOrphans(string(kind), len(orphans))
	return orphans, nil
}

// DeleteOrphans disposes of orphans. Without Confirm nothing is touched and
// ErrConfirmationRequired is returned along with the report listing them.
func (e *Engine) DeleteOrphans(ctx context.Context, req *DeleteOrphansRequest) (*OrphanReport, error) {
	root := e.root(req.Kind)
	l, err := e.leases.Acquire(root)
	if err != nil {
		return nil, err
	}
	defer l.Release()

	orphans, err := e.Orphans(ctx, req.Kind)
	if err != nil {
		return nil, err
	}
	orphans = filterOrphans(orphans, req.Names)

	report := &OrphanReport{
		Kind:     req.Kind,
		Root:     root,
		Orphans:  orphans,
		Outcomes: []OrphanOutcome{},
	}
	if len(orphans) == 0 {
		return report, nil
	}
	if !req.Confirm {
		return report, ErrConfirmationRequired
	}

	log := e.log.With(logging.Kind(string(req.Kind)))
	for _, o := range orphans {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		out := e.disposeOrphan(req.Kind, root, o)
		if out.Err != nil {
			report.Errors++
			log.Error("orphan disposal failed", logging.Path(o.Path), logging.Err(out.Err))
		} else {
			log.Info("orphan disposed", logging.Path(o.Path), logging.Action(string(out.Disposition)))
		}
		report.Outcomes = append(report.Outcomes, out)
	}
	return report, nil
}

// disposeOrphan deletes one orphan, keeping a backup copy when a store is
// configured. An existing identical backup makes the source redundant; a
// differing one is replaced.
func (e *Engine) disposeOrphan(kind catalog.Kind, root string, o planner.Orphan) OrphanOutcome {
	out := OrphanOutcome{Orphan: o}
	fail := func(err error) OrphanOutcome {
		out.Err = fmt.Errorf("%s: %w", catalog.SlotKey(o.RelativePath, o.Name), err)
		out.Error = out.Err.Error()
		return out
	}

	src, err := pathguard.Resolve(root, o.RelativePath, o.Name)
	if err != nil {
		return fail(err)
	}

	store := e.backupFor(kind)
	bp, ok := "", false
	if store != nil {
		bp, ok = store.PathFor(o.RelativePath, o.Name)
	}
	if !ok {
		if err := e.fs.RemoveAll(src); err != nil {
			return fail(fmt.Errorf("failed to delete: %w", err))
		}
		out.Disposition = DispositionDeleted
		return out
	}
	out.BackupPath = bp

	exists, err := e.fs.Exists(bp)
	if err != nil {
		return fail(fmt.Errorf("failed to check backup: %w", err))
	}
	if !exists {
		if err := e.fs.Move(src, bp); err != nil {
			return fail(fmt.Errorf("failed to move to backup: %w", err))
		}
		out.Disposition = DispositionBackedUp
		return out
	}

	same := false
	if kind == catalog.KindModel {
		same, err = hash.Identical(e.hasher, e.fs, src, bp)
		if err != nil {
			return fail(fmt.Errorf("failed to compare with backup: %w", err))
		}
	}
	if same {
		if err := e.fs.RemoveAll(src); err != nil {
			return fail(fmt.Errorf("failed to delete: %w", err))
		}
		out.Disposition = DispositionDuplicate
		return out
	}

	if err := e.fs.Move(src, bp); err != nil {
		return fail(fmt.Errorf("failed to replace backup: %w", err))
	}
	out.Disposition = DispositionReplaced
	return out
}

// knownItems returns every catalog item of kind, enabled or not, and for
// models the manifest's target folders.
func (e *Engine) knownItems(ctx context.Context, kind catalog.Kind) ([]catalog.ManagedItem, []string, error) {
	if kind == catalog.KindModel {
		doc, err := e.models.Load(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load model catalog: %w", err)
		}
		return doc.AllItems(), doc.TargetFolders(), nil
	}
	doc, err := e.nodes.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load node catalog: %w", err)
	}
	return doc.Items(), nil, nil
}

func filterOrphans(orphans []planner.Orphan, names []string) []planner.Orphan {
	if len(names) == 0 {
		return orphans
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := []planner.Orphan{}
	for _, o := range orphans {
		if want[catalog.SlotKey(o.RelativePath, o.Name)] {
			out = append(out, o)
		}
	}
	return out
}
