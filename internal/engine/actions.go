package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/logging"
	"github.com/danieljhkim/comfydepot/internal/planner"
	"github.com/danieljhkim/comfydepot/internal/remote"
)

// installNode clones a plugin. A failed clone leaves nothing behind.
func (e *Engine) installNode(ctx context.Context, log *zap.Logger, a planner.Action, o *Outcome) error {
	if err := e.fs.MkdirAll(filepath.Dir(a.Path), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	if err := e.fetcher.Clone(ctx, a.Item.SourceLocator, a.Path); err != nil {
		if rmErr := e.fs.RemoveAll(a.Path); rmErr != nil {
			log.Warn("failed to remove partial checkout", logging.Path(a.Path), logging.Err(rmErr))
		}
		return err
	}

	e.afterCheckout(ctx, log, a.Path, o)
	return nil
}

// installModel restores a model from backup when the planner found a copy,
// otherwise downloads it and then copies it to the backup store.
func (e *Engine) installModel(ctx context.Context, log *zap.Logger, a planner.Action, o *Outcome) error {
	if a.BackupPath != "" {
		if err := e.fs.Copy(a.BackupPath, a.Path); err != nil {
			_ = e.fs.Remove(a.Path)
			return fmt.Errorf("failed to restore from backup: %w", err)
		}
		log.Info("restored from backup", logging.Path(a.BackupPath))
		return nil
	}

	var progress remote.ProgressFunc
	if e.onProgress != nil {
		item := a.Item
		progress = func(written, total int64) { e.onProgress(item, written, total) }
	}

	if err := e.fetcher.Download(ctx, a.Item.SourceLocator, a.Path, progress); err != nil {
		for _, p := range []string{a.Path + remote.PartSuffix, a.Path} {
			if exists, _ := e.fs.Exists(p); exists {
				if rmErr := e.fs.Remove(p); rmErr != nil {
					log.Warn("failed to remove partial download", logging.Path(p), logging.Err(rmErr))
				}
			}
		}
		return err
	}

	if e.modelBackup == nil {
		return nil
	}
	bp, ok := e.modelBackup.PathFor(a.Item.RelativePath, a.Item.LocalName)
	if !ok {
		o.Warning = "no safe backup path"
		return nil
	}
	if err := e.fs.Copy(a.Path, bp); err != nil {
		o.Warning = fmt.Sprintf("backup copy failed: %v", err)
		log.Warn("backup copy failed", logging.Path(bp), logging.Err(err))
	}
	return nil
}

// updateItem pulls a plugin checkout.
func (e *Engine) updateItem(ctx context.Context, log *zap.Logger, kind catalog.Kind, a planner.Action, o *Outcome) error {
	if kind != catalog.KindNode {
		return fmt.Errorf("%w: update of %s", ErrUnsupportedAction, kind)
	}

	res, err := e.fetcher.PullUpdate(ctx, a.Path)
	if err != nil {
		return err
	}
	if !res.Changed {
		o.skip(ReasonUpToDate)
		return nil
	}

	e.afterCheckout(ctx, log, a.Path, o)
	return nil
}

// removeItem deletes an item, or moves it into the backup store when one is
// configured. Required items are refused before the disk is touched.
func (e *Engine) removeItem(kind catalog.Kind, a planner.Action) error {
	if a.Item.Required {
		return fmt.Errorf("refusing to remove: %w", catalog.ErrRequiredItemProtected)
	}

	if store := e.backupFor(kind); store != nil {
		if bp, ok := store.PathFor(a.Item.RelativePath, a.Item.LocalName); ok {
			if err := e.fs.Move(a.Path, bp); err != nil {
				return fmt.Errorf("failed to move to backup: %w", err)
			}
			return nil
		}
	}

	if err := e.fs.RemoveAll(a.Path); err != nil {
		return fmt.Errorf("failed to remove: %w", err)
	}
	return nil
}

// afterCheckout runs the requirements hook. A hook failure keeps the
// checkout and is reported as a warning.
func (e *Engine) afterCheckout(ctx context.Context, log *zap.Logger, dir string, o *Outcome) {
	if err := e.hook.AfterCheckout(ctx, dir); err != nil {
		o.Warning = fmt.Sprintf("requirements: %v", err)
		log.Warn("requirements install failed", logging.Path(dir), logging.Err(err))
	}
}
