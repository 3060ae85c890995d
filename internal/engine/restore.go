package engine

import (
	"context"
	"fmt"

	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/logging"
	"github.com/danieljhkim/comfydepot/internal/pathguard"
)

// RestoreModel copies a model from the backup store into the models root.
// It returns the restored path.
func (e *Engine) RestoreModel(ctx context.Context, req *RestoreRequest) (string, error) {
	if e.modelBackup == nil {
		return "", ErrNoBackupStore
	}

	doc, err := e.models.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load model catalog: %w", err)
	}
	item, err := doc.Model(req.ID)
	if err != nil {
		return "", err
	}
	if item.LocalName == "" {
		return "", fmt.Errorf("%s: %w", item.Label(), pathguard.ErrUnsafePath)
	}
	if err := e.allowlist.Check(item.RelativePath); err != nil {
		return "", fmt.Errorf("%s: %w", item.Label(), err)
	}

	l, err := e.leases.Acquire(e.modelsRoot)
	if err != nil {
		return "", err
	}
	defer l.Release()

	dest, err := pathguard.Resolve(e.modelsRoot, item.RelativePath, item.LocalName)
	if err != nil {
		return "", fmt.Errorf("%s: %w", item.Label(), err)
	}
	bp, ok := e.modelBackup.PathFor(item.RelativePath, item.LocalName)
	if !ok {
		return "", fmt.Errorf("%s: %w", item.Label(), pathguard.ErrUnsafePath)
	}

	if found, err := e.fs.Exists(bp); err != nil {
		return "", fmt.Errorf("failed to check backup: %w", err)
	} else if !found {
		return "", fmt.Errorf("%s: %w", item.Label(), ErrNoBackup)
	}
	if present, err := e.fs.Exists(dest); err != nil {
		return "", fmt.Errorf("failed to check %s: %w", dest, err)
	} else if present && !req.Force {
		return "", fmt.Errorf("%s: %w", item.Label(), ErrAlreadyInstalled)
	}

	if err := e.fs.Copy(bp, dest); err != nil {
		return "", fmt.Errorf("failed to restore %s: %w", item.Label(), err)
	}
	e.log.Info("model restored", logging.Kind(string(catalog.KindModel)), logging.Item(item.ID), logging.Path(dest))
	return dest, nil
}
