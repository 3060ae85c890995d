package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/logging"
	"github.com/danieljhkim/comfydepot/internal/pathguard"
	"github.com/danieljhkim/comfydepot/internal/workflow"
)

// ImportWorkflow reads a ComfyUI workflow file and writes its model sets
// into the model catalog, creating the catalog if needed. Download URLs and
// sizes are filled in from the known model list.
func (e *Engine) ImportWorkflow(ctx context.Context, req *ImportWorkflowRequest) (*WorkflowImport, error) {
	data, err := e.fs.ReadFile(req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow: %w", err)
	}
	refs, err := workflow.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Path, err)
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%s: %w", req.Path, ErrNoModelReferences)
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(req.Path), filepath.Ext(req.Path))
	}

	draft := catalog.WorkflowDraft{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
	}
	suggested := make([]bool, 0, len(refs))
	for _, ref := range refs {
		m := catalog.DraftModel{Filename: ref.Filename, TargetPath: ref.Folder, Tiers: req.Tiers}
		known, ok := workflow.Suggest(ref.Filename)
		if ok {
			m.Name, m.URL, m.SizeMB = known.Name, known.URL, known.SizeMB
		}
		draft.Models = append(draft.Models, m)
		suggested = append(suggested, ok)
	}

	doc, err := e.models.Load(ctx)
	if errors.Is(err, catalog.ErrCatalogMissing) {
		doc, err = catalog.NewModelDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load model catalog: %w", err)
	}
	ids, err := doc.PutWorkflow(draft, e.allowlist)
	if err != nil {
		return nil, err
	}

	result := &WorkflowImport{ID: id, Models: make([]ImportedModel, 0, len(ids))}
	for i, mid := range ids {
		m := doc.Models[mid]
		result.Models = append(result.Models, ImportedModel{
			ID:         mid,
			Filename:   m.Filename,
			TargetPath: m.TargetPath,
			URL:        m.URL,
			Suggested:  suggested[i],
		})
	}

	if req.Install {
		dest, err := e.installWorkflowFile(req.Path, data)
		if err != nil {
			return nil, err
		}
		result.Installed = dest
	}

	if err := e.models.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save model catalog: %w", err)
	}
	e.log.Info("workflow imported",
		logging.Item(id),
		zap.Int("models", len(result.Models)),
		zap.Int("missing_urls", len(result.MissingURLs())),
	)
	return result, nil
}

// installWorkflowFile copies a workflow into ComfyUI's workflows directory
// under its own file name.
func (e *Engine) installWorkflowFile(src string, data []byte) (string, error) {
	if e.workflowsDir == "" {
		return "", ErrNoWorkflowsDir
	}
	if err := e.fs.MkdirAll(e.workflowsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create workflows directory: %w", err)
	}
	dest, err := pathguard.Resolve(e.workflowsDir, "", filepath.Base(src))
	if err != nil {
		return "", err
	}
	if err := e.fs.AtomicWrite(dest, data, 0644); err != nil {
		return "", fmt.Errorf("failed to install workflow: %w", err)
	}
	return dest, nil
}

// TargetFolders returns the model catalog's target folders.
func (e *Engine) TargetFolders(ctx context.Context) ([]string, error) {
	doc, err := e.models.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load model catalog: %w", err)
	}
	return doc.TargetFolders(), nil
}

// AddTargetFolder lists an allowlisted folder in target_folders.
func (e *Engine) AddTargetFolder(ctx context.Context, folder string) ([]string, error) {
	return e.editFolders(ctx, "add", func(doc *catalog.ModelDocument) error {
		_, err := doc.AddTargetFolder(folder, e.allowlist)
		return err
	})
}

// RemoveTargetFolder drops a folder from target_folders.
func (e *Engine) RemoveTargetFolder(ctx context.Context, folder string) ([]string, error) {
	return e.editFolders(ctx, "remove", func(doc *catalog.ModelDocument) error {
		return doc.RemoveTargetFolder(folder)
	})
}

func (e *Engine) editFolders(ctx context.Context, op string, edit func(*catalog.ModelDocument) error) ([]string, error) {
	doc, err := e.models.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load model catalog: %w", err)
	}
	if err := edit(doc); err != nil {
		return nil, err
	}
	if err := e.models.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save model catalog: %w", err)
	}
	e.log.Info("target folders updated", logging.Action(op), zap.Strings("folders", doc.Folders))
	return doc.TargetFolders(), nil
}
