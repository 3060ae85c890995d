package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/logging"
)

// EnableNode marks a node enabled in the catalog.
func (e *Engine) EnableNode(ctx context.Context, id string) (catalog.ManagedItem, error) {
	return e.editNodes(ctx, "enable", func(doc *catalog.NodeDocument) (catalog.ManagedItem, error) {
		return doc.SetEnabled(id, true)
	})
}

// DisableNode marks a node disabled. Required nodes are refused.
func (e *Engine) DisableNode(ctx context.Context, id string) (catalog.ManagedItem, error) {
	return e.editNodes(ctx, "disable", func(doc *catalog.NodeDocument) (catalog.ManagedItem, error) {
		return doc.SetEnabled(id, false)
	})
}

// AddNode appends a node to the catalog, creating the catalog if needed.
func (e *Engine) AddNode(ctx context.Context, req *AddNodeRequest) (catalog.ManagedItem, error) {
	doc, err := e.nodes.Load(ctx)
	if errors.Is(err, catalog.ErrCatalogMissing) {
		doc, err = catalog.NewNodeDocument(), nil
	}
	if err != nil {
		return catalog.ManagedItem{}, fmt.Errorf("failed to load node catalog: %w", err)
	}

	item, err := doc.Add(req.Name, req.URL, req.Description, req.Folder)
	if err != nil {
		return catalog.ManagedItem{}, err
	}
	if err := e.nodes.Save(ctx, doc); err != nil {
		return catalog.ManagedItem{}, fmt.Errorf("failed to save node catalog: %w", err)
	}
	e.log.Info("node added", logging.Item(item.ID))
	return item, nil
}

// RemoveNode deletes a node from the catalog. Files on disk are left alone;
// the next sync reports them as orphans.
func (e *Engine) RemoveNode(ctx context.Context, id string) (catalog.ManagedItem, error) {
	return e.editNodes(ctx, "remove", func(doc *catalog.NodeDocument) (catalog.ManagedItem, error) {
		return doc.Remove(id)
	})
}

func (e *Engine) editNodes(ctx context.Context, op string, edit func(*catalog.NodeDocument) (catalog.ManagedItem, error)) (catalog.ManagedItem, error) {
	doc, err := e.nodes.Load(ctx)
	if err != nil {
		return catalog.ManagedItem{}, fmt.Errorf("failed to load node catalog: %w", err)
	}
	item, err := edit(doc)
	if err != nil {
		return catalog.ManagedItem{}, err
	}
	if err := e.nodes.Save(ctx, doc); err != nil {
		return catalog.ManagedItem{}, fmt.Errorf("failed to save node catalog: %w", err)
	}
	e.log.Info("node catalog updated", logging.Item(item.ID), logging.Action(op))
	return item, nil
}

// Workflows lists the workflows in the model catalog.
func (e *Engine) Workflows(ctx context.Context) ([]catalog.WorkflowSummary, error) {
	doc, err := e.models.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load model catalog: %w", err)
	}
	return doc.Summaries(), nil
}
