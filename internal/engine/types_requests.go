package engine

import "github.com/danieljhkim/comfydepot/internal/catalog"

// SyncRequest is the input for SyncNodes.
type SyncRequest struct {
	// DryRun returns the plan without executing it
	DryRun bool

	// RemoveDisabled overrides the configured policy when set
	RemoveDisabled *bool

	// CheckUpdates overrides the configured policy when set
	CheckUpdates *bool
}

// ModelSyncRequest is the input for SyncModels.
type ModelSyncRequest struct {
	// Workflow is the workflow id in the model catalog
	Workflow string

	// Tier is the VRAM tier (S, M, L)
	Tier string

	// DryRun returns the plan without executing it
	DryRun bool
}

// DeleteOrphansRequest is the input for DeleteOrphans.
type DeleteOrphansRequest struct {
	// Kind selects the managed root
	Kind catalog.Kind

	// Names limits deletion to these slot keys (relative/name); empty means all
	Names []string

	// Confirm must be true for anything to be touched
	Confirm bool
}

// RestoreRequest is the input for RestoreModel.
type RestoreRequest struct {
	// ID is the model id in the catalog
	ID string

	// Force overwrites an installed copy
	Force bool
}

// AddNodeRequest is the input for AddNode.
type AddNodeRequest struct {
	Name        string
	URL         string
	Description string
	Folder      string
}

// ImportWorkflowRequest is the input for ImportWorkflow.
type ImportWorkflowRequest struct {
	// Path is the ComfyUI workflow JSON file
	Path string

	// ID defaults to the file name without extension
	ID string

	// Name, Description and Category overwrite the manifest's when set
	Name        string
	Description string
	Category    string

	// Tiers the models are assigned to; empty means every tier
	Tiers []string

	// Install also copies the workflow file into the workflows directory
	Install bool
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
