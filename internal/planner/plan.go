package planner

import (
	"errors"

	"github.com/danieljhkim/comfydepot/internal/catalog"
)

// ActionType is the kind of work planned for one item.
type ActionType string

// Action type constants
const (
	ActionInstall ActionType = "install"
	ActionUpdate  ActionType = "update"
	ActionRemove  ActionType = "remove"
	ActionSkip    ActionType = "skip"
)

// Skip reasons
const (
	ReasonInstalled  = "already installed"
	ReasonAbsent     = "already absent"
	ReasonRequired   = "required"
	ReasonNoSource   = "no source"
	ReasonDisabled   = "disabled"
	ReasonUnsafePath = "unsafe path"
	ReasonDryRun     = "dry run"
	ReasonSharedSlot = "slot owned by another item"
)

// Action is the planned work for a single catalog item.
type Action struct {
	// Type is install, update, remove or skip
	Type ActionType

	// Item is the catalog entry this action is for
	Item catalog.ManagedItem

	// Path is the approved absolute destination (empty when rejected)
	Path string

	// BackupPath is set on installs that can be restored from the backup store
	BackupPath string

	// Reason explains a skip
	Reason string

	// Err is set on skips caused by a rejected path or folder
	Err error
}

// IsRejection reports whether the action is a per-item rejection.
func (a Action) IsRejection() bool {
	return a.Type == ActionSkip && a.Err != nil
}

// Orphan is an entry on disk that no catalog item accounts for.
type Orphan struct {
	// Kind is the managed root the orphan was found in
	Kind catalog.Kind

	// RelativePath is the folder under the root (empty for nodes)
	RelativePath string

	// Name is the file or directory name
	Name string

	// Path is the absolute location
	Path string

	// SizeBytes is the file size (models only)
	SizeBytes int64
}

// Plan is the immutable result of Build.
type Plan struct {
	// Kind is the managed root being synced
	Kind catalog.Kind

	// Root is the managed root directory
	Root string

	// Actions has one entry per catalog item, in catalog order
	Actions []Action

	// Orphans lists unmanaged entries found on disk
	Orphans []Orphan
}

// NewPlan creates a new empty Plan.
func NewPlan(kind catalog.Kind, root string) *Plan {
	return &Plan{
		Kind:    kind,
		Root:    root,
		Actions: []Action{},
		Orphans: []Orphan{},
	}
}

// AddAction adds an action to the plan.
func (p *Plan) AddAction(a Action) {
	p.Actions = append(p.Actions, a)
}

// AddOrphan adds an orphan to the plan.
func (p *Plan) AddOrphan(o Orphan) {
	p.Orphans = append(p.Orphans, o)
}

// Count returns the number of actions of the given type.
func (p *Plan) Count(t ActionType) int {
	n := 0
	for _, a := range p.Actions {
		if a.Type == t {
			n++
		}
	}
	return n
}

// Rejections returns the errors of all rejected items.
func (p *Plan) Rejections() []error {
	var errs []error
	for _, a := range p.Actions {
		if a.IsRejection() {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// Err joins all rejections, or returns nil.
func (p *Plan) Err() error {
	return errors.Join(p.Rejections()...)
}

// HasWork returns true if any action would change the disk.
func (p *Plan) HasWork() bool {
	for _, a := range p.Actions {
		if a.Type != ActionSkip {
			return true
		}
	}
	return false
}
