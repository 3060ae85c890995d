package engine

import (
	"errors"
	"time"

	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/planner"
)

// OutcomeStatus is the result of executing one action.
type OutcomeStatus string

const (
	// StatusDone means the action changed the disk
	StatusDone OutcomeStatus = "done"

	// StatusSkipped means nothing was done for the item
	StatusSkipped OutcomeStatus = "skipped"

	// StatusFailed means the action failed or the item was rejected
	StatusFailed OutcomeStatus = "failed"
)

// ReasonUpToDate is recorded when an update pulled nothing.
const ReasonUpToDate = "already up to date"

// Outcome is the executed result of one planned action.
type Outcome struct {
	// Action is the planned action
	Action planner.Action `json:"-"`

	// ID, Type and Path mirror the action for reporting
	ID   string             `json:"id"`
	Type planner.ActionType `json:"type"`
	Path string             `json:"path,omitempty"`

	// Status is the result
	Status OutcomeStatus `json:"status"`

	// Reason explains a skip
	Reason string `json:"reason,omitempty"`

	// Err is the failure, if any
	Err error `json:"-"`

	// Error is Err as text, for JSON output
	Error string `json:"error,omitempty"`

	// Warning is a non-fatal problem after a successful action
	Warning string `json:"warning,omitempty"`

	// Duration is the wall time spent on the item
	Duration time.Duration `json:"durationNs"`
}

func newOutcome(a planner.Action) Outcome {
	return Outcome{Action: a, ID: a.Item.ID, Type: a.Type, Path: a.Path}
}

func (o *Outcome) fail(err error) {
	o.Status = StatusFailed
	o.Err = err
	o.Error = err.Error()
}

func (o *Outcome) skip(reason string) {
	o.Status = StatusSkipped
	o.Reason = reason
}

// SyncReport summarizes one sync run.
type SyncReport struct {
	// RunID uniquely identifies the run in logs
	RunID string `json:"runId"`

	Kind catalog.Kind `json:"kind"`
	Root string       `json:"root"`

	// DryRun is true when nothing was executed
	DryRun bool `json:"dryRun"`

	// Plan is the plan the run executed
	Plan *planner.Plan `json:"-"`

	// Outcomes are in plan order
	Outcomes []Outcome `json:"outcomes"`

	// Orphans are entries on disk the catalog does not know
	Orphans []planner.Orphan `json:"orphans"`

	Installed int `json:"installed"`
	Updated   int `json:"updated"`
	Removed   int `json:"removed"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Success reports whether no item failed.
func (r *SyncReport) Success() bool {
	return r.Errors == 0
}

// Err joins the per-item errors, or returns nil.
func (r *SyncReport) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}

// Duration is the wall time of the run.
func (r *SyncReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *SyncReport) tally() {
	r.Installed, r.Updated, r.Removed, r.Skipped, r.Errors = 0, 0, 0, 0, 0
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusFailed:
			r.Errors++
		case StatusSkipped:
			r.Skipped++
		case StatusDone:
			switch o.Type {
			case planner.ActionInstall:
				r.Installed++
			case planner.ActionUpdate:
				r.Updated++
			case planner.ActionRemove:
				r.Removed++
			}
		}
	}
}

// Disposition describes what happened to an orphan.
type Disposition string

const (
	// DispositionDeleted means the orphan was deleted outright
	DispositionDeleted Disposition = "deleted"

	// DispositionDuplicate means an identical backup existed and the orphan was deleted
	DispositionDuplicate Disposition = "deleted (identical backup)"

	// DispositionBackedUp means the orphan was moved into the backup store
	DispositionBackedUp Disposition = "moved to backup"

	// DispositionReplaced means a differing backup was replaced by the orphan
	DispositionReplaced Disposition = "replaced backup"
)

// OrphanOutcome is the result of disposing of one orphan.
type OrphanOutcome struct {
	Orphan      planner.Orphan `json:"orphan"`
	Disposition Disposition    `json:"disposition,omitempty"`
	BackupPath  string         `json:"backupPath,omitempty"`
	Err         error          `json:"-"`
	Error       string         `json:"error,omitempty"`
}

// OrphanReport is the result of DeleteOrphans.
type OrphanReport struct {
	Kind     catalog.Kind     `json:"kind"`
	Root     string           `json:"root"`
	Orphans  []planner.Orphan `json:"orphans"`
	Outcomes []OrphanOutcome  `json:"outcomes"`
	Errors   int              `json:"errors"`
}

// Err joins the per-orphan errors, or returns nil.
func (r *OrphanReport) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}

// ItemState is the on-disk state of a catalog item.
type ItemState string

const (
	StateInstalled ItemState = "installed"
	StateMissing   ItemState = "missing"
	StateDisabled  ItemState = "disabled"
	StateBackup    ItemState = "backup"
	StateUnsafe    ItemState = "unsafe"
)

// ItemStatus is one row of a status listing.
type ItemStatus struct {
	Item  catalog.ManagedItem `json:"item"`
	Path  string              `json:"path,omitempty"`
	State ItemState           `json:"state"`
	Error string              `json:"error,omitempty"`
}

// ImportedModel is one model a workflow import declared.
type ImportedModel struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	TargetPath string `json:"targetPath"`
	URL        string `json:"url,omitempty"`

	// Suggested is true when the URL came from the known model list
	Suggested bool `json:"suggested"`
}

// WorkflowImport is the result of ImportWorkflow.
type WorkflowImport struct {
	ID     string          `json:"id"`
	Models []ImportedModel `json:"models"`

	// Installed is where the workflow file was copied, if it was
	Installed string `json:"installed,omitempty"`
}

// MissingURLs returns the ids of imported models nothing can download yet.
func (w *WorkflowImport) MissingURLs() []string {
	var ids []string
	for _, m := range w.Models {
		if m.URL == "" {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
