// Package engine executes comfydepot sync plans and catalog edits.
//
// The engine is the orchestration layer between CLI commands and the lower
// level packages. It snapshots a catalog, asks the planner for a plan, and
// runs each action through the remote fetcher and fsops under a per-root
// lease. Item failures are recorded in the report and never stop the run.
//
// Key components:
//   - Engine: main orchestrator called by the CLI
//   - SyncNodes/SyncModels: plan and execute a reconciliation
//   - Orphans/DeleteOrphans: report and dispose of unmanaged entries
//   - Catalog edits and status listings
package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/danieljhkim/comfydepot/internal/backup"
	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/clock"
	"github.com/danieljhkim/comfydepot/internal/fsops"
	"github.com/danieljhkim/comfydepot/internal/hash"
	"github.com/danieljhkim/comfydepot/internal/lease"
	"github.com/danieljhkim/comfydepot/internal/metrics"
	"github.com/danieljhkim/comfydepot/internal/pathguard"
	"github.com/danieljhkim/comfydepot/internal/planner"
	"github.com/danieljhkim/comfydepot/internal/remote"
)

// DefaultItemTimeout bounds a single install, update or remove.
const DefaultItemTimeout = 30 * time.Minute

// ProgressFunc receives download progress for one item.
type ProgressFunc func(item catalog.ManagedItem, written, total int64)

// Options carries the engine's dependencies and policy.
// Zero values fall back to defaults in New.
type Options struct {
	Nodes  catalog.Source[*catalog.NodeDocument]
	Models catalog.Source[*catalog.ModelDocument]

	FS      fsops.FS
	Fetcher remote.Fetcher
	Updates remote.UpdateChecker
	Hook    remote.Hook

	NodeBackup  backup.Store
	ModelBackup backup.Store

	Leases  *lease.Manager
	Hasher  hash.Hasher
	Clock   clock.Clock
	Metrics *metrics.Recorder
	Logger  *zap.Logger

	NodesRoot  string
	ModelsRoot string
	Allowlist  *pathguard.Allowlist
	Extensions []string

	// WorkflowsDir receives installed workflow files (ComfyUI's
	// user/default/workflows); empty disables installing them
	WorkflowsDir string

	Workers        int
	ItemTimeout    time.Duration
	RemoveDisabled bool
	CheckUpdates   bool

	OnProgress ProgressFunc
}

// Engine orchestrates all comfydepot operations.
// It is the main API surface called by the CLI.
type Engine struct {
	nodes  catalog.Source[*catalog.NodeDocument]
	models catalog.Source[*catalog.ModelDocument]

	fs      fsops.FS
	fetcher remote.Fetcher
	updates remote.UpdateChecker
	hook    remote.Hook

	nodeBackup  backup.Store
	modelBackup backup.Store

	leases  *lease.Manager
	hasher  hash.Hasher
	clock   clock.Clock
	metrics *metrics.Recorder
	log     *zap.Logger

	nodesRoot    string
	modelsRoot   string
	allowlist    *pathguard.Allowlist
	extensions   []string
	workflowsDir string

	workers        int
	itemTimeout    time.Duration
	removeDisabled bool
	checkUpdates   bool

	onProgress ProgressFunc
}

// New creates a new Engine from opts.
func New(opts Options) *Engine {
	e := &Engine{
		nodes:          opts.Nodes,
		models:         opts.Models,
		fs:             opts.FS,
		fetcher:        opts.Fetcher,
		updates:        opts.Updates,
		hook:           opts.Hook,
		nodeBackup:     opts.NodeBackup,
		modelBackup:    opts.ModelBackup,
		leases:         opts.Leases,
		hasher:         opts.Hasher,
		clock:          opts.Clock,
		metrics:        opts.Metrics,
		log:            opts.Logger,
		nodesRoot:      opts.NodesRoot,
		modelsRoot:     opts.ModelsRoot,
		allowlist:      opts.Allowlist,
		extensions:     opts.Extensions,
		workflowsDir:   opts.WorkflowsDir,
		workers:        opts.Workers,
		itemTimeout:    opts.ItemTimeout,
		removeDisabled: opts.RemoveDisabled,
		checkUpdates:   opts.CheckUpdates,
		onProgress:     opts.OnProgress,
	}

	if e.fs == nil {
		e.fs = fsops.NewRealFS()
	}
	if e.hook == nil {
		e.hook = remote.NopHook{}
	}
	if e.clock == nil {
		e.clock = &clock.RealClock{}
	}
	if e.leases == nil {
		e.leases = lease.NewManager("", e.clock)
	}
	if e.hasher == nil {
		e.hasher = hash.NewSHA256Hasher()
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.allowlist == nil {
		e.allowlist = pathguard.NewAllowlist(pathguard.DefaultModelFolders...)
	}
	if len(e.extensions) == 0 {
		e.extensions = planner.DefaultModelExtensions
	}
	if e.workers < 1 {
		e.workers = 1
	}
	if e.itemTimeout <= 0 {
		e.itemTimeout = DefaultItemTimeout
	}

	return e
}

// root returns the managed root for kind.
func (e *Engine) root(kind catalog.Kind) string {
	if kind == catalog.KindModel {
		return e.modelsRoot
	}
	return e.nodesRoot
}

// backupFor returns the backup store for kind, or nil.
func (e *Engine) backupFor(kind catalog.Kind) backup.Store {
	if kind == catalog.KindModel {
		return e.modelBackup
	}
	return e.nodeBackup
}

// Allowlist returns the model folder policy in effect.
func (e *Engine) Allowlist() *pathguard.Allowlist {
	return e.allowlist
}
