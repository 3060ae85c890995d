package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/clock"
	"github.com/danieljhkim/comfydepot/internal/logging"
	"github.com/danieljhkim/comfydepot/internal/planner"
)

// run is one sync invocation after the catalog snapshot was taken.
type run struct {
	kind    catalog.Kind
	items   []catalog.ManagedItem
	known   []catalog.ManagedItem
	folders []string
	dryRun  bool

	removeDisabled bool
	checkUpdates   bool
}

// SyncNodes reconciles the custom nodes root with the node catalog.
func (e *Engine) SyncNodes(ctx context.Context, req *SyncRequest) (*SyncReport, error) {
	if req == nil {
		req = &SyncRequest{}
	}
	doc, err := e.nodes.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load node catalog: %w", err)
	}
	items := doc.Items()

	return e.sync(ctx, run{
		kind:           catalog.KindNode,
		items:          items,
		known:          items,
		dryRun:         req.DryRun,
		removeDisabled: boolOr(req.RemoveDisabled, e.removeDisabled),
		checkUpdates:   boolOr(req.CheckUpdates, e.checkUpdates),
	})
}

// SyncModels installs the model set of a workflow tier. Models of other
// workflows are never removed; they are reported as orphans only when the
// catalog does not declare them at all.
func (e *Engine) SyncModels(ctx context.Context, req *ModelSyncRequest) (*SyncReport, error) {
	if req == nil {
		return nil, fmt.Errorf("model sync request is required")
	}
	doc, err := e.models.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load model catalog: %w", err)
	}
	items, err := doc.Items(req.Workflow, req.Tier)
	if err != nil {
		return nil, err
	}

	return e.sync(ctx, run{
		kind:    catalog.KindModel,
		items:   items,
		known:   doc.AllItems(),
		folders: doc.TargetFolders(),
		dryRun:  req.DryRun,
	})
}

func (e *Engine) sync(ctx context.Context, r run) (*SyncReport, error) {
	root := e.root(r.kind)
	l, err := e.leases.Acquire(root)
	if err != nil {
		return nil, err
	}
	defer l.Release()

	report := &SyncReport{
		RunID:     uuid.NewString(),
		Kind:      r.kind,
		Root:      root,
		DryRun:    r.dryRun,
		StartedAt: e.clock.Now(),
	}
	log := e.log.With(logging.RunID(report.RunID), logging.Kind(string(r.kind)))

	in := e.plannerInput(r.kind, r.items)
	in.RemoveDisabled = r.removeDisabled
	in.CheckUpdates = r.checkUpdates
	if r.kind == catalog.KindNode && r.checkUpdates {
		in.UpdateChecker = e.updates
	}

	plan, err := planner.Build(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to plan %s sync: %w", r.kind, err)
	}

	// Orphans are judged against the whole catalog, not only the selected items.
	orphanIn := e.plannerInput(r.kind, r.known)
	orphanIn.Folders = r.folders
	orphans, err := planner.FindOrphans(orphanIn)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for orphans: %w", err)
	}
	plan.Orphans = orphans

	report.Plan = plan
	report.Orphans = orphans
	log.Info("plan built",
		zap.String("root", root),
		zap.Int("install", plan.Count(planner.ActionInstall)),
		zap.Int("update", plan.Count(planner.ActionUpdate)),
		zap.Int("remove", plan.Count(planner.ActionRemove)),
		zap.Int("skip", plan.Count(planner.ActionSkip)),
		zap.Int("orphans", len(orphans)),
		zap.Bool("dry_run", r.dryRun),
	)

	if r.dryRun {
		report.Outcomes = dryRunOutcomes(plan)
	} else {
		report.Outcomes = e.execute(ctx, log, plan)
	}

	report.tally()
	report.FinishedAt = e.clock.Now()
	e.metrics.SetOrphans(string(r.kind), len(orphans))
	e.metrics.ObserveRun(string(r.kind), report.Success(), report.Duration())

	log.Info("sync finished",
		zap.Int("installed", report.Installed),
		zap.Int("updated", report.Updated),
		zap.Int("removed", report.Removed),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", report.Errors),
		zap.Duration("elapsed", report.Duration()),
	)
	return report, nil
}

func (e *Engine) plannerInput(kind catalog.Kind, items []catalog.ManagedItem) planner.Input {
	in := planner.Input{
		Kind:  kind,
		Root:  e.root(kind),
		Items: items,
		Probe: e.fs,
	}
	if kind == catalog.KindModel {
		in.Allowlist = e.allowlist
		in.Extensions = e.extensions
	}
	if store := e.backupFor(kind); store != nil {
		in.Backup = store
	}
	return in
}

func dryRunOutcomes(plan *planner.Plan) []Outcome {
	outcomes := make([]Outcome, len(plan.Actions))
	for i, a := range plan.Actions {
		o := newOutcome(a)
		switch {
		case a.IsRejection():
			o.fail(a.Err)
		case a.Type == planner.ActionSkip:
			o.skip(a.Reason)
		default:
			o.skip(planner.ReasonDryRun)
		}
		outcomes[i] = o
	}
	return outcomes
}

// execute runs the plan on a bounded worker pool. Every action gets its own
// outcome slot so results stay in plan order.
func (e *Engine) execute(ctx context.Context, log *zap.Logger, plan *planner.Plan) []Outcome {
	outcomes := make([]Outcome, len(plan.Actions))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, a := range plan.Actions {
		g.Go(func() error {
			outcomes[i] = e.executeAction(ctx, log, plan.Kind, a)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// executeAction executes a single action and never returns an error; failures
// land in the outcome.
func (e *Engine) executeAction(ctx context.Context, log *zap.Logger, kind catalog.Kind, a planner.Action) Outcome {
	o := newOutcome(a)
	log = log.With(logging.Item(a.Item.ID), logging.Action(string(a.Type)))

	if a.Type == planner.ActionSkip {
		if a.IsRejection() {
			o.fail(a.Err)
			log.Warn("item rejected", logging.Err(a.Err))
		} else {
			o.skip(a.Reason)
		}
		e.metrics.ObserveAction(string(kind), string(a.Type), string(o.Status))
		return o
	}

	start := e.clock.Now()
	if err := ctx.Err(); err != nil {
		o.fail(fmt.Errorf("%s: %w", a.Item.Label(), err))
		e.metrics.ObserveAction(string(kind), string(a.Type), string(o.Status))
		return o
	}

	itemCtx, cancel := context.WithTimeout(ctx, e.itemTimeout)
	defer cancel()

	var err error
	switch a.Type {
	case planner.ActionInstall:
		if kind == catalog.KindModel {
			err = e.installModel(itemCtx, log, a, &o)
		} else {
			err = e.installNode(itemCtx, log, a, &o)
		}
	case planner.ActionUpdate:
		err = e.updateItem(itemCtx, log, kind, a, &o)
	case planner.ActionRemove:
		err = e.removeItem(kind, a)
	default:
		err = fmt.Errorf("unknown action type: %s", a.Type)
	}

	o.Duration = clock.Since(e.clock, start)
	switch {
	case err != nil:
		o.fail(fmt.Errorf("%s %s: %w", a.Type, a.Item.Label(), err))
		log.Error("action failed", logging.Err(err))
	case o.Status == "":
		o.Status = StatusDone
		log.Info("action done", logging.Path(a.Path), zap.Duration("elapsed", o.Duration))
	}
	e.metrics.ObserveAction(string(kind), string(a.Type), string(o.Status))
	return o
}
