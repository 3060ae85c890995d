// Package planner handles the planning phase of a sync run.
//
// The planner turns a catalog snapshot and a read-only view of the managed
// root into a deterministic Plan: one Action per catalog item (install,
// update, remove or skip) plus the list of orphans found on disk. It never
// mutates the filesystem; the engine executes the plan.
//
// Key responsibilities:
//   - Classify each item by its declared state against its on-disk state
//   - Apply the folder allowlist and PathGuard before a path is used
//   - Protect required items from removal
//   - Report unmanaged entries as orphans, never as actions
package planner
