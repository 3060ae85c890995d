//go:build integration
// +build integration

package integration

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/engine"
	"github.com/danieljhkim/comfydepot/internal/lease"
	"github.com/danieljhkim/comfydepot/internal/planner"
)

// requireGit skips when the local file transport cannot run.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git-upload-pack"); err != nil {
		if _, err := exec.LookPath("git"); err != nil {
			t.Skip("git not installed")
		}
	}
}

func TestNodeSync_CloneUpdateRemove(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	w := newWorkspace(t)
	up := newUpstream(t)

	entry := catalog.NodeEntry{ID: "example", Name: "ComfyUI-Example", URL: up.dir, Enabled: true}
	w.saveNodes(entry)
	eng := w.engine()

	report, err := eng.SyncNodes(ctx, nil)
	require.NoError(t, err)
	if !report.Success() {
		t.Skipf("local clone unavailable: %v", report.Err())
	}
	assert.Equal(t, 1, report.Installed)

	checkout := filepath.Join(w.nodesRoot, "ComfyUI-Example")
	assert.True(t, exists(filepath.Join(checkout, ".git")))
	assert.Equal(t, "NODE_CLASS_MAPPINGS = {}\n", readFile(t, filepath.Join(checkout, "__init__.py")))

	report, err = eng.SyncNodes(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 1, report.Skipped)

	up.commit("nodes.py", "VERSION = 2\n")
	report, err = eng.SyncNodes(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, "VERSION = 2\n", readFile(t, filepath.Join(checkout, "nodes.py")))

	_, err = eng.DisableNode(ctx, "example")
	require.NoError(t, err)

	// Disabled nodes stay unless removal is asked for.
	report, err = eng.SyncNodes(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Removed)
	assert.True(t, exists(checkout))

	remove := true
	report, err = eng.SyncNodes(ctx, &engine.SyncRequest{RemoveDisabled: &remove})
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.Equal(t, 1, report.Removed)
	assert.False(t, exists(checkout))
	assert.True(t, exists(filepath.Join(w.nodeBackup, "ComfyUI-Example", "nodes.py")))
}

func TestNodeSync_BadRemoteIsolated(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	w := newWorkspace(t)
	up := newUpstream(t)

	w.saveNodes(
		catalog.NodeEntry{ID: "broken", Name: "Broken", URL: filepath.Join(t.TempDir(), "ComfyUI-Broken"), Enabled: true},
		catalog.NodeEntry{ID: "example", Name: "ComfyUI-Example", URL: up.dir, Enabled: true},
	)

	report, err := w.engine().SyncNodes(ctx, nil)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)

	byID := map[string]engine.Outcome{}
	for _, o := range report.Outcomes {
		byID[o.ID] = o
	}
	assert.Equal(t, engine.StatusFailed, byID["broken"].Status)
	assert.False(t, exists(filepath.Join(w.nodesRoot, "ComfyUI-Broken")))
	if byID["example"].Status != engine.StatusDone {
		t.Skipf("local clone unavailable: %s", byID["example"].Error)
	}
	assert.Equal(t, planner.ActionInstall, byID["example"].Type)
	assert.True(t, exists(filepath.Join(w.nodesRoot, "ComfyUI-Example", "__init__.py")))
}

func TestNodeSync_LeaseHeldAcrossEngines(t *testing.T) {
	w := newWorkspace(t)
	w.saveNodes()

	// Another engine on the same lock dir simulates a second process.
	other := lease.NewManager(w.lockDir, nil)
	l, err := other.Acquire(w.nodesRoot)
	require.NoError(t, err)
	defer l.Release()

	_, err = w.engine().SyncNodes(context.Background(), nil)
	require.ErrorIs(t, err, lease.ErrRunInProgress)
}
