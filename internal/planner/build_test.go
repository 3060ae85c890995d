package planner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/fsops"
	"github.com/danieljhkim/comfydepot/internal/pathguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	changed map[string]bool
	err     error
	calls   int
}

func (f *fakeChecker) HasUpdate(_ context.Context, path string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.changed[filepath.Base(path)], nil
}

type fakeBackup struct{ root string }

func (b fakeBackup) PathFor(rel, name string) (string, bool) {
	return filepath.Join(b.root, rel, name), true
}

func node(id, url string, enabled, required bool) catalog.ManagedItem {
	name, _ := catalog.DeriveLocalName(url, "")
	return catalog.ManagedItem{
		ID:            id,
		Kind:          catalog.KindNode,
		DisplayName:   id,
		SourceLocator: url,
		Enabled:       enabled,
		Required:      required,
		LocalName:     name,
	}
}

func model(id, rel, file string) catalog.ManagedItem {
	return catalog.ManagedItem{
		ID:            id,
		Kind:          catalog.KindModel,
		SourceLocator: "https://host/" + file,
		Enabled:       true,
		RelativePath:  rel,
		LocalName:     file,
	}
}

func nodeInput(root string, items ...catalog.ManagedItem) Input {
	return Input{Kind: catalog.KindNode, Root: root, Items: items, Probe: fsops.NewRealFS()}
}

func mkdir(t *testing.T, parts ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(parts...), 0755))
}

func writeFile(t *testing.T, size int, parts ...string) {
	t.Helper()
	p := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, make([]byte, size), 0644))
}

func TestBuild_InstallThenSkip(t *testing.T) {
	root := t.TempDir()
	in := nodeInput(root, node("a", "https://x/a.git", true, false))

	plan, err := Build(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, ActionInstall, plan.Actions[0].Type)
	assert.Equal(t, filepath.Join(root, "a"), plan.Actions[0].Path)

	mkdir(t, root, "a")

	plan, err = Build(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, ActionSkip, plan.Actions[0].Type)
	assert.Equal(t, ReasonInstalled, plan.Actions[0].Reason)
}

func TestBuild_StateTable(t *testing.T) {
	tests := []struct {
		name           string
		enabled        bool
		required       bool
		present        bool
		removeDisabled bool
		wantType       ActionType
		wantReason     string
	}{
		{"absent enabled", true, false, false, false, ActionInstall, ""},
		{"present enabled", true, false, true, false, ActionSkip, ReasonInstalled},
		{"present disabled keep", false, false, true, false, ActionSkip, ReasonDisabled},
		{"present disabled remove", false, false, true, true, ActionRemove, ""},
		{"present disabled required", false, true, true, true, ActionSkip, ReasonRequired},
		{"absent disabled", false, false, false, true, ActionSkip, ReasonAbsent},
		{"absent disabled required", false, true, false, true, ActionSkip, ReasonAbsent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			if tt.present {
				mkdir(t, root, "repo")
			}
			in := nodeInput(root, node("repo", "https://github.com/u/repo.git", tt.enabled, tt.required))
			in.RemoveDisabled = tt.removeDisabled

			plan, err := Build(context.Background(), in)
			require.NoError(t, err)
			require.Len(t, plan.Actions, 1)
			assert.Equal(t, tt.wantType, plan.Actions[0].Type)
			assert.Equal(t, tt.wantReason, plan.Actions[0].Reason)
		})
	}
}

func TestBuild_RequiredNeverRemoved(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		for _, removeDisabled := range []bool{true, false} {
			for _, checkUpdates := range []bool{true, false} {
				for _, present := range []bool{true, false} {
					root := t.TempDir()
					if present {
						mkdir(t, root, "b")
					}
					in := nodeInput(root, node("b", "https://x/b.git", enabled, true))
					in.RemoveDisabled = removeDisabled
					in.CheckUpdates = checkUpdates
					in.UpdateChecker = &fakeChecker{changed: map[string]bool{"b": true}}

					plan, err := Build(context.Background(), in)
					require.NoError(t, err)
					assert.Zero(t, plan.Count(ActionRemove),
						"enabled=%v removeDisabled=%v checkUpdates=%v present=%v", enabled, removeDisabled, checkUpdates, present)
				}
			}
		}
	}
}

func TestBuild_RequiredDisabledPresentIsSkipped(t *testing.T) {
	root := t.TempDir()
	mkdir(t, root, "b")
	in := nodeInput(root, node("b", "https://x/b.git", false, true))
	in.RemoveDisabled = true

	plan, err := Build(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, ActionSkip, plan.Actions[0].Type)
	assert.Equal(t, ReasonRequired, plan.Actions[0].Reason)
}

func TestBuild_SharedSlotNotRemoved(t *testing.T) {
	for _, owner := range []struct {
		name              string
		enabled, required bool
	}{
		{"required", true, true},
		{"enabled", true, false},
		{"required disabled", false, true},
	} {
		t.Run(owner.name, func(t *testing.T) {
			root := t.TempDir()
			mkdir(t, root, "Impact")
			in := nodeInput(root,
				node("impact", "https://github.com/a/Impact.git", owner.enabled, owner.required),
				node("impact-fork", "https://github.com/b/Impact", false, false),
			)
			in.RemoveDisabled = true

			plan, err := Build(context.Background(), in)
			require.NoError(t, err)
			require.Len(t, plan.Actions, 2)
			assert.Zero(t, plan.Count(ActionRemove))
			assert.Equal(t, ActionSkip, plan.Actions[1].Type)
			assert.Equal(t, ReasonSharedSlot, plan.Actions[1].Reason)
		})
	}
}

func TestBuild_SharedSlotIgnoresCase(t *testing.T) {
	root := t.TempDir()
	mkdir(t, root, "impact")
	in := nodeInput(root,
		node("impact", "https://github.com/a/impact.git", true, false),
		node("impact-fork", "https://github.com/b/Impact", false, false),
	)
	in.RemoveDisabled = true

	plan, err := Build(context.Background(), in)
	require.NoError(t, err)
	assert.Zero(t, plan.Count(ActionRemove))
}

func TestBuild_Updates(t *testing.T) {
	root := t.TempDir()
	mkdir(t, root, "fresh")
	mkdir(t, root, "stale")
	items := []catalog.ManagedItem{
		node("fresh", "https://x/fresh.git", true, false),
		node("stale", "https://x/stale.git", true, false),
	}

	t.Run("only changed items update", func(t *testing.T) {
		checker := &fakeChecker{changed: map[string]bool{"stale": true}}
		in := nodeInput(root, items...)
		in.CheckUpdates = true
		in.UpdateChecker = checker

		plan, err := Build(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, ActionSkip, plan.Actions[0].Type)
		assert.Equal(t, ReasonInstalled, plan.Actions[0].Reason)
		assert.Equal(t, ActionUpdate, plan.Actions[1].Type)
		assert.Equal(t, 2, checker.calls)
	})

	t.Run("failed check plans update", func(t *testing.T) {
		in := nodeInput(root, items...)
		in.CheckUpdates = true
		in.UpdateChecker = &fakeChecker{err: errors.New("network down")}

		plan, err := Build(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 2, plan.Count(ActionUpdate))
	})

	t.Run("checks disabled", func(t *testing.T) {
		checker := &fakeChecker{changed: map[string]bool{"stale": true}}
		in := nodeInput(root, items...)
		in.UpdateChecker = checker

		plan, err := Build(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 2, plan.Count(ActionSkip))
		assert.Zero(t, checker.calls)
	})
}

func TestBuild_Idempotence(t *testing.T) {
	root := t.TempDir()
	in := nodeInput(root,
		node("a", "https://x/a.git", true, false),
		node("b", "https://x/b.git", true, false),
		node("c", "https://x/c.git", false, false),
	)
	in.CheckUpdates = true
	in.UpdateChecker = &fakeChecker{}

	first, err := Build(context.Background(), in)
	require.NoError(t, err)
	for _, a := range first.Actions {
		if a.Type == ActionInstall {
			mkdir(t, a.Path)
		}
	}

	second, err := Build(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, second.HasWork())
	assert.Equal(t, 3, second.Count(ActionSkip))
}

func TestBuild_NoSource(t *testing.T) {
	root := t.TempDir()
	item := node("empty", "", true, false)
	plan, err := Build(context.Background(), nodeInput(root, item))
	require.NoError(t, err)
	assert.Equal(t, ActionSkip, plan.Actions[0].Type)
	assert.Equal(t, ReasonNoSource, plan.Actions[0].Reason)
	assert.Nil(t, plan.Actions[0].Err)
}

func TestBuild_RejectsUnsafeItems(t *testing.T) {
	root := t.TempDir()
	models := filepath.Join(root, "models")
	mkdir(t, models, "loras")

	badName := node("bad", "https://github.com/", true, false)
	traversal := model("trav", "loras/../../etc", "passwd.safetensors")
	disallowed := model("sys", "system", "x.safetensors")
	good := model("ok", "loras", "style.safetensors")

	t.Run("node without derivable name", func(t *testing.T) {
		plan, err := Build(context.Background(), nodeInput(root, badName))
		require.NoError(t, err)
		a := plan.Actions[0]
		assert.Equal(t, ReasonUnsafePath, a.Reason)
		assert.ErrorIs(t, a.Err, pathguard.ErrUnsafePath)
		assert.Empty(t, a.Path)
	})

	t.Run("models", func(t *testing.T) {
		in := Input{
			Kind:      catalog.KindModel,
			Root:      models,
			Items:     []catalog.ManagedItem{traversal, disallowed, good},
			Probe:     fsops.NewRealFS(),
			Allowlist: pathguard.NewAllowlist("loras"),
		}
		plan, err := Build(context.Background(), in)
		require.NoError(t, err)
		require.Len(t, plan.Actions, 3)

		assert.ErrorIs(t, plan.Actions[0].Err, pathguard.ErrUnsafePath)
		assert.ErrorIs(t, plan.Actions[1].Err, pathguard.ErrDisallowedFolder)
		assert.Equal(t, ActionInstall, plan.Actions[2].Type)
		assert.Len(t, plan.Rejections(), 2)
	})
}

func TestBuild_InstallFromBackup(t *testing.T) {
	root := t.TempDir()
	models := filepath.Join(root, "models")
	backup := filepath.Join(root, "backup")
	mkdir(t, models, "vae")
	writeFile(t, 10, backup, "vae", "wan_vae.safetensors")

	in := Input{
		Kind:      catalog.KindModel,
		Root:      models,
		Items:     []catalog.ManagedItem{model("vae", "vae", "wan_vae.safetensors"), model("clip", "vae", "other.safetensors")},
		Probe:     fsops.NewRealFS(),
		Allowlist: pathguard.NewAllowlist("vae"),
		Backup:    fakeBackup{root: backup},
	}
	plan, err := Build(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(backup, "vae", "wan_vae.safetensors"), plan.Actions[0].BackupPath)
	assert.Empty(t, plan.Actions[1].BackupPath)
}

func TestBuild_RootMissing(t *testing.T) {
	in := nodeInput(filepath.Join(t.TempDir(), "custom_nodes"), node("a", "https://x/a.git", true, false))
	_, err := Build(context.Background(), in)
	require.ErrorIs(t, err, ErrRootMissing)
}

func TestBuild_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, nodeInput(t.TempDir(), node("a", "https://x/a.git", true, false)))
	require.ErrorIs(t, err, context.Canceled)
}
