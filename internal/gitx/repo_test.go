package gitx

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupGitRepo creates a repository with one commit and returns it with its directory.
func setupGitRepo(t *testing.T) (*git.Repository, string) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	commitFile(t, repo, dir, "__init__.py", "NODE_CLASS_MAPPINGS = {}\n")
	return repo, dir
}

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) plumbing.Hash {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	hash, err := wt.Commit("update "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash
}

func setUpstream(t *testing.T, repo *git.Repository, hash plumbing.Hash) {
	t.Helper()

	head, err := repo.Head()
	require.NoError(t, err)
	ref := plumbing.NewHashReference(plumbing.NewRemoteReferenceName(DefaultRemoteName, head.Name().Short()), hash)
	require.NoError(t, repo.Storer.SetReference(ref))
}

func TestBehindUpstream(t *testing.T) {
	repo, dir := setupGitRepo(t)
	head, err := repo.Head()
	require.NoError(t, err)
	first := head.Hash()

	setUpstream(t, repo, first)
	behind, err := behindUpstream(repo, DefaultRemoteName)
	require.NoError(t, err)
	assert.False(t, behind)

	second := commitFile(t, repo, dir, "nodes.py", "x = 1\n")
	setUpstream(t, repo, second)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Reset(&git.ResetOptions{Commit: first, Mode: git.HardReset}))

	behind, err = behindUpstream(repo, DefaultRemoteName)
	require.NoError(t, err)
	assert.True(t, behind)
}

func TestBehindUpstream_Errors(t *testing.T) {
	t.Run("no upstream ref", func(t *testing.T) {
		repo, _ := setupGitRepo(t)
		_, err := behindUpstream(repo, DefaultRemoteName)
		require.Error(t, err)
	})

	t.Run("detached head", func(t *testing.T) {
		repo, _ := setupGitRepo(t)
		head, err := repo.Head()
		require.NoError(t, err)
		require.NoError(t, repo.Storer.SetReference(plumbing.NewHashReference(plumbing.HEAD, head.Hash())))

		_, err = behindUpstream(repo, DefaultRemoteName)
		require.ErrorIs(t, err, ErrDetachedHead)
	})
}

func TestRealGitRepo_NotRepository(t *testing.T) {
	g := NewRealGitRepo(Options{})
	dir := t.TempDir()

	_, err := g.Pull(context.Background(), dir)
	require.ErrorIs(t, err, ErrNotRepository)

	_, err = g.HasUpdate(context.Background(), dir)
	require.ErrorIs(t, err, ErrNotRepository)
}

func TestRealGitRepo_CloneFailure(t *testing.T) {
	g := NewRealGitRepo(Options{})
	dest := filepath.Join(t.TempDir(), "ComfyUI-Missing")

	err := g.Clone(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"), dest)
	require.Error(t, err)
}

func TestRealGitRepo_CloneCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewRealGitRepo(Options{})
	err := g.Clone(ctx, "https://github.com/ltdrdata/ComfyUI-Manager.git", filepath.Join(t.TempDir(), "m"))
	require.Error(t, err)
}

// TestRealGitRepo_CloneAndPull uses the local file transport, which runs git-upload-pack.
func TestRealGitRepo_CloneAndPull(t *testing.T) {
	if _, err := exec.LookPath("git-upload-pack"); err != nil {
		if _, err := exec.LookPath("git"); err != nil {
			t.Skip("git not installed")
		}
	}

	ctx := context.Background()
	upstream, upstreamDir := setupGitRepo(t)
	dest := filepath.Join(t.TempDir(), "ComfyUI-Example")
	g := NewRealGitRepo(Options{})

	if err := g.Clone(ctx, upstreamDir, dest); err != nil {
		t.Skipf("local clone unavailable: %v", err)
	}
	_, err := os.Stat(filepath.Join(dest, "__init__.py"))
	require.NoError(t, err)

	changed, err := g.HasUpdate(ctx, dest)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = g.Pull(ctx, dest)
	require.NoError(t, err)
	assert.False(t, changed)

	commitFile(t, upstream, upstreamDir, "nodes.py", "x = 2\n")

	changed, err = g.HasUpdate(ctx, dest)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = g.Pull(ctx, dest)
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(filepath.Join(dest, "nodes.py"))
	require.NoError(t, err)
	assert.Equal(t, "x = 2\n", string(data))
}

func TestFakeGitRepo(t *testing.T) {
	ctx := context.Background()
	g := NewFakeGitRepo()
	g.SetChanged("/nodes/a", true)
	g.SetError("https://x/bad.git", assert.AnError)

	require.NoError(t, g.Clone(ctx, "https://x/a.git", "/nodes/a"))
	require.ErrorIs(t, g.Clone(ctx, "https://x/bad.git", "/nodes/bad"), assert.AnError)

	changed, err := g.Pull(ctx, "/nodes/a")
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, []string{"https://x/a.git", "https://x/bad.git"}, g.Clones())
	assert.Equal(t, []string{"/nodes/a"}, g.Pulls())
}
