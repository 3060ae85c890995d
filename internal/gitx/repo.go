// Package gitx clones and updates plugin checkouts with go-git.
package gitx

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// DefaultRemoteName is the remote every checkout tracks.
const DefaultRemoteName = "origin"

var (
	// ErrNotRepository indicates the directory is not a git checkout.
	ErrNotRepository = errors.New("not a git repository")

	// ErrNotFastForward indicates local commits diverge from the remote.
	ErrNotFastForward = errors.New("update is not a fast-forward")

	// ErrDetachedHead indicates the checkout is not on a branch.
	ErrDetachedHead = errors.New("checkout is not on a branch")
)

// GitRepo provides an abstraction for plugin checkout operations.
type GitRepo interface {
	// Clone checks url out into dest, which must not exist.
	Clone(ctx context.Context, url, dest string) error

	// Pull fast-forwards the checkout at dir and reports whether HEAD moved.
	Pull(ctx context.Context, dir string) (bool, error)

	// HasUpdate fetches and reports whether the upstream branch is ahead of HEAD.
	HasUpdate(ctx context.Context, dir string) (bool, error)
}

// Options configures RealGitRepo.
type Options struct {
	// RemoteName defaults to DefaultRemoteName
	RemoteName string

	// InsecureSkipTLS disables certificate verification for https remotes
	InsecureSkipTLS bool
}

// RealGitRepo implements GitRepo using go-git.
type RealGitRepo struct {
	remote   string
	insecure bool
}

// NewRealGitRepo creates a new RealGitRepo.
func NewRealGitRepo(opts Options) *RealGitRepo {
	remote := opts.RemoteName
	if remote == "" {
		remote = DefaultRemoteName
	}
	return &RealGitRepo{remote: remote, insecure: opts.InsecureSkipTLS}
}

// Clone checks url out into dest.
func (g *RealGitRepo) Clone(ctx context.Context, url, dest string) error {
	_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:             url,
		RemoteName:      g.remote,
		InsecureSkipTLS: g.insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to clone %s: %w", url, err)
	}
	return nil
}

// Pull fast-forwards the checkout at dir.
func (g *RealGitRepo) Pull(ctx context.Context, dir string) (bool, error) {
	repo, err := open(dir)
	if err != nil {
		return false, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}
	before, err := repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:      g.remote,
		InsecureSkipTLS: g.insecure,
	})
	switch {
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		return false, nil
	case errors.Is(err, git.ErrNonFastForwardUpdate):
		return false, fmt.Errorf("%s: %w", dir, ErrNotFastForward)
	case err != nil:
		return false, fmt.Errorf("failed to pull %s: %w", dir, err)
	}

	after, err := repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return before.Hash() != after.Hash(), nil
}

// HasUpdate fetches the remote and compares HEAD with its upstream branch.
func (g *RealGitRepo) HasUpdate(ctx context.Context, dir string) (bool, error) {
	repo, err := open(dir)
	if err != nil {
		return false, err
	}

	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName:      g.remote,
		InsecureSkipTLS: g.insecure,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return false, fmt.Errorf("failed to fetch %s: %w", dir, err)
	}
	return behindUpstream(repo, g.remote)
}

func open(dir string) (*git.Repository, error) {
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotRepository)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dir, err)
	}
	return repo, nil
}

// behindUpstream compares HEAD with refs/remotes/<remote>/<branch>.
func behindUpstream(repo *git.Repository, remote string) (bool, error) {
	head, err := repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return false, ErrDetachedHead
	}

	upstream, err := repo.Reference(plumbing.NewRemoteReferenceName(remote, head.Name().Short()), true)
	if err != nil {
		return false, fmt.Errorf("failed to resolve upstream of %s: %w", head.Name().Short(), err)
	}
	return upstream.Hash() != head.Hash(), nil
}

// FakeGitRepo implements GitRepo with predetermined results for testing.
type FakeGitRepo struct {
	mu      sync.Mutex
	changed map[string]bool
	errs    map[string]error
	clones  []string
	pulls   []string
}

// NewFakeGitRepo creates a new FakeGitRepo.
func NewFakeGitRepo() *FakeGitRepo {
	return &FakeGitRepo{changed: map[string]bool{}, errs: map[string]error{}}
}

// SetChanged makes Pull and HasUpdate report a change for dir.
func (g *FakeGitRepo) SetChanged(dir string, changed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.changed[dir] = changed
}

// SetError makes every operation on key (a url or dir) fail.
func (g *FakeGitRepo) SetError(key string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs[key] = err
}

// Clones returns the urls cloned so far.
func (g *FakeGitRepo) Clones() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.clones...)
}

// Pulls returns the dirs pulled so far.
func (g *FakeGitRepo) Pulls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.pulls...)
}

// Clone records the clone; it does not touch dest.
func (g *FakeGitRepo) Clone(_ context.Context, url, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clones = append(g.clones, url)
	return g.errs[url]
}

// Pull returns the predetermined change flag for dir.
func (g *FakeGitRepo) Pull(_ context.Context, dir string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pulls = append(g.pulls, dir)
	if err := g.errs[dir]; err != nil {
		return false, err
	}
	return g.changed[dir], nil
}

// HasUpdate returns the predetermined change flag for dir.
func (g *FakeGitRepo) HasUpdate(_ context.Context, dir string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.errs[dir]; err != nil {
		return false, err
	}
	return g.changed[dir], nil
}
