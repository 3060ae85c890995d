//go:build integration
// +build integration

package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/danieljhkim/comfydepot/internal/backup"
	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/clock"
	"github.com/danieljhkim/comfydepot/internal/engine"
	"github.com/danieljhkim/comfydepot/internal/fsops"
	"github.com/danieljhkim/comfydepot/internal/gitx"
	"github.com/danieljhkim/comfydepot/internal/hash"
	"github.com/danieljhkim/comfydepot/internal/lease"
	"github.com/danieljhkim/comfydepot/internal/metrics"
	"github.com/danieljhkim/comfydepot/internal/remote"
)

// workspace is a ComfyUI tree, backup roots and catalogs in a temp dir, with
// an HTTP server standing in for the model host.
type workspace struct {
	t *testing.T

	nodesRoot   string
	modelsRoot  string
	nodeBackup  string
	modelBackup string
	lockDir     string

	nodes  *catalog.NodeFile
	models *catalog.ModelFile

	server  *httptest.Server
	mu      sync.Mutex
	files   map[string][]byte
	metrics *metrics.Recorder
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()

	// resolved so paths compare equal to what pathguard returns
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	w := &workspace{
		t:           t,
		nodesRoot:   filepath.Join(dir, "ComfyUI", "custom_nodes"),
		modelsRoot:  filepath.Join(dir, "ComfyUI", "models"),
		nodeBackup:  filepath.Join(dir, "backup", "custom_nodes"),
		modelBackup: filepath.Join(dir, "backup", "models"),
		lockDir:     filepath.Join(dir, "state", "locks"),
		files:       map[string][]byte{},
		metrics:     metrics.New(),
	}
	for _, d := range []string{w.nodesRoot, w.modelsRoot, w.lockDir} {
		require.NoError(t, os.MkdirAll(d, 0755))
	}

	fs := fsops.NewRealFS()
	w.nodes = catalog.NewNodeFile(fs, filepath.Join(dir, "config", "custom_nodes.json"))
	w.models = catalog.NewModelFile(fs, filepath.Join(dir, "config", "workflow_models.json"))

	w.server = httptest.NewServer(http.HandlerFunc(w.serve))
	t.Cleanup(w.server.Close)
	return w
}

func (w *workspace) serve(rw http.ResponseWriter, r *http.Request) {
	w.mu.Lock()
	data, ok := w.files[r.URL.Path]
	w.mu.Unlock()
	if !ok {
		http.NotFound(rw, r)
		return
	}
	_, _ = rw.Write(data)
}

// host publishes content at path and returns its URL.
func (w *workspace) host(path, content string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[path] = []byte(content)
	return w.server.URL + path
}

func (w *workspace) unhost(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.files, path)
}

// engine wires the real implementations the CLI uses.
func (w *workspace) engine() *engine.Engine {
	w.t.Helper()

	nb, err := backup.NewDirStore(w.nodeBackup)
	require.NoError(w.t, err)
	mb, err := backup.NewDirStore(w.modelBackup)
	require.NoError(w.t, err)

	clk := &clock.RealClock{}
	dl := remote.NewHTTPDownloader(remote.HTTPOptions{
		HeaderTimeout: 10 * time.Second,
		OnBytes:       w.metrics.AddDownloadBytes,
	})
	client := remote.NewClient(gitx.NewRealGitRepo(gitx.Options{}), dl)

	return engine.New(engine.Options{
		Nodes:        w.nodes,
		Models:       w.models,
		FS:           fsops.NewRealFS(),
		Fetcher:      client,
		Updates:      client,
		Hook:         remote.NopHook{},
		NodeBackup:   nb,
		ModelBackup:  mb,
		Leases:       lease.NewManager(w.lockDir, clk),
		Hasher:       hash.NewSHA256Hasher(),
		Clock:        clk,
		Metrics:      w.metrics,
		Logger:       zaptest.NewLogger(w.t),
		NodesRoot:    w.nodesRoot,
		ModelsRoot:   w.modelsRoot,
		Workers:      2,
		ItemTimeout:  time.Minute,
		CheckUpdates: true,
	})
}

func (w *workspace) saveNodes(entries ...catalog.NodeEntry) {
	w.t.Helper()
	doc := catalog.NewNodeDocument()
	doc.Nodes = entries
	require.NoError(w.t, w.nodes.Save(context.Background(), doc))
}

func (w *workspace) saveModels(doc *catalog.ModelDocument) {
	w.t.Helper()
	require.NoError(w.t, w.models.Save(context.Background(), doc))
}

// upstream is a local git repository a node can be cloned from.
type upstream struct {
	t    *testing.T
	dir  string
	repo *git.Repository
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "ComfyUI-Example")
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	u := &upstream{t: t, dir: dir, repo: repo}
	u.commit("__init__.py", "NODE_CLASS_MAPPINGS = {}\n")
	return u
}

func (u *upstream) commit(name, content string) {
	u.t.Helper()
	require.NoError(u.t, os.WriteFile(filepath.Join(u.dir, name), []byte(content), 0644))
	wt, err := u.repo.Worktree()
	require.NoError(u.t, err)
	_, err = wt.Add(name)
	require.NoError(u.t, err)
	_, err = wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(u.t, err)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
