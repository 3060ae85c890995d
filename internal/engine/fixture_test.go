package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/comfydepot/internal/backup"
	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/fsops"
	"github.com/danieljhkim/comfydepot/internal/remote"
)

// fakeRepos creates checkouts as plain directories.
type fakeRepos struct {
	mu       sync.Mutex
	cloneErr map[string]error
	changed  map[string]bool
	pulled   map[string]bool
	clones   []string
	pulls    []string
}

func newFakeRepos() *fakeRepos {
	return &fakeRepos{cloneErr: map[string]error{}, changed: map[string]bool{}, pulled: map[string]bool{}}
}

func (r *fakeRepos) Clone(_ context.Context, url, dest string) error {
	r.mu.Lock()
	r.clones = append(r.clones, url)
	err := r.cloneErr[url]
	r.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(dest, ".git"), 0755); err != nil {
		return err
	}
	return err
}

func (r *fakeRepos) Pull(_ context.Context, dir string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pulls = append(r.pulls, dir)
	return r.pulled[dir], nil
}

func (r *fakeRepos) HasUpdate(_ context.Context, dir string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changed[dir], nil
}

func (r *fakeRepos) cloneCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clones)
}

// fakeDownloader writes a .part file first, like the HTTP downloader.
type fakeDownloader struct {
	mu    sync.Mutex
	fail  map[string]error
	block map[string]bool
	calls []string
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{fail: map[string]error{}, block: map[string]bool{}}
}

func (d *fakeDownloader) Download(ctx context.Context, url, dest string, onProgress remote.ProgressFunc) error {
	d.mu.Lock()
	d.calls = append(d.calls, url)
	failErr, blocked := d.fail[url], d.block[url]
	d.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	part := dest + remote.PartSuffix
	if err := os.WriteFile(part, []byte("partial"), 0644); err != nil {
		return err
	}
	if blocked {
		<-ctx.Done()
		return ctx.Err()
	}
	if failErr != nil {
		return failErr
	}

	body := []byte("weights:" + url)
	if err := os.WriteFile(part, body, 0644); err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(int64(len(body)), int64(len(body)))
	}
	return os.Rename(part, dest)
}

func (d *fakeDownloader) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

// countingHook counts requirement installs.
type countingHook struct {
	mu   sync.Mutex
	dirs []string
	err  error
}

func (h *countingHook) AfterCheckout(_ context.Context, dir string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dirs = append(h.dirs, dir)
	return h.err
}

func (h *countingHook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.dirs)
}

type fixture struct {
	t *testing.T

	nodesRoot   string
	modelsRoot  string
	nodeBackup  string
	modelBackup string

	repos *fakeRepos
	dl    *fakeDownloader
	hook  *countingHook

	nodes  *catalog.NodeFile
	models *catalog.ModelFile
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		t:           t,
		nodesRoot:   filepath.Join(dir, "ComfyUI", "custom_nodes"),
		modelsRoot:  filepath.Join(dir, "ComfyUI", "models"),
		nodeBackup:  filepath.Join(dir, "backup", "custom_nodes"),
		modelBackup: filepath.Join(dir, "backup", "models"),
		repos:       newFakeRepos(),
		dl:          newFakeDownloader(),
		hook:        &countingHook{},
	}
	require.NoError(t, os.MkdirAll(f.nodesRoot, 0755))
	require.NoError(t, os.MkdirAll(f.modelsRoot, 0755))

	fs := fsops.NewRealFS()
	f.nodes = catalog.NewNodeFile(fs, filepath.Join(dir, "config", "custom_nodes.json"))
	f.models = catalog.NewModelFile(fs, filepath.Join(dir, "config", "workflow_models.json"))
	return f
}

func (f *fixture) saveNodes(entries ...catalog.NodeEntry) {
	f.t.Helper()
	doc := catalog.NewNodeDocument()
	doc.Nodes = entries
	require.NoError(f.t, f.nodes.Save(context.Background(), doc))
}

func (f *fixture) saveModels(doc *catalog.ModelDocument) {
	f.t.Helper()
	require.NoError(f.t, f.models.Save(context.Background(), doc))
}

// engine builds an Engine; mod may adjust options before construction.
func (f *fixture) engine(mod func(*Options)) *Engine {
	f.t.Helper()
	client := remote.NewClient(f.repos, f.dl)
	opts := Options{
		Nodes:      f.nodes,
		Models:     f.models,
		FS:         fsops.NewRealFS(),
		Fetcher:    client,
		Updates:    client,
		Hook:       f.hook,
		NodesRoot:  f.nodesRoot,
		ModelsRoot: f.modelsRoot,
		Workers:    2,
	}
	if mod != nil {
		mod(&opts)
	}
	return New(opts)
}

func (f *fixture) withBackups(o *Options) {
	f.t.Helper()
	nb, err := backup.NewDirStore(f.nodeBackup)
	require.NoError(f.t, err)
	mb, err := backup.NewDirStore(f.modelBackup)
	require.NoError(f.t, err)
	o.NodeBackup = nb
	o.ModelBackup = mb
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

func node(id, url string) catalog.NodeEntry {
	return catalog.NodeEntry{ID: id, Name: id, URL: url, Enabled: true}
}

// wanModels declares three models in small tier plus one from another workflow.
func wanModels() *catalog.ModelDocument {
	doc := catalog.NewModelDocument()
	doc.Workflows = map[string]catalog.Workflow{
		"wan": {
			Name:     "Wan",
			Category: "video",
			ModelSets: map[string]catalog.ModelSet{
				"small": {Name: "Q4", VRAMGB: 12, Models: []string{"a-unet", "b-vae", "c-lora"}},
			},
		},
		"flux": {
			Name:     "Flux",
			Category: "image",
			ModelSets: map[string]catalog.ModelSet{
				"medium": {Name: "fp8", VRAMGB: 16, Models: []string{"flux"}},
			},
		},
	}
	doc.Models = map[string]catalog.ModelEntry{
		"a-unet": {Name: "A", Filename: "a.gguf", URL: "https://hf.example/a.gguf", TargetPath: "diffusion_models"},
		"b-vae":  {Name: "B", Filename: "b.safetensors", URL: "https://hf.example/b.safetensors", TargetPath: "vae"},
		"c-lora": {Name: "C", Filename: "c.safetensors", URL: "https://hf.example/c.safetensors", TargetPath: "loras"},
		"flux":   {Name: "Flux", Filename: "flux.safetensors", URL: "https://hf.example/flux.safetensors", TargetPath: "diffusion_models"},
	}
	return doc
}
