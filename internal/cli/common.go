package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/danieljhkim/comfydepot/internal/backup"
	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/clock"
	"github.com/danieljhkim/comfydepot/internal/config"
	"github.com/danieljhkim/comfydepot/internal/engine"
	"github.com/danieljhkim/comfydepot/internal/fsops"
	"github.com/danieljhkim/comfydepot/internal/gitx"
	"github.com/danieljhkim/comfydepot/internal/hash"
	"github.com/danieljhkim/comfydepot/internal/lease"
	"github.com/danieljhkim/comfydepot/internal/logging"
	"github.com/danieljhkim/comfydepot/internal/metrics"
	"github.com/danieljhkim/comfydepot/internal/pathguard"
	"github.com/danieljhkim/comfydepot/internal/remote"
)

// session is one CLI invocation's wiring.
type session struct {
	cfg     config.Config
	paths   *config.Paths
	log     *zap.Logger
	metrics *metrics.Recorder
	eng     *engine.Engine
}

// loadConfig resolves the config paths and reads the config file.
func loadConfig() (config.Config, *config.Paths, error) {
	paths, err := config.DefaultPaths(configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to get config paths: %w", err)
	}
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return config.Config{}, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if metricsTextfile != "" {
		cfg.Metrics.Textfile = metricsTextfile
	}
	return cfg, paths, nil
}

// newSession creates an engine with real implementations of all dependencies.
func newSession() (*session, error) {
	cfg, paths, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}

	for _, finding := range cfg.Validate() {
		if finding.Level != "error" {
			logger.Warn("config", zap.String("finding", finding.Message))
		}
	}
	if err := cfg.Err(); err != nil {
		return nil, err
	}

	if err := cfg.ResolveRoots(config.Candidates()); err != nil {
		logger.Debug("ComfyUI not detected", logging.Err(err))
	}

	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	// Create real implementations
	fs := fsops.NewRealFS()
	clk := &clock.RealClock{}
	rec := metrics.New()
	repo := gitx.NewRealGitRepo(gitx.Options{InsecureSkipTLS: cfg.Download.InsecureSkipVerify})
	dl := remote.NewHTTPDownloader(remote.HTTPOptions{
		UserAgent:          cfg.Download.UserAgent,
		HeaderTimeout:      cfg.Download.HeaderTimeout,
		InsecureSkipVerify: cfg.Download.InsecureSkipVerify,
		OnBytes:            rec.AddDownloadBytes,
	})
	client := remote.NewClient(repo, dl)

	var hook remote.Hook = remote.NopHook{}
	if cfg.Sync.InstallRequirementsValue() {
		hook = remote.NewPipInstaller(cfg.Sync.Python)
	}

	opts := engine.Options{
		Nodes:          catalog.NewNodeFile(fs, paths.NodesCatalog(cfg)),
		Models:         catalog.NewModelFile(fs, paths.ModelsCatalog(cfg)),
		FS:             fs,
		Fetcher:        client,
		Updates:        client,
		Hook:           hook,
		Leases:         lease.NewManager(paths.LockDir, clk),
		Hasher:         hash.NewSHA256Hasher(),
		Clock:          clk,
		Metrics:        rec,
		Logger:         logger,
		NodesRoot:      cfg.NodesRoot(),
		ModelsRoot:     cfg.ModelsRoot(),
		WorkflowsDir:   cfg.WorkflowsRoot(),
		Allowlist:      pathguard.NewAllowlist(cfg.Models.AllowedFolders...),
		Extensions:     cfg.Models.Extensions,
		Workers:        cfg.Sync.Workers,
		ItemTimeout:    cfg.Sync.ItemTimeout,
		RemoveDisabled: cfg.Sync.RemoveDisabled,
		CheckUpdates:   cfg.Sync.CheckUpdatesValue(),
	}
	if !jsonOutput {
		opts.OnProgress = newProgressPrinter().report
	}
	if cfg.Backup.CustomNodes != "" {
		store, err := backup.NewDirStore(cfg.Backup.CustomNodes)
		if err != nil {
			return nil, err
		}
		opts.NodeBackup = store
	}
	if cfg.Backup.Models != "" {
		store, err := backup.NewDirStore(cfg.Backup.Models)
		if err != nil {
			return nil, err
		}
		opts.ModelBackup = store
	}

	return &session{
		cfg:     cfg,
		paths:   paths,
		log:     logger,
		metrics: rec,
		eng:     engine.New(opts),
	}, nil
}

// requireRoot fails with a hint when the managed root of kind is unknown.
func (s *session) requireRoot(kind catalog.Kind) error {
	root := s.cfg.NodesRoot()
	if kind == catalog.KindModel {
		root = s.cfg.ModelsRoot()
	}
	if root == "" {
		return fmt.Errorf("%w: set comfyui_path in %s", config.ErrComfyUINotFound, s.paths.Config)
	}
	return nil
}

// close flushes metrics and logs.
func (s *session) close() {
	if err := s.metrics.WriteTextfile(s.cfg.Metrics.Textfile); err != nil {
		s.log.Warn("failed to write metrics textfile", logging.Path(s.cfg.Metrics.Textfile), logging.Err(err))
	}
	_ = s.log.Sync()
}

// formatJSON formats a value as JSON.
func formatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatError formats an error for display.
func FormatError(err error) string {
	initColors()
	return errorColor.Sprintf("Error: %v", err)
}

// outputJSON outputs a value as JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// promptConfirm prompts the user for a yes/no confirmation.
func promptConfirm(prompt string) bool {
	_, _ = fmt.Fprintf(stdout, "%s (y/N): ", prompt)
	reader := bufio.NewReader(stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// errItemsFailed is returned when a run finished with per-item errors.
var errItemsFailed = errors.New("some items failed")
