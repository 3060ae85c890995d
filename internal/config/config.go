// Package config loads comfydepot settings.
//
// Settings live in a YAML file (see Paths for where it is looked up). A
// missing file yields defaults. Roots that are not configured are derived
// from the ComfyUI installation, which is auto-detected when unset.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/danieljhkim/comfydepot/internal/pathguard"
	"github.com/danieljhkim/comfydepot/internal/planner"
	"gopkg.in/yaml.v3"
)

// Config is the full comfydepot configuration.
type Config struct {
	ComfyUIPath    string         `yaml:"comfyui_path"`
	CustomNodesDir string         `yaml:"custom_nodes_dir"`
	ModelsDir      string         `yaml:"models_dir"`
	WorkflowsDir   string         `yaml:"workflows_dir"`
	Backup         BackupConfig   `yaml:"backup"`
	Catalog        CatalogConfig  `yaml:"catalog"`
	Models         ModelsConfig   `yaml:"models"`
	Sync           SyncConfig     `yaml:"sync"`
	Download       DownloadConfig `yaml:"download"`
	Log            LogConfig      `yaml:"log"`
	Metrics        MetricsConfig  `yaml:"metrics"`
}

// BackupConfig names the backup roots. Empty disables backups for that kind.
type BackupConfig struct {
	Models      string `yaml:"models"`
	CustomNodes string `yaml:"custom_nodes"`
}

// CatalogConfig locates the catalog JSON files.
type CatalogConfig struct {
	Nodes  string `yaml:"nodes"`
	Models string `yaml:"models"`
}

// ModelsConfig restricts where model files may go.
type ModelsConfig struct {
	AllowedFolders []string `yaml:"allowed_folders"`
	Extensions     []string `yaml:"extensions"`
}

// SyncConfig tunes sync runs.
type SyncConfig struct {
	Workers             int           `yaml:"workers"`
	ItemTimeout         time.Duration `yaml:"item_timeout"`
	RemoveDisabled      bool          `yaml:"remove_disabled"`
	CheckUpdates        *bool         `yaml:"check_updates,omitempty"`
	InstallRequirements *bool         `yaml:"install_requirements,omitempty"`
	Python              string        `yaml:"python"`
}

// CheckUpdatesValue returns the effective check_updates flag.
func (s SyncConfig) CheckUpdatesValue() bool {
	return s.CheckUpdates == nil || *s.CheckUpdates
}

// InstallRequirementsValue returns the effective install_requirements flag.
func (s SyncConfig) InstallRequirementsValue() bool {
	return s.InstallRequirements == nil || *s.InstallRequirements
}

// DownloadConfig configures the HTTP downloader.
type DownloadConfig struct {
	UserAgent          string        `yaml:"user_agent"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	HeaderTimeout      time.Duration `yaml:"header_timeout"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the textfile exporter.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Models: ModelsConfig{
			AllowedFolders: append([]string(nil), pathguard.DefaultModelFolders...),
			Extensions:     append([]string(nil), planner.DefaultModelExtensions...),
		},
		Sync: SyncConfig{
			Workers:     2,
			ItemTimeout: 30 * time.Minute,
			Python:      "python3",
		},
		Download: DownloadConfig{
			HeaderTimeout: time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Save writes the configuration as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyDefaults fills fields the YAML left empty and expands "~".
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if len(c.Models.AllowedFolders) == 0 {
		c.Models.AllowedFolders = defaults.Models.AllowedFolders
	}
	if len(c.Models.Extensions) == 0 {
		c.Models.Extensions = defaults.Models.Extensions
	}
	if c.Sync.Workers == 0 {
		c.Sync.Workers = defaults.Sync.Workers
	}
	if c.Sync.ItemTimeout == 0 {
		c.Sync.ItemTimeout = defaults.Sync.ItemTimeout
	}
	if c.Sync.Python == "" {
		c.Sync.Python = defaults.Sync.Python
	}
	if c.Download.HeaderTimeout == 0 {
		c.Download.HeaderTimeout = defaults.Download.HeaderTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}

	for _, p := range []*string{
		&c.ComfyUIPath, &c.CustomNodesDir, &c.ModelsDir, &c.WorkflowsDir,
		&c.Backup.Models, &c.Backup.CustomNodes,
		&c.Catalog.Nodes, &c.Catalog.Models,
		&c.Metrics.Textfile,
	} {
		*p = ExpandHome(*p)
	}
}

// NodesRoot is the custom nodes directory.
func (c Config) NodesRoot() string {
	if c.CustomNodesDir != "" {
		return c.CustomNodesDir
	}
	if c.ComfyUIPath == "" {
		return ""
	}
	return filepath.Join(c.ComfyUIPath, "custom_nodes")
}

// ModelsRoot is the models directory.
func (c Config) ModelsRoot() string {
	if c.ModelsDir != "" {
		return c.ModelsDir
	}
	if c.ComfyUIPath == "" {
		return ""
	}
	return filepath.Join(c.ComfyUIPath, "models")
}

// WorkflowsRoot is where imported workflow files are installed.
func (c Config) WorkflowsRoot() string {
	if c.WorkflowsDir != "" {
		return c.WorkflowsDir
	}
	if c.ComfyUIPath == "" {
		return ""
	}
	return filepath.Join(c.ComfyUIPath, "user", "default", "workflows")
}
