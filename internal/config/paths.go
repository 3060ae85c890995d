package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName is the directory name used under the XDG base directories.
const AppName = "comfydepot"

// EnvConfig overrides the config file location.
const EnvConfig = "COMFYDEPOT_CONFIG"

// Paths contains the filesystem locations comfydepot owns.
type Paths struct {
	// Config is the YAML config file
	Config string

	// ConfigDir holds the config file and the default catalogs
	ConfigDir string

	// StateDir holds lock files and other run state
	StateDir string

	// LockDir holds per-root sync lock files
	LockDir string
}

// DefaultPaths resolves the paths. The config file is, in order, override
// (the --config flag), $COMFYDEPOT_CONFIG, an existing config.yaml in the
// XDG config search path, or $XDG_CONFIG_HOME/comfydepot/config.yaml.
func DefaultPaths(override string) (*Paths, error) {
	cfgFile := override
	if cfgFile == "" {
		cfgFile = os.Getenv(EnvConfig)
	}
	if cfgFile == "" {
		rel := filepath.Join(AppName, "config.yaml")
		if found, err := xdg.SearchConfigFile(rel); err == nil {
			cfgFile = found
		} else {
			cfgFile = filepath.Join(xdg.ConfigHome, rel)
		}
	}
	cfgFile = ExpandHome(cfgFile)

	abs, err := filepath.Abs(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	state := filepath.Join(xdg.StateHome, AppName)
	return &Paths{
		Config:    abs,
		ConfigDir: filepath.Dir(abs),
		StateDir:  state,
		LockDir:   filepath.Join(state, "locks"),
	}, nil
}

// EnsureDirectories creates the state directories.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.StateDir, p.LockDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// NodesCatalog returns the custom node list location.
func (p *Paths) NodesCatalog(cfg Config) string {
	if cfg.Catalog.Nodes != "" {
		return cfg.Catalog.Nodes
	}
	return filepath.Join(p.ConfigDir, "custom_nodes.json")
}

// ModelsCatalog returns the workflow model manifest location.
func (p *Paths) ModelsCatalog(cfg Config) string {
	if cfg.Catalog.Models != "" {
		return cfg.Catalog.Models
	}
	return filepath.Join(p.ConfigDir, "workflow_models.json")
}
