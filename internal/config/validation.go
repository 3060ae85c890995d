package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidConfig is wrapped when validation finds errors.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate checks the configuration and returns all findings.
func (c Config) Validate() []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateSync()...)
	results = append(results, c.validateModels()...)
	results = append(results, c.validateBackups()...)
	results = append(results, c.validateLog()...)
	return results
}

// Err returns the error-level findings as one error, or nil.
func (c Config) Err() error {
	var msgs []string
	for _, r := range c.Validate() {
		if r.Level == "error" {
			msgs = append(msgs, r.Message)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func errorf(format string, args ...any) ValidationResult {
	return ValidationResult{Level: "error", Message: fmt.Sprintf(format, args...)}
}

func warnf(format string, args ...any) ValidationResult {
	return ValidationResult{Level: "warning", Message: fmt.Sprintf(format, args...)}
}

func (c Config) validateSync() []ValidationResult {
	var results []ValidationResult
	if c.Sync.Workers < 1 {
		results = append(results, errorf("sync.workers must be at least 1, got %d", c.Sync.Workers))
	}
	if c.Sync.ItemTimeout < 0 {
		results = append(results, errorf("sync.item_timeout must not be negative"))
	}
	if c.Download.HeaderTimeout < 0 {
		results = append(results, errorf("download.header_timeout must not be negative"))
	}
	if c.Download.InsecureSkipVerify {
		results = append(results, warnf("download.insecure_skip_verify is enabled"))
	}
	return results
}

func (c Config) validateModels() []ValidationResult {
	var results []ValidationResult
	for _, f := range c.Models.AllowedFolders {
		if strings.Contains(f, "..") || strings.HasPrefix(f, "/") || strings.HasPrefix(f, `\`) {
			results = append(results, errorf("models.allowed_folders entry %q is not a plain relative folder", f))
		}
	}
	for _, ext := range c.Models.Extensions {
		if !strings.HasPrefix(ext, ".") {
			results = append(results, warnf("models.extensions entry %q does not start with a dot", ext))
		}
	}
	return results
}

func (c Config) validateBackups() []ValidationResult {
	var results []ValidationResult
	check := func(key, backup, root string) {
		if backup == "" || root == "" {
			return
		}
		if within(backup, root) {
			results = append(results, errorf("%s %q must not be inside %q", key, backup, root))
		}
	}
	check("backup.models", c.Backup.Models, c.ModelsRoot())
	check("backup.custom_nodes", c.Backup.CustomNodes, c.NodesRoot())
	return results
}

func (c Config) validateLog() []ValidationResult {
	var results []ValidationResult
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		results = append(results, errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		results = append(results, errorf("log.format %q is not console or json", c.Log.Format))
	}
	return results
}

// within reports whether path equals root or lies below it (lexically).
func within(path, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
