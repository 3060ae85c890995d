package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrComfyUINotFound is returned when no installation can be located.
var ErrComfyUINotFound = errors.New("ComfyUI installation not found")

// Candidates lists where ComfyUI is commonly installed, in lookup order.
func Candidates() []string {
	candidates := []string{"/workspace/ComfyUI", "/content/ComfyUI"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "ComfyUI"))
	}
	return candidates
}

// DetectComfyUI returns the first candidate that contains main.py.
func DetectComfyUI(candidates []string) (string, error) {
	for _, dir := range candidates {
		info, err := os.Stat(filepath.Join(dir, "main.py"))
		if err == nil && info.Mode().IsRegular() {
			return dir, nil
		}
	}
	return "", ErrComfyUINotFound
}

// ResolveRoots fills ComfyUIPath by detection when neither it nor both
// explicit roots are configured.
func (c *Config) ResolveRoots(candidates []string) error {
	if c.ComfyUIPath != "" || (c.CustomNodesDir != "" && c.ModelsDir != "") {
		return nil
	}
	dir, err := DetectComfyUI(candidates)
	if err != nil {
		return err
	}
	c.ComfyUIPath = dir
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
