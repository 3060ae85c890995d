package pathguard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrDisallowedFolder is returned by Allowlist.Check for folders outside policy.
var ErrDisallowedFolder = errors.New("folder not allowed")

// DefaultModelFolders lists the model subdirectories managed by default.
var DefaultModelFolders = []string{
	"checkpoints",
	"clip_vision",
	"controlnet",
	"diffusion_models",
	"diffusion_models/wan",
	"loras",
	"loras/wan",
	"text_encoders",
	"upscale_models",
	"vae",
	"LLM",
}

// Allowlist is a fixed set of permitted folder names. Matching is case
// sensitive and purely lexical; it does not defend against traversal.
type Allowlist struct {
	folders map[string]struct{}
}

// NewAllowlist builds an Allowlist from folder names. Empty names and
// surrounding slashes are dropped.
func NewAllowlist(folders ...string) *Allowlist {
	a := &Allowlist{folders: make(map[string]struct{}, len(folders))}
	for _, f := range folders {
		f = strings.Trim(strings.TrimSpace(f), "/")
		if f == "" {
			continue
		}
		a.folders[f] = struct{}{}
	}
	return a
}

// Allows reports whether relPath equals a permitted folder or lies below one.
func (a *Allowlist) Allows(relPath string) bool {
	if a == nil || relPath == "" {
		return false
	}
	if _, ok := a.folders[relPath]; ok {
		return true
	}
	for f := range a.folders {
		if strings.HasPrefix(relPath, f+"/") {
			return true
		}
	}
	return false
}

// Check is Allows in error form.
func (a *Allowlist) Check(relPath string) error {
	if a.Allows(relPath) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrDisallowedFolder, relPath)
}

// Folders returns the permitted names in sorted order.
func (a *Allowlist) Folders() []string {
	if a == nil {
		return nil
	}
	out := make([]string, 0, len(a.folders))
	for f := range a.folders {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
