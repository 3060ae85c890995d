package planner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/pathguard"
)

// FindOrphans scans the managed root without planning any actions.
func FindOrphans(in Input) ([]Orphan, error) {
	exists, err := in.Probe.Exists(in.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to check managed root %s: %w", in.Root, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", in.Root, ErrRootMissing)
	}
	return findOrphans(in)
}

func findOrphans(in Input) ([]Orphan, error) {
	known := make(map[string]bool, len(in.Items))
	for _, item := range in.Items {
		if item.LocalName != "" {
			known[catalog.SlotKey(cleanRel(item.RelativePath), item.LocalName)] = true
		}
	}

	if in.Kind == catalog.KindModel {
		return modelOrphans(in, known)
	}
	return nodeOrphans(in, known)
}

func nodeOrphans(in Input, known map[string]bool) ([]Orphan, error) {
	entries, err := in.Probe.ListChildren(in.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", in.Root, err)
	}

	orphans := []Orphan{}
	for _, e := range entries {
		if !e.IsDir || strings.HasPrefix(e.Name, ".") || e.Name == "__pycache__" {
			continue
		}
		if known[e.Name] {
			continue
		}
		orphans = append(orphans, Orphan{
			Kind: catalog.KindNode,
			Name: e.Name,
			Path: filepath.Join(in.Root, e.Name),
		})
	}
	return orphans, nil
}

func modelOrphans(in Input, known map[string]bool) ([]Orphan, error) {
	exts := in.Extensions
	if len(exts) == 0 {
		exts = DefaultModelExtensions
	}

	orphans := []Orphan{}
	for _, folder := range scanFolders(in) {
		dir, err := pathguard.Resolve(in.Root, folder, "")
		if err != nil {
			continue
		}
		entries, err := in.Probe.ListChildren(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}

		for _, e := range entries {
			if e.IsDir || !hasExtension(e.Name, exts) {
				continue
			}
			if known[catalog.SlotKey(folder, e.Name)] {
				continue
			}
			p := filepath.Join(dir, e.Name)
			size, err := in.Probe.SizeOf(p)
			if err != nil {
				size = 0
			}
			orphans = append(orphans, Orphan{
				Kind:         catalog.KindModel,
				RelativePath: folder,
				Name:         e.Name,
				Path:         p,
				SizeBytes:    size,
			})
		}
	}
	return orphans, nil
}

// scanFolders returns the model folders to look for orphans in.
func scanFolders(in Input) []string {
	if len(in.Folders) == 0 {
		return in.Allowlist.Folders()
	}
	seen := map[string]bool{}
	out := []string{}
	for _, f := range in.Folders {
		f = cleanRel(f)
		if seen[f] || !in.Allowlist.Allows(f) {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// hasExtension matches name against exts, ignoring case.
func hasExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
