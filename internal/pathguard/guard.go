// Package pathguard confines filesystem access to a managed root.
//
// Every path built from catalog data, user input or a directory listing is
// passed through Resolve before anything is written, read or deleted. The
// folder Allowlist is a separate policy check: callers apply both, because a
// folder can be allowlisted and still carry a traversal segment.
package pathguard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is the sentinel wrapped by every Resolve rejection.
var ErrUnsafePath = errors.New("unsafe path")

// RejectionError describes why an input was refused.
type RejectionError struct {
	// Input is the offending value (relative path, filename or candidate path)
	Input string

	// Reason is a short human-readable explanation
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("unsafe path %q: %s", e.Input, e.Reason)
}

// Unwrap lets callers match rejections with errors.Is(err, ErrUnsafePath).
func (e *RejectionError) Unwrap() error {
	return ErrUnsafePath
}

func reject(input, reason string) error {
	return &RejectionError{Input: input, Reason: reason}
}

// Resolve joins relPath and filename under root and returns the resolved
// absolute path, or a *RejectionError when the result could leave root.
//
// An empty relPath denotes root itself. The returned path is always a strict
// descendant of root after symlinks in its existing prefix are resolved.
// Nothing is created on disk.
func Resolve(root, relPath, filename string) (string, error) {
	if err := checkInput(relPath); err != nil {
		return "", err
	}
	if err := checkInput(filename); err != nil {
		return "", err
	}

	resolvedRoot, err := resolveRoot(root)
	if err != nil {
		return "", err
	}

	candidate := filepath.Join(resolvedRoot, filepath.FromSlash(relPath), filepath.FromSlash(filename))
	resolved, err := resolveExisting(candidate)
	if err != nil {
		return "", reject(candidate, fmt.Sprintf("cannot resolve: %v", err))
	}

	if !isStrictDescendant(resolvedRoot, resolved) {
		return "", reject(candidate, "resolves outside the managed root")
	}

	return resolved, nil
}

// checkInput applies the lexical rules shared by relative paths and filenames.
func checkInput(s string) error {
	if strings.Contains(s, "..") {
		return reject(s, "parent directory reference")
	}
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, `\`) {
		return reject(s, "absolute path")
	}
	if hasDriveLetter(s) {
		return reject(s, "drive-qualified path")
	}
	if strings.ContainsRune(s, 0) {
		return reject(s, "NUL byte")
	}
	return nil
}

func hasDriveLetter(s string) bool {
	if len(s) < 2 || s[1] != ':' {
		return false
	}
	c := s[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func resolveRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", reject(root, "empty managed root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", reject(root, "root unavailable")
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", reject(root, "root unavailable")
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return "", reject(root, "root is not a directory")
	}
	return resolved, nil
}

// resolveExisting resolves symlinks in the longest existing prefix of path
// and appends the missing remainder lexically.
func resolveExisting(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}
	resolvedParent, err := resolveExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(path)), nil
}

func isStrictDescendant(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." || filepath.IsAbs(rel) {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
