package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ErrInvalidLocalName is wrapped by every DeriveLocalName failure.
var ErrInvalidLocalName = errors.New("invalid local name")

// DeriveLocalName returns the on-disk name of an item: the override when
// set, otherwise the last path element of the locator with one ".git"
// suffix removed.
//
//	https://github.com/user/ComfyUI-Something.git -> ComfyUI-Something
//	https://host/x/model.safetensors?download=1  -> model.safetensors
func DeriveLocalName(locator, override string) (string, error) {
	if name := strings.TrimSpace(override); name != "" {
		return validateLocalName(name)
	}

	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", fmt.Errorf("%w: no locator or override", ErrInvalidLocalName)
	}

	p := locator
	if u, err := url.Parse(locator); err == nil && u.Scheme != "" && u.Host != "" {
		p = u.Path
		if strings.Trim(p, "/") == "" {
			return "", fmt.Errorf("%w: locator %q has no path", ErrInvalidLocalName, locator)
		}
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	// scp-style git remotes: git@github.com:user/repo.git
	if i := strings.LastIndex(p, ":"); i >= 0 && !strings.Contains(p[i:], "/") {
		p = p[i+1:]
	}

	p = strings.TrimRight(p, "/")
	name := path.Base(p)
	name = strings.TrimSuffix(name, ".git")

	return validateLocalName(name)
}

func validateLocalName(name string) (string, error) {
	switch {
	case name == "", name == "/":
		return "", fmt.Errorf("%w: empty", ErrInvalidLocalName)
	case name == "." || name == "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidLocalName, name)
	case strings.ContainsAny(name, `/\`):
		return "", fmt.Errorf("%w: %q contains a path separator", ErrInvalidLocalName, name)
	}
	return name, nil
}

// NodeIDFromName turns a display name into a node id.
func NodeIDFromName(name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	id = strings.ReplaceAll(id, " ", "-")
	return strings.ReplaceAll(id, "_", "-")
}
