package remote

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// RequirementsFile is the pip requirements file a plugin may ship.
const RequirementsFile = "requirements.txt"

// Hook runs after a plugin is installed or updated.
type Hook interface {
	AfterCheckout(ctx context.Context, dir string) error
}

// PipInstaller installs a plugin's requirements.txt with pip.
type PipInstaller struct {
	python string
}

// NewPipInstaller creates a PipInstaller that runs python -m pip.
func NewPipInstaller(python string) *PipInstaller {
	if python == "" {
		python = "python3"
	}
	return &PipInstaller{python: python}
}

// AfterCheckout installs dir/requirements.txt if it exists.
func (p *PipInstaller) AfterCheckout(ctx context.Context, dir string) error {
	req := filepath.Join(dir, RequirementsFile)
	if _, err := os.Stat(req); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", req, err)
	}

	cmd := exec.CommandContext(ctx, p.python, "-m", "pip", "install", "-q", "-r", req)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return wrap(ctx, "pip install", err)
	}
	return nil
}

// NopHook does nothing.
type NopHook struct{}

// AfterCheckout does nothing.
func (NopHook) AfterCheckout(context.Context, string) error { return nil }
