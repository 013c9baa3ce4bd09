// Package sandbox installs untrusted packages into disposable
// scratch directories with lifecycle scripts disabled, so their
// files can be inspected without ever executing them.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultTimeout for one package install
	DefaultTimeout = 120 * time.Second

	// scratchPrefix names audit scratch directories under os.TempDir
	scratchPrefix = "prevet-audit-"

	// placeholderManifest keeps the install scoped to the scratch
	// directory so no ancestor project is touched
	placeholderManifest = `{
  "name": "prevet-audit-workspace",
  "version": "0.0.0",
  "private": true
}
`
)

// ErrScratch means the scratch directory could not be created at
// all. Unlike install failures this aborts a whole scan.
var ErrScratch = errors.New("cannot create scratch directory")

// ErrInstallFailed marks a failed or timed-out package install
var ErrInstallFailed = errors.New("package install failed")

// Config holds sandbox configuration
type Config struct {
	Manager string // npm, pnpm, yarn, or bun
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Manager: "npm",
		Timeout: DefaultTimeout,
	}
}

// Sandbox is one disposable install directory
type Sandbox struct {
	Dir     string
	manager string
	timeout time.Duration
}

// New creates a scratch directory with a placeholder manifest.
// Callers must Remove() the sandbox on every exit path.
func New(cfg *Config) (*Sandbox, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	dir, err := os.MkdirTemp("", scratchPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScratch, err)
	}
	manifest := filepath.Join(dir, "package.json")
	if err := os.WriteFile(manifest, []byte(placeholderManifest), 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: %v", ErrScratch, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sandbox{
		Dir:     dir,
		manager: cfg.Manager,
		timeout: timeout,
	}, nil
}

// Remove deletes the scratch directory and everything in it
func (s *Sandbox) Remove() {
	if s.Dir != "" {
		os.RemoveAll(s.Dir)
		s.Dir = ""
	}
}

// installArgs builds the scripts-disabled install command for the
// configured package manager.
func installArgs(manager, pkg string) ([]string, error) {
	switch manager {
	case "npm":
		return []string{"install", pkg, "--ignore-scripts", "--no-save", "--no-audit", "--no-fund"}, nil
	case "pnpm":
		return []string{"add", pkg, "--ignore-scripts"}, nil
	case "yarn":
		return []string{"add", pkg, "--ignore-scripts"}, nil
	case "bun":
		return []string{"add", pkg, "--ignore-scripts"}, nil
	default:
		return nil, fmt.Errorf("unsupported package manager: %s", manager)
	}
}

// Install fetches the package into the scratch directory without
// running any of its lifecycle scripts.
func (s *Sandbox) Install(ctx context.Context, pkg string) error {
	args, err := installArgs(s.manager, pkg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInstallFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.manager, args...)
	cmd.Dir = s.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: timed out after %s", ErrInstallFailed, s.timeout)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			detail := strings.TrimSpace(stderr.String())
			if detail == "" {
				detail = fmt.Sprintf("exit code %d", exitErr.ExitCode())
			}
			return fmt.Errorf("%w: %s", ErrInstallFailed, firstLine(detail))
		}
		return fmt.Errorf("%w: %v", ErrInstallFailed, err)
	}
	return nil
}

// PackageDir locates the installed package under node_modules.
// Handles scoped names and version suffixes in the install spec.
func (s *Sandbox) PackageDir(pkg string) (string, error) {
	name := stripVersion(pkg)
	modules := filepath.Join(s.Dir, "node_modules")

	direct := filepath.Join(modules, filepath.FromSlash(name))
	if hasManifest(direct) {
		return direct, nil
	}

	// fall back to matching the manifest name field
	entries, err := os.ReadDir(modules)
	if err != nil {
		return "", fmt.Errorf("package %s not found after install: %w", name, err)
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(modules, e.Name())
		if strings.HasPrefix(e.Name(), "@") {
			scoped, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, se := range scoped {
				sub := filepath.Join(dir, se.Name())
				if manifestNameIs(sub, name) {
					return sub, nil
				}
			}
			continue
		}
		if manifestNameIs(dir, name) {
			return dir, nil
		}
	}
	return "", fmt.Errorf("package %s not found after install", name)
}

// stripVersion removes an @version suffix from an install spec,
// keeping scope prefixes intact.
func stripVersion(pkg string) string {
	if strings.HasPrefix(pkg, "@") {
		if i := strings.Index(pkg[1:], "@"); i >= 0 {
			return pkg[:i+1]
		}
		return pkg
	}
	if i := strings.Index(pkg, "@"); i >= 0 {
		return pkg[:i]
	}
	return pkg
}

func hasManifest(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "package.json"))
	return err == nil && !info.IsDir()
}

func manifestNameIs(dir, name string) bool {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return false
	}
	// cheap check, avoids a full parse per candidate
	return bytes.Contains(data, []byte(`"name": "`+name+`"`)) ||
		bytes.Contains(data, []byte(`"name":"`+name+`"`))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// CleanupStale removes leftover scratch directories from earlier
// runs that crashed before their Remove.
func CleanupStale(maxAge time.Duration) int {
	entries, err := os.ReadDir(os.TempDir())
	if err != nil {
		return 0
	}
	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), scratchPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if os.RemoveAll(filepath.Join(os.TempDir(), e.Name())) == nil {
				removed++
			}
		}
	}
	return removed
}
