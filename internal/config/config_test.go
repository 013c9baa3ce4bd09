package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFrom_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if cfg.PackageManager != "npm" {
		t.Errorf("PackageManager = %q, want npm", cfg.PackageManager)
	}
	if cfg.MaxDepth != 2 {
		t.Errorf("MaxDepth = %d, want 2", cfg.MaxDepth)
	}
	if !cfg.SecurityAudit {
		t.Error("SecurityAudit = false, want true by default")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := &Config{
		PackageManager: "pnpm",
		MaxDepth:       4,
		SecurityAudit:  false,
		InstallTimeout: 30,
	}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo returned error: %v", err)
	}

	back, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if back.PackageManager != "pnpm" {
		t.Errorf("PackageManager = %q, want pnpm", back.PackageManager)
	}
	if back.MaxDepth != 4 {
		t.Errorf("MaxDepth = %d, want 4", back.MaxDepth)
	}
	if back.SecurityAudit {
		t.Error("SecurityAudit = true, want false")
	}
	if back.InstallTimeout != 30 {
		t.Errorf("InstallTimeout = %d, want 30", back.InstallTimeout)
	}
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("package_manager = \"yarn\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if cfg.PackageManager != "yarn" {
		t.Errorf("PackageManager = %q, want yarn", cfg.PackageManager)
	}
	if cfg.MaxDepth != 2 {
		t.Errorf("MaxDepth = %d, want default 2", cfg.MaxDepth)
	}
}

func TestLoadFrom_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("= broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestLoadFrom_ClampsNegativeDepth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("max_depth = -3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if cfg.MaxDepth != 0 {
		t.Errorf("MaxDepth = %d, want 0", cfg.MaxDepth)
	}
}
