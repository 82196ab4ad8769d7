// SPDX-License-Identifier: MPL-2.0

package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !slices.Equal(cfg.SearchPaths, []string{"./layer", "./device", "./image"}) {
		t.Errorf("search paths = %v", cfg.SearchPaths)
	}
	if !slices.Equal(cfg.Patterns, []string{"*.yaml", "*.yml"}) {
		t.Errorf("patterns = %v", cfg.Patterns)
	}
	if cfg.Verbose {
		t.Error("verbose must default to false")
	}
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	SetConfigDirOverride(t.TempDir())
	defer SetConfigDirOverride("")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(cfg.Patterns, DefaultConfig().Patterns) {
		t.Errorf("patterns = %v", cfg.Patterns)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	defer SetConfigDirOverride("")

	content := "search_paths = [\"/srv/layers\"]\npatterns = [\"*.layer\"]\nverbose = true\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(cfg.SearchPaths, []string{"/srv/layers"}) {
		t.Errorf("search paths = %v", cfg.SearchPaths)
	}
	if !slices.Equal(cfg.Patterns, []string{"*.layer"}) {
		t.Errorf("patterns = %v", cfg.Patterns)
	}
	if !cfg.Verbose {
		t.Error("verbose not read from file")
	}
}

func TestLoadRejectsBrokenConfigFile(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	defer SetConfigDirOverride("")

	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("search_paths = [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Fatal("broken TOML must fail to load")
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	defer SetConfigDirOverride("")

	path, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "search_paths") {
		t.Errorf("config file missing search_paths: %q", data)
	}

	// Second call must refuse to overwrite.
	if _, err := CreateDefaultConfig(); err == nil {
		t.Fatal("existing config file must not be overwritten")
	}
}

func TestGenerateTOMLRoundTrips(t *testing.T) {
	out, err := GenerateTOML(DefaultConfig())
	if err != nil {
		t.Fatalf("GenerateTOML: %v", err)
	}
	if !strings.Contains(out, "patterns") || !strings.Contains(out, "*.yaml") {
		t.Errorf("generated TOML = %q", out)
	}
}

func TestSplitPathList(t *testing.T) {
	got := SplitPathList("./layer:./device: :./image")
	if !slices.Equal(got, []string{"./layer", "./device", "./image"}) {
		t.Errorf("got %v", got)
	}
	if SplitPathList("") != nil {
		t.Error("empty arg must yield nil")
	}
}
