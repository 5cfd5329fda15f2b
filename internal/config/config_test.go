// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty for defaults", path)
	}
	if cfg.Engine != EngineAuto {
		t.Errorf("Engine = %q, want %q", cfg.Engine, EngineAuto)
	}
	if cfg.PullAttempts != 3 {
		t.Errorf("PullAttempts = %d, want 3", cfg.PullAttempts)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("ColorScheme = %q, want %q", cfg.UI.ColorScheme, ColorSchemeAuto)
	}
}

func TestLoadFromConfigDir(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
engine: "docker"
pull_attempts: 5

ui: {
	color_scheme: "dark"
	verbose: true
}
`)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if path == "" {
		t.Error("resolved path should name the loaded file")
	}
	if cfg.Engine != EngineDocker {
		t.Errorf("Engine = %q, want %q", cfg.Engine, EngineDocker)
	}
	if cfg.PullAttempts != 5 {
		t.Errorf("PullAttempts = %d, want 5", cfg.PullAttempts)
	}
	if cfg.UI.ColorScheme != ColorSchemeDark {
		t.Errorf("ColorScheme = %q, want %q", cfg.UI.ColorScheme, ColorSchemeDark)
	}
	if !cfg.UI.Verbose {
		t.Error("Verbose = false, want true")
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `engine: "podman"`)

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if cfg.Engine != EnginePodman {
		t.Errorf("Engine = %q, want %q", cfg.Engine, EnginePodman)
	}
	if cfg.PullAttempts != 3 {
		t.Errorf("PullAttempts = %d, want default 3", cfg.PullAttempts)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("ColorScheme = %q, want default %q", cfg.UI.ColorScheme, ColorSchemeAuto)
	}
}

func TestLoadForcedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `engine: "docker"`)

	cfg, resolved, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Engine != EngineDocker {
		t.Errorf("Engine = %q, want %q", cfg.Engine, EngineDocker)
	}
}

func TestLoadForcedFileMissing(t *testing.T) {
	_, _, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue"),
	})
	if err == nil {
		t.Fatal("expected error for missing forced config file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want mention of missing file", err)
	}
}

func TestLoadRejectsBadCUESyntax(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `engine: "docker`)

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("expected error for malformed CUE")
	}
}

func TestLoadRejectsUnknownEngine(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `engine: "kubernetes"`)

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("expected schema violation for unknown engine")
	}
}

func TestLoadRejectsZeroPullAttempts(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `pull_attempts: 0`)

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("expected schema violation for pull_attempts below 1")
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `registry: "ghcr.io"`)

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("expected schema violation for field not in #Config")
	}
}

func TestLoadRejectsWhitespaceCacheDir(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `cache_dir: "   "`)

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("expected validation error for whitespace-only cache_dir")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := loadWithOptions(ctx, LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUERoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := &Config{
		Engine:       EnginePodman,
		CacheDir:     "/tmp/bakery-cache",
		PullAttempts: 7,
		UI:           UIConfig{ColorScheme: ColorSchemeLight, Verbose: true},
	}
	writeConfig(t, dir, GenerateCUE(want))

	got, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if got.Engine != want.Engine || got.CacheDir != want.CacheDir ||
		got.PullAttempts != want.PullAttempts || got.UI != want.UI {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	if err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}

	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("default config file not written: %v", err)
	}
	if !strings.Contains(string(data), `engine: "auto"`) {
		t.Errorf("default config missing engine default:\n%s", data)
	}

	// Creating again must not clobber existing content.
	if err := os.WriteFile(path, []byte(`engine: "docker"`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CreateDefaultConfig(); err != nil {
		t.Fatalf("second CreateDefaultConfig() error = %v", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != `engine: "docker"`+"\n" {
		t.Error("CreateDefaultConfig overwrote an existing config file")
	}
}

func TestSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	want := DefaultConfig()
	want.Engine = EngineDocker
	want.UI.Verbose = true

	if err := Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if got.Engine != EngineDocker || !got.UI.Verbose {
		t.Errorf("loaded config = %+v, want saved values", got)
	}
}

func TestProviderLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `engine: "podman"`)

	p := NewProvider()
	cfg, err := p.Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Provider.Load() error = %v", err)
	}
	if cfg.Engine != EnginePodman {
		t.Errorf("Engine = %q, want %q", cfg.Engine, EnginePodman)
	}
}

func TestConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("ConfigDir() = %q, want override %q", got, dir)
	}
}
