package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Ritual.ReportDir != ".local/prverify" {
		t.Errorf("expected default report dir .local/prverify, got %s", cfg.Ritual.ReportDir)
	}
	if cfg.Ritual.ReportPattern != "prverify_*.md" {
		t.Errorf("expected default report pattern prverify_*.md, got %s", cfg.Ritual.ReportPattern)
	}
	if cfg.Ritual.ReportScanLimit != 120 {
		t.Errorf("expected default scan limit 120, got %d", cfg.Ritual.ReportScanLimit)
	}
	if cfg.Ritual.BundleDir != ".local/review-bundles" {
		t.Errorf("expected default bundle dir .local/review-bundles, got %s", cfg.Ritual.BundleDir)
	}
	if cfg.Ritual.EvidencePrefix != "review/evidence/prverify/" {
		t.Errorf("expected default evidence prefix, got %s", cfg.Ritual.EvidencePrefix)
	}
	if len(cfg.Guardrails.Checks) != 0 {
		t.Error("expected built-in guardrails by default")
	}
	if cfg.Guardrails.Debounce != 500*time.Millisecond {
		t.Errorf("expected 500ms debounce, got %v", cfg.Guardrails.Debounce)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing report dir",
			modify:  func(c *Config) { c.Ritual.ReportDir = "" },
			wantErr: true,
		},
		{
			name:    "zero scan limit",
			modify:  func(c *Config) { c.Ritual.ReportScanLimit = 0 },
			wantErr: true,
		},
		{
			name:    "empty bundle command",
			modify:  func(c *Config) { c.Ritual.BundleCommand = nil },
			wantErr: true,
		},
		{
			name: "check without path",
			modify: func(c *Config) {
				c.Guardrails.Checks = []CheckConfig{{Label: "x", Required: []string{"a"}}}
			},
			wantErr: true,
		},
		{
			name: "check without required strings",
			modify: func(c *Config) {
				c.Guardrails.Checks = []CheckConfig{{Label: "x", Path: "a.txt"}}
			},
			wantErr: true,
		},
		{
			name:    "negative debounce",
			modify:  func(c *Config) { c.Guardrails.Debounce = -time.Second },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
repo:
  path: "/test/path"
guardrails:
  debounce: 2s
  checks:
    - section: "1. Readme"
      label: "Readme"
      path: README.md
      required:
        - "strictgate"
ritual:
  report_scan_limit: 10
  bundle_command: ["reviewbundle"]
metrics:
  textfile: /tmp/strictgate.prom
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Repo.Path != "/test/path" {
		t.Errorf("expected repo path /test/path, got %s", cfg.Repo.Path)
	}
	if cfg.Guardrails.Debounce != 2*time.Second {
		t.Errorf("expected debounce 2s, got %v", cfg.Guardrails.Debounce)
	}
	if len(cfg.Guardrails.Checks) != 1 || cfg.Guardrails.Checks[0].Path != "README.md" {
		t.Errorf("unexpected checks: %+v", cfg.Guardrails.Checks)
	}
	if cfg.Ritual.ReportScanLimit != 10 {
		t.Errorf("expected scan limit 10, got %d", cfg.Ritual.ReportScanLimit)
	}
	if len(cfg.Ritual.BundleCommand) != 1 || cfg.Ritual.BundleCommand[0] != "reviewbundle" {
		t.Errorf("unexpected bundle command: %v", cfg.Ritual.BundleCommand)
	}
	// Unset keys keep their defaults
	if cfg.Ritual.ReportDir != ".local/prverify" {
		t.Errorf("expected default report dir, got %s", cfg.Ritual.ReportDir)
	}
	if cfg.Metrics.Textfile != "/tmp/strictgate.prom" {
		t.Errorf("expected metrics textfile, got %s", cfg.Metrics.Textfile)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Repo: RepoConfig{
			Path: "/override/path",
		},
		Ritual: RitualConfig{
			ReportScanLimit: 5,
		},
	}

	base.Merge(override)

	if base.Repo.Path != "/override/path" {
		t.Errorf("expected repo path /override/path, got %s", base.Repo.Path)
	}
	if base.Ritual.ReportScanLimit != 5 {
		t.Errorf("expected scan limit 5, got %d", base.Ritual.ReportScanLimit)
	}
	// Bundle dir should remain from base since override didn't set it
	if base.Ritual.BundleDir != ".local/review-bundles" {
		t.Errorf("expected bundle dir to remain default, got %s", base.Ritual.BundleDir)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Ritual.BundleDir = "out/bundles"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Ritual.BundleDir != "out/bundles" {
		t.Errorf("expected bundle dir out/bundles, got %s", loaded.Ritual.BundleDir)
	}
}

func TestResolvePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Repo.Path = "/repo"

	if got := cfg.ResolvePath(".local/prverify"); got != filepath.Join("/repo", ".local/prverify") {
		t.Errorf("unexpected relative resolution: %s", got)
	}
	if got := cfg.ResolvePath("/abs/dir"); got != "/abs/dir" {
		t.Errorf("absolute path should be unchanged, got %s", got)
	}
}

func TestLoaderLayering(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	nested := filepath.Join(project, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	userPath := filepath.Join(home, UserConfigDir, UserConfigFile)
	if err := os.MkdirAll(filepath.Dir(userPath), 0755); err != nil {
		t.Fatal(err)
	}
	user := "ritual:\n  report_scan_limit: 7\n  bundle_dir: user-bundles\n"
	if err := os.WriteFile(userPath, []byte(user), 0644); err != nil {
		t.Fatal(err)
	}
	projectCfg := "ritual:\n  bundle_dir: project-bundles\n"
	if err := os.WriteFile(filepath.Join(project, ProjectConfigFile), []byte(projectCfg), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader(nil).WithHomeDir(home).WithWorkDir(nested).Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// User value survives because the project file does not set it
	if cfg.Ritual.ReportScanLimit != 7 {
		t.Errorf("expected scan limit 7 from user config, got %d", cfg.Ritual.ReportScanLimit)
	}
	if cfg.Ritual.BundleDir != "project-bundles" {
		t.Errorf("expected project bundle dir, got %s", cfg.Ritual.BundleDir)
	}
	if cfg.Repo.Path != project {
		t.Errorf("expected repo path anchored at project config dir %s, got %s", project, cfg.Repo.Path)
	}

	explicitPath := filepath.Join(t.TempDir(), "explicit.yaml")
	if err := os.WriteFile(explicitPath, []byte("ritual:\n  report_scan_limit: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = NewLoader(nil).WithHomeDir(home).WithWorkDir(nested).Load(explicitPath)
	if err != nil {
		t.Fatalf("Load(explicit) error = %v", err)
	}
	if cfg.Ritual.ReportScanLimit != 3 {
		t.Errorf("expected explicit scan limit 3, got %d", cfg.Ritual.ReportScanLimit)
	}
}

func TestLoaderMissingExplicitConfig(t *testing.T) {
	_, err := NewLoader(nil).WithHomeDir(t.TempDir()).WithWorkDir(t.TempDir()).Load("/does/not/exist.yaml")
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestEnsureUserConfig(t *testing.T) {
	home := t.TempDir()
	loader := NewLoader(nil).WithHomeDir(home)

	path, err := loader.EnsureUserConfig()
	if err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}
	if path != filepath.Join(home, UserConfigDir, UserConfigFile) {
		t.Errorf("unexpected user config path %s", path)
	}
	if _, err := LoadFromFile(path); err != nil {
		t.Errorf("created config is not loadable: %v", err)
	}
}
