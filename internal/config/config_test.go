package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ralt/alpkit/internal/apkbuild"
	"github.com/ralt/alpkit/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Apkbuild.Shell != apkbuild.DefaultShell {
		t.Errorf("expected default shell %s, got %s", apkbuild.DefaultShell, cfg.Apkbuild.Shell)
	}
	if cfg.Apkbuild.Timeout != apkbuild.DefaultTimeout {
		t.Errorf("expected default timeout %s, got %s", apkbuild.DefaultTimeout, cfg.Apkbuild.Timeout)
	}
	if cfg.Apk.MaxSegmentBytes != 1<<30 {
		t.Errorf("expected default segment cap 1GiB, got %d", cfg.Apk.MaxSegmentBytes)
	}
	if cfg.Scan.Jobs != 4 {
		t.Errorf("expected 4 jobs, got %d", cfg.Scan.Jobs)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("expected json output, got %s", cfg.Output.Format)
	}
	if diff := cmp.Diff(apkbuild.ArchAll, cfg.Apkbuild.ArchAll); diff != "" {
		t.Errorf("arch_all mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alpkit.yaml")
	content := `apk:
  skip_files: true
  max_segment_bytes: 1048576
apkbuild:
  shell: /bin/bash
  timeout: 2s
  inherit_env: true
  env: [CARCH=aarch64, CBUILD=x86_64]
  extra_vars: [_commit]
  arch_all: [x86_64, aarch64]
output:
  format: yaml
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	apkCfg := cfg.ApkConfig()
	if !apkCfg.SkipFiles || apkCfg.MaxSegmentBytes != 1048576 {
		t.Errorf("unexpected apk config %+v", apkCfg)
	}

	got := cfg.ApkbuildConfig()
	want := apkbuild.Config{
		Eval: apkbuild.EvalConfig{
			Shell:          "/bin/bash",
			Timeout:        2 * time.Second,
			Env:            map[string]string{"CARCH": "aarch64", "CBUILD": "x86_64"},
			InheritEnv:     true,
			ExtraVars:      []string{"_commit"},
			MaxOutputBytes: apkbuild.DefaultMaxOutputBytes,
		},
		Parse: apkbuild.ParseConfig{ArchAll: []string{"x86_64", "aarch64"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ApkbuildConfig() mismatch (-want +got):\n%s", diff)
	}
	if cfg.Output.Format != "yaml" {
		t.Errorf("expected yaml output, got %s", cfg.Output.Format)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("ALPKIT_APKBUILD_TIMEOUT", "750ms")
	t.Setenv("ALPKIT_SCAN_JOBS", "9")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Apkbuild.Timeout != 750*time.Millisecond {
		t.Errorf("expected timeout from environment, got %s", cfg.Apkbuild.Timeout)
	}
	if cfg.Scan.Jobs != 9 {
		t.Errorf("expected jobs from environment, got %d", cfg.Scan.Jobs)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative timeout", "apkbuild:\n  timeout: -1s\n"},
		{"no jobs", "scan:\n  jobs: 0\n"},
		{"unknown format", "output:\n  format: xml\n"},
		{"empty shell", "apkbuild:\n  shell: \"\"\n"},
		{"not yaml", "apk: [\n"},
		{"bad env", "apkbuild:\n  env: [CARCH]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "alpkit.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}
			_, err := Load(path)
			if !models.IsType(err, models.ErrInvalidConfig) {
				t.Errorf("expected InvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !models.IsType(err, models.ErrInvalidConfig) {
		t.Errorf("expected InvalidConfig, got %v", err)
	}
}

func TestParseEnv(t *testing.T) {
	env, err := ParseEnv([]string{"A=1", "B=x=y", "A=2", "C="})
	if err != nil {
		t.Fatalf("ParseEnv() returned error: %v", err)
	}
	want := map[string]string{"A": "2", "B": "x=y", "C": ""}
	if diff := cmp.Diff(want, env); diff != "" {
		t.Errorf("ParseEnv() mismatch (-want +got):\n%s", diff)
	}
	if _, err := ParseEnv([]string{"=1"}); err == nil {
		t.Error("expected error for empty name")
	}
}
