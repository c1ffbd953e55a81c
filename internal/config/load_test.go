package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bianoble/protobreak/internal/lock"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `version: 1
tool: buf
tool_path: /opt/bin/buf
api_dir: proto
lock_file: proto/snapshot.json
lock_format: text
buf_config: proto/buf.yaml
args: ["--exclude-imports"]
git:
  path: ../.git
  subdir: proto
scenarios: fixtures
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ToolPath != "/opt/bin/buf" {
		t.Errorf("tool_path = %q", cfg.ToolPath)
	}
	if cfg.APIDir != "proto" {
		t.Errorf("api_dir = %q", cfg.APIDir)
	}
	if len(cfg.Args) != 1 || cfg.Args[0] != "--exclude-imports" {
		t.Errorf("args = %v", cfg.Args)
	}
	if cfg.Git.Path != "../.git" || cfg.Git.Subdir != "proto" {
		t.Errorf("git = %+v", cfg.Git)
	}
	if cfg.Format() != lock.FormatText {
		t.Errorf("format = %s", cfg.Format())
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "version: 1\ngit:\n  subdir: protos\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.Tool != def.Tool || cfg.LockFile != def.LockFile || cfg.APIDir != def.APIDir {
		t.Errorf("defaults not kept: %+v", cfg)
	}
	if cfg.Git.Path != ".git" {
		t.Errorf("git.path = %q, want default", cfg.Git.Path)
	}
	if cfg.Git.Subdir != "protos" {
		t.Errorf("git.subdir = %q", cfg.Git.Subdir)
	}
	if cfg.Format() != lock.FormatBinary {
		t.Errorf("format = %s, want binary", cfg.Format())
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "version: [1\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	path := writeConfig(t, `version: 2
tool: prototool
api_dir: ""
lock_format: yaml
`)

	_, err := Load(path)
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	if len(verr.Errors) != 4 {
		t.Errorf("got %d errors, want 4: %v", len(verr.Errors), verr.Errors)
	}
	msg := err.Error()
	for _, want := range []string{"unsupported version 2", "unknown tool 'prototool'", "'api_dir' is required", "invalid lock format"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error should mention %q: %s", want, msg)
		}
	}
}

func TestValidateProtolockLockName(t *testing.T) {
	cfg := Default()
	cfg.Tool = "protolock"

	errs := Validate(cfg)
	if len(errs) != 1 || !strings.Contains(errs[0], "proto.lock") {
		t.Errorf("errs = %v", errs)
	}

	cfg.LockFile = "api/proto.lock"
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
	if cfg.Format() != lock.FormatText {
		t.Errorf("format = %s, want text", cfg.Format())
	}
}

func TestLoadHierarchicalMissingProjectFile(t *testing.T) {
	res, err := LoadHierarchical(HierarchicalOptions{
		ProjectPath: filepath.Join(t.TempDir(), FileName),
		NoInherit:   true,
	})
	if err != nil {
		t.Fatalf("LoadHierarchical: %v", err)
	}
	if res.Config.LockFile != "api/proto_snapshot.bin" {
		t.Errorf("lock_file = %q", res.Config.LockFile)
	}
	if len(res.Layers) != 1 || res.Layers[0].Loaded {
		t.Errorf("layers = %+v, want one unloaded project layer", res.Layers)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvTool, "protolock")
	t.Setenv(EnvToolPath, "/usr/local/bin/protolock")

	path := writeConfig(t, "version: 1\nlock_file: api/proto.lock\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tool != "protolock" {
		t.Errorf("tool = %q", cfg.Tool)
	}
	if cfg.ToolPath != "/usr/local/bin/protolock" {
		t.Errorf("tool_path = %q", cfg.ToolPath)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", ""},
		{"/abs/lock.bin", "/abs/lock.bin"},
		{"api/lock.bin", filepath.Join("/repo", "api/lock.bin")},
	}
	for _, tt := range tests {
		if got := Resolve("/repo", tt.path); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
