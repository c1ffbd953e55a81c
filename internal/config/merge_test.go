package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMergeOverlayWins(t *testing.T) {
	base := &Config{
		Version:  1,
		Tool:     "buf",
		APIDir:   "api",
		LockFile: "api/proto_snapshot.bin",
		Args:     []string{"--error-format=json"},
		Git:      Git{Path: ".git", Subdir: "api"},
	}
	overlay := &Config{
		Tool:     "protolock",
		LockFile: "api/proto.lock",
		Args:     []string{"--debug"},
		Git:      Git{Subdir: "proto"},
	}

	got, err := Merge(base, overlay)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got.Version != 1 {
		t.Errorf("version = %d", got.Version)
	}
	if got.Tool != "protolock" || got.LockFile != "api/proto.lock" {
		t.Errorf("tool = %q, lock_file = %q", got.Tool, got.LockFile)
	}
	if got.APIDir != "api" {
		t.Errorf("api_dir = %q, want base value kept", got.APIDir)
	}
	if got.Git.Path != ".git" || got.Git.Subdir != "proto" {
		t.Errorf("git = %+v", got.Git)
	}
	if strings.Join(got.Args, " ") != "--error-format=json --debug" {
		t.Errorf("args = %v", got.Args)
	}
	if len(base.Args) != 1 {
		t.Errorf("base args modified: %v", base.Args)
	}
}

func TestMergeVersionMismatch(t *testing.T) {
	_, err := Merge(&Config{Version: 1}, &Config{Version: 2})
	if err == nil {
		t.Fatal("expected version mismatch error")
	}
	if !strings.Contains(err.Error(), "version mismatch") {
		t.Errorf("error = %v", err)
	}
}

func TestMergeAllEmpty(t *testing.T) {
	if _, err := MergeAll(nil); err == nil {
		t.Fatal("expected error for no configs")
	}
}

func TestLoadHierarchical(t *testing.T) {
	dir := t.TempDir()
	userDir := filepath.Join(dir, "user")
	if err := os.MkdirAll(userDir, 0755); err != nil {
		t.Fatal(err)
	}
	userPath := filepath.Join(userDir, "config.yaml")
	if err := os.WriteFile(userPath, []byte("tool_path: bin/buf\nargs: [--error-format=json]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	projectPath := writeConfig(t, "version: 1\napi_dir: proto\nargs: [--debug]\n")

	res, err := LoadHierarchical(HierarchicalOptions{
		ProjectPath:      projectPath,
		SystemConfigPath: filepath.Join(dir, "missing.yaml"),
		UserConfigPath:   userPath,
	})
	if err != nil {
		t.Fatalf("LoadHierarchical: %v", err)
	}

	cfg := res.Config
	if cfg.APIDir != "proto" {
		t.Errorf("api_dir = %q", cfg.APIDir)
	}
	if cfg.Tool != "buf" {
		t.Errorf("tool = %q, want default", cfg.Tool)
	}
	if want := filepath.Join(userDir, "bin", "buf"); cfg.ToolPath != want {
		t.Errorf("tool_path = %q, want %q", cfg.ToolPath, want)
	}
	if strings.Join(cfg.Args, " ") != "--error-format=json --debug" {
		t.Errorf("args = %v", cfg.Args)
	}

	if len(res.Layers) != 3 {
		t.Fatalf("got %d layers, want 3", len(res.Layers))
	}
	loaded := map[Level]bool{}
	for _, l := range res.Layers {
		loaded[l.Level] = l.Loaded
	}
	if loaded[LevelSystem] || !loaded[LevelUser] || !loaded[LevelProject] {
		t.Errorf("loaded = %v", loaded)
	}
}

func TestLoadHierarchicalNoInherit(t *testing.T) {
	dir := t.TempDir()
	userPath := filepath.Join(dir, "user.yaml")
	if err := os.WriteFile(userPath, []byte("tool: protolock\n"), 0644); err != nil {
		t.Fatal(err)
	}
	projectPath := writeConfig(t, "version: 1\n")

	t.Setenv(EnvNoInherit, "1")
	res, err := LoadHierarchical(HierarchicalOptions{
		ProjectPath:    projectPath,
		UserConfigPath: userPath,
	})
	if err != nil {
		t.Fatalf("LoadHierarchical: %v", err)
	}
	if res.Config.Tool != "buf" {
		t.Errorf("tool = %q, want user layer ignored", res.Config.Tool)
	}
	if len(res.Layers) != 1 || res.Layers[0].Level != LevelProject {
		t.Errorf("layers = %+v", res.Layers)
	}
}

func TestLoadHierarchicalLayerError(t *testing.T) {
	dir := t.TempDir()
	userPath := filepath.Join(dir, "user.yaml")
	if err := os.WriteFile(userPath, []byte("tool: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadHierarchical(HierarchicalOptions{
		ProjectPath:      filepath.Join(dir, FileName),
		SystemConfigPath: filepath.Join(dir, "missing.yaml"),
		UserConfigPath:   userPath,
	})
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "user config") {
		t.Errorf("error = %v", err)
	}
}

func TestLoadHierarchicalValidates(t *testing.T) {
	projectPath := writeConfig(t, "version: 1\ntool: nope\n")
	_, err := LoadHierarchical(HierarchicalOptions{ProjectPath: projectPath, NoInherit: true})
	var ve *ValidationError
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.As(err, &ve) {
		t.Fatalf("error = %T, want *ValidationError", err)
	}
}
