package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/bianoble/protobreak/internal/config"
)

func useConfigPath(t *testing.T, path string) {
	t.Helper()
	t.Setenv(config.EnvTool, "")
	t.Setenv(config.EnvToolPath, "")
	t.Setenv(config.EnvNoInherit, "1")
	old := configPath
	configPath = path
	t.Cleanup(func() { configPath = old })
}

func TestInitCreatesConfig(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, config.FileName)
	useConfigPath(t, outPath)

	initForce = false
	err := initCmd.RunE(initCmd, nil)
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	cfg, err := config.Load(outPath)
	if err != nil {
		t.Fatalf("created config does not load: %v", err)
	}
	if cfg.Tool != "buf" {
		t.Errorf("tool = %q, want buf", cfg.Tool)
	}
}

func TestInitProtolock(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, config.FileName)
	useConfigPath(t, outPath)

	old := toolFlag
	toolFlag = "protolock"
	defer func() { toolFlag = old }()

	initForce = false
	if err := initCmd.RunE(initCmd, nil); err != nil {
		t.Fatalf("init: %v", err)
	}

	cfg, err := config.Load(outPath)
	if err != nil {
		t.Fatalf("created config does not load: %v", err)
	}
	if cfg.LockFile != "api/proto.lock" {
		t.Errorf("lock_file = %q, want api/proto.lock", cfg.LockFile)
	}
}

func TestInitRejectsUnknownTool(t *testing.T) {
	useConfigPath(t, filepath.Join(t.TempDir(), config.FileName))

	old := toolFlag
	toolFlag = "protoc"
	defer func() { toolFlag = old }()

	err := initCmd.RunE(initCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown tool") {
		t.Fatalf("expected unknown tool error, got %v", err)
	}
}

func TestInitRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, config.FileName)

	if err := os.WriteFile(outPath, []byte("existing"), 0644); err != nil {
		t.Fatal(err)
	}
	useConfigPath(t, outPath)

	initForce = false
	err := initCmd.RunE(initCmd, nil)
	if err == nil {
		t.Fatal("expected error when file exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error should mention 'already exists': %v", err)
	}
}

func TestInitForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, config.FileName)

	if err := os.WriteFile(outPath, []byte("old content"), 0644); err != nil {
		t.Fatal(err)
	}
	useConfigPath(t, outPath)

	initForce = true
	defer func() { initForce = false }()
	err := initCmd.RunE(initCmd, nil)
	if err != nil {
		t.Fatalf("init --force: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) == "old content" {
		t.Error("file was not overwritten")
	}
}

func TestInitTemplateIsValidYAML(t *testing.T) {
	for _, tool := range []string{"buf", "protolock"} {
		var out map[string]any
		if err := yaml.Unmarshal([]byte(renderInitTemplate(tool)), &out); err != nil {
			t.Fatalf("%s template is not valid YAML: %v", tool, err)
		}
		if out["version"] == nil {
			t.Errorf("%s template should contain 'version'", tool)
		}
	}
}
