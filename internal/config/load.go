package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bianoble/protobreak/internal/lock"
)

// FileName is the default configuration file name.
const FileName = ".protobreak.yaml"

// Environment overrides, applied after the file is parsed.
const (
	EnvTool     = "PROTOBREAK_TOOL"
	EnvToolPath = "PROTOBREAK_TOOL_PATH"
)

// Load reads and validates a configuration file. Fields the file omits keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyEnv(cfg)

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvTool)); v != "" {
		cfg.Tool = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvToolPath)); v != "" {
		cfg.ToolPath = v
	}
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Config for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d — only version 1 is supported", cfg.Version))
	}

	switch cfg.Tool {
	case "buf", "protolock":
		// valid
	case "":
		errs = append(errs, "'tool' is required — must be one of: buf, protolock")
	default:
		errs = append(errs, fmt.Sprintf("unknown tool '%s' — must be one of: buf, protolock", cfg.Tool))
	}

	if cfg.APIDir == "" {
		errs = append(errs, "'api_dir' is required — add 'api_dir: api' pointing at your proto directory")
	}

	if cfg.LockFile == "" {
		errs = append(errs, "'lock_file' is required — add 'lock_file: api/proto_snapshot.bin'")
	} else if cfg.Tool == "protolock" && filepath.Base(cfg.LockFile) != "proto.lock" {
		errs = append(errs, fmt.Sprintf("tool 'protolock' requires a lock file named proto.lock, got '%s'", cfg.LockFile))
	}

	if _, err := lock.ParseFormat(cfg.LockFormat); err != nil {
		errs = append(errs, err.Error())
	}

	if cfg.Git.Path == "" {
		errs = append(errs, "'git.path' is required — add 'path: .git' under 'git'")
	}

	return errs
}

// Format returns the configured lock format, inferring it from the lock file
// extension when unset.
func (c *Config) Format() lock.Format {
	f, err := lock.ParseFormat(c.LockFormat)
	if err != nil || f == lock.FormatUnknown {
		return lock.FormatFor(c.LockFile)
	}
	return f
}

// Resolve returns path joined to root unless it is empty or absolute.
func Resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
