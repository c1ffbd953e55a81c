package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Merge combines two configs where overlay takes precedence over base:
//   - version: must agree if both declare it (non-zero); error on mismatch
//   - scalar fields and git fields: a non-empty overlay value wins
//   - args: concatenated, base first
func Merge(base, overlay *Config) (*Config, error) {
	if base == nil {
		return overlay, nil
	}
	if overlay == nil {
		return base, nil
	}

	result := *base
	if err := mergeVersion(base.Version, overlay.Version, &result.Version); err != nil {
		return nil, err
	}

	mergeString(&result.Tool, overlay.Tool)
	mergeString(&result.ToolPath, overlay.ToolPath)
	mergeString(&result.APIDir, overlay.APIDir)
	mergeString(&result.LockFile, overlay.LockFile)
	mergeString(&result.LockFormat, overlay.LockFormat)
	mergeString(&result.BufConfig, overlay.BufConfig)
	mergeString(&result.Git.Path, overlay.Git.Path)
	mergeString(&result.Git.Subdir, overlay.Git.Subdir)
	mergeString(&result.Scenarios, overlay.Scenarios)

	result.Args = nil
	result.Args = append(result.Args, base.Args...)
	result.Args = append(result.Args, overlay.Args...)

	return &result, nil
}

// MergeAll merges configs in order, lowest precedence first.
func MergeAll(configs []*Config) (*Config, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("no configs to merge")
	}

	result := configs[0]
	for i := 1; i < len(configs); i++ {
		var err error
		result, err = Merge(result, configs[i])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func mergeVersion(base, overlay int, out *int) error {
	switch {
	case base == 0:
		*out = overlay
	case overlay == 0, base == overlay:
		*out = base
	default:
		return fmt.Errorf("config version mismatch: one layer declares version %d, another declares version %d; all config layers must agree on version", base, overlay)
	}
	return nil
}

func mergeString(dst *string, overlay string) {
	if overlay != "" {
		*dst = overlay
	}
}

// HierarchicalOptions configures LoadHierarchical.
type HierarchicalOptions struct {
	ProjectPath      string
	SystemConfigPath string
	UserConfigPath   string
	// NoInherit loads only the project layer.
	NoInherit bool
}

// HierarchicalResult is a merged config with the status of every layer.
type HierarchicalResult struct {
	Config *Config
	Layers []LayerInfo
}

// LoadHierarchical merges the system, user and project config files over
// Default, applies environment overrides and validates the result. Missing
// files are skipped. A relative tool_path in a system or user file is
// relative to that file; every other path stays relative to the project.
func LoadHierarchical(opts HierarchicalOptions) (*HierarchicalResult, error) {
	var layers []LayerInfo
	if opts.NoInherit || NoInherit() {
		layers = []LayerInfo{{Path: opts.ProjectPath, Level: LevelProject}}
	} else {
		layers = DiscoverPaths(DiscoverOptions{
			ProjectPath:      opts.ProjectPath,
			SystemConfigPath: opts.SystemConfigPath,
			UserConfigPath:   opts.UserConfigPath,
		})
	}

	configs := []*Config{Default()}
	for i := range layers {
		layer := &layers[i]
		cfg, err := parseFile(layer.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			layer.Err = err
			return nil, fmt.Errorf("loading %s config: %w", layer.Level, err)
		}
		if layer.Level != LevelProject && strings.ContainsRune(cfg.ToolPath, filepath.Separator) && !filepath.IsAbs(cfg.ToolPath) {
			cfg.ToolPath = filepath.Join(filepath.Dir(layer.Path), cfg.ToolPath)
		}
		layer.Loaded = true
		configs = append(configs, cfg)
	}

	merged, err := MergeAll(configs)
	if err != nil {
		return nil, err
	}
	applyEnv(merged)

	if errs := Validate(merged); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return &HierarchicalResult{Config: merged, Layers: layers}, nil
}

// parseFile reads one config layer without applying defaults.
func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}
