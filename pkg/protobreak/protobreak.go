// Package protobreak provides the public Go library API for protobreak.
//
// protobreak detects backwards-incompatible changes to protobuf API
// definitions by delegating the comparison to buf or protolock. The "before"
// state is either a committed lock file or a git revision.
//
// # Basic Usage
//
//	d, err := protobreak.New(ctx, protobreak.Options{
//	    WorkDir:    "/path/to/repo",
//	    ChangedDir: "api",
//	    LockFile:   "api/proto_snapshot.bin",
//	    LockFormat: protobreak.FormatBinary,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := d.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	breaking, err := d.IsBreaking()
//
// Open builds the same detector from a .protobreak.yaml file.
package protobreak

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bianoble/protobreak/internal/config"
	"github.com/bianoble/protobreak/internal/detector"
	"github.com/bianoble/protobreak/internal/runner"
)

// New validates opts, prepares the selected tool and returns a detector
// ready to Run.
func New(ctx context.Context, opts Options) (Detector, error) {
	return detector.New(ctx, opts)
}

// NewBackend returns the tool backend opts select without preparing it,
// e.g. to create the first lock file with InitLock.
func NewBackend(opts Options) (Backend, error) {
	return detector.NewBackend(opts)
}

// DefaultRegistry returns a registry with the built-in backends, to which
// callers may add their own.
func DefaultRegistry() *Registry {
	return detector.DefaultRegistry()
}

// Discover locates a tool binary, honoring an explicit path if given.
func Discover(tool, explicit string) (string, error) {
	return runner.Discover(tool, explicit)
}

// OpenOptions customizes Open.
type OpenOptions struct {
	// Runner replaces the process runner, e.g. in tests.
	Runner Runner
	// ToolPath skips discovery when set.
	ToolPath string
	// NoInherit ignores the system and user config files.
	NoInherit bool
}

// Open builds a lock file mode detector from a configuration file layered
// over the system and user config files. Paths in the file are relative to
// its directory. A missing file means defaults.
func Open(ctx context.Context, configPath string, o OpenOptions) (Detector, error) {
	res, err := config.LoadHierarchical(config.HierarchicalOptions{
		ProjectPath: configPath,
		NoInherit:   o.NoInherit,
	})
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", configPath, err)
	}
	cfg := res.Config
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	root := filepath.Dir(abs)

	toolPath := o.ToolPath
	if toolPath == "" {
		explicit := config.Resolve(root, cfg.ToolPath)
		if toolPath, err = runner.Discover(cfg.Tool, explicit); err != nil {
			return nil, err
		}
	}

	opts := Options{
		Tool:       cfg.Tool,
		WorkDir:    root,
		ChangedDir: config.Resolve(root, cfg.APIDir),
		LockFile:   config.Resolve(root, cfg.LockFile),
		LockFormat: cfg.Format(),
		ToolPath:   toolPath,
		Args:       cfg.Args,
		Runner:     o.Runner,
	}
	if cfg.Tool == ToolBuf && cfg.BufConfig != "" {
		if bufConfig := config.Resolve(root, cfg.BufConfig); fileExists(bufConfig) {
			opts.ConfigFile = bufConfig
		}
	}
	return detector.New(ctx, opts)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
