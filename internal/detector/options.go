package detector

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bianoble/protobreak/internal/errors"
	"github.com/bianoble/protobreak/internal/lock"
	"github.com/bianoble/protobreak/internal/runner"
	"github.com/bianoble/protobreak/internal/sandbox"
)

// resolve fills in defaults and makes every path absolute against WorkDir.
// It does not check that the paths exist.
func (o Options) resolve() (Options, error) {
	if o.Tool == "" {
		o.Tool = ToolBuf
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Runner == nil {
		o.Runner = runner.NewExec(o.Logger)
	}
	if o.Registry == nil {
		o.Registry = DefaultRegistry()
	}
	if o.GitRef != "" && o.GitSubdir == "" {
		o.GitSubdir = DefaultGitSubdir
	}

	if o.WorkDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return o, fmt.Errorf("getting working directory: %w", err)
		}
		o.WorkDir = cwd
	}
	workDir, err := filepath.Abs(o.WorkDir)
	if err != nil {
		return o, fmt.Errorf("resolving working directory: %w", err)
	}
	o.WorkDir = workDir

	o.ChangedDir = o.abs(o.ChangedDir)
	o.LockFile = o.abs(o.LockFile)
	o.ConfigFile = o.abs(o.ConfigFile)
	o.GitPath = o.abs(o.GitPath)

	return o, nil
}

func (o *Options) abs(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(o.WorkDir, path)
}

// validate enforces the construction invariants on resolved options.
func (o *Options) validate() error {
	info, err := os.Stat(o.ChangedDir)
	if o.ChangedDir == "" || err != nil || !info.IsDir() {
		return errors.Configuration("changed_dir", "%s is not a valid directory", o.ChangedDir)
	}

	if !sandbox.StrictlyUnder(o.WorkDir, o.ChangedDir) {
		return errors.Configuration("changed_dir", "%s must be a subdirectory of the working root (%s)", o.ChangedDir, o.WorkDir)
	}

	if o.LockFile != "" {
		info, err := os.Stat(o.LockFile)
		if err != nil || !info.Mode().IsRegular() {
			return errors.Configuration("lock_file", "%s is not a file path", o.LockFile)
		}
	}

	if (o.LockFile != "") == (o.GitRef != "") {
		return errors.Configuration("", "expecting either a path to a lock file or a git ref, but not both")
	}
	if (o.GitRef != "") != (o.GitPath != "") {
		return errors.Configuration("", "if using git mode, expecting a git ref and a path to .git file")
	}

	if o.LockFile != "" && o.LockFormat != lock.FormatText && o.LockFormat != lock.FormatBinary {
		return errors.Configuration("lock_format", "must be text or binary in lock file mode")
	}

	return nil
}

func (o *Options) baseline() Baseline {
	if o.Mode() == ModeGit {
		return Baseline{Git: &GitBaseline{Path: o.GitPath, Ref: o.GitRef, Subdir: o.GitSubdir}}
	}
	return Baseline{LockFile: o.LockFile}
}

// NewBackend resolves opts and builds the selected backend without
// validating the detector invariants or preparing the tool. It is used to
// create an initial lock file before a detector can be constructed.
func NewBackend(opts Options) (Backend, error) {
	o, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	factory, err := o.Registry.Get(o.Tool)
	if err != nil {
		return nil, errors.Configuration("tool", "%v", err)
	}
	return factory(&o, o.Runner)
}
