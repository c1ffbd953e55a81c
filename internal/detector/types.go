package detector

import (
	"context"
	"log/slog"

	"github.com/bianoble/protobreak/internal/lock"
	"github.com/bianoble/protobreak/internal/runner"
)

// Detector finds breaking changes between a "before" state and the working copy.
type Detector interface {
	// Run invokes the external tool once and stores its result, so that the
	// verdict accessors below never re-invoke it.
	Run(ctx context.Context) error

	// IsBreaking reports whether the last run found breaking changes. Output
	// on the tool's stderr is returned as an error rather than a verdict.
	IsBreaking() (bool, error)

	// BreakingChanges returns the violations reported by the last run.
	BreakingChanges() ([]string, error)

	// LockFileChanged reports whether regenerating the lock file changed its content.
	LockFileChanged() (bool, error)

	// UpdateLockFile regenerates the lock file from the working copy. Unless
	// force is set it does nothing when the last run was breaking.
	UpdateLockFile(ctx context.Context, force bool) error
}

// Backend wraps one external schema tool.
type Backend interface {
	Name() string
	SupportsGit() bool
	// LockName and LockFormat describe the lock file the tool produces.
	LockName() string
	LockFormat() lock.Format
	// Prepare pulls whatever the tool needs so later checks run offline.
	Prepare(ctx context.Context) error
	// Check runs the comparison against baseline and returns the raw result.
	Check(ctx context.Context, baseline Baseline) (*runner.Result, error)
	// InitLock creates the first lock file at lockPath.
	InitLock(ctx context.Context, lockPath string) error
	// Materialize regenerates an existing lock file at lockPath.
	Materialize(ctx context.Context, lockPath string, force bool) error
}

// Baseline is the "before" state a check compares against. Exactly one of
// LockFile and Git is set.
type Baseline struct {
	LockFile string
	Git      *GitBaseline
}

// GitBaseline is a historical revision used as the "before" state.
type GitBaseline struct {
	Path   string // path to the repository's .git
	Ref    string
	Subdir string // directory inside the repository holding the protos
}

// Mode is the way the "before" state is supplied.
type Mode string

const (
	ModeLockFile Mode = "lock_file"
	ModeGit      Mode = "git"
)

// Tool names known to the default registry.
const (
	ToolBuf       = "buf"
	ToolProtolock = "protolock"
)

// DefaultGitSubdir is the repository subdirectory compared in git mode.
const DefaultGitSubdir = "api"

// Options configures a detector. Relative paths are resolved against WorkDir.
type Options struct {
	// Tool selects the backend by registry name. Default: buf.
	Tool string

	// ChangedDir holds the protos in the "after" state. It must be a
	// directory strictly below WorkDir.
	ChangedDir string

	// WorkDir is the working root. Default: the process working directory.
	WorkDir string

	// Lock file mode.
	LockFile   string
	LockFormat lock.Format

	// Git mode.
	GitRef    string
	GitPath   string
	GitSubdir string

	// ToolPath overrides the tool binary. Default: the tool name, looked up in $PATH.
	ToolPath string

	// ConfigFile is an optional tool configuration file (buf.yaml).
	ConfigFile string

	// Args are passed through to every tool invocation.
	Args []string

	Runner   runner.Runner
	Logger   *slog.Logger
	Registry *Registry
}

// Mode returns the configured mode.
func (o *Options) Mode() Mode {
	if o.GitRef != "" {
		return ModeGit
	}
	return ModeLockFile
}
