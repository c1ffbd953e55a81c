// Package detector orchestrates breaking-change detection: it validates the
// configuration, prepares the external tool, runs the comparison and
// interprets its result.
package detector

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bianoble/protobreak/internal/errors"
	"github.com/bianoble/protobreak/internal/lock"
	"github.com/bianoble/protobreak/internal/runner"
)

// Facade is the stateful Detector implementation shared by all backends.
// It is not safe for concurrent use.
type Facade struct {
	opts    Options
	backend Backend
	log     *slog.Logger

	before *lock.Snapshot
	after  *lock.Snapshot
	result *runner.Result
}

var _ Detector = (*Facade)(nil)

// New validates opts, builds the selected backend and prepares it. A
// detector is never returned partially built.
func New(ctx context.Context, opts Options) (*Facade, error) {
	o, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	factory, err := o.Registry.Get(o.Tool)
	if err != nil {
		return nil, errors.Configuration("tool", "%v", err)
	}
	backend, err := factory(&o, o.Runner)
	if err != nil {
		return nil, err
	}
	if o.Mode() == ModeGit && !backend.SupportsGit() {
		return nil, errors.Configuration("git_ref", "%s does not support git mode, use a lock file", backend.Name())
	}

	f := &Facade{
		opts:    o,
		backend: backend,
		log:     o.Logger.With("component", "detector", "tool", backend.Name()),
	}

	f.log.Debug("Preparing tool", "changed_dir", o.ChangedDir, "mode", o.Mode())
	if err := backend.Prepare(ctx); err != nil {
		return nil, err
	}

	return f, nil
}

// Mode returns the way the "before" state is supplied.
func (f *Facade) Mode() Mode {
	return f.opts.Mode()
}

// Backend returns the tool backend in use.
func (f *Facade) Backend() Backend {
	return f.backend
}

// Snapshots returns the lock file content read before the last run and
// after the last regeneration. Either may be nil.
func (f *Facade) Snapshots() (before, after *lock.Snapshot) {
	return f.before, f.after
}

// Run reads the "before" lock file (in lock file mode) and runs the check.
func (f *Facade) Run(ctx context.Context) error {
	if f.Mode() == ModeLockFile {
		snap, err := lock.Read(f.opts.LockFile, f.opts.LockFormat)
		if err != nil {
			return &errors.DetectorError{Op: "run", Err: err}
		}
		f.before = snap
		f.after = nil
		f.log.Debug("Read lock file", "path", snap.Path, "digest", lock.DigestString(snap))
	}

	res, err := f.backend.Check(ctx, f.opts.baseline())
	if err != nil {
		return &errors.DetectorError{Op: "run", Err: err}
	}
	f.result = res

	f.log.Debug("Check finished", "exit_code", res.ExitCode, "stdout_lines", len(res.Stdout), "stderr_lines", len(res.Stderr))
	return nil
}

// IsBreaking interprets the stored result. A nonzero exit code with no
// output at all still counts as breaking.
func (f *Facade) IsBreaking() (bool, error) {
	if f.result == nil {
		return false, &errors.DetectorError{Op: "is breaking", Err: errors.ErrNotRun}
	}

	if len(f.result.Stderr) > 0 {
		return false, &errors.DetectorError{
			Op:  "is breaking",
			Err: &errors.ToolOutputError{Tool: f.backend.Name(), Stderr: strings.Join(f.result.Stderr, "\n")},
		}
	}

	return f.result.ExitCode != 0 || len(f.result.Stdout) > 0, nil
}

// BreakingChanges returns the nonempty stdout lines of a breaking run.
func (f *Facade) BreakingChanges() ([]string, error) {
	breaking, err := f.IsBreaking()
	if err != nil {
		return nil, err
	}
	if !breaking {
		return []string{}, nil
	}
	return runner.NonEmpty(f.result.Stdout), nil
}

// UpdateLockFile regenerates the lock file at its configured path.
func (f *Facade) UpdateLockFile(ctx context.Context, force bool) error {
	if f.Mode() != ModeLockFile {
		return &errors.DetectorError{Op: "update lock file", Err: errors.ErrGitMode}
	}

	if !force {
		breaking, err := f.IsBreaking()
		if err != nil {
			return err
		}
		if breaking {
			f.log.Info("Refusing to update lock file after a breaking run", "path", f.opts.LockFile)
			return nil
		}
	}

	if f.before == nil {
		snap, err := lock.Read(f.opts.LockFile, f.opts.LockFormat)
		if err != nil {
			return &errors.DetectorError{Op: "update lock file", Err: err}
		}
		f.before = snap
	}

	if err := f.backend.Materialize(ctx, f.opts.LockFile, force); err != nil {
		return err
	}

	snap, err := lock.Read(f.opts.LockFile, f.opts.LockFormat)
	if err != nil {
		return &errors.DetectorError{Op: "update lock file", Err: err}
	}
	f.after = snap

	f.log.Debug("Updated lock file",
		"path", snap.Path,
		"before", lock.DigestString(f.before),
		"after", lock.DigestString(f.after),
	)
	return nil
}

// LockFileChanged reports whether the regenerated lock file differs from
// the one read before. It is false until UpdateLockFile has regenerated it.
func (f *Facade) LockFileChanged() (bool, error) {
	if f.Mode() != ModeLockFile {
		return false, &errors.DetectorError{Op: "lock file changed", Err: errors.ErrGitMode}
	}
	if f.after == nil {
		return false, nil
	}
	return lock.Changed(f.before, f.after), nil
}
