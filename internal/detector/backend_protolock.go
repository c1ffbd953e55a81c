package detector

import (
	"context"
	"path/filepath"

	"github.com/bianoble/protobreak/internal/errors"
	"github.com/bianoble/protobreak/internal/lock"
	"github.com/bianoble/protobreak/internal/protolock"
	"github.com/bianoble/protobreak/internal/runner"
)

// protolockBackend tracks the changed directory in a proto.lock. protolock
// always reads and writes <lockdir>/proto.lock, so the lock file name is fixed.
type protolockBackend struct {
	inv protolock.Invocation
	r   runner.Runner
}

func newProtolockBackend(o *Options, r runner.Runner) (Backend, error) {
	lockDir := o.ChangedDir
	if o.LockFile != "" {
		if filepath.Base(o.LockFile) != protolock.LockFileName {
			return nil, errors.Configuration("lock_file", "protolock requires a lock file named %s, got %s", protolock.LockFileName, o.LockFile)
		}
		lockDir = filepath.Dir(o.LockFile)
	}

	bin := o.ToolPath
	if bin == "" {
		bin = protolock.DefaultBinary
	}

	return &protolockBackend{
		inv: protolock.Invocation{
			Binary:    bin,
			ProtoRoot: o.ChangedDir,
			LockDir:   lockDir,
			Dir:       o.WorkDir,
			Args:      o.Args,
		},
		r: r,
	}, nil
}

func (p *protolockBackend) Name() string            { return ToolProtolock }
func (p *protolockBackend) SupportsGit() bool       { return false }
func (p *protolockBackend) LockName() string        { return protolock.LockFileName }
func (p *protolockBackend) LockFormat() lock.Format { return lock.FormatText }

// Prepare is a no-op: protolock has no dependencies to fetch.
func (p *protolockBackend) Prepare(context.Context) error {
	return nil
}

func (p *protolockBackend) Check(ctx context.Context, _ Baseline) (*runner.Result, error) {
	return protolock.Status(ctx, p.r, p.inv)
}

func (p *protolockBackend) InitLock(ctx context.Context, lockPath string) error {
	if err := p.checkLockPath(lockPath); err != nil {
		return err
	}
	return protolock.Init(ctx, p.r, p.inv)
}

func (p *protolockBackend) Materialize(ctx context.Context, lockPath string, force bool) error {
	if err := p.checkLockPath(lockPath); err != nil {
		return err
	}
	return protolock.Commit(ctx, p.r, p.inv, force)
}

func (p *protolockBackend) checkLockPath(lockPath string) error {
	want := filepath.Join(p.inv.LockDir, protolock.LockFileName)
	if filepath.Clean(lockPath) != want {
		return errors.Configuration("lock_file", "protolock writes %s, cannot target %s", want, lockPath)
	}
	return nil
}
