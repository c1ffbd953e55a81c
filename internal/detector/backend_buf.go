package detector

import (
	"context"
	"path/filepath"

	"github.com/bianoble/protobreak/internal/buf"
	"github.com/bianoble/protobreak/internal/errors"
	"github.com/bianoble/protobreak/internal/lock"
	"github.com/bianoble/protobreak/internal/runner"
	"github.com/bianoble/protobreak/internal/sandbox"
)

// bufBackend runs buf with the config file's directory as its working root,
// which is where buf resolves module roots and buf.lock from.
type bufBackend struct {
	inv buf.Invocation
	r   runner.Runner
}

func newBufBackend(o *Options, r runner.Runner) (Backend, error) {
	root := o.WorkDir
	if o.ConfigFile != "" {
		root = filepath.Dir(o.ConfigFile)
	}
	if _, err := sandbox.Relative(root, o.ChangedDir); err != nil {
		return nil, errors.Configuration("changed_dir", "%s must be under the buf root %s", o.ChangedDir, root)
	}

	bin := o.ToolPath
	if bin == "" {
		bin = buf.DefaultBinary
	}

	return &bufBackend{
		inv: buf.Invocation{
			Binary:     bin,
			Root:       root,
			Target:     o.ChangedDir,
			ConfigFile: o.ConfigFile,
			Args:       o.Args,
			Log:        o.Logger.With("component", "buf"),
		},
		r: r,
	}, nil
}

func (b *bufBackend) Name() string            { return ToolBuf }
func (b *bufBackend) SupportsGit() bool       { return true }
func (b *bufBackend) LockName() string        { return "proto_snapshot.bin" }
func (b *bufBackend) LockFormat() lock.Format { return lock.FormatBinary }

func (b *bufBackend) Prepare(ctx context.Context) error {
	return buf.PullDeps(ctx, b.r, b.inv)
}

func (b *bufBackend) Check(ctx context.Context, baseline Baseline) (*runner.Result, error) {
	against := baseline.LockFile
	if baseline.Git != nil {
		against = buf.GitAgainst(baseline.Git.Path, baseline.Git.Ref, baseline.Git.Subdir)
	}
	return buf.CheckBreaking(ctx, b.r, b.inv, against)
}

func (b *bufBackend) InitLock(ctx context.Context, lockPath string) error {
	return buf.MakeLock(ctx, b.r, b.inv, lockPath)
}

func (b *bufBackend) Materialize(ctx context.Context, lockPath string, _ bool) error {
	return buf.MakeLock(ctx, b.r, b.inv, lockPath)
}
