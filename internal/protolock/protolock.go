// Package protolock drives the protolock CLI, which tracks proto definitions
// in a JSON proto.lock file.
package protolock

import (
	"context"
	"fmt"

	"github.com/bianoble/protobreak/internal/errors"
	"github.com/bianoble/protobreak/internal/runner"
)

const (
	// DefaultBinary is the protolock executable name.
	DefaultBinary = "protolock"

	// LockFileName is the file protolock writes into its lock directory.
	LockFileName = "proto.lock"
)

// Invocation holds the settings shared by every protolock command.
type Invocation struct {
	Binary    string
	ProtoRoot string
	LockDir   string
	// Dir is the working directory of the protolock process.
	Dir  string
	Args []string
}

func (inv Invocation) command(action string, extra ...string) runner.Command {
	bin := inv.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	// An empty --plugins disables any plugins configured in the environment.
	args := []string{action, "--plugins=", "--protoroot=" + inv.ProtoRoot, "--lockdir=" + inv.LockDir}
	args = append(args, extra...)
	args = append(args, inv.Args...)
	return runner.Command{Dir: inv.Dir, Name: bin, Args: args}
}

// Init creates a new proto.lock. protolock is silent on success.
func Init(ctx context.Context, r runner.Runner, inv Invocation) error {
	return runSilent(ctx, r, inv.command("init"), "protolock init")
}

// Commit rewrites proto.lock from the current definitions. Without force,
// protolock refuses to commit when status reports conflicts.
func Commit(ctx context.Context, r runner.Runner, inv Invocation, force bool) error {
	var extra []string
	if force {
		extra = append(extra, "--force")
	}
	return runSilent(ctx, r, inv.command("commit", extra...), "protolock commit")
}

// Status compares the current definitions against proto.lock and returns the
// raw result. Conflicts are reported on stdout as "CONFLICT: ..." lines.
func Status(ctx context.Context, r runner.Runner, inv Invocation) (*runner.Result, error) {
	res, err := r.Run(ctx, inv.command("status"))
	if err != nil {
		return nil, fmt.Errorf("running protolock status: %w", err)
	}
	return res, nil
}

func runSilent(ctx context.Context, r runner.Runner, c runner.Command, step string) error {
	res, err := r.Run(ctx, c)
	if err != nil {
		return &errors.InitializationError{Step: step, Err: err}
	}
	if res.ExitCode != 0 || len(res.Stdout) > 0 || len(res.Stderr) > 0 {
		return &errors.InitializationError{
			Step:     step,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}
	return nil
}
