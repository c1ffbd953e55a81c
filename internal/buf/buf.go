// Package buf drives the buf CLI: dependency refresh, image builds used as
// lock files, and breaking-change comparisons.
package buf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bianoble/protobreak/internal/errors"
	"github.com/bianoble/protobreak/internal/runner"
)

// DefaultBinary is the buf executable name looked up when no path is configured.
const DefaultBinary = "buf"

// Invocation holds everything needed to run buf against a target directory.
type Invocation struct {
	// Binary is the buf executable.
	Binary string
	// Root is the working directory of every buf process and the base that
	// Target is made relative to.
	Root   string
	Target string
	// ConfigFile is an optional buf.yaml passed with --config.
	ConfigFile string
	Args       []string
	Log        *slog.Logger
}

func (inv Invocation) command(args ...string) runner.Command {
	bin := inv.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	return runner.Command{Dir: inv.Root, Name: bin, Args: args}
}

func (inv Invocation) logger() *slog.Logger {
	if inv.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return inv.Log
}

// PullDeps refreshes buf's dependency cache and validates that the target
// builds, so later checks do not need registry access.
func PullDeps(ctx context.Context, r runner.Runner, inv Invocation) error {
	args, err := Args(inv.Root, inv.Target, inv.ConfigFile, inv.Args)
	if err != nil {
		return err
	}

	// buf reports download progress on stderr, so only the exit code counts.
	update, err := r.Run(ctx, inv.command("mod", "update"))
	if err != nil {
		return &errors.InitializationError{Step: "buf mod update", Err: err}
	}
	if update.ExitCode != 0 {
		return &errors.InitializationError{Step: "buf mod update", ExitCode: update.ExitCode, Stderr: update.Stderr}
	}

	build, err := r.Run(ctx, inv.command(append([]string{"build"}, args...)...))
	if err != nil {
		return &errors.InitializationError{Step: "buf build", Err: err}
	}
	if build.ExitCode != 0 {
		return &errors.InitializationError{
			Step:     "buf build after updating deps",
			ExitCode: build.ExitCode,
			Stdout:   build.Stdout,
			Stderr:   build.Stderr,
		}
	}

	if deps, lockErr := ReadLock(inv.Root); lockErr == nil {
		inv.logger().Debug("Pulled buf dependencies", "deps", deps.Names())
	}
	return nil
}

// MakeLock builds an image of the target into lockPath. A clean build is
// silent: any output on stdout or stderr is treated as a failure.
func MakeLock(ctx context.Context, r runner.Runner, inv Invocation, lockPath string) error {
	args, err := Args(inv.Root, inv.Target, inv.ConfigFile, inv.Args)
	if err != nil {
		return err
	}

	res, err := r.Run(ctx, inv.command(append([]string{"build", "-o", lockPath}, args...)...))
	if err != nil {
		return &errors.InitializationError{Step: "buf build -o " + lockPath, Err: err}
	}
	if res.ExitCode != 0 || len(res.Stdout) > 0 || len(res.Stderr) > 0 {
		return &errors.InitializationError{
			Step:     "buf build -o " + lockPath,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}
	return nil
}

// CheckBreaking runs buf breaking against the given baseline and returns the
// raw result without interpreting it.
func CheckBreaking(ctx context.Context, r runner.Runner, inv Invocation, against string) (*runner.Result, error) {
	if against == "" {
		return nil, errors.Configuration("against", "a lock file path or git input is required")
	}

	args, err := Args(inv.Root, inv.Target, inv.ConfigFile, inv.Args)
	if err != nil {
		return nil, err
	}

	res, err := r.Run(ctx, inv.command(append([]string{"breaking", "--against", against}, args...)...))
	if err != nil {
		return nil, fmt.Errorf("running buf breaking: %w", err)
	}
	return res, nil
}

// GitAgainst formats a buf git input for the given repository, ref and subdirectory.
func GitAgainst(gitPath, ref, subdir string) string {
	input := fmt.Sprintf("%s#ref=%s", gitPath, ref)
	if subdir != "" {
		input += ",subdir=" + subdir
	}
	return input
}
