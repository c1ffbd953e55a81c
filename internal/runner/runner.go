// Package runner executes external tool processes and captures their output.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
)

// Command describes one external process invocation.
type Command struct {
	// Dir is the working directory of the child. Empty means the caller's cwd.
	Dir  string
	Name string
	Args []string
	// Env is appended to the parent environment.
	Env []string
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is the outcome of one invocation.
type Result struct {
	ExitCode int
	Stdout   []string
	Stderr   []string
}

// Runner runs an external command synchronously. A nonzero exit status is
// reported through Result.ExitCode, not as an error; the error return is
// reserved for processes that could not be started or read.
type Runner interface {
	Run(ctx context.Context, c Command) (*Result, error)
}

// Exec implements Runner with os/exec.
type Exec struct {
	log *slog.Logger
}

var _ Runner = (*Exec)(nil)

// NewExec creates an Exec runner. A nil logger discards all records.
func NewExec(log *slog.Logger) *Exec {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Exec{log: log.With("component", "runner")}
}

// Run starts the command, drains stdout and stderr concurrently and waits for
// the process to exit.
func (e *Exec) Run(ctx context.Context, c Command) (*Result, error) {
	runID := ulid.Make().String()
	log := e.log.With("run_id", runID)
	log.Debug("Running command", "cmd", c.String(), "dir", c.Dir)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe for %s [%s]: %w", c.Name, runID, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stderr pipe for %s [%s]: %w", c.Name, runID, err)
	}

	if err := cmd.Start(); err != nil {
		log.Debug("Command failed to start", "error", err)
		return nil, fmt.Errorf("starting %s [%s]: %w", c.Name, runID, err)
	}

	res := &Result{}

	// Both pipes must be drained before Wait, otherwise a child that fills
	// one of them blocks forever.
	var g errgroup.Group
	g.Go(func() error {
		lines, readErr := readLines(stdout)
		res.Stdout = lines
		return readErr
	})
	g.Go(func() error {
		lines, readErr := readLines(stderr)
		res.Stderr = lines
		return readErr
	})
	readErr := g.Wait()
	waitErr := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("running %s [%s]: %w", c.Name, runID, ctxErr)
	}
	if readErr != nil {
		return nil, fmt.Errorf("reading output of %s [%s]: %w", c.Name, runID, readErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("waiting for %s [%s]: %w", c.Name, runID, waitErr)
		}
		res.ExitCode = exitErr.ExitCode()
	}

	log.Debug("Command finished",
		"exit_code", res.ExitCode,
		"stdout_lines", len(res.Stdout),
		"stderr_lines", len(res.Stderr),
	)

	return res, nil
}

// readLines reads r to EOF and splits it into lines without their line
// terminators. Lines are not length-limited, so the pipe is always drained.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			lines = append(lines, strings.TrimSuffix(line, "\r"))
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			// Keep the child from blocking on a full pipe.
			_, _ = io.Copy(io.Discard, br)
			return lines, err
		}
	}
}

// NonEmpty returns the lines that contain something other than whitespace.
func NonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
