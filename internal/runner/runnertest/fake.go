// Package runnertest provides a scripted runner.Runner for tests.
package runnertest

import (
	"context"
	"strings"
	"sync"

	"github.com/bianoble/protobreak/internal/runner"
)

// Response is one scripted reply to a command.
type Response struct {
	Result runner.Result
	Err    error
	// Effect runs before the reply is returned, e.g. to write the lock file
	// the real tool would have produced.
	Effect func(c runner.Command) error
}

// Fake replays scripted responses keyed by the command's subcommand (the
// first argument, or the first two joined by a space for "mod update").
// Responses for a key are consumed in order and the last one repeats.
// Unscripted commands succeed silently.
type Fake struct {
	mu        sync.Mutex
	responses map[string][]Response
	calls     []runner.Command
}

var _ runner.Runner = (*Fake)(nil)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{responses: make(map[string][]Response)}
}

// On appends a response for the given subcommand key.
func (f *Fake) On(key string, r Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key] = append(f.responses[key], r)
	return f
}

// Run implements runner.Runner.
func (f *Fake) Run(ctx context.Context, c runner.Command) (*runner.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	key := Key(c)
	queue := f.responses[key]
	var resp Response
	if len(queue) > 0 {
		resp = queue[0]
		if len(queue) > 1 {
			f.responses[key] = queue[1:]
		}
	}
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if resp.Effect != nil {
		if err := resp.Effect(c); err != nil {
			return nil, err
		}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	out := resp.Result
	return &out, nil
}

// Calls returns every command run so far.
func (f *Fake) Calls() []runner.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runner.Command(nil), f.calls...)
}

// Count returns how many commands with the given key were run.
func (f *Fake) Count(key string) int {
	n := 0
	for _, c := range f.Calls() {
		if Key(c) == key {
			n++
		}
	}
	return n
}

// Key derives the lookup key for a command.
func Key(c runner.Command) string {
	if len(c.Args) == 0 {
		return ""
	}
	if len(c.Args) > 1 && c.Args[0] == "mod" {
		return strings.Join(c.Args[:2], " ")
	}
	return c.Args[0]
}

// ArgValue returns the value following flag in args, or "" if absent.
// It understands both "--flag value" and "--flag=value".
func ArgValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, flag+"="); ok {
			return v
		}
	}
	return ""
}
