// Package scenario runs a breaking-change detector against before/after
// fixture pairs to confirm the external tool still enforces the rules we
// rely on. A fixture pair is <kind>/<name>_current and <kind>/<name>_next,
// where kind is "breaking" or "allowed".
package scenario

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/bianoble/protobreak/internal/detector"
	"github.com/bianoble/protobreak/internal/sandbox"
)

// Kind classifies a fixture pair.
type Kind string

const (
	KindBreaking Kind = "breaking"
	KindAllowed  Kind = "allowed"
)

const (
	currentSuffix = "_current"
	nextSuffix    = "_next"
)

// bufModule is written next to the fixture so buf runs with the FILE rule set
// and no remote dependencies.
const bufModule = `version: v1
breaking:
  use:
    - FILE
`

// Case is one before/after fixture pair.
type Case struct {
	Name    string
	Kind    Kind
	Current string
	Next    string
}

// Discover finds every fixture pair under root.
func Discover(root string) ([]Case, error) {
	fsys := os.DirFS(root)
	matches, err := doublestar.Glob(fsys, "{breaking,allowed}/*"+currentSuffix)
	if err != nil {
		return nil, fmt.Errorf("scanning scenarios in %s: %w", root, err)
	}

	cases := make([]Case, 0, len(matches))
	for _, m := range matches {
		kind := Kind(path.Dir(m))
		name := strings.TrimSuffix(path.Base(m), currentSuffix)
		next := path.Join(string(kind), name+nextSuffix)
		if _, err := fs.Stat(fsys, next); err != nil {
			return nil, fmt.Errorf("scenario '%s': missing %s", name, next)
		}
		cases = append(cases, Case{
			Name:    name,
			Kind:    kind,
			Current: filepath.Join(root, filepath.FromSlash(m)),
			Next:    filepath.Join(root, filepath.FromSlash(next)),
		})
	}

	sort.Slice(cases, func(i, j int) bool {
		if cases[i].Kind != cases[j].Kind {
			return cases[i].Kind > cases[j].Kind
		}
		return cases[i].Name < cases[j].Name
	})
	return cases, nil
}

// Expectations adjusts the default verdicts for one tool.
type Expectations struct {
	// Skip maps case names to the reason they are not run.
	Skip map[string]string
	// LockUnchanged lists allowed cases whose change the tool's lock format
	// does not record.
	LockUnchanged map[string]bool
}

// ExpectationsFor returns the known deviations of a tool.
func ExpectationsFor(tool string) Expectations {
	pgv := map[string]string{
		"change_pgv_field":   "PGV field support not yet added to " + tool,
		"change_pgv_message": "PGV message option support not yet added to " + tool,
		"change_pgv_oneof":   "PGV oneof option support not yet added to " + tool,
	}
	switch tool {
	case detector.ToolProtolock:
		return Expectations{Skip: pgv, LockUnchanged: map[string]bool{"add_comment": true}}
	default:
		return Expectations{Skip: pgv}
	}
}

// Outcome is the observed behavior for one case.
type Outcome struct {
	Case        Case
	Breaking    bool
	LockChanged bool
	Violations  []string
	Skipped     string
	Err         error

	WantBreaking    bool
	WantLockChanged bool
}

// Passed reports whether the tool behaved as expected.
func (o Outcome) Passed() bool {
	if o.Skipped != "" {
		return true
	}
	if o.Err != nil {
		return false
	}
	return o.Breaking == o.WantBreaking && o.LockChanged == o.WantLockChanged
}

// Suite runs cases with a detector built from Template.
type Suite struct {
	// WorkDir is the working root; each case gets a temporary directory below it.
	WorkDir string
	// Template supplies the tool, binary, pass-through args, runner and logger.
	Template detector.Options
	Expect   Expectations
}

// RunAll runs every case in order.
func (s *Suite) RunAll(ctx context.Context, cases []Case) []Outcome {
	out := make([]Outcome, 0, len(cases))
	for _, c := range cases {
		out = append(out, s.Run(ctx, c))
	}
	return out
}

// Run materializes the "current" fixture, snapshots it, swaps in the "next"
// fixture and runs the detector against the snapshot. The temporary
// directory is removed whatever the outcome.
func (s *Suite) Run(ctx context.Context, c Case) Outcome {
	o := Outcome{
		Case:            c,
		WantBreaking:    c.Kind == KindBreaking,
		WantLockChanged: c.Kind == KindAllowed && !s.Expect.LockUnchanged[c.Name],
	}
	if reason, ok := s.Expect.Skip[c.Name]; ok {
		o.Skipped = reason
		return o
	}

	dir, err := os.MkdirTemp(s.WorkDir, ".protobreak-scenario-*")
	if err != nil {
		o.Err = fmt.Errorf("creating scenario directory: %w", err)
		return o
	}
	defer func() { _ = os.RemoveAll(dir) }()

	o.Err = s.run(ctx, c, dir, &o)
	return o
}

func (s *Suite) run(ctx context.Context, c Case, dir string, o *Outcome) error {
	target := c.Name + ".proto"
	if err := sandbox.CopyFile(dir, c.Current, target); err != nil {
		return err
	}

	opts := s.Template
	opts.WorkDir = s.WorkDir
	opts.ChangedDir = dir
	if opts.Tool == "" || opts.Tool == detector.ToolBuf {
		if err := sandbox.SafeWrite(dir, "buf.yaml", []byte(bufModule), 0644); err != nil {
			return err
		}
		opts.ConfigFile = filepath.Join(dir, "buf.yaml")
	}

	backend, err := detector.NewBackend(opts)
	if err != nil {
		return err
	}
	lockPath := filepath.Join(dir, backend.LockName())
	if err := backend.InitLock(ctx, lockPath); err != nil {
		return err
	}

	if err := sandbox.CopyFile(dir, c.Next, target); err != nil {
		return err
	}

	opts.LockFile = lockPath
	opts.LockFormat = backend.LockFormat()
	d, err := detector.New(ctx, opts)
	if err != nil {
		return err
	}
	if err := d.Run(ctx); err != nil {
		return err
	}

	if o.Breaking, err = d.IsBreaking(); err != nil {
		return err
	}
	if o.Violations, err = d.BreakingChanges(); err != nil {
		return err
	}
	if err := d.UpdateLockFile(ctx, false); err != nil {
		return err
	}
	o.LockChanged, err = d.LockFileChanged()
	return err
}
