// Package gitref validates git revisions used as the "before" state of a
// breaking-change check.
package gitref

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Ref is a git revision resolved within a repository.
type Ref struct {
	// Name is the revision as given by the user.
	Name string
	// Commit is the full commit SHA the revision points at.
	Commit string
	// GitDir is the absolute path of the repository's .git directory.
	GitDir string
}

// Short returns an abbreviated commit SHA.
func (r *Ref) Short() string {
	if len(r.Commit) > 8 {
		return r.Commit[:8]
	}
	return r.Commit
}

// Resolve checks that ref names a commit in the repository containing
// repoDir and returns its SHA and git directory.
func Resolve(ctx context.Context, repoDir, ref string) (*Ref, error) {
	if ref == "" {
		return nil, fmt.Errorf("git ref is required")
	}
	if strings.HasPrefix(ref, "-") {
		return nil, fmt.Errorf("invalid git ref '%s'", ref)
	}

	gitDir, err := revParse(ctx, repoDir, "--absolute-git-dir")
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %s: %w", repoDir, err)
	}

	commit, err := revParse(ctx, repoDir, "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		return nil, fmt.Errorf("git ref '%s' does not name a commit: %w", ref, err)
	}

	return &Ref{Name: ref, Commit: commit, GitDir: gitDir}, nil
}

func revParse(ctx context.Context, repoDir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", repoDir, "rev-parse"}, args...)...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}
