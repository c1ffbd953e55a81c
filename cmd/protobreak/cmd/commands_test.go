package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bianoble/protobreak/internal/config"
	"github.com/bianoble/protobreak/internal/runner"
	"github.com/bianoble/protobreak/internal/runner/runnertest"
)

const violation = `api/envoy.proto:3:3:Field "1" on message "Foo" changed type from "int32" to "string".`

// newTestProject lays out <root>/api/envoy.proto with no config file, so
// defaults apply, and routes every tool invocation to a fake runner.
func newTestProject(t *testing.T) (string, *runnertest.Fake) {
	t.Helper()
	root := t.TempDir()
	api := filepath.Join(root, "api")
	require.NoError(t, os.MkdirAll(api, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(api, "envoy.proto"), []byte("syntax = \"proto3\";\n"), 0644))
	useConfigPath(t, filepath.Join(root, config.FileName))

	fake := runnertest.New()
	oldRunner, oldDiscover := newRunner, discoverTool
	newRunner = func(*slog.Logger) runner.Runner { return fake }
	discoverTool = func(tool, _ string) (string, error) { return tool, nil }
	t.Cleanup(func() {
		newRunner, discoverTool = oldRunner, oldDiscover
	})
	return root, fake
}

// writesImage makes "build -o <path>" write content, as buf would.
func writesImage(content string) runnertest.Response {
	return runnertest.Response{Effect: func(c runner.Command) error {
		if out := runnertest.ArgValue(c.Args, "-o"); out != "" {
			return os.WriteFile(out, []byte(content), 0644)
		}
		return nil
	}}
}

func execute(c *cobra.Command, args ...string) error {
	c.SetContext(context.Background())
	return c.RunE(c, args)
}

// captureStdout returns what fn prints to os.Stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	old := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = old }()

	out := make(chan string, 1)
	go func() {
		data, _ := io.ReadAll(r)
		out <- string(data)
	}()

	fn()
	require.NoError(t, w.Close())
	return <-out
}

func writeLock(t *testing.T, root, content string) string {
	t.Helper()
	path := filepath.Join(root, "api", "proto_snapshot.bin")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCheckClean(t *testing.T) {
	root, fake := newTestProject(t)
	writeLock(t, root, "image")

	require.NoError(t, execute(checkCmd))

	assert.Equal(t, 1, fake.Count("mod update"))
	assert.Equal(t, 1, fake.Count("breaking"))
	for _, c := range fake.Calls() {
		assert.Equal(t, root, c.Dir)
		if runnertest.Key(c) == "breaking" {
			assert.Equal(t, filepath.Join(root, "api", "proto_snapshot.bin"), runnertest.ArgValue(c.Args, "--against"))
			assert.Equal(t, "api", runnertest.ArgValue(c.Args, "--path"))
			assert.NotContains(t, c.Args, "--config")
		}
	}
}

func TestCheckBreaking(t *testing.T) {
	root, fake := newTestProject(t)
	writeLock(t, root, "image")
	fake.On("breaking", runnertest.Response{Result: runner.Result{ExitCode: 100, Stdout: []string{violation}}})

	err := execute(checkCmd)

	assert.True(t, errors.Is(err, errBreaking))
}

func TestCheckUsesBufConfig(t *testing.T) {
	root, fake := newTestProject(t)
	writeLock(t, root, "image")
	bufYAML := filepath.Join(root, "api", "buf.yaml")
	require.NoError(t, os.WriteFile(bufYAML, []byte("version: v1\n"), 0644))

	require.NoError(t, execute(checkCmd))

	for _, c := range fake.Calls() {
		assert.Equal(t, filepath.Join(root, "api"), c.Dir)
		if runnertest.Key(c) == "breaking" {
			assert.Equal(t, bufYAML, runnertest.ArgValue(c.Args, "--config"))
			assert.Empty(t, runnertest.ArgValue(c.Args, "--path"))
		}
	}
}

func TestCheckToolStderr(t *testing.T) {
	root, fake := newTestProject(t)
	writeLock(t, root, "image")
	fake.On("breaking", runnertest.Response{Result: runner.Result{ExitCode: 1, Stderr: []string{"Failure: compile error"}}})

	err := execute(checkCmd)

	require.Error(t, err)
	assert.False(t, errors.Is(err, errBreaking))
	assert.Contains(t, err.Error(), "compile error")
}

func TestCheckMissingLock(t *testing.T) {
	_, fake := newTestProject(t)

	err := execute(checkCmd)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected lock file")
	assert.Empty(t, fake.Calls())
}

func TestFixCreatesLock(t *testing.T) {
	root, fake := newTestProject(t)
	fake.On("build", writesImage("image"))

	require.NoError(t, execute(fixCmd))

	data, err := os.ReadFile(filepath.Join(root, "api", "proto_snapshot.bin"))
	require.NoError(t, err)
	assert.Equal(t, "image", string(data))
	assert.Zero(t, fake.Count("breaking"))
}

func TestFixUpdatesExistingLock(t *testing.T) {
	root, fake := newTestProject(t)
	lockPath := writeLock(t, root, "old image")
	fake.On("build", writesImage("new image"))

	require.NoError(t, execute(fixCmd))

	data, err := os.ReadFile(lockPath)
	require.NoError(t, err)
	assert.Equal(t, "new image", string(data))
	// fix accepts breaking changes, so it never asks the tool for a verdict.
	assert.Zero(t, fake.Count("breaking"))
}

func TestCheckGitRequiresRef(t *testing.T) {
	newTestProject(t)

	err := execute(checkGitCmd)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "git ref is required")
}

func TestCheckGitConflictingRefs(t *testing.T) {
	newTestProject(t)
	old := gitRefFlag
	gitRefFlag = "main"
	defer func() { gitRefFlag = old }()

	err := execute(checkGitCmd, "HEAD~1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicting git refs")
}

func TestCheckGitNotARepository(t *testing.T) {
	newTestProject(t)

	err := execute(checkGitCmd, "main")

	require.Error(t, err)
}

func TestCheckGitAgainstCommit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	root, fake := newTestProject(t)
	git := func(args ...string) string {
		t.Helper()
		c := exec.Command("git", append([]string{"-C", root}, args...)...)
		c.Env = append(os.Environ(), "GIT_CONFIG_NOSYSTEM=1", "GIT_TERMINAL_PROMPT=0")
		out, err := c.Output()
		require.NoError(t, err, "git %v", args)
		return strings.TrimSpace(string(out))
	}
	git("init", "-q")
	git("add", "api/envoy.proto")
	git("-c", "user.name=protobreak", "-c", "user.email=protobreak@example.com", "-c", "commit.gpgsign=false", "commit", "-q", "-m", "initial")
	sha := git("rev-parse", "HEAD")
	gitDir := git("rev-parse", "--absolute-git-dir")
	fake.On("breaking", runnertest.Response{Result: runner.Result{ExitCode: 100, Stdout: []string{violation}}})

	var err error
	out := captureStdout(t, func() { err = execute(checkGitCmd, "HEAD") })

	assert.True(t, errors.Is(err, errBreaking))
	require.Equal(t, 1, fake.Count("breaking"))
	for _, c := range fake.Calls() {
		if runnertest.Key(c) == "breaking" {
			assert.Equal(t, gitDir+"#ref="+sha+",subdir=api", runnertest.ArgValue(c.Args, "--against"))
		}
	}
	assert.Contains(t, out, "Breaking changes detected in api protobufs:\n\t0: "+violation+"\n")
	assert.Contains(t, out, "since HEAD")
}

func TestWatchRunsInitialCheck(t *testing.T) {
	root, fake := newTestProject(t)
	writeLock(t, root, "image")
	fake.On("breaking", runnertest.Response{Result: runner.Result{ExitCode: 100, Stdout: []string{violation}}})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	watchCmd.SetContext(ctx)

	var err error
	out := captureStdout(t, func() { err = watchCmd.RunE(watchCmd, nil) })

	// A breaking result is reported but does not end the watch.
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Count("mod update"))
	assert.Equal(t, 1, fake.Count("breaking"))
	assert.Contains(t, out, "\t0: "+violation)
	assert.Contains(t, out, "Watching api for changes")
}

func TestWatchMissingLock(t *testing.T) {
	_, fake := newTestProject(t)

	err := execute(watchCmd)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected lock file")
	assert.Empty(t, fake.Calls())
}

func TestSelftest(t *testing.T) {
	_, fake := newTestProject(t)
	// The image reflects the protos, so accepted changes alter it.
	fake.On("build", runnertest.Response{Effect: func(c runner.Command) error {
		out := runnertest.ArgValue(c.Args, "-o")
		if out == "" {
			return nil
		}
		protos, err := filepath.Glob(filepath.Join(filepath.Dir(out), "*.proto"))
		if err != nil {
			return err
		}
		var b strings.Builder
		for _, p := range protos {
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			b.Write(data)
		}
		return os.WriteFile(out, []byte(b.String()), 0644)
	}})

	scenarios, err := filepath.Abs("../../../testdata/scenarios")
	require.NoError(t, err)
	oldRun, oldDir := selftestRun, selftestScenarios
	selftestRun, selftestScenarios = "add_field", scenarios
	defer func() { selftestRun, selftestScenarios = oldRun, oldDir }()

	require.NoError(t, execute(selftestCmd))
}

func TestSelftestReportsFailure(t *testing.T) {
	_, fake := newTestProject(t)
	fake.On("build", writesImage("image"))

	scenarios, err := filepath.Abs("../../../testdata/scenarios")
	require.NoError(t, err)
	oldRun, oldDir := selftestRun, selftestScenarios
	selftestRun, selftestScenarios = "remove_field", scenarios
	defer func() { selftestRun, selftestScenarios = oldRun, oldDir }()

	err = execute(selftestCmd)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "selftest failed")
}

func TestSelftestNoMatch(t *testing.T) {
	newTestProject(t)
	scenarios, err := filepath.Abs("../../../testdata/scenarios")
	require.NoError(t, err)
	oldRun, oldDir := selftestRun, selftestScenarios
	selftestRun, selftestScenarios = "nothing_*", scenarios
	defer func() { selftestRun, selftestScenarios = oldRun, oldDir }()

	err = execute(selftestCmd)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenarios matching")
}
