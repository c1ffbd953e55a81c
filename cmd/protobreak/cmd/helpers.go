package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bianoble/protobreak/internal/config"
	"github.com/bianoble/protobreak/internal/detector"
	pberrors "github.com/bianoble/protobreak/internal/errors"
	"github.com/bianoble/protobreak/internal/runner"
)

// errBreaking is returned after breaking changes have been printed, so the
// process exits nonzero without repeating the report.
var errBreaking = errors.New("breaking changes detected")

// Overridden in tests.
var (
	newRunner    = func(log *slog.Logger) runner.Runner { return runner.NewExec(log) }
	discoverTool = runner.Discover
)

// project is the loaded configuration and the directory it is relative to.
type project struct {
	cfg    *config.Config
	layers []config.LayerInfo
	root   string
	log    *slog.Logger
}

// loadProject merges the system, user and project config files over the
// defaults and applies the --tool override.
func loadProject() (*project, error) {
	res, err := config.LoadHierarchical(config.HierarchicalOptions{ProjectPath: configPath})
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", configPath, err)
	}
	cfg := res.Config
	if toolFlag != "" {
		cfg.Tool = toolFlag
		if errs := config.Validate(cfg); len(errs) > 0 {
			return nil, &config.ValidationError{Errors: errs}
		}
	}

	root, err := projectRoot()
	if err != nil {
		return nil, err
	}
	return &project{cfg: cfg, layers: res.Layers, root: root, log: newLogger()}, nil
}

// projectRoot returns the directory containing the config file.
func projectRoot() (string, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("resolving config path: %w", err)
	}
	return filepath.Dir(abs), nil
}

func (p *project) path(rel string) string {
	return config.Resolve(p.root, rel)
}

func (p *project) lockPath() string {
	return p.path(p.cfg.LockFile)
}

// display shortens an absolute path under the project root for output.
func (p *project) display(path string) string {
	if rel, err := filepath.Rel(p.root, path); err == nil && filepath.IsLocal(rel) {
		return rel
	}
	return path
}

// options builds detector options without a baseline. The caller sets
// either the lock file or the git ref.
func (p *project) options() (detector.Options, error) {
	toolPath, err := p.discover()
	if err != nil {
		return detector.Options{}, err
	}

	opts := detector.Options{
		Tool:       p.cfg.Tool,
		WorkDir:    p.root,
		ChangedDir: p.path(p.cfg.APIDir),
		ToolPath:   toolPath,
		Args:       p.cfg.Args,
		Runner:     newRunner(p.log),
		Logger:     p.log,
	}

	// buf falls back to its default rules without a config file.
	if p.cfg.Tool == detector.ToolBuf && p.cfg.BufConfig != "" {
		if cfg := p.path(p.cfg.BufConfig); fileExists(cfg) {
			opts.ConfigFile = cfg
		}
	}
	return opts, nil
}

// discover locates the tool binary. A tool_path containing a separator is
// relative to the project root; a bare name is looked up like the default.
func (p *project) discover() (string, error) {
	explicit := p.cfg.ToolPath
	if strings.ContainsRune(explicit, filepath.Separator) {
		explicit = p.path(explicit)
	} else if explicit != "" {
		return discoverTool(explicit, "")
	}
	return discoverTool(p.cfg.Tool, explicit)
}

// lockOptions builds options for lock file mode, failing when the lock file
// has not been created yet.
func (p *project) lockOptions() (detector.Options, error) {
	lockPath := p.lockPath()
	if !fileExists(lockPath) {
		return detector.Options{}, fmt.Errorf("expected lock file at %s but did not find one (run 'protobreak fix' to create it)", p.display(lockPath))
	}

	opts, err := p.options()
	if err != nil {
		return opts, err
	}
	opts.LockFile = lockPath
	opts.LockFormat = p.cfg.Format()
	return opts, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// newLogger returns a debug logger on stderr in verbose mode and a
// discarding one otherwise.
func newLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// reportBreaking prints the numbered violations followed by the closing
// error line.
func reportBreaking(w io.Writer, violations []string, closing string) {
	fmt.Fprintln(w, "Breaking changes detected in api protobufs:")
	for i, v := range violations {
		fmt.Fprintf(w, "\t%d: %s\n", i, v)
	}
	fmt.Fprintln(w, closing)
}

// withHint appends remediation advice for errors users can fix themselves.
func withHint(err error) string {
	var notFound *pberrors.ToolNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Sprintf("%v\n  install %s or set tool_path in %s (or %s)", err, notFound.Tool, config.FileName, config.EnvToolPath)
	}
	var cfgErr *pberrors.ConfigurationError
	if errors.As(err, &cfgErr) && cfgErr.Field == "changed_dir" {
		return fmt.Sprintf("%v\n  check 'api_dir' in %s", err, configPath)
	}
	return err.Error()
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

func humanSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}
