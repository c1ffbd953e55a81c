package protobreak

import (
	"github.com/bianoble/protobreak/internal/detector"
	"github.com/bianoble/protobreak/internal/errors"
	"github.com/bianoble/protobreak/internal/lock"
	"github.com/bianoble/protobreak/internal/runner"
)

// Type aliases re-export the detector types as the public API.

type Options = detector.Options
type Detector = detector.Detector
type Backend = detector.Backend
type Registry = detector.Registry
type Factory = detector.Factory
type Mode = detector.Mode

type Runner = runner.Runner
type Command = runner.Command
type Result = runner.Result

type LockFormat = lock.Format
type Snapshot = lock.Snapshot

type ConfigurationError = errors.ConfigurationError
type InitializationError = errors.InitializationError
type DetectorError = errors.DetectorError
type ToolNotFoundError = errors.ToolNotFoundError
type ToolOutputError = errors.ToolOutputError

const (
	ToolBuf       = detector.ToolBuf
	ToolProtolock = detector.ToolProtolock

	ModeLockFile = detector.ModeLockFile
	ModeGit      = detector.ModeGit

	FormatText   = lock.FormatText
	FormatBinary = lock.FormatBinary
)

// ErrNotRun is returned by result accessors called before Run.
var ErrNotRun = errors.ErrNotRun

// ErrGitMode is returned by lock file operations on a detector in git mode.
var ErrGitMode = errors.ErrGitMode
