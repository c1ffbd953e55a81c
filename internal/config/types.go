package config

// Config represents the .protobreak.yaml configuration file.
// Relative paths are resolved against the directory containing the file.
type Config struct {
	Version int `yaml:"version"`

	// Tool selects the external schema tool: "buf" or "protolock".
	Tool string `yaml:"tool"`

	// ToolPath overrides the tool binary location.
	ToolPath string `yaml:"tool_path,omitempty"`

	// APIDir holds the protos being checked.
	APIDir string `yaml:"api_dir"`

	// LockFile is the committed snapshot the working copy is compared against.
	LockFile string `yaml:"lock_file"`

	// LockFormat is "text" or "binary". Empty infers from the lock file extension.
	LockFormat string `yaml:"lock_format,omitempty"`

	// BufConfig is the buf.yaml passed with --config (buf only).
	BufConfig string `yaml:"buf_config,omitempty"`

	// Args are passed through to every tool invocation.
	Args []string `yaml:"args,omitempty"`

	Git Git `yaml:"git"`

	// Scenarios is the fixture directory used by selftest.
	Scenarios string `yaml:"scenarios,omitempty"`
}

// Git configures the check_git mode.
type Git struct {
	// Path is the repository's .git directory.
	Path string `yaml:"path"`
	// Subdir is the directory inside the repository holding the protos.
	Subdir string `yaml:"subdir"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Version:   1,
		Tool:      "buf",
		APIDir:    "api",
		LockFile:  "api/proto_snapshot.bin",
		BufConfig: "api/buf.yaml",
		Git: Git{
			Path:   ".git",
			Subdir: "api",
		},
		Scenarios: "testdata/scenarios",
	}
}
