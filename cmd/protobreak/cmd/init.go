package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bianoble/protobreak/internal/detector"
	"github.com/bianoble/protobreak/internal/protolock"
)

var initForce bool

// initTemplate is the default .protobreak.yaml scaffold. It is formatted
// with the tool name and its lock file path.
const initTemplate = `# protobreak configuration
version: 1

# Schema tool that performs the comparison: buf or protolock.
tool: %s
# tool_path: /usr/local/bin/%s   # default: search $PATH, $GOBIN, $GOPATH/bin

# Directory holding the protos being checked.
api_dir: api

# Committed snapshot of the API. Run 'protobreak fix' to create or update it.
lock_file: %s
# lock_format: binary   # text or binary, inferred from the extension

# buf only: module configuration passed with --config, if it exists.
buf_config: api/buf.yaml

# Extra arguments passed to every tool invocation.
# args:
#   - --exclude-imports

# check_git compares against <git.path>#ref=<ref>,subdir=<git.subdir>.
git:
  path: .git
  subdir: api

# Fixtures used by 'protobreak selftest'.
# scenarios: testdata/scenarios
`

func renderInitTemplate(tool string) string {
	lockFile := "api/proto_snapshot.bin"
	if tool == detector.ToolProtolock {
		lockFile = "api/" + protolock.LockFileName
	}
	return fmt.Sprintf(initTemplate, tool, tool, lockFile)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter .protobreak.yaml configuration",
	Long: `Creates a .protobreak.yaml file with the default layout: protos under api/
and the lock file next to them. Pass --tool protolock to scaffold a protolock
configuration.

Use --force to overwrite an existing configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tool := toolFlag
		if tool == "" {
			tool = detector.ToolBuf
		}
		if _, err := detector.DefaultRegistry().Get(tool); err != nil {
			return err
		}

		outPath := configPath
		if !filepath.IsAbs(outPath) {
			abs, err := filepath.Abs(outPath)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			outPath = abs
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := os.WriteFile(outPath, []byte(renderInitTemplate(tool)), 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		info("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. Point api_dir at your proto directory")
		info("  2. Run 'protobreak fix' to create the lock file and commit it")
		info("  3. Run 'protobreak check' in CI")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	rootCmd.AddCommand(initCmd)
}
