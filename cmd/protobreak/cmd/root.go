package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/bianoble/protobreak/internal/config"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath string
	toolFlag   string
	verbose    bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "protobreak",
	Short: "Detect breaking changes in protobuf API definitions",
	Long: `protobreak guards protobuf APIs against backwards-incompatible changes.
It compares the working copy of an API directory against a committed lock file
snapshot (or a git revision) using an external schema tool, buf or protolock,
and fails when the tool reports a breaking change.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("protobreak %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.FileName, "path to config file")
	rootCmd.PersistentFlags().StringVar(&toolFlag, "tool", "", "schema tool to use: buf or protolock (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "detailed output, including tool invocations")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "minimal output (errors only)")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. Interrupts cancel the running tool.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Breaking changes have already been reported.
		if !errors.Is(err, errBreaking) {
			errorf("%s", withHint(err))
		}
		return err
	}
	return nil
}
