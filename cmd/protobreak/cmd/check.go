package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/bianoble/protobreak/internal/detector"
)

const fixHint = "ERROR: non-backwards-compatible changes detected in api protobufs. If intentional, run 'protobreak fix' to update lock file"

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the API directory against the lock file",
	Long: `Runs the schema tool's breaking-change check on the API directory, using the
committed lock file as the "before" state. Prints every violation the tool
reports and exits non-zero if any were found. Suitable for CI pipelines.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}

		opts, err := p.lockOptions()
		if err != nil {
			return err
		}

		d, err := detector.New(cmd.Context(), opts)
		if err != nil {
			return err
		}

		detail("tool:      %s", d.Backend().Name())
		detail("lock file: %s", p.display(opts.LockFile))

		breaking, violations, err := runCheck(cmd.Context(), d)
		if err != nil {
			return err
		}
		if breaking {
			reportBreaking(os.Stdout, violations, fixHint)
			return errBreaking
		}

		info("No breaking changes detected in %s.", p.cfg.APIDir)
		return nil
	},
}

// runCheck runs d once and returns its verdict and violations. A breaking
// verdict may come with no violations when the tool only failed.
func runCheck(ctx context.Context, d detector.Detector) (bool, []string, error) {
	if err := d.Run(ctx); err != nil {
		return false, nil, err
	}
	breaking, err := d.IsBreaking()
	if err != nil || !breaking {
		return false, nil, err
	}
	violations, err := d.BreakingChanges()
	return true, violations, err
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
