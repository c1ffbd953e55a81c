package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bianoble/protobreak/internal/detector"
	"github.com/bianoble/protobreak/internal/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run check whenever a .proto file changes",
	Long: `Runs check once, then again each time .proto files under the API directory
settle after a change. Breaking changes are reported but do not stop the
watch. Press Ctrl-C to exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}

		opts, err := p.lockOptions()
		if err != nil {
			return err
		}

		// Dependencies are pulled once; each change only re-runs the check.
		d, err := detector.New(cmd.Context(), opts)
		if err != nil {
			return err
		}

		w, err := watch.New(watch.Options{
			Root:     opts.ChangedDir,
			Debounce: watchDebounce,
			Logger:   p.log,
		})
		if err != nil {
			return err
		}

		check := func(ctx context.Context) {
			breaking, violations, err := runCheck(ctx, d)
			switch {
			case err != nil:
				errorf("%s", withHint(err))
			case breaking:
				reportBreaking(os.Stdout, violations, fixHint)
			default:
				info("No breaking changes detected in %s.", p.cfg.APIDir)
			}
		}

		check(cmd.Context())
		info("Watching %s for changes...", p.display(opts.ChangedDir))

		return w.Run(cmd.Context(), func(ctx context.Context, paths []string) {
			info("")
			info("%d file(s) changed", len(paths))
			for _, path := range paths {
				detail("%s", p.display(path))
			}
			check(ctx)
		})
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "wait for changes to settle this long before checking")
	rootCmd.AddCommand(watchCmd)
}
