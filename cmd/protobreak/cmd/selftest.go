package cmd

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/bianoble/protobreak/internal/scenario"
)

var (
	selftestRun       string
	selftestScenarios string
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Verify the schema tool against before/after fixtures",
	Long: `Runs the configured tool over every fixture pair in the scenarios directory
and checks that changes under breaking/ are reported as breaking and changes
under allowed/ are accepted and recorded in the lock file. Use it after
upgrading buf or protolock, or after changing the rule configuration.

Scenario directories are created under the project root and removed afterwards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !doublestar.ValidatePattern(selftestRun) {
			return fmt.Errorf("invalid --run pattern '%s'", selftestRun)
		}

		p, err := loadProject()
		if err != nil {
			return err
		}

		dir := selftestScenarios
		if dir == "" {
			dir = p.path(p.cfg.Scenarios)
		}
		cases, err := scenario.Discover(dir)
		if err != nil {
			return err
		}

		var selected []scenario.Case
		for _, c := range cases {
			if ok, _ := doublestar.Match(selftestRun, c.Name); ok {
				selected = append(selected, c)
			}
		}
		if len(selected) == 0 {
			return fmt.Errorf("no scenarios matching '%s' in %s", selftestRun, dir)
		}

		opts, err := p.options()
		if err != nil {
			return err
		}
		suite := &scenario.Suite{
			WorkDir:  p.root,
			Template: opts,
			Expect:   scenario.ExpectationsFor(p.cfg.Tool),
		}

		var passed, skipped, failed int
		for _, o := range suite.RunAll(cmd.Context(), selected) {
			name := string(o.Case.Kind) + "/" + o.Case.Name
			switch {
			case o.Skipped != "":
				skipped++
				info("  skip  %s (%s)", name, o.Skipped)
			case o.Passed():
				passed++
				info("  ok    %s", name)
			case o.Err != nil:
				failed++
				info("  FAIL  %s: %v", name, o.Err)
			default:
				failed++
				info("  FAIL  %s: breaking=%t (want %t), lock changed=%t (want %t)",
					name, o.Breaking, o.WantBreaking, o.LockChanged, o.WantLockChanged)
				for _, v := range o.Violations {
					detail("%s", v)
				}
			}
		}

		info("")
		info("%d passed, %d skipped, %d failed", passed, skipped, failed)
		if failed > 0 {
			return fmt.Errorf("selftest failed: %d scenario(s) did not behave as expected with %s", failed, p.cfg.Tool)
		}
		return nil
	},
}

func init() {
	selftestCmd.Flags().StringVar(&selftestRun, "run", "*", "only run scenarios whose name matches this glob")
	selftestCmd.Flags().StringVar(&selftestScenarios, "scenarios", "", "fixture directory (default from config)")
	rootCmd.AddCommand(selftestCmd)
}
