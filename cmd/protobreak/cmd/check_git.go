package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bianoble/protobreak/internal/detector"
	"github.com/bianoble/protobreak/internal/gitref"
)

var (
	gitRefFlag  string
	gitPathFlag string
)

var checkGitCmd = &cobra.Command{
	Use:   "check_git [ref]",
	Short: "Check the API directory against a git revision",
	Long: `Runs the breaking-change check using the API directory as it was at a git
revision as the "before" state, instead of the lock file. The revision is
given as an argument or with --git_ref. Only supported by buf.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := gitRefFlag
		if len(args) == 1 {
			if ref != "" && ref != args[0] {
				return fmt.Errorf("conflicting git refs: argument '%s' and --git_ref '%s'", args[0], ref)
			}
			ref = args[0]
		}
		if ref == "" {
			return fmt.Errorf("a git ref is required, as an argument or with --git_ref")
		}

		p, err := loadProject()
		if err != nil {
			return err
		}

		gitPath := gitPathFlag
		if gitPath == "" {
			gitPath = p.path(p.cfg.Git.Path)
		}
		resolved, err := gitref.Resolve(cmd.Context(), gitPath, ref)
		if err != nil {
			return err
		}

		opts, err := p.options()
		if err != nil {
			return err
		}
		opts.GitRef = resolved.Commit
		opts.GitPath = resolved.GitDir
		opts.GitSubdir = p.cfg.Git.Subdir

		d, err := detector.New(cmd.Context(), opts)
		if err != nil {
			return err
		}

		info("Checking %s against %s (%s)", p.cfg.APIDir, resolved.Name, resolved.Short())
		breaking, violations, err := runCheck(cmd.Context(), d)
		if err != nil {
			return err
		}
		if breaking {
			reportBreaking(os.Stdout, violations, fmt.Sprintf("ERROR: non-backwards-compatible changes detected in api protobufs since %s", resolved.Name))
			return errBreaking
		}

		info("No breaking changes detected in %s since %s.", p.cfg.APIDir, resolved.Name)
		return nil
	},
}

func init() {
	checkGitCmd.Flags().StringVar(&gitRefFlag, "git_ref", "", "git revision holding the \"before\" state")
	checkGitCmd.Flags().StringVar(&gitPathFlag, "git_path", "", "path to the repository's .git directory (default from config)")
	rootCmd.AddCommand(checkGitCmd)
}
