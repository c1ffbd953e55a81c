package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bianoble/protobreak/internal/detector"
	"github.com/bianoble/protobreak/internal/lock"
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Regenerate the lock file from the API directory",
	Long: `Accepts the current state of the API directory, including any breaking
changes, by regenerating the lock file. Creates the lock file if it does not
exist yet. Commit the result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}

		lockPath := p.lockPath()
		if !fileExists(lockPath) {
			return createLock(cmd, p, lockPath)
		}

		opts, err := p.lockOptions()
		if err != nil {
			return err
		}
		d, err := detector.New(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if err := d.UpdateLockFile(cmd.Context(), true); err != nil {
			return err
		}

		changed, err := d.LockFileChanged()
		if err != nil {
			return err
		}
		before, after := d.Snapshots()
		if !changed {
			info("Lock file %s is already up to date.", p.display(lockPath))
			return nil
		}

		info("Updated %s", p.display(lockPath))
		detail("before: %s", lock.DigestString(before))
		detail("after:  %s", lock.DigestString(after))
		return nil
	},
}

func createLock(cmd *cobra.Command, p *project, lockPath string) error {
	opts, err := p.options()
	if err != nil {
		return err
	}
	if st, err := os.Stat(opts.ChangedDir); err != nil || !st.IsDir() {
		return fmt.Errorf("api directory %s does not exist", p.display(opts.ChangedDir))
	}

	// protolock derives its lock directory from the lock path.
	opts.LockFile = lockPath
	backend, err := detector.NewBackend(opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return fmt.Errorf("creating lock file directory: %w", err)
	}
	if err := backend.InitLock(cmd.Context(), lockPath); err != nil {
		return err
	}

	info("Created %s", p.display(lockPath))
	return nil
}

func init() {
	rootCmd.AddCommand(fixCmd)
}
