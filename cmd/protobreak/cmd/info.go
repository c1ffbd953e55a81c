package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bianoble/protobreak/internal/buf"
	"github.com/bianoble/protobreak/internal/detector"
	"github.com/bianoble/protobreak/internal/lock"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the resolved configuration, tool and lock file",
	Long: `Displays the protobreak version, the configuration in effect, where the
schema tool was found, the lock file's size and digest, and for buf the
dependencies pinned in buf.lock.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		cfg := p.cfg

		configStatus := "loaded"
		if !fileExists(configPath) {
			configStatus = "not found, using defaults"
		}

		fmt.Printf("protobreak %s\n", version)
		if len(p.layers) > 1 {
			fmt.Println("  config chain:")
			for _, layer := range p.layers {
				status := "not found"
				if layer.Loaded {
					status = "loaded"
				}
				fmt.Printf("    %-10s %s (%s)\n", string(layer.Level)+":", layer.Path, status)
			}
		} else {
			fmt.Printf("  config:        %s (%s)\n", configPath, configStatus)
		}
		fmt.Printf("  tools:         %s\n", strings.Join(detector.DefaultRegistry().Names(), ", "))
		fmt.Printf("  tool:          %s\n", cfg.Tool)
		if path, err := p.discover(); err != nil {
			fmt.Printf("  tool path:     %v\n", err)
		} else {
			fmt.Printf("  tool path:     %s\n", path)
		}
		fmt.Printf("  api dir:       %s\n", cfg.APIDir)

		lockPath := p.lockPath()
		fmt.Printf("  lock file:     %s\n", p.display(lockPath))
		fmt.Printf("  lock format:   %s\n", cfg.Format())
		if st, err := os.Stat(lockPath); err != nil {
			fmt.Printf("  lock size:     (missing)\n")
		} else {
			fmt.Printf("  lock size:     %s\n", humanSize(st.Size()))
			if snap, err := lock.Read(lockPath, cfg.Format()); err == nil {
				fmt.Printf("  lock digest:   %s\n", lock.DigestString(snap))
			}
		}

		if cfg.Tool != detector.ToolBuf {
			return nil
		}

		bufRoot := p.root
		if cfg.BufConfig != "" && fileExists(p.path(cfg.BufConfig)) {
			bufRoot = filepath.Dir(p.path(cfg.BufConfig))
			fmt.Printf("  buf config:    %s\n", cfg.BufConfig)
		}
		deps, err := buf.ReadLock(bufRoot)
		if err != nil || len(deps.Deps) == 0 {
			return nil
		}
		fmt.Println("\nPinned buf dependencies:")
		for _, d := range deps.Deps {
			fmt.Printf("  %-40s %s\n", d.Module(), d.Commit)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
