package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tinixos/tinix/internal/config"
	"github.com/tinixos/tinix/internal/kernel"
	"github.com/tinixos/tinix/internal/klog"
	"github.com/tinixos/tinix/internal/shell"
)

var (
	diskPath string
)

var rootCmd = &cobra.Command{
	Use:   "tinix",
	Short: "Teaching-grade single-machine operating system simulator",
	Long: `tinix emulates the core subsystems of a small OS on top of one flat
backing file acting as a simulated disk: a block device split into
file-system and swap regions, an inode-and-block file system, a paged
virtual memory manager with swap-backed eviction, a device arbiter, and
a discrete tick scheduler driving scripted processes.

Running tinix with no arguments starts the interactive shell. Type
'help' at the prompt for the command list.`,
	Version:      "0.1.0",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell()
	},
}

// Execute runs the root command and exits non-zero on a hard failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&diskPath, "disk", "", "Path to the disk image (default: disk.img in the working directory)")
}

func runShell() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if diskPath != "" {
		cfg.DiskImageName = diskPath
	}

	hostFs := afero.NewOsFs()
	log := klog.New(os.Stderr)

	k, err := kernel.Boot(cfg, hostFs, log)
	if err != nil {
		return err
	}
	defer k.Shutdown()

	return shell.New(k, hostFs, os.Stdin, os.Stdout).Run()
}
