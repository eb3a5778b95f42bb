package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"webrtcbuild/internal/fetch"
)

var cleanAll bool

// cleanCmd resets the checkout and removes build output
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Reset the source tree and remove generated output directories",
	Long: `Drops local modifications and untracked files from the src checkout
and deletes the gn output directories. With --all the harvested artifacts
in the output directory are removed as well.`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "Also remove harvested artifacts")
}

func runClean(cmd *cobra.Command, args []string) error {
	srcDir := cfg.SrcDir()

	if _, err := os.Stat(srcDir); err == nil {
		logger.Info("cleaning source tree", zap.String("src", srcDir))
		f := fetch.New(cfg, newRunner(false))
		if err := f.Clean(context.Background()); err != nil {
			return err
		}
	}

	outRoot := filepath.Join(srcDir, "out")
	if _, err := os.Stat(outRoot); err == nil {
		logger.Info("removing output directories", zap.String("out", outRoot))
		if err := os.RemoveAll(outRoot); err != nil {
			return fmt.Errorf("removing %s: %w", outRoot, err)
		}
	}

	if cleanAll {
		logger.Info("removing harvested artifacts", zap.String("dist", cfg.Paths.OutputDir))
		if err := os.RemoveAll(cfg.Paths.OutputDir); err != nil {
			return fmt.Errorf("removing %s: %w", cfg.Paths.OutputDir, err)
		}
	}
	return nil
}
