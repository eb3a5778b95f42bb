package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"webrtcbuild/internal/pipeline"
	"webrtcbuild/internal/shell"
	"webrtcbuild/internal/target"
)

var (
	buildTargetOS  string
	buildTargetCPU string
	buildDebug     bool
	buildNinjaTgts []string
	buildJobs      int
	buildSkipDeps  bool
	buildSkipSync  bool
)

// buildCmd runs the full pipeline for one target or a whole OS matrix
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Fetch, generate, compile, and harvest for the selected targets",
	Long: `Runs the full pipeline: depot_tools and source acquisition, checkout
pinning, gn generation, ninja compilation, and artifact harvesting.

With no target flags the host platform is built. With --target-os and no
--target-cpu the full cross-compilation matrix for that OS is built.

Examples:
  webrtcbuild build
  webrtcbuild build --target-os android
  webrtcbuild build --target-os linux --target-cpu arm64 --jobs 16`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildTargetOS, "target-os", "", "Target OS (linux, android, mac, ios, windows)")
	buildCmd.Flags().StringVar(&buildTargetCPU, "target-cpu", "", "Target CPU (x64, x86, arm64, arm); empty builds the full matrix for the OS")
	buildCmd.Flags().BoolVar(&buildDebug, "debug", false, "Generate a debug build (is_debug=true)")
	buildCmd.Flags().StringSliceVar(&buildNinjaTgts, "ninja-target", nil, "Ninja target to build (repeatable, overrides config)")
	buildCmd.Flags().IntVar(&buildJobs, "jobs", 0, "Ninja parallelism (0 = ninja default)")
	buildCmd.Flags().BoolVar(&buildSkipDeps, "skip-deps", false, "Skip platform dependency installers")
	buildCmd.Flags().BoolVar(&buildSkipSync, "skip-sync", false, "Build against the existing checkout without syncing")
}

// resolveTargets turns the target flags into the list of targets to build.
func resolveTargets(osFlag, cpuFlag string) ([]target.Target, error) {
	if osFlag == "" && cpuFlag == "" {
		host, err := target.Host()
		if err != nil {
			return nil, err
		}
		return []target.Target{host}, nil
	}
	if osFlag == "" {
		return nil, fmt.Errorf("--target-cpu requires --target-os")
	}
	if cpuFlag == "" {
		o, err := target.ParseOS(osFlag)
		if err != nil {
			return nil, err
		}
		return target.Matrix(o), nil
	}
	t, err := target.Parse(osFlag, cpuFlag)
	if err != nil {
		return nil, err
	}
	return []target.Target{t}, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	targets, err := resolveTargets(buildTargetOS, buildTargetCPU)
	if err != nil {
		return err
	}

	// Flag overrides on top of the file config.
	if buildDebug {
		cfg.GN.Debug = true
	}
	if len(buildNinjaTgts) > 0 {
		cfg.Ninja.Targets = buildNinjaTgts
	}
	if buildJobs > 0 {
		cfg.Ninja.Jobs = buildJobs
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("interrupted, stopping after the current command")
			cancel()
		case <-ctx.Done():
		}
	}()

	runner := newRunner(true)

	for _, t := range targets {
		logger.Info("target queued", zap.String("target", t.String()))
	}
	logger.Info("starting build",
		zap.String("commit", cfg.Checkout.ShortCommit()),
		zap.Int("targets", len(targets)))

	summary, err := pipeline.New(cfg, runner).Run(ctx, targets, pipeline.Options{
		SkipDeps: buildSkipDeps,
		SkipSync: buildSkipSync,
	})
	if err != nil {
		return err
	}

	for _, built := range summary.Built {
		fmt.Printf("  %s  (%d objects)\n", built.Library, built.Objects)
	}
	fmt.Printf("  %s  (%d headers)\n", cfg.IncludeDir(), summary.Headers)
	fmt.Printf("Done in %s.\n", summary.Duration.Round(time.Second))
	return nil
}

// newRunner builds the shared DirectRunner from the loaded config. The
// console tee keeps ninja progress visible during long builds.
func newRunner(console bool) shell.Runner {
	rc := shell.DefaultConfig()
	rc.DefaultTimeout = cfg.Execution.CommandTimeoutDuration()
	rc.AllowedEnv = cfg.Execution.AllowedEnv
	if console {
		rc.Console = os.Stdout
	}
	return shell.NewDirectRunnerWithConfig(rc)
}
