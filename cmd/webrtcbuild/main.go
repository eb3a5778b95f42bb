package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"webrtcbuild/internal/config"
	"webrtcbuild/internal/logging"
)

// version is stamped at link time.
var version = "dev"

var (
	// Global flags
	cfgFile    string
	workspace  string
	verbose    bool
	cmdTimeout string

	// Logger
	logger *zap.Logger

	// Loaded configuration, available to every subcommand.
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "webrtcbuild",
	Short: "webrtcbuild - pinned WebRTC static library builder",
	Long: `webrtcbuild fetches a pinned revision of the WebRTC native library,
drives its gn/ninja toolchain across a cross-compilation matrix, and
flattens the output into include/ and one static library per target.

All heavy lifting happens inside the fetched toolchain; webrtcbuild only
orchestrates: clone, sync, pin, generate, build, harvest.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = loadConfig()
		if err != nil {
			return err
		}

		if err := logging.Initialize(cfg.Paths.WorkDir, logging.Options{
			DebugMode:  cfg.Logging.DebugMode,
			Level:      cfg.Logging.Level,
			Categories: cfg.Logging.Categories,
		}); err != nil {
			logger.Warn("file logging disabled", zap.Error(err))
		}

		logger.Debug("configuration loaded",
			zap.String("commit", cfg.Checkout.ShortCommit()),
			zap.String("work_dir", cfg.Paths.WorkDir),
			zap.String("output_dir", cfg.Paths.OutputDir))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadConfig resolves the config file relative to the workspace and
// anchors relative paths there.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = filepath.Join(workspace, config.DefaultFileName)
	}

	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if workspace != "" {
		if !filepath.IsAbs(c.Paths.WorkDir) {
			c.Paths.WorkDir = filepath.Join(workspace, c.Paths.WorkDir)
		}
		if !filepath.IsAbs(c.Paths.OutputDir) {
			c.Paths.OutputDir = filepath.Join(workspace, c.Paths.OutputDir)
		}
	}

	if cmdTimeout != "" {
		if _, err := time.ParseDuration(cmdTimeout); err != nil {
			return nil, fmt.Errorf("invalid --timeout %q: %w", cmdTimeout, err)
		}
		c.Execution.CommandTimeout = cmdTimeout
	}
	return c, nil
}

// versionCmd prints the tool version and the pinned revision
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print webrtcbuild version and the pinned WebRTC revision",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("webrtcbuild %s\n", version)
		fmt.Printf("pinned WebRTC revision: %s\n", cfg.Checkout.Commit)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: <workspace>/webrtcbuild.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&cmdTimeout, "timeout", "", "Per-command timeout override, e.g. 45m (default: config command_timeout)")

	// Add commands to root
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
