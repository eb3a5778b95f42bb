// Package config holds all webrtcbuild configuration. Settings load from a
// YAML file (webrtcbuild.yaml by default), get environment-variable
// overrides applied on top, and are validated before the pipeline starts.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up in the workspace.
const DefaultFileName = "webrtcbuild.yaml"

// DefaultCommit is the pinned WebRTC revision built when the config file
// does not override it. Bump deliberately; everything downstream assumes
// this exact snapshot.
const DefaultCommit = "da8e7925dc27ac03ba0d543478a6bb7b323a5c79"

// Config holds all webrtcbuild configuration.
type Config struct {
	Checkout  CheckoutConfig  `yaml:"checkout"`
	Paths     PathsConfig     `yaml:"paths"`
	GN        GNConfig        `yaml:"gn"`
	Ninja     NinjaConfig     `yaml:"ninja"`
	Execution ExecutionConfig `yaml:"execution"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CheckoutConfig pins the third-party sources.
type CheckoutConfig struct {
	// Commit is the pinned WebRTC revision (full 40-hex hash).
	Commit string `yaml:"commit"`

	// URL is the WebRTC source repository.
	URL string `yaml:"url"`

	// DepotToolsURL is the build-tooling helper repository.
	DepotToolsURL string `yaml:"depot_tools_url"`

	// DepotToolsCommit optionally pins depot_tools. Empty tracks origin/main.
	DepotToolsCommit string `yaml:"depot_tools_commit"`
}

// ShortCommit returns the abbreviated pinned revision for display.
func (c CheckoutConfig) ShortCommit() string {
	if len(c.Commit) > 12 {
		return c.Commit[:12]
	}
	return c.Commit
}

// PathsConfig places the working tree and the harvested artifacts.
type PathsConfig struct {
	// WorkDir holds checkouts, logs, and intermediate state.
	WorkDir string `yaml:"work_dir"`

	// OutputDir receives include/ and the static libraries.
	OutputDir string `yaml:"output_dir"`
}

// GNConfig adjusts generator invocation.
type GNConfig struct {
	// Debug switches is_debug on.
	Debug bool `yaml:"debug"`

	// ExtraArgs are merged over the per-OS defaults, later wins.
	ExtraArgs map[string]string `yaml:"extra_args"`
}

// NinjaConfig adjusts build-executor invocation.
type NinjaConfig struct {
	// Targets are the ninja targets built per platform.
	Targets []string `yaml:"targets"`

	// Jobs caps parallelism. Zero lets ninja decide.
	Jobs int `yaml:"jobs"`

	// Timeout is the wall-time budget for one ninja run.
	Timeout string `yaml:"timeout"`
}

// TimeoutDuration parses the ninja timeout, falling back to the default.
func (n NinjaConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(n.Timeout)
	if err != nil || d <= 0 {
		return 2 * time.Hour
	}
	return d
}

// ExecutionConfig controls subprocess execution.
type ExecutionConfig struct {
	// AllowedEnv lists environment variables passed through to subprocesses.
	AllowedEnv []string `yaml:"allowed_env"`

	// CommandTimeout is the default budget for non-ninja commands.
	CommandTimeout string `yaml:"command_timeout"`
}

// CommandTimeoutDuration parses the command timeout with a default.
func (e ExecutionConfig) CommandTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(e.CommandTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// LoggingConfig drives the internal/logging facade.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Checkout: CheckoutConfig{
			Commit:        DefaultCommit,
			URL:           "https://webrtc.googlesource.com/src",
			DepotToolsURL: "https://chromium.googlesource.com/chromium/tools/depot_tools.git",
		},
		Paths: PathsConfig{
			WorkDir:   ".webrtcbuild",
			OutputDir: "dist",
		},
		GN: GNConfig{
			ExtraArgs: map[string]string{},
		},
		Ninja: NinjaConfig{
			Targets: []string{"webrtc"},
			Timeout: "2h",
		},
		Execution: ExecutionConfig{
			AllowedEnv: []string{
				"PATH", "HOME", "USER", "LANG", "LC_ALL", "TMPDIR", "TEMP", "TMP",
				"http_proxy", "https_proxy", "no_proxy",
				"HTTP_PROXY", "HTTPS_PROXY", "NO_PROXY",
			},
			CommandTimeout: "30m",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path, applies env overrides, and validates.
// A missing file yields the defaults (still with overrides applied).
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnvOverrides applies WEBRTCBUILD_* variables over the file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("WEBRTCBUILD_COMMIT"); v != "" {
		c.Checkout.Commit = v
	}
	if v := os.Getenv("WEBRTCBUILD_WORK_DIR"); v != "" {
		c.Paths.WorkDir = v
	}
	if v := os.Getenv("WEBRTCBUILD_OUTPUT_DIR"); v != "" {
		c.Paths.OutputDir = v
	}
	if v := os.Getenv("WEBRTCBUILD_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
}

var commitRe = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Validate rejects configurations the pipeline cannot honor.
func (c *Config) Validate() error {
	if c.Checkout.Commit == "" {
		return fmt.Errorf("checkout.commit is required")
	}
	if !commitRe.MatchString(c.Checkout.Commit) {
		return fmt.Errorf("checkout.commit %q is not a full 40-hex revision", c.Checkout.Commit)
	}
	if c.Checkout.DepotToolsCommit != "" && !commitRe.MatchString(c.Checkout.DepotToolsCommit) {
		return fmt.Errorf("checkout.depot_tools_commit %q is not a full 40-hex revision", c.Checkout.DepotToolsCommit)
	}
	if c.Checkout.URL == "" {
		return fmt.Errorf("checkout.url is required")
	}
	if c.Checkout.DepotToolsURL == "" {
		return fmt.Errorf("checkout.depot_tools_url is required")
	}
	if c.Paths.WorkDir == "" {
		return fmt.Errorf("paths.work_dir is required")
	}
	if c.Paths.OutputDir == "" {
		return fmt.Errorf("paths.output_dir is required")
	}
	if len(c.Ninja.Targets) == 0 {
		return fmt.Errorf("ninja.targets must not be empty")
	}
	if c.Ninja.Jobs < 0 {
		return fmt.Errorf("ninja.jobs must not be negative")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug/info/warn/error", c.Logging.Level)
	}
	if c.Ninja.Timeout != "" {
		if _, err := time.ParseDuration(c.Ninja.Timeout); err != nil {
			return fmt.Errorf("ninja.timeout: %w", err)
		}
	}
	if c.Execution.CommandTimeout != "" {
		if _, err := time.ParseDuration(c.Execution.CommandTimeout); err != nil {
			return fmt.Errorf("execution.command_timeout: %w", err)
		}
	}
	return nil
}

// SrcDir returns the WebRTC checkout directory under the work dir.
func (c *Config) SrcDir() string {
	return filepath.Join(c.Paths.WorkDir, "src")
}

// DepotToolsDir returns the depot_tools checkout directory.
func (c *Config) DepotToolsDir() string {
	return filepath.Join(c.Paths.WorkDir, "depot_tools")
}

// IncludeDir returns the harvested header destination.
func (c *Config) IncludeDir() string {
	return filepath.Join(c.Paths.OutputDir, "include")
}

// LibDir returns the static-library destination.
func (c *Config) LibDir() string {
	return filepath.Join(c.Paths.OutputDir, "lib")
}
