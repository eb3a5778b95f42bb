package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultCommit, cfg.Checkout.Commit)
	assert.Equal(t, "https://webrtc.googlesource.com/src", cfg.Checkout.URL)
	assert.Equal(t, ".webrtcbuild", cfg.Paths.WorkDir)
	assert.Equal(t, "dist", cfg.Paths.OutputDir)
	assert.Equal(t, []string{"webrtc"}, cfg.Ninja.Targets)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "webrtcbuild.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultCommit, cfg.Checkout.Commit)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webrtcbuild.yaml")
	content := `
checkout:
  commit: 0123456789abcdef0123456789abcdef01234567
paths:
  work_dir: /tmp/wb
  output_dir: artifacts
gn:
  debug: true
  extra_args:
    rtc_use_h264: "true"
ninja:
  targets: [webrtc, "api:libjingle_peerconnection_api"]
  jobs: 8
  timeout: 90m
logging:
  debug_mode: true
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0123456789abcdef0123456789abcdef01234567", cfg.Checkout.Commit)
	assert.Equal(t, "/tmp/wb", cfg.Paths.WorkDir)
	assert.Equal(t, "artifacts", cfg.Paths.OutputDir)
	assert.True(t, cfg.GN.Debug)
	assert.Equal(t, "true", cfg.GN.ExtraArgs["rtc_use_h264"])
	assert.Equal(t, 8, cfg.Ninja.Jobs)
	assert.Equal(t, 90*time.Minute, cfg.Ninja.TimeoutDuration())
	assert.True(t, cfg.Logging.DebugMode)

	// Unset sections keep their defaults.
	assert.Equal(t, "https://webrtc.googlesource.com/src", cfg.Checkout.URL)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webrtcbuild.yaml")
	require.NoError(t, os.WriteFile(path, []byte("checkout: ["), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WEBRTCBUILD_COMMIT", "fedcba9876543210fedcba9876543210fedcba98")
	t.Setenv("WEBRTCBUILD_OUTPUT_DIR", "/srv/out")
	t.Setenv("WEBRTCBUILD_DEBUG", "1")

	cfg, err := Load(filepath.Join(t.TempDir(), "webrtcbuild.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "fedcba9876543210fedcba9876543210fedcba98", cfg.Checkout.Commit)
	assert.Equal(t, "/srv/out", cfg.Paths.OutputDir)
	assert.True(t, cfg.Logging.DebugMode)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty commit", func(c *Config) { c.Checkout.Commit = "" }, "commit is required"},
		{"short commit", func(c *Config) { c.Checkout.Commit = "abc123" }, "40-hex"},
		{"uppercase commit", func(c *Config) { c.Checkout.Commit = strings.ToUpper(DefaultCommit) }, "40-hex"},
		{"bad depot_tools pin", func(c *Config) { c.Checkout.DepotToolsCommit = "xyz" }, "depot_tools_commit"},
		{"empty url", func(c *Config) { c.Checkout.URL = "" }, "url is required"},
		{"empty work dir", func(c *Config) { c.Paths.WorkDir = "" }, "work_dir"},
		{"no ninja targets", func(c *Config) { c.Ninja.Targets = nil }, "targets"},
		{"negative jobs", func(c *Config) { c.Ninja.Jobs = -1 }, "jobs"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "level"},
		{"bad ninja timeout", func(c *Config) { c.Ninja.Timeout = "soon" }, "timeout"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "webrtcbuild.yaml")

	cfg := Default()
	cfg.GN.Debug = true
	cfg.Ninja.Jobs = 4
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.GN.Debug, loaded.GN.Debug)
	assert.Equal(t, cfg.Ninja.Jobs, loaded.Ninja.Jobs)
}

func TestPathHelpers(t *testing.T) {
	cfg := Default()
	cfg.Paths.WorkDir = "/work"
	cfg.Paths.OutputDir = "/out"

	assert.Equal(t, filepath.Join("/work", "src"), cfg.SrcDir())
	assert.Equal(t, filepath.Join("/work", "depot_tools"), cfg.DepotToolsDir())
	assert.Equal(t, filepath.Join("/out", "include"), cfg.IncludeDir())
	assert.Equal(t, filepath.Join("/out", "lib"), cfg.LibDir())
}

func TestShortCommit(t *testing.T) {
	c := CheckoutConfig{Commit: DefaultCommit}
	assert.Equal(t, DefaultCommit[:12], c.ShortCommit())
	assert.Equal(t, "abc", CheckoutConfig{Commit: "abc"}.ShortCommit())
}
