// Package buildenv assembles the environment for toolchain subprocesses.
// git, gclient, gn, and ninja all need the depot_tools checkout on PATH and
// a handful of depot_tools switches set; every stage gets its environment
// from here so no component invents its own.
package buildenv

import (
	"os"
	"path/filepath"
	"strings"

	"webrtcbuild/internal/config"
	"webrtcbuild/internal/logging"
	"webrtcbuild/internal/target"
)

// ForCheckout returns the environment for acquisition commands (git,
// gclient). The depot_tools checkout is prepended to PATH and its
// self-update is disabled so the pinned revision stays pinned.
func ForCheckout(cfg *config.Config) []string {
	env := base(cfg)

	env = PrependPath(env, absolute(cfg.DepotToolsDir()))
	env = SetKey(env, "DEPOT_TOOLS_UPDATE", "0")
	env = SetKey(env, "DEPOT_TOOLS_METRICS", "0")

	logging.EnvDebug("Checkout environment has %d vars", len(env))
	return env
}

// ForBuild returns the environment for generator and executor commands,
// extending the checkout environment with target-specific switches.
func ForBuild(cfg *config.Config, t target.Target) []string {
	env := ForCheckout(cfg)

	// Hosted toolchains are for Googlers only; always build with the
	// local one.
	env = SetKey(env, "DEPOT_TOOLS_WIN_TOOLCHAIN", "0")

	if t.OS == target.Android {
		env = SetKey(env, "GYP_DEFINES", "OS=android")
	}

	logging.EnvDebug("Build environment for %s has %d vars", t, len(env))
	return env
}

// base collects essential process environment plus the configured whitelist.
func base(cfg *config.Config) []string {
	var env []string

	essential := []string{
		"PATH", "HOME", "USER", "SHELL", "LANG", "LC_ALL",
		"TMPDIR", "TEMP", "TMP",
		"USERPROFILE", "LOCALAPPDATA", // Windows
	}
	for _, key := range essential {
		if val := os.Getenv(key); val != "" {
			env = SetKey(env, key, val)
		}
	}

	if cfg != nil {
		for _, key := range cfg.Execution.AllowedEnv {
			if val := os.Getenv(key); val != "" {
				env = SetKey(env, key, val)
			}
		}
	}

	return env
}

// HasKey checks if an environment key is already set.
func HasKey(env []string, key string) bool {
	prefix := key + "="
	for _, e := range env {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}

// Value returns the value for key, or "" when unset.
func Value(env []string, key string) string {
	prefix := key + "="
	for _, e := range env {
		if strings.HasPrefix(e, prefix) {
			return e[len(prefix):]
		}
	}
	return ""
}

// SetKey sets or updates an environment variable.
func SetKey(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = key + "=" + value
			return env
		}
	}
	return append(env, key+"="+value)
}

// PrependPath puts dir at the front of PATH, creating PATH if missing.
func PrependPath(env []string, dir string) []string {
	current := Value(env, "PATH")
	if current == "" {
		return SetKey(env, "PATH", dir)
	}
	return SetKey(env, "PATH", dir+string(os.PathListSeparator)+current)
}

// Merge merges additional KEY=VALUE entries into base, later wins.
func Merge(base []string, additional ...string) []string {
	result := make([]string, len(base))
	copy(result, base)

	for _, add := range additional {
		parts := strings.SplitN(add, "=", 2)
		if len(parts) == 2 {
			result = SetKey(result, parts[0], parts[1])
		}
	}
	return result
}

func absolute(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
