// Package gn composes arguments for the WebRTC generator and invokes it.
// Argument rendering is deterministic (sorted keys) so two runs with the
// same configuration produce the identical gn command line.
package gn

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"webrtcbuild/internal/logging"
	"webrtcbuild/internal/shell"
	"webrtcbuild/internal/target"
)

// Args is a set of gn build arguments. Values are rendered bare when they
// are booleans or integers and quoted otherwise.
type Args map[string]string

// Set assigns one argument and returns the set for chaining.
func (a Args) Set(key, value string) Args {
	a[key] = value
	return a
}

// Merge overlays other onto a copy of a, other wins.
func (a Args) Merge(other map[string]string) Args {
	merged := make(Args, len(a)+len(other))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Render produces the --args string: sorted "key=value" pairs joined by
// single spaces.
func (a Args) Render() string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+renderValue(a[k]))
	}
	return strings.Join(pairs, " ")
}

func renderValue(v string) string {
	if v == "true" || v == "false" {
		return v
	}
	if _, err := strconv.Atoi(v); err == nil {
		return v
	}
	// Already quoted values pass through untouched.
	if strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) && len(v) >= 2 {
		return v
	}
	return `"` + v + `"`
}

// DefaultArgs returns the argument set for one target. The common block
// strips tests, examples, and tooling out of the build; per-OS blocks add
// what each toolchain needs to produce a linkable static library.
func DefaultArgs(t target.Target, debug bool) Args {
	args := Args{
		"is_debug":                 strconv.FormatBool(debug),
		"target_os":                string(t.OS),
		"target_cpu":               string(t.CPU),
		"rtc_include_tests":        "false",
		"rtc_build_examples":       "false",
		"rtc_build_tools":          "false",
		"rtc_use_h264":             "false",
		"use_rtti":                 "true",
		"use_custom_libcxx":        "false",
		"treat_warnings_as_errors": "false",
	}

	switch t.OS {
	case target.Linux:
		args.Set("use_sysroot", "true")
	case target.Android:
		args.Set("android_static_analysis", "off")
	case target.Mac:
		args.Set("mac_deployment_target", "10.13")
	case target.IOS:
		args.Set("ios_enable_code_signing", "false")
		args.Set("ios_deployment_target", "12.0")
	case target.Windows:
		args.Set("use_lld", "true")
	}

	return args
}

// Generate runs `gn gen` for the target inside srcDir.
func Generate(ctx context.Context, runner shell.Runner, env []string, srcDir string, t target.Target, args Args) error {
	rendered := args.Render()
	logging.GN("Generating %s with args: %s", t.OutDir(), rendered)

	res, err := runner.Run(ctx, shell.Command{
		Binary:    "gn",
		Arguments: []string{"gen", t.OutDir(), "--args=" + rendered},
		Dir:       srcDir,
		Env:       env,
		Tags:      map[string]string{"stage": "gn", "target": t.String()},
	})
	if err != nil {
		return fmt.Errorf("gn gen %s: %w", t, err)
	}
	if res.IsError() {
		return fmt.Errorf("gn gen %s: %s", t, res.Error)
	}
	if res.Killed {
		return fmt.Errorf("gn gen %s: %s", t, res.KillReason)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("gn gen %s: exit %d: %s", t, res.ExitCode, strings.TrimSpace(res.Output()))
	}
	return nil
}
