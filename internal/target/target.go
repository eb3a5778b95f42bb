// Package target maps host and requested platform identifiers into the
// naming convention used by the WebRTC gn/ninja toolchain.
//
// gn names differ from the Go toolchain's: "darwin" is "mac", "amd64" is
// "x64", "386" is "x86". All lookups are static tables; anything outside the
// declared support matrix is rejected at parse time so later stages never
// see a platform they cannot build.
package target

import (
	"fmt"
	"runtime"
	"strings"
)

// OS is an operating system name in gn convention.
type OS string

const (
	Linux   OS = "linux"
	Android OS = "android"
	Mac     OS = "mac"
	IOS     OS = "ios"
	Windows OS = "windows"
)

// CPU is a CPU architecture name in gn convention.
type CPU string

const (
	X64   CPU = "x64"
	X86   CPU = "x86"
	Arm64 CPU = "arm64"
	Arm   CPU = "arm"
)

// Target is a single entry in the cross-compilation matrix.
type Target struct {
	OS  OS
	CPU CPU
}

// String returns the canonical <os>-<cpu> form used for output directories
// and artifact names.
func (t Target) String() string {
	return string(t.OS) + "-" + string(t.CPU)
}

// OutDir returns the gn output directory for the target, relative to the
// WebRTC src checkout.
func (t Target) OutDir() string {
	return "out/" + t.String()
}

// LibraryName returns the file name of the combined static library produced
// for the target.
func (t Target) LibraryName() string {
	if t.OS == Windows {
		return fmt.Sprintf("webrtc-%s-%s.lib", t.OS, t.CPU)
	}
	return fmt.Sprintf("libwebrtc-%s-%s.a", t.OS, t.CPU)
}

// IsCross reports whether the target differs from the host platform.
func (t Target) IsCross(host Target) bool {
	return t != host
}

// osAliases accepts both gn names and the Go toolchain's names.
var osAliases = map[string]OS{
	"linux":   Linux,
	"android": Android,
	"mac":     Mac,
	"darwin":  Mac,
	"macos":   Mac,
	"ios":     IOS,
	"windows": Windows,
	"win":     Windows,
}

var cpuAliases = map[string]CPU{
	"x64":     X64,
	"amd64":   X64,
	"x86_64":  X64,
	"x86-64":  X64,
	"x86":     X86,
	"386":     X86,
	"i386":    X86,
	"arm64":   Arm64,
	"aarch64": Arm64,
	"arm":     Arm,
	"armv7":   Arm,
}

// osOrder fixes iteration order for Matrix and All.
var osOrder = []OS{Linux, Android, Mac, IOS, Windows}

// matrix is the supported cross-compilation matrix per OS.
var matrix = map[OS][]CPU{
	Linux:   {X64, X86, Arm64, Arm},
	Android: {X64, X86, Arm64, Arm},
	Mac:     {X64, Arm64},
	IOS:     {Arm64},
	Windows: {X64},
}

// Host resolves the current Go runtime platform into a gn target.
func Host() (Target, error) {
	t, err := Parse(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return Target{}, fmt.Errorf("unsupported host platform %s/%s: %w", runtime.GOOS, runtime.GOARCH, err)
	}
	return t, nil
}

// Parse normalizes an OS/CPU pair (gn or Go spelling, case-insensitive) and
// validates it against the support matrix.
func Parse(osName, cpuName string) (Target, error) {
	o, err := ParseOS(osName)
	if err != nil {
		return Target{}, err
	}
	c, ok := cpuAliases[normalize(cpuName)]
	if !ok {
		return Target{}, fmt.Errorf("unsupported target cpu %q", cpuName)
	}
	t := Target{OS: o, CPU: c}
	if !Supported(t) {
		return Target{}, fmt.Errorf("target %s is not in the support matrix", t)
	}
	return t, nil
}

// ParseOS normalizes an OS name on its own.
func ParseOS(name string) (OS, error) {
	o, ok := osAliases[normalize(name)]
	if !ok {
		return "", fmt.Errorf("unsupported target os %q", name)
	}
	return o, nil
}

// Supported reports whether the target is in the support matrix.
func Supported(t Target) bool {
	for _, c := range matrix[t.OS] {
		if c == t.CPU {
			return true
		}
	}
	return false
}

// Matrix returns the supported targets for one OS, in declaration order.
func Matrix(o OS) []Target {
	cpus := matrix[o]
	targets := make([]Target, 0, len(cpus))
	for _, c := range cpus {
		targets = append(targets, Target{OS: o, CPU: c})
	}
	return targets
}

// All returns every supported target in deterministic order.
func All() []Target {
	var targets []Target
	for _, o := range osOrder {
		targets = append(targets, Matrix(o)...)
	}
	return targets
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
