package gn

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"webrtcbuild/internal/shell"
	"webrtcbuild/internal/target"
)

func TestRender_DeterministicAndTyped(t *testing.T) {
	args := Args{
		"is_debug":   "false",
		"target_cpu": "arm64",
		"jobs":       "8",
		"sysroot":    "/opt/sysroot",
	}

	got := args.Render()
	want := `is_debug=false jobs=8 sysroot="/opt/sysroot" target_cpu="arm64"`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Render mismatch (-want +got):\n%s", diff)
	}

	// Stable across calls.
	if args.Render() != got {
		t.Error("Render is not deterministic")
	}
}

func TestRender_PrequotedPassthrough(t *testing.T) {
	args := Args{"mac_deployment_target": `"10.13"`}
	if got := args.Render(); got != `mac_deployment_target="10.13"` {
		t.Errorf("Render = %q", got)
	}
}

func TestDefaultArgs_Common(t *testing.T) {
	args := DefaultArgs(target.Target{OS: target.Linux, CPU: target.X64}, false)

	for key, want := range map[string]string{
		"is_debug":          "false",
		"target_os":         "linux",
		"target_cpu":        "x64",
		"rtc_include_tests": "false",
		"use_custom_libcxx": "false",
		"use_rtti":          "true",
	} {
		if args[key] != want {
			t.Errorf("args[%q] = %q, want %q", key, args[key], want)
		}
	}

	debug := DefaultArgs(target.Target{OS: target.Linux, CPU: target.X64}, true)
	if debug["is_debug"] != "true" {
		t.Error("debug flag not honored")
	}
}

func TestDefaultArgs_PerOS(t *testing.T) {
	cases := []struct {
		tgt  target.Target
		key  string
		want string
	}{
		{target.Target{OS: target.Linux, CPU: target.Arm}, "use_sysroot", "true"},
		{target.Target{OS: target.Android, CPU: target.Arm64}, "android_static_analysis", "off"},
		{target.Target{OS: target.Mac, CPU: target.Arm64}, "mac_deployment_target", "10.13"},
		{target.Target{OS: target.IOS, CPU: target.Arm64}, "ios_enable_code_signing", "false"},
		{target.Target{OS: target.Windows, CPU: target.X64}, "use_lld", "true"},
	}

	for _, tc := range cases {
		args := DefaultArgs(tc.tgt, false)
		if args[tc.key] != tc.want {
			t.Errorf("%s: args[%q] = %q, want %q", tc.tgt, tc.key, args[tc.key], tc.want)
		}
	}
}

func TestMerge_ExtraArgsWin(t *testing.T) {
	base := DefaultArgs(target.Target{OS: target.Linux, CPU: target.X64}, false)
	merged := base.Merge(map[string]string{
		"rtc_use_h264": "true",
		"custom_flag":  "on",
	})

	if merged["rtc_use_h264"] != "true" {
		t.Error("extra arg did not override default")
	}
	if merged["custom_flag"] != "on" {
		t.Error("extra arg not added")
	}
	if base["rtc_use_h264"] != "false" {
		t.Error("Merge mutated the base set")
	}
}

func TestGenerate(t *testing.T) {
	fake := shell.NewFakeRunner()
	tgt := target.Target{OS: target.Android, CPU: target.Arm}
	args := DefaultArgs(tgt, false)

	err := Generate(context.Background(), fake, []string{"PATH=/x"}, "/work/src", tgt, args)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	cmd, err := fake.Find("gn gen")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Dir != "/work/src" {
		t.Errorf("gn ran in %s", cmd.Dir)
	}
	if cmd.Arguments[1] != "out/android-arm" {
		t.Errorf("out dir = %q", cmd.Arguments[1])
	}
	if !strings.HasPrefix(cmd.Arguments[2], "--args=") {
		t.Errorf("args flag missing: %v", cmd.Arguments)
	}
	if !strings.Contains(cmd.Arguments[2], `target_os="android"`) {
		t.Errorf("target_os missing from args: %s", cmd.Arguments[2])
	}
}

func TestGenerate_NonZeroExit(t *testing.T) {
	fake := shell.NewFakeRunner()
	fake.Respond("gn", &shell.Result{Success: true, ExitCode: 1, Stderr: "ERROR at //BUILD.gn"})

	tgt := target.Target{OS: target.Linux, CPU: target.X64}
	err := Generate(context.Background(), fake, nil, "/src", tgt, DefaultArgs(tgt, false))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "BUILD.gn") {
		t.Errorf("error missing gn output: %v", err)
	}
}
