package shell

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func skipOnWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test relies on sh")
	}
}

func TestDirectRunner_CapturesOutput(t *testing.T) {
	skipOnWindows(t)
	runner := NewDirectRunner()

	res, err := runner.Run(context.Background(), Command{
		Binary:    "sh",
		Arguments: []string{"-c", "echo out; echo err >&2"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Success || res.ExitCode != 0 {
		t.Fatalf("expected success/0, got success=%v exit=%d", res.Success, res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "out" {
		t.Errorf("stdout = %q", res.Stdout)
	}
	if strings.TrimSpace(res.Stderr) != "err" {
		t.Errorf("stderr = %q", res.Stderr)
	}
	if res.Duration <= 0 {
		t.Error("duration not recorded")
	}
}

func TestDirectRunner_NonZeroExitIsNotError(t *testing.T) {
	skipOnWindows(t)
	runner := NewDirectRunner()

	res, err := runner.Run(context.Background(), Command{
		Binary:    "sh",
		Arguments: []string{"-c", "exit 3"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.IsError() {
		t.Error("non-zero exit must not be an infrastructure error")
	}
	if !res.IsNonZeroExit() || res.ExitCode != 3 {
		t.Errorf("expected exit 3, got %d", res.ExitCode)
	}
}

func TestDirectRunner_MissingBinary(t *testing.T) {
	runner := NewDirectRunner()

	res, err := runner.Run(context.Background(), Command{Binary: "webrtcbuild-no-such-binary"})
	if err != nil {
		t.Fatalf("Run returned error instead of failed result: %v", err)
	}
	if !res.IsError() {
		t.Error("missing binary must be an infrastructure error")
	}
	if res.Error == "" {
		t.Error("result should carry the failure message")
	}
}

func TestDirectRunner_Timeout(t *testing.T) {
	skipOnWindows(t)
	runner := NewDirectRunner()

	res, err := runner.Run(context.Background(), Command{
		Binary:    "sh",
		Arguments: []string{"-c", "sleep 5"},
		TimeoutMs: 100,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Killed {
		t.Fatal("expected the command to be killed")
	}
	if !strings.Contains(res.KillReason, "timeout") {
		t.Errorf("kill reason = %q", res.KillReason)
	}
}

func TestDirectRunner_OutputTruncation(t *testing.T) {
	skipOnWindows(t)
	config := DefaultConfig()
	config.MaxOutputBytes = 16
	runner := NewDirectRunnerWithConfig(config)

	res, err := runner.Run(context.Background(), Command{
		Binary:    "sh",
		Arguments: []string{"-c", "printf 'aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa'"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Truncated {
		t.Fatal("expected truncation")
	}
	if len(res.Stdout) != 16 {
		t.Errorf("captured %d bytes, want 16", len(res.Stdout))
	}
	if res.TruncatedBytes != 16 {
		t.Errorf("discarded %d bytes, want 16", res.TruncatedBytes)
	}
}

func TestDirectRunner_ExplicitEnv(t *testing.T) {
	skipOnWindows(t)
	runner := NewDirectRunner()

	res, err := runner.Run(context.Background(), Command{
		Binary:    "sh",
		Arguments: []string{"-c", "echo $WEBRTCBUILD_PROBE"},
		Env:       []string{"PATH=/usr/bin:/bin", "WEBRTCBUILD_PROBE=pinned"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "pinned" {
		t.Errorf("explicit env not applied, stdout = %q", res.Stdout)
	}
}

func TestDirectRunner_AuditEvents(t *testing.T) {
	skipOnWindows(t)
	runner := NewDirectRunner()

	var events []EventType
	runner.SetAuditCallback(func(e Event) {
		events = append(events, e.Type)
	})

	_, err := runner.Run(context.Background(), Command{
		Binary:    "sh",
		Arguments: []string{"-c", "true"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(events) != 2 || events[0] != EventStart || events[1] != EventComplete {
		t.Errorf("audit stream = %v, want [start complete]", events)
	}
}

func TestDirectRunner_AssignsRequestID(t *testing.T) {
	skipOnWindows(t)
	runner := NewDirectRunner()

	var captured Command
	runner.SetAuditCallback(func(e Event) {
		if e.Type == EventStart {
			captured = e.Command
		}
	})

	_, _ = runner.Run(context.Background(), Command{Binary: "sh", Arguments: []string{"-c", "true"}})
	if captured.RequestID == "" {
		t.Error("request ID not assigned")
	}
}

func TestFakeRunner_Scripting(t *testing.T) {
	fake := NewFakeRunner()
	fake.Respond("git checkout", &Result{Success: true, ExitCode: 1, Stderr: "pathspec"})
	fake.Fail("gclient", errors.New("boom"))

	res, err := fake.Run(context.Background(), Command{Binary: "git", Arguments: []string{"checkout", "abc"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ExitCode != 1 || res.Stderr != "pathspec" {
		t.Errorf("scripted response not returned: %+v", res)
	}

	if _, err := fake.Run(context.Background(), Command{Binary: "gclient", Arguments: []string{"sync"}}); err == nil {
		t.Error("scripted error not returned")
	}

	// Unscripted commands succeed.
	res, err = fake.Run(context.Background(), Command{Binary: "ninja"})
	if err != nil || !res.Success || res.ExitCode != 0 {
		t.Errorf("default fake response wrong: res=%+v err=%v", res, err)
	}

	if len(fake.Commands()) != 3 {
		t.Errorf("recorded %d commands, want 3", len(fake.Commands()))
	}
	if _, err := fake.Find("checkout abc"); err != nil {
		t.Errorf("Find failed: %v", err)
	}
}

func TestResult_Output(t *testing.T) {
	r := &Result{Stdout: "a", Stderr: "b"}
	if r.Output() != "a\nb" {
		t.Errorf("Output = %q", r.Output())
	}
	r = &Result{Stderr: "only"}
	if r.Output() != "only" {
		t.Errorf("Output = %q", r.Output())
	}
}

func TestDirectRunner_RespectsMaxTimeout(t *testing.T) {
	config := DefaultConfig()
	config.MaxTimeout = 50 * time.Millisecond
	runner := NewDirectRunnerWithConfig(config)

	if runtime.GOOS == "windows" {
		t.Skip("test relies on sh")
	}

	start := time.Now()
	res, err := runner.Run(context.Background(), Command{
		Binary:    "sh",
		Arguments: []string{"-c", "sleep 5"},
		TimeoutMs: 60_000,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Killed {
		t.Fatal("MaxTimeout not enforced")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("command ran %s despite 50ms cap", elapsed)
	}
}
