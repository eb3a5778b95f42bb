// Package ninja invokes the parallel build executor for one target. All
// scheduling and concurrency lives inside ninja itself; this package only
// forms the command line and interprets the exit.
package ninja

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"webrtcbuild/internal/logging"
	"webrtcbuild/internal/shell"
	"webrtcbuild/internal/target"
)

// Options adjusts one ninja run.
type Options struct {
	// Targets are the ninja build targets. Must not be empty.
	Targets []string

	// Jobs caps parallelism (-j). Zero lets ninja decide.
	Jobs int

	// Timeout is the wall-time budget for the run.
	Timeout time.Duration
}

// Build runs ninja in the target's output directory under srcDir.
func Build(ctx context.Context, runner shell.Runner, env []string, srcDir string, t target.Target, opts Options) error {
	if len(opts.Targets) == 0 {
		return fmt.Errorf("ninja %s: no build targets", t)
	}

	args := []string{"-C", t.OutDir()}
	if opts.Jobs > 0 {
		args = append(args, "-j", strconv.Itoa(opts.Jobs))
	}
	args = append(args, opts.Targets...)

	logging.Ninja("Building %s: ninja %s", t, strings.Join(args, " "))
	started := time.Now()

	res, err := runner.Run(ctx, shell.Command{
		Binary:    "ninja",
		Arguments: args,
		Dir:       srcDir,
		Env:       env,
		TimeoutMs: opts.Timeout.Milliseconds(),
		Tags:      map[string]string{"stage": "ninja", "target": t.String()},
	})
	if err != nil {
		return fmt.Errorf("ninja %s: %w", t, err)
	}
	if res.IsError() {
		return fmt.Errorf("ninja %s: %s", t, res.Error)
	}
	if res.Killed {
		return fmt.Errorf("ninja %s: %s", t, res.KillReason)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("ninja %s: exit %d: %s", t, res.ExitCode, tail(res.Output(), 20))
	}

	logging.Ninja("Built %s in %s", t, time.Since(started).Round(time.Second))
	return nil
}

// tail returns the last n lines of s; build failures sit at the end of
// ninja output.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
