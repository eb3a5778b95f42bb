package shell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"webrtcbuild/internal/logging"
)

// DefaultConfig returns runner defaults suitable for build orchestration:
// a generous default timeout and the environment a build toolchain needs.
func DefaultConfig() Config {
	return Config{
		DefaultDir:     ".",
		DefaultTimeout: 10 * time.Minute,
		MaxOutputBytes: 10 * 1024 * 1024,
		AllowedEnv: []string{
			"PATH", "HOME", "USER", "LANG", "LC_ALL", "TMPDIR", "TEMP", "TMP",
			"http_proxy", "https_proxy", "no_proxy",
			"HTTP_PROXY", "HTTPS_PROXY", "NO_PROXY",
		},
	}
}

// DirectRunner executes commands directly on the host via os/exec.
type DirectRunner struct {
	mu     sync.RWMutex
	config Config
}

// NewDirectRunner creates a runner with default config.
func NewDirectRunner() *DirectRunner {
	return NewDirectRunnerWithConfig(DefaultConfig())
}

// NewDirectRunnerWithConfig creates a runner with custom config.
func NewDirectRunnerWithConfig(config Config) *DirectRunner {
	logging.ShellDebug("Creating DirectRunner: timeout=%s, maxOutput=%d bytes",
		config.DefaultTimeout, config.MaxOutputBytes)
	return &DirectRunner{config: config}
}

// SetAuditCallback sets the audit event callback.
func (r *DirectRunner) SetAuditCallback(callback func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config.AuditCallback = callback
}

func (r *DirectRunner) emit(event Event) {
	r.mu.RLock()
	callback := r.config.AuditCallback
	r.mu.RUnlock()
	if callback != nil {
		callback(event)
	}
}

// Run executes a command on the host.
func (r *DirectRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("binary is required")
	}
	if cmd.RequestID == "" {
		cmd.RequestID = uuid.NewString()
	}
	if cmd.Dir == "" {
		cmd.Dir = r.config.DefaultDir
	}

	logging.Shell("Executing [%s]: %s (dir=%s)", cmd.RequestID, cmd, cmd.Dir)

	result := &Result{ExitCode: -1}

	r.emit(Event{Type: EventStart, Timestamp: time.Now(), Command: cmd})

	timeout := r.config.DefaultTimeout
	if cmd.TimeoutMs > 0 {
		timeout = time.Duration(cmd.TimeoutMs) * time.Millisecond
	}
	if r.config.MaxTimeout > 0 && timeout > r.config.MaxTimeout {
		timeout = r.config.MaxTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execCmd := exec.CommandContext(execCtx, cmd.Binary, cmd.Arguments...)
	execCmd.Dir = cmd.Dir
	execCmd.Env = r.buildEnvironment(cmd.Env)

	if cmd.Stdin != "" {
		execCmd.Stdin = strings.NewReader(cmd.Stdin)
	}

	maxOutput := r.config.MaxOutputBytes
	if cmd.MaxOutputBytes > 0 {
		maxOutput = cmd.MaxOutputBytes
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdoutBuf, max: maxOutput}
	stderrLimited := &limitedWriter{w: &stderrBuf, max: maxOutput}

	// Tee to the console for long-running build output, still capturing.
	if r.config.Console != nil {
		execCmd.Stdout = io.MultiWriter(stdoutLimited, r.config.Console)
		execCmd.Stderr = io.MultiWriter(stderrLimited, r.config.Console)
	} else {
		execCmd.Stdout = stdoutLimited
		execCmd.Stderr = stderrLimited
	}

	result.StartedAt = time.Now()
	err := execCmd.Run()
	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()

	if stdoutLimited.truncated || stderrLimited.truncated {
		result.Truncated = true
		result.TruncatedBytes = stdoutLimited.discarded + stderrLimited.discarded
		logging.ShellWarn("Output truncated: %d bytes discarded", result.TruncatedBytes)
	}

	if err != nil {
		switch {
		case execCtx.Err() == context.DeadlineExceeded:
			result.Killed = true
			result.KillReason = fmt.Sprintf("timeout after %s", timeout)
			result.Success = true
			logging.ShellWarn("Command killed (timeout): %s after %s", cmd.Binary, timeout)
			r.emit(Event{Type: EventKilled, Timestamp: time.Now(), Command: cmd, Result: result})
		case execCtx.Err() == context.Canceled:
			result.Killed = true
			result.KillReason = "context canceled"
			result.Success = true
			logging.ShellDebug("Command canceled: %s", cmd.Binary)
			r.emit(Event{Type: EventKilled, Timestamp: time.Now(), Command: cmd, Result: result})
		default:
			if exitErr, ok := err.(*exec.ExitError); ok {
				result.Success = true
				result.ExitCode = exitErr.ExitCode()
				logging.ShellDebug("Command exited non-zero: %s -> %d", cmd.Binary, result.ExitCode)
			} else {
				result.Success = false
				result.Error = err.Error()
				logging.ShellError("Command failed to start: %s - %v", cmd.Binary, err)
				r.emit(Event{Type: EventError, Timestamp: time.Now(), Command: cmd, Result: result})
				return result, nil
			}
		}
	} else {
		result.Success = true
		result.ExitCode = 0
	}

	r.emit(Event{Type: EventComplete, Timestamp: time.Now(), Command: cmd, Result: result})

	logging.Shell("Completed [%s]: exit=%d, duration=%s, stdout=%d bytes",
		cmd.RequestID, result.ExitCode, result.Duration, len(result.Stdout))

	return result, nil
}

// buildEnvironment resolves the subprocess environment. A command with an
// explicit Env uses it verbatim; otherwise the whitelist is applied to the
// process environment.
func (r *DirectRunner) buildEnvironment(cmdEnv []string) []string {
	if cmdEnv != nil {
		return cmdEnv
	}
	env := make([]string, 0, len(r.config.AllowedEnv))
	for _, key := range r.config.AllowedEnv {
		if val := os.Getenv(key); val != "" {
			env = append(env, key+"="+val)
		}
	}
	return env
}

// limitedWriter caps total bytes written, discarding the excess while
// reporting full write lengths so the child never sees a short write.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
	discarded int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		lw.discarded += int64(n)
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		lw.discarded += int64(n) - remaining
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
