// Package shell is the execution layer of webrtcbuild. Every interaction
// with the outside world - git, gclient, gn, ninja, ar - goes through a
// Runner so the pipeline stays testable and every subprocess is subject to
// the same timeout, environment, and output-capture rules.
package shell

import (
	"context"
	"io"
	"time"
)

// Command represents one subprocess invocation.
type Command struct {
	// Binary is the executable to run (e.g. "git", "gn", "ninja").
	Binary string `yaml:"binary"`

	// Arguments are the command-line arguments.
	Arguments []string `yaml:"arguments"`

	// Dir is the working directory. Empty uses the runner's default.
	Dir string `yaml:"dir,omitempty"`

	// Env is the environment in KEY=VALUE form. When set it is used as-is;
	// when nil the runner falls back to its allowed-environment whitelist.
	Env []string `yaml:"env,omitempty"`

	// Stdin provides input on standard input.
	Stdin string `yaml:"stdin,omitempty"`

	// TimeoutMs caps wall time. Zero uses the runner's default.
	TimeoutMs int64 `yaml:"timeout_ms,omitempty"`

	// MaxOutputBytes caps captured stdout/stderr. Zero uses the default.
	MaxOutputBytes int64 `yaml:"max_output_bytes,omitempty"`

	// RequestID uniquely identifies this invocation. Assigned when empty.
	RequestID string `yaml:"request_id,omitempty"`

	// Tags are arbitrary key-value pairs for the audit stream.
	Tags map[string]string `yaml:"tags,omitempty"`
}

// String returns the full command line for display and logging.
func (c Command) String() string {
	s := c.Binary
	for _, arg := range c.Arguments {
		s += " " + arg
	}
	return s
}

// Result is the outcome of one subprocess invocation.
type Result struct {
	// Success reports that the execution infrastructure worked. A command
	// that ran and returned non-zero still has Success=true; the caller
	// decides what a non-zero exit means.
	Success bool

	// ExitCode is the command's exit code (-1 if unavailable).
	ExitCode int

	Stdout string
	Stderr string

	Duration   time.Duration
	StartedAt  time.Time
	FinishedAt time.Time

	// Killed indicates forcible termination (timeout or cancellation).
	Killed     bool
	KillReason string

	// Truncated indicates output was dropped due to size limits.
	Truncated      bool
	TruncatedBytes int64

	// Error holds any infrastructure-level failure message.
	Error string
}

// IsError reports an infrastructure failure (the command never ran properly).
func (r *Result) IsError() bool {
	return !r.Success || r.Error != ""
}

// IsNonZeroExit reports that the command ran but returned non-zero.
func (r *Result) IsNonZeroExit() bool {
	return r.Success && r.ExitCode != 0
}

// Output returns stdout and stderr joined for error reporting.
func (r *Result) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// EventType categorizes audit events.
type EventType string

const (
	EventStart    EventType = "start"
	EventComplete EventType = "complete"
	EventKilled   EventType = "killed"
	EventError    EventType = "error"
)

// Event is one entry in the execution audit stream.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Command   Command
	Result    *Result
}

// Runner executes commands. The pipeline depends on this interface only.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Config holds runner defaults.
type Config struct {
	// DefaultDir is used when Command.Dir is empty.
	DefaultDir string

	// DefaultTimeout applies when Command.TimeoutMs is zero.
	DefaultTimeout time.Duration

	// MaxTimeout caps all timeouts. Zero means uncapped; build-executor
	// invocations routinely run for over an hour.
	MaxTimeout time.Duration

	// AllowedEnv lists environment variables passed through from the
	// process environment when Command.Env is nil.
	AllowedEnv []string

	// MaxOutputBytes caps captured output (default 10MB).
	MaxOutputBytes int64

	// Console, when set, receives a live tee of stdout/stderr in addition
	// to capture. Used for ninja so build progress stays visible.
	Console io.Writer

	// AuditCallback receives an Event per execution phase.
	AuditCallback func(Event)
}
