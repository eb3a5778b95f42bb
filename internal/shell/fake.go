package shell

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// FakeRunner is a scripted Runner for tests. It records every command and
// answers from a response table keyed by binary (or binary plus first
// argument), falling back to a zero-exit result.
type FakeRunner struct {
	mu        sync.Mutex
	commands  []Command
	responses map[string]*Result
	errors    map[string]error
}

// NewFakeRunner creates an empty fake.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		responses: make(map[string]*Result),
		errors:    make(map[string]error),
	}
}

// Respond scripts a result for a command key. Keys match on "binary" or
// "binary arg1", most specific first.
func (f *FakeRunner) Respond(key string, result *Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key] = result
}

// Fail scripts an infrastructure error for a command key.
func (f *FakeRunner) Fail(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[key] = err
}

// Run records the command and returns the scripted response.
func (f *FakeRunner) Run(_ context.Context, cmd Command) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.commands = append(f.commands, cmd)

	keys := []string{cmd.Binary}
	if len(cmd.Arguments) > 0 {
		keys = append([]string{cmd.Binary + " " + cmd.Arguments[0]}, keys...)
	}
	for _, key := range keys {
		if err, ok := f.errors[key]; ok {
			return nil, err
		}
		if res, ok := f.responses[key]; ok {
			copied := *res
			return &copied, nil
		}
	}
	return &Result{Success: true, ExitCode: 0}, nil
}

// Commands returns a copy of everything run so far.
func (f *FakeRunner) Commands() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Command, len(f.commands))
	copy(out, f.commands)
	return out
}

// CommandLines returns the recorded commands as display strings.
func (f *FakeRunner) CommandLines() []string {
	cmds := f.Commands()
	lines := make([]string, len(cmds))
	for i, c := range cmds {
		lines[i] = c.String()
	}
	return lines
}

// Find returns the first recorded command whose line contains substr.
func (f *FakeRunner) Find(substr string) (Command, error) {
	for _, c := range f.Commands() {
		if strings.Contains(c.String(), substr) {
			return c, nil
		}
	}
	return Command{}, fmt.Errorf("no recorded command contains %q", substr)
}
