package logpush

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// MockExecutor records commands and returns configured responses.
type MockExecutor struct {
	mu       sync.Mutex
	commands []MockCommand
	calls    []ExecutorCall
}

type MockCommand struct {
	Prefix string
	Output []byte
	Err    error
}

type ExecutorCall struct {
	Dir  string
	Name string
	Args []string
}

func (c ExecutorCall) String() string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

// AddResponse queues a response for the next command starting with prefix.
func (m *MockExecutor) AddResponse(prefix string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, MockCommand{Prefix: prefix, Output: output, Err: err})
}

func (m *MockExecutor) Run(_ context.Context, dir string, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := ExecutorCall{Dir: dir, Name: name, Args: args}
	m.calls = append(m.calls, call)

	full := call.String()
	for i, cmd := range m.commands {
		if strings.HasPrefix(full, cmd.Prefix) {
			m.commands = append(m.commands[:i], m.commands[i+1:]...)
			return cmd.Output, cmd.Err
		}
	}
	return nil, errors.New("no mock response configured for: " + full)
}

// Commands returns the recorded calls as command lines.
func (m *MockExecutor) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.calls))
	for _, c := range m.calls {
		out = append(out, c.String())
	}
	return out
}
