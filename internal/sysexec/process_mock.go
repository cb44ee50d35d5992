package sysexec

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Call records one invocation of MockProcessRunner.Run.
type Call struct {
	Path  string
	Args  []string
	Stdin string
}

// Command returns the call rendered as a single space-joined string.
func (c Call) Command() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// MockProcessRunner is a mock implementation of ProcessRunner for testing.
type MockProcessRunner struct {
	// RunFunc allows tests to provide custom behaviour.
	RunFunc func(ctx context.Context, path string, args []string, stdin io.Reader) (stdout, stderr []byte, err error)

	// Executables lists the names LookPath resolves. Nil resolves everything.
	Executables []string

	mu    sync.Mutex
	calls []Call
}

// NewMockProcessRunner creates a new mock process runner.
func NewMockProcessRunner() *MockProcessRunner {
	return &MockProcessRunner{}
}

// NewErrorMockProcessRunner creates a mock whose commands all fail.
func NewErrorMockProcessRunner(errMsg string) *MockProcessRunner {
	return &MockProcessRunner{
		RunFunc: func(ctx context.Context, path string, args []string, stdin io.Reader) ([]byte, []byte, error) {
			return nil, []byte(errMsg), errors.New(errMsg)
		},
	}
}

// NewSuccessMockProcessRunner creates a mock that returns stdout for every command.
func NewSuccessMockProcessRunner(stdout []byte) *MockProcessRunner {
	return &MockProcessRunner{
		RunFunc: func(ctx context.Context, path string, args []string, stdin io.Reader) ([]byte, []byte, error) {
			return stdout, nil, nil
		},
	}
}

// Run executes the mock behaviour.
func (m *MockProcessRunner) Run(ctx context.Context, path string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	call := Call{Path: path, Args: append([]string(nil), args...)}
	if stdin != nil {
		data, _ := io.ReadAll(stdin)
		call.Stdin = string(data)
		stdin = strings.NewReader(call.Stdin)
	}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if m.RunFunc != nil {
		return m.RunFunc(ctx, path, args, stdin)
	}
	return nil, nil, nil
}

// LookPath resolves names listed in Executables.
func (m *MockProcessRunner) LookPath(name string) (string, error) {
	if m.Executables == nil {
		return "/usr/bin/" + name, nil
	}
	for _, e := range m.Executables {
		if e == name {
			return "/usr/bin/" + name, nil
		}
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

// Calls returns a copy of all recorded calls.
func (m *MockProcessRunner) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount returns how many times Run was called.
func (m *MockProcessRunner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
