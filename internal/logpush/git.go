package logpush

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandExecutor abstracts command execution for testing.
type CommandExecutor interface {
	// Run executes a command in dir and returns its standard output.
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// DefaultExecutor executes commands using os/exec.
type DefaultExecutor struct{}

// Run executes a command and returns its standard output. On failure the error
// carries the command's stderr, or its stdout when stderr is empty.
func (e *DefaultExecutor) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		if detail != "" {
			return nil, fmt.Errorf("%w: %s", err, detail)
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// gitCLI runs the git porcelain commands of a log push.
type gitCLI struct {
	executor CommandExecutor
}

// changed reports whether path has uncommitted changes or is untracked.
func (g *gitCLI) changed(ctx context.Context, dir, path string) (bool, error) {
	out, err := g.executor.Run(ctx, dir, "git", "status", "--porcelain", "--", path)
	if err != nil {
		return false, fmt.Errorf("git status failed: %w", err)
	}
	return len(bytes.TrimSpace(out)) > 0, nil
}

func (g *gitCLI) add(ctx context.Context, dir, path string) error {
	if _, err := g.executor.Run(ctx, dir, "git", "add", "--", path); err != nil {
		return fmt.Errorf("git add failed: %w", err)
	}
	return nil
}

func (g *gitCLI) commit(ctx context.Context, dir, message string) error {
	if _, err := g.executor.Run(ctx, dir, "git", "commit", "-m", message); err != nil {
		return fmt.Errorf("git commit failed: %w", err)
	}
	return nil
}

func (g *gitCLI) push(ctx context.Context, dir, remote, branch string) error {
	if _, err := g.executor.Run(ctx, dir, "git", "push", remote, branch); err != nil {
		return fmt.Errorf("git push failed: %w", err)
	}
	return nil
}
