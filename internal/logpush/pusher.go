package logpush

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/sha1n/ghproxy/internal/config"
)

var (
	// ErrNotRepository indicates the configured directory is not inside a git work tree.
	ErrNotRepository = errors.New("not a git repository")

	// ErrDetachedHead indicates HEAD does not point at a branch and no branch was configured.
	ErrDetachedHead = errors.New("HEAD is detached; configure logs.branch")
)

const (
	// MessagePushed is returned after a successful commit and push.
	MessagePushed = "Logs have been successfully committed and pushed to GitHub."

	// MessageNoChanges is returned when the log file has nothing to commit.
	MessageNoChanges = "No log changes to push."

	lockFileName = "ghproxy-logpush.lock"
	commitPrefix = "Log update: "
	timeLayout   = "2006-01-02 15:04:05"
)

// Pusher commits the application log file and pushes it to a remote.
type Pusher struct {
	settings config.LogsSettings
	git      *gitCLI
	now      func() time.Time
	logger   *slog.Logger
}

// NewPusher creates a pusher that shells out to git through executor.
func NewPusher(settings config.LogsSettings, executor CommandExecutor, logger *slog.Logger) *Pusher {
	if executor == nil {
		executor = &DefaultExecutor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pusher{
		settings: settings,
		git:      &gitCLI{executor: executor},
		now:      time.Now,
		logger:   logger,
	}
}

// Push stages the log file, commits it with a timestamped message and pushes the branch.
// Concurrent pushes from the same repository are serialized.
func (p *Pusher) Push(ctx context.Context) (string, error) {
	repo, root, err := openRepository(p.settings.RepoDir)
	if err != nil {
		return "", err
	}

	branch := p.settings.Branch
	if branch == "" {
		if branch, err = currentBranch(repo); err != nil {
			return "", err
		}
	}

	lock, err := acquirePushLock(ctx, filepath.Join(root, git.GitDirName, lockFileName), p.settings.LockTimeout)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := lock.release(); err != nil {
			p.logger.Warn("Failed to release log push lock", "error", err)
		}
	}()

	dir := p.settings.RepoDir
	changed, err := p.git.changed(ctx, dir, p.settings.File)
	if err != nil {
		return "", err
	}
	if !changed {
		p.logger.Info("Log push skipped, nothing to commit", "file", p.settings.File)
		return MessageNoChanges, nil
	}

	if err := p.git.add(ctx, dir, p.settings.File); err != nil {
		return "", err
	}
	message := commitPrefix + p.now().Format(timeLayout)
	if err := p.git.commit(ctx, dir, message); err != nil {
		return "", err
	}
	if err := p.git.push(ctx, dir, p.settings.Remote, branch); err != nil {
		return "", err
	}

	p.logger.Info("Pushed logs", "file", p.settings.File, "remote", p.settings.Remote, "branch", branch, "message", message)
	return MessagePushed, nil
}

// openRepository opens the repository containing dir and returns its work tree root.
func openRepository(dir string) (*git.Repository, string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotRepository, dir)
		}
		return nil, "", fmt.Errorf("failed to open repository %s: %w", dir, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s has no work tree", ErrNotRepository, dir)
	}
	return repo, wt.Filesystem.Root(), nil
}

// currentBranch returns the short name of the branch HEAD points at. It works on
// repositories without commits.
func currentBranch(repo *git.Repository) (string, error) {
	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	if head.Type() != plumbing.SymbolicReference || !head.Target().IsBranch() {
		return "", ErrDetachedHead
	}
	return head.Target().Short(), nil
}
