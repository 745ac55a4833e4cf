package logpush

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var (
	// ErrLockTimeout indicates another push held the repository lock for longer than the timeout.
	ErrLockTimeout = errors.New("timed out waiting for the log push lock")

	errLockHeld = errors.New("lock is held by another process")
)

const (
	lockPollInitial = 10 * time.Millisecond
	lockPollMax     = 500 * time.Millisecond
)

// pushLock is an flock(2) based lock shared by every process pushing from the same repository.
// The kernel releases it if the holder exits.
type pushLock struct {
	file *os.File
}

// acquirePushLock blocks until the lock at path is held, timeout elapses or ctx is done.
func acquirePushLock(ctx context.Context, path string, timeout time.Duration) (*pushLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	poll := backoff.NewExponentialBackOff()
	poll.InitialInterval = lockPollInitial
	poll.MaxInterval = lockPollMax

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		switch {
		case err == nil:
			return struct{}{}, nil
		case errors.Is(err, syscall.EWOULDBLOCK):
			return struct{}{}, errLockHeld
		default:
			return struct{}{}, backoff.Permanent(fmt.Errorf("flock failed: %w", err))
		}
	}, backoff.WithBackOff(poll), backoff.WithMaxElapsedTime(timeout))

	if err != nil {
		_ = file.Close()
		if errors.Is(err, errLockHeld) {
			return nil, ErrLockTimeout
		}
		return nil, err
	}
	return &pushLock{file: file}, nil
}

// release unlocks and closes the lock file. It is a no-op on a released lock.
func (l *pushLock) release() error {
	if l.file == nil {
		return nil
	}

	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if err != nil {
		return fmt.Errorf("flock unlock failed: %w", err)
	}
	return closeErr
}
