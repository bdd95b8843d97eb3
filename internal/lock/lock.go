// Package lock implements advisory per-directory locking for rotation runs.
//
// Two logtrim processes rotating the same log group concurrently would
// interleave renames and corrupt the generation sequence. Each group
// directory carries a lock file that a run must hold exclusively (via
// flock(2)) for the duration of the group's processing. The lock is
// advisory: it coordinates logtrim instances, not the programs writing
// the logs. Kernel-held locks die with the process, so a crashed run
// never leaves a group permanently locked.
package lock

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Lock-related errors.
var (
	// ErrTimeout is returned when the lock could not be acquired before
	// the context deadline. Another rotation run holds the group.
	ErrTimeout = errors.New("lock: acquisition timed out")
)

// FileName is the lock file created inside each group directory.
// File discovery must never treat it as a rotation candidate.
const FileName = ".logtrim.lock"

// retryDelay is the poll interval between acquisition attempts.
const retryDelay = 100 * time.Millisecond

// PathIn returns the lock file path for a group directory.
func PathIn(dir string) string {
	return filepath.Join(dir, FileName)
}

// Guard represents a held lock. Release it on every exit path.
type Guard struct {
	fl *flock.Flock
}

// Acquire takes an exclusive advisory lock on path, retrying until the
// context expires. The lock file is created if absent and left in place
// on release; only the flock is dropped.
func Acquire(ctx context.Context, path string) (*Guard, error) {
	fl := flock.New(path)

	ok, err := fl.TryLockContext(ctx, retryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, path)
		}
		return nil, fmt.Errorf("lock: acquire %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTimeout, path)
	}

	return &Guard{fl: fl}, nil
}

// AcquireDir locks the group directory's lock file.
func AcquireDir(ctx context.Context, dir string) (*Guard, error) {
	return Acquire(ctx, PathIn(dir))
}

// Path returns the lock file path.
func (g *Guard) Path() string {
	if g == nil || g.fl == nil {
		return ""
	}
	return g.fl.Path()
}

// Release drops the lock. Releasing an already released guard is a no-op.
func (g *Guard) Release() error {
	if g == nil || g.fl == nil {
		return nil
	}
	err := g.fl.Unlock()
	g.fl = nil
	if err != nil {
		return fmt.Errorf("lock: release: %w", err)
	}
	return nil
}
