// Package concurrency provides the coordination primitives the simulator's
// workers are built on.
//
// # Core Components
//
// PauseController - cooperative pause gate with a full barrier for observers
//
//	pc := NewPauseController()
//	pc.Register()
//	defer pc.Unregister()
//	for {
//		if err := pc.AwaitIfPaused(ctx); err != nil {
//			return err
//		}
//		// work
//	}
//
// TimedMutex - mutual exclusion whose acquisition can time out or be cancelled
//
//	mu := NewTimedMutex()
//	if mu.TryLockFor(ctx, time.Second) {
//		defer mu.Unlock()
//	}
//
// TaskGroup - long-running task runner with graceful, bounded shutdown
//
//	group := NewTaskGroup(ctx, "fighters")
//	group.Go("reaper", reap)
//	group.Shutdown(5 * time.Second)
//
// Counter, Timer and RollingWindow back the per-run statistics.
package concurrency

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCancelled is returned when a blocking wait (checkpoint, barrier, lock)
	// is interrupted. Any snapshot in flight must be treated as untrustworthy.
	ErrCancelled = errors.New("wait cancelled")

	// ErrShutdownForced is returned by TaskGroup.Shutdown when tasks outlived
	// the grace period and had to be cancelled.
	ErrShutdownForced = errors.New("shutdown grace period expired, tasks cancelled")

	// ErrShutdownLeaked is returned when tasks ignored cancellation too.
	ErrShutdownLeaked = errors.New("tasks still running after cancellation")
)

// Sleep pauses for d or until ctx is done, whichever comes first. It is the
// yield point workers take between loop iterations.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
