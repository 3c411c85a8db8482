package concurrency

import (
	"context"
	"fmt"
	"time"
)

// TimedMutex is a mutual exclusion lock whose acquisition can be bounded by
// a timeout or cancelled through a context. It is not reentrant and does not
// track its owner. Use NewTimedMutex; the zero value is not usable.
type TimedMutex struct {
	ch chan struct{}
}

// NewTimedMutex returns an unlocked mutex.
func NewTimedMutex() *TimedMutex {
	return &TimedMutex{ch: make(chan struct{}, 1)}
}

// Lock blocks until the mutex is acquired or ctx is done.
func (m *TimedMutex) Lock(ctx context.Context) error {
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
}

// TryLock acquires the mutex only if it is free right now.
func (m *TimedMutex) TryLock() bool {
	select {
	case m.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// TryLockFor waits at most d for the mutex. It returns false on timeout or
// when ctx is done first.
func (m *TimedMutex) TryLockFor(ctx context.Context, d time.Duration) bool {
	if m.TryLock() {
		return true
	}
	if d <= 0 {
		return false
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case m.ch <- struct{}{}:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Unlock releases the mutex. Unlocking an unlocked mutex is a programming
// error and panics, like sync.Mutex.
func (m *TimedMutex) Unlock() {
	select {
	case <-m.ch:
	default:
		panic("concurrency: unlock of unlocked TimedMutex")
	}
}

// Locked reports whether the mutex is currently held. The answer may be stale
// by the time the caller looks at it.
func (m *TimedMutex) Locked() bool {
	return len(m.ch) == 1
}
