package concurrency

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// PauseState is the gate state as seen by an observer.
type PauseState int

const (
	// StateRunning means no pause is requested.
	StateRunning PauseState = iota
	// StatePauseRequested means the gate is closed but some workers are still
	// on their way to a checkpoint.
	StatePauseRequested
	// StateQuiesced means every registered worker is parked.
	StateQuiesced
)

func (s PauseState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePauseRequested:
		return "pause requested"
	case StateQuiesced:
		return "quiesced"
	default:
		return "unknown"
	}
}

// PauseController lets a dynamic set of workers check in at a checkpoint and
// lets a controller close the gate and wait until every registered worker is
// parked there. Once PauseAndWaitAll returns nil no registered worker is
// running between checkpoints, so shared state can be read without races.
//
// Two wait queues hang off one mutex: workers wait on resumeCh, controllers
// wait on changedCh. Both channels are closed to wake every waiter and then
// replaced, which gives notify-all semantics that also compose with
// context cancellation.
type PauseController struct {
	mu sync.Mutex
	// paused is only written with mu held; the checkpoint fast path reads it
	// without the lock.
	paused atomic.Bool
	active int
	parked int
	// generation counts resumes. A worker cancelled while parked only gives
	// back its parked slot if no resume has reset the counter since it parked.
	generation uint64
	resumeCh   chan struct{}
	changedCh  chan struct{}
}

// NewPauseController returns an open (running) gate with no workers.
func NewPauseController() *PauseController {
	return &PauseController{
		resumeCh:  make(chan struct{}),
		changedCh: make(chan struct{}),
	}
}

// notifyLocked wakes every controller waiting for a count change. mu must be held.
func (pc *PauseController) notifyLocked() {
	close(pc.changedCh)
	pc.changedCh = make(chan struct{})
}

// Register adds one worker to the set the barrier waits for. Call it once per
// worker, before the worker's first checkpoint.
func (pc *PauseController) Register() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.active++
}

// Unregister removes an exiting worker. A controller blocked in
// PauseAndWaitAll is woken because the target it waits for just shrank.
func (pc *PauseController) Unregister() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.active > 0 {
		pc.active--
	}
	pc.notifyLocked()
}

// RequestPause closes the gate without waiting. Workers park the next time
// they reach their checkpoint.
func (pc *PauseController) RequestPause() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.paused.Store(true)
}

// PauseAndWaitAll closes the gate and blocks until every registered worker is
// parked. The wait is unbounded unless ctx carries a deadline. On
// cancellation the gate stays closed, the counters stay intact and the
// returned error matches both ErrCancelled and the context error.
func (pc *PauseController) PauseAndWaitAll(ctx context.Context) error {
	pc.mu.Lock()
	pc.paused.Store(true)
	gen := pc.generation
	for pc.parked < pc.active {
		changed := pc.changedCh
		pc.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}

		pc.mu.Lock()
		if pc.generation != gen {
			pc.mu.Unlock()
			return fmt.Errorf("%w: resumed before all workers parked", ErrCancelled)
		}
	}
	pc.mu.Unlock()
	return nil
}

// Resume opens the gate, resets the parked count and releases every parked
// worker.
func (pc *PauseController) Resume() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.paused.Store(false)
	pc.parked = 0
	pc.generation++
	close(pc.resumeCh)
	pc.resumeCh = make(chan struct{})
	pc.notifyLocked()
}

// Paused reports whether the gate is closed.
func (pc *PauseController) Paused() bool {
	return pc.paused.Load()
}

// AwaitIfPaused is the worker checkpoint. It returns immediately while the
// gate is open; otherwise it parks the caller until Resume or until ctx is
// done.
func (pc *PauseController) AwaitIfPaused(ctx context.Context) error {
	if !pc.paused.Load() {
		return nil
	}

	pc.mu.Lock()
	if !pc.paused.Load() {
		pc.mu.Unlock()
		return nil
	}
	pc.parked++
	gen := pc.generation
	resume := pc.resumeCh
	pc.notifyLocked()
	pc.mu.Unlock()

	select {
	case <-resume:
		// Resume already reset parked to zero.
		return nil
	case <-ctx.Done():
		pc.mu.Lock()
		if pc.generation == gen && pc.parked > 0 {
			pc.parked--
			pc.notifyLocked()
		}
		pc.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
}

// State reports the gate state derived from the counters.
func (pc *PauseController) State() PauseState {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	switch {
	case !pc.paused.Load():
		return StateRunning
	case pc.parked == pc.active:
		return StateQuiesced
	default:
		return StatePauseRequested
	}
}

// Counts returns the number of registered and parked workers.
func (pc *PauseController) Counts() (active, parked int) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.active, pc.parked
}
