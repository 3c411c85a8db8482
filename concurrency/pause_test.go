package concurrency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spinWorkers starts n registered workers that bump counter between checkpoints.
func spinWorkers(t *testing.T, ctx context.Context, pc *PauseController, n int, counter *atomic.Int64) *sync.WaitGroup {
	t.Helper()
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		pc.Register()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer pc.Unregister()
			for {
				if err := pc.AwaitIfPaused(ctx); err != nil {
					return
				}
				if ctx.Err() != nil {
					return
				}
				counter.Add(1)
				time.Sleep(100 * time.Microsecond)
			}
		}()
	}
	return &wg
}

func TestPauseStateString(t *testing.T) {
	tests := []struct {
		state    PauseState
		expected string
	}{
		{StateRunning, "running"},
		{StatePauseRequested, "pause requested"},
		{StateQuiesced, "quiesced"},
		{PauseState(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

func TestAwaitIfPausedReturnsImmediatelyWhenOpen(t *testing.T) {
	pc := NewPauseController()
	pc.Register()

	require.NoError(t, pc.AwaitIfPaused(context.Background()))
	assert.False(t, pc.Paused())
	assert.Equal(t, StateRunning, pc.State())
}

func TestPauseAndWaitAllWithoutWorkers(t *testing.T) {
	pc := NewPauseController()

	require.NoError(t, pc.PauseAndWaitAll(context.Background()))
	assert.True(t, pc.Paused())
	assert.Equal(t, StateQuiesced, pc.State())
}

func TestPauseAndWaitAllQuiescesEveryWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pc := NewPauseController()
	var counter atomic.Int64
	wg := spinWorkers(t, ctx, pc, 16, &counter)

	require.Eventually(t, func() bool { return counter.Load() > 100 }, 2*time.Second, time.Millisecond)

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	require.NoError(t, pc.PauseAndWaitAll(waitCtx))

	active, parked := pc.Counts()
	assert.Equal(t, 16, active)
	assert.Equal(t, 16, parked)
	assert.Equal(t, StateQuiesced, pc.State())

	frozen := counter.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, frozen, counter.Load(), "no worker may run while quiesced")

	pc.Resume()
	_, parked = pc.Counts()
	assert.Equal(t, 0, parked)
	assert.False(t, pc.Paused())
	require.Eventually(t, func() bool { return counter.Load() > frozen }, 2*time.Second, time.Millisecond)

	cancel()
	wg.Wait()
	active, parked = pc.Counts()
	assert.Equal(t, 0, active)
	assert.Equal(t, 0, parked)
}

func TestPauseResumeCycles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pc := NewPauseController()
	var counter atomic.Int64
	wg := spinWorkers(t, ctx, pc, 8, &counter)

	for i := 0; i < 20; i++ {
		waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
		require.NoError(t, pc.PauseAndWaitAll(waitCtx), "cycle %d", i)
		waitCancel()

		active, parked := pc.Counts()
		require.Equal(t, active, parked, "cycle %d", i)
		pc.Resume()
	}

	cancel()
	wg.Wait()
}

func TestPauseAndWaitAllCancellation(t *testing.T) {
	pc := NewPauseController()
	// A registered worker that never reaches its checkpoint.
	pc.Register()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pc.PauseAndWaitAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	active, parked := pc.Counts()
	assert.Equal(t, 1, active)
	assert.Equal(t, 0, parked)
	assert.Equal(t, StatePauseRequested, pc.State())
}

func TestAwaitIfPausedCancellationReleasesParkedSlot(t *testing.T) {
	pc := NewPauseController()
	pc.Register()
	pc.RequestPause()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- pc.AwaitIfPaused(ctx) }()

	require.Eventually(t, func() bool {
		_, parked := pc.Counts()
		return parked == 1
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrCancelled)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("checkpoint did not observe cancellation")
	}

	_, parked := pc.Counts()
	assert.Equal(t, 0, parked)
}

func TestUnregisterWakesWaitingController(t *testing.T) {
	pc := NewPauseController()
	pc.Register()
	pc.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One worker parks, the other never checks in.
	pc.RequestPause()
	go func() { _ = pc.AwaitIfPaused(ctx) }()

	done := make(chan error, 1)
	go func() { done <- pc.PauseAndWaitAll(ctx) }()

	require.Eventually(t, func() bool {
		_, parked := pc.Counts()
		return parked == 1
	}, time.Second, time.Millisecond)

	select {
	case <-done:
		t.Fatal("barrier returned before the straggler left")
	case <-time.After(20 * time.Millisecond):
	}

	pc.Unregister()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("barrier did not notice the unregistered worker")
	}
	active, parked := pc.Counts()
	assert.Equal(t, 1, active)
	assert.Equal(t, 1, parked)
}

func TestResumeWhileWaitingFailsBarrier(t *testing.T) {
	pc := NewPauseController()
	pc.Register()

	done := make(chan error, 1)
	go func() { done <- pc.PauseAndWaitAll(context.Background()) }()

	require.Eventually(t, pc.Paused, time.Second, time.Millisecond)
	pc.Resume()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("barrier kept waiting after resume")
	}
}

func TestResumeReleasesAllParkedWorkers(t *testing.T) {
	pc := NewPauseController()
	pc.RequestPause()

	const n = 32
	var released sync.WaitGroup
	for i := 0; i < n; i++ {
		pc.Register()
		released.Add(1)
		go func() {
			defer released.Done()
			_ = pc.AwaitIfPaused(context.Background())
		}()
	}

	require.NoError(t, pc.PauseAndWaitAll(context.Background()))
	pc.Resume()

	done := make(chan struct{})
	go func() {
		released.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("some workers stayed parked after resume")
	}
	_, parked := pc.Counts()
	assert.Equal(t, 0, parked)
}
