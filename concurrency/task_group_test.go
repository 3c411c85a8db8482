package concurrency

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStatusString(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		expected string
	}{
		{TaskRunning, "running"},
		{TaskDone, "done"},
		{TaskFailed, "failed"},
		{TaskCancelled, "cancelled"},
		{TaskStatus(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestTaskGroupGracefulShutdown(t *testing.T) {
	group := NewTaskGroup(context.Background(), "test")

	var iterations atomic.Int64
	for i := 0; i < 5; i++ {
		_, err := group.Go(fmt.Sprintf("looper-%d", i), func(ctx context.Context) error {
			for !group.ShuttingDown() {
				iterations.Add(1)
				time.Sleep(time.Millisecond)
			}
			return nil
		})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return iterations.Load() > 10 }, time.Second, time.Millisecond)
	require.NoError(t, group.Shutdown(time.Second))

	metrics := group.Metrics()
	assert.Equal(t, uint64(5), metrics.TasksStarted.Load())
	assert.Equal(t, uint64(5), metrics.TasksDone.Load())
	assert.Equal(t, int32(0), metrics.Running.Load())
	for _, task := range group.Tasks() {
		assert.Equal(t, TaskDone, task.Status())
		assert.NoError(t, task.Err())
	}
}

func TestTaskGroupEscalatesToCancellation(t *testing.T) {
	group := NewTaskGroup(context.Background(), "stubborn")

	_, err := group.Go("blocked", func(ctx context.Context) error {
		<-ctx.Done()
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	})
	require.NoError(t, err)

	start := time.Now()
	err = group.Shutdown(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrShutdownForced)
	assert.Less(t, time.Since(start), time.Second)

	tasks := group.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskCancelled, tasks[0].Status())
	assert.Equal(t, uint64(1), group.Metrics().TasksCancelled.Load())
}

func TestTaskGroupReportsLeakedTasks(t *testing.T) {
	group := NewTaskGroup(context.Background(), "leaky")
	release := make(chan struct{})
	defer close(release)

	_, err := group.Go("ignores-ctx", func(ctx context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	err = group.Shutdown(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrShutdownLeaked)
}

func TestTaskGroupCollectsFailures(t *testing.T) {
	group := NewTaskGroup(context.Background(), "failing")
	boom := errors.New("boom")

	_, err := group.Go("fails", func(ctx context.Context) error { return boom })
	require.NoError(t, err)
	_, err = group.Go("panics", func(ctx context.Context) error { panic("kaboom") })
	require.NoError(t, err)
	_, err = group.Go("ok", func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	err = group.Shutdown(time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, uint64(2), group.Metrics().TasksFailed.Load())
	assert.Equal(t, uint64(1), group.Metrics().TasksDone.Load())
}

func TestTaskGroupRejectsTasksAfterShutdown(t *testing.T) {
	group := NewTaskGroup(context.Background(), "closed")
	require.NoError(t, group.Shutdown(time.Second))

	task, err := group.Go("late", func(ctx context.Context) error { return nil })
	assert.Nil(t, task)
	assert.Error(t, err)
}

func TestTaskGroupShutdownIsIdempotent(t *testing.T) {
	group := NewTaskGroup(context.Background(), "twice")
	_, err := group.Go("quick", func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	require.NoError(t, group.Shutdown(time.Second))
	require.NoError(t, group.Shutdown(time.Second))
}

func TestTaskRuntimeStopsAdvancing(t *testing.T) {
	group := NewTaskGroup(context.Background(), "runtime")
	task, err := group.Go("sleeper", func(ctx context.Context) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, group.Shutdown(time.Second))

	first := task.Runtime()
	assert.GreaterOrEqual(t, first, 5*time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, first, task.Runtime())
}
