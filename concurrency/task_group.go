package concurrency

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ByteMirror/highlander/log"
)

// TaskFunc is a long-running task. It must return once ctx is done.
type TaskFunc func(ctx context.Context) error

// TaskStatus represents the lifecycle state of a task.
type TaskStatus int32

const (
	// TaskRunning indicates the task is executing.
	TaskRunning TaskStatus = iota
	// TaskDone indicates the task returned without error.
	TaskDone
	// TaskFailed indicates the task returned an error or panicked.
	TaskFailed
	// TaskCancelled indicates the task stopped because its context was cancelled.
	TaskCancelled
)

func (s TaskStatus) String() string {
	switch s {
	case TaskRunning:
		return "running"
	case TaskDone:
		return "done"
	case TaskFailed:
		return "failed"
	case TaskCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Task is the handle of one goroutine started by a TaskGroup.
type Task struct {
	name      string
	status    atomic.Int32 // Stores TaskStatus
	startedAt time.Time
	stoppedAt atomic.Int64 // Unix nanos, zero while running
	lastError atomic.Value // Stores error
}

// Name returns the name the task was started with.
func (t *Task) Name() string {
	return t.name
}

// Status returns the current status of the task.
func (t *Task) Status() TaskStatus {
	return TaskStatus(t.status.Load())
}

// Err returns the error the task finished with, if any.
func (t *Task) Err() error {
	if err, ok := t.lastError.Load().(error); ok {
		return err
	}
	return nil
}

// Runtime returns how long the task ran, or has been running so far.
func (t *Task) Runtime() time.Duration {
	if stopped := t.stoppedAt.Load(); stopped != 0 {
		return time.Unix(0, stopped).Sub(t.startedAt)
	}
	return time.Since(t.startedAt)
}

func (t *Task) finish(status TaskStatus, err error) {
	if err != nil {
		t.lastError.Store(err)
	}
	t.stoppedAt.Store(time.Now().UnixNano())
	t.status.Store(int32(status))
}

// Metrics tracks statistics for a task group.
type Metrics struct {
	TasksStarted   atomic.Uint64
	TasksDone      atomic.Uint64
	TasksFailed    atomic.Uint64
	TasksCancelled atomic.Uint64
	Running        atomic.Int32
}

// String returns a formatted string representation of the metrics.
func (m *Metrics) String() string {
	return fmt.Sprintf(
		"Tasks: %d started, %d done, %d failed, %d cancelled | Running: %d",
		m.TasksStarted.Load(),
		m.TasksDone.Load(),
		m.TasksFailed.Load(),
		m.TasksCancelled.Load(),
		m.Running.Load(),
	)
}

// TaskGroup runs a dynamic set of long-lived goroutines sharing one context
// and shuts them down in two phases: a graceful wait bounded by a grace
// period, then cancellation of the shared context.
type TaskGroup struct {
	name     string
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	metrics  *Metrics
	stopping atomic.Bool

	mu    sync.Mutex
	tasks []*Task
	errs  []error

	doneOnce sync.Once
	done     chan struct{}
}

// NewTaskGroup creates a group whose tasks run under a child of parent.
func NewTaskGroup(parent context.Context, name string) *TaskGroup {
	ctx, cancel := context.WithCancel(parent)
	return &TaskGroup{
		name:    name,
		ctx:     ctx,
		cancel:  cancel,
		metrics: &Metrics{},
		done:    make(chan struct{}),
	}
}

// Go starts fn on its own goroutine. It fails once Shutdown has begun.
func (g *TaskGroup) Go(name string, fn TaskFunc) (*Task, error) {
	// stopping is checked and wg grown under mu so no Add races Shutdown's Wait.
	g.mu.Lock()
	if g.stopping.Load() {
		g.mu.Unlock()
		return nil, fmt.Errorf("task group %s is shutting down", g.name)
	}
	task := &Task{name: name, startedAt: time.Now()}
	task.status.Store(int32(TaskRunning))
	g.tasks = append(g.tasks, task)
	g.wg.Add(1)
	g.mu.Unlock()

	g.metrics.TasksStarted.Add(1)
	g.metrics.Running.Add(1)
	go g.run(task, fn)
	return task, nil
}

func (g *TaskGroup) run(task *Task, fn TaskFunc) {
	defer g.wg.Done()
	defer g.metrics.Running.Add(-1)

	err := g.call(task, fn)
	switch {
	case err == nil:
		g.metrics.TasksDone.Add(1)
		task.finish(TaskDone, nil)
	case errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled):
		g.metrics.TasksCancelled.Add(1)
		task.finish(TaskCancelled, err)
		log.DebugLog.Printf("task %s/%s cancelled: %v", g.name, task.name, err)
	default:
		g.metrics.TasksFailed.Add(1)
		task.finish(TaskFailed, err)
		log.ErrorLog.Printf("task %s/%s failed: %v", g.name, task.name, err)

		g.mu.Lock()
		g.errs = append(g.errs, fmt.Errorf("task %s failed: %w", task.name, err))
		g.mu.Unlock()
	}
}

func (g *TaskGroup) call(task *Task, fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(g.ctx)
}

// ShuttingDown reports whether Shutdown has been called. Tasks without a
// stop flag of their own poll it to leave their loop during the graceful phase.
func (g *TaskGroup) ShuttingDown() bool {
	return g.stopping.Load()
}

// Tasks returns the handles of every task started so far.
func (g *TaskGroup) Tasks() []*Task {
	g.mu.Lock()
	defer g.mu.Unlock()

	tasks := make([]*Task, len(g.tasks))
	copy(tasks, g.tasks)
	return tasks
}

// Metrics returns the live group metrics.
func (g *TaskGroup) Metrics() *Metrics {
	return g.metrics
}

// Err joins the errors of every failed task.
func (g *TaskGroup) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}

func (g *TaskGroup) waitDone() <-chan struct{} {
	g.doneOnce.Do(func() {
		go func() {
			g.wg.Wait()
			close(g.done)
		}()
	})
	return g.done
}

// Shutdown waits up to grace for every task to return on its own, then
// cancels the group context and waits up to grace again. It is safe to call
// more than once. The returned error joins task failures with
// ErrShutdownForced or ErrShutdownLeaked when escalation was needed.
func (g *TaskGroup) Shutdown(grace time.Duration) error {
	g.mu.Lock()
	g.stopping.Store(true)
	g.mu.Unlock()
	defer g.cancel()

	done := g.waitDone()

	graceTimer := time.NewTimer(grace)
	defer graceTimer.Stop()

	select {
	case <-done:
		return g.Err()
	case <-graceTimer.C:
	}

	log.WarningLog.Printf("task group %s: %d tasks still running after %v, cancelling",
		g.name, g.metrics.Running.Load(), grace)
	g.cancel()

	forceTimer := time.NewTimer(grace)
	defer forceTimer.Stop()

	select {
	case <-done:
		return errors.Join(ErrShutdownForced, g.Err())
	case <-forceTimer.C:
		log.ErrorLog.Printf("task group %s: %d tasks ignored cancellation", g.name, g.metrics.Running.Load())
		return errors.Join(ErrShutdownLeaked, g.Err())
	}
}
