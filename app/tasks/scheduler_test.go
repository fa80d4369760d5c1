package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingTask struct {
	Task
	executions atomic.Int32
	err        error
}

func (t *countingTask) Execute(ctx context.Context) error {
	t.executions.Add(1)
	return t.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}

func TestSchedulerExecutesEnqueuedTask(t *testing.T) {
	s := newScheduler(2)
	s.Start()
	defer s.Stop()

	task := &countingTask{Task: NewTask(TaskTypeCleanup, "test cleanup")}
	if err := s.EnqueueTask(task); err != nil {
		t.Fatalf("EnqueueTask() error = %v", err)
	}

	waitFor(t, func() bool { return task.executions.Load() == 1 })
}

func TestSchedulerStopWaitsForPendingRetry(t *testing.T) {
	s := newScheduler(1)
	s.Start()

	task := &countingTask{Task: NewTask(TaskTypeFetchBlogs, "failing fetch"), err: errors.New("fetch failed")}
	if err := s.EnqueueTask(task); err != nil {
		t.Fatalf("EnqueueTask() error = %v", err)
	}

	// Let the first execution fail and schedule its retry, then stop
	// while the retry delay is still pending. Stop must wait out the
	// retry goroutine before closing the queue.
	waitFor(t, func() bool { return task.executions.Load() >= 1 })
	s.Stop()

	if got := task.executions.Load(); got != 1 {
		t.Errorf("executions after Stop = %d, want 1", got)
	}
	if got := task.GetRetryCount(); got != 1 {
		t.Errorf("retry count after Stop = %d, want 1", got)
	}
}
