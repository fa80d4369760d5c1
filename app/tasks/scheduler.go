package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmtral/aipulse/app/cfg"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	tickInterval = 30 * time.Second
	taskTimeout  = 15 * time.Minute
)

// scheduleEntry is one recurring task: a factory producing a fresh task
// instance per run, and an advance function computing the next run time.
type scheduleEntry struct {
	makeTask func() TaskInterface
	advance  func(now time.Time) time.Time
	nextRun  time.Time
}

// Scheduler runs a worker pool fed by a task queue. Recurring tasks are
// registered before Start; the scheduler enqueues each one when due and
// re-enqueues failed tasks with exponential backoff.
type Scheduler struct {
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu      sync.Mutex
	entries []*scheduleEntry
}

func NewScheduler() *Scheduler {
	return newScheduler(cfg.Get().WorkerCount)
}

func newScheduler(workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
	}
}

// AddIntervalTask schedules a task every interval. When runAtStartup is
// set the first run happens on the first tick after Start.
func (s *Scheduler) AddIntervalTask(makeTask func() TaskInterface, interval time.Duration, runAtStartup bool) {
	advance := func(now time.Time) time.Time { return now.Add(interval) }

	next := time.Now().UTC()
	if !runAtStartup {
		next = advance(next)
	}

	s.addEntry(&scheduleEntry{makeTask: makeTask, advance: advance, nextRun: next})
}

// AddDailyTask schedules a task once per day at the given UTC hour.
func (s *Scheduler) AddDailyTask(makeTask func() TaskInterface, hourUTC int) {
	advance := func(now time.Time) time.Time {
		now = now.UTC()
		next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}
		return next
	}

	s.addEntry(&scheduleEntry{makeTask: makeTask, advance: advance, nextRun: advance(time.Now())})
}

// AddWeeklyTask schedules a task once per week at the given UTC weekday
// and hour.
func (s *Scheduler) AddWeeklyTask(makeTask func() TaskInterface, weekday time.Weekday, hourUTC int) {
	advance := func(now time.Time) time.Time {
		now = now.UTC()
		next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
		for next.Weekday() != weekday || !next.After(now) {
			next = next.Add(24 * time.Hour)
		}
		return next
	}

	s.addEntry(&scheduleEntry{makeTask: makeTask, advance: advance, nextRun: advance(time.Now())})
}

func (s *Scheduler) addEntry(entry *scheduleEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()

		s.enqueueDueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueDueTasks() {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.entries {
		if entry.nextRun.After(now) {
			continue
		}
		entry.nextRun = entry.advance(now)

		task := entry.makeTask()
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue task", "type", string(task.GetType()), "name", task.GetName(), "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "name", task.GetName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			// The retry goroutine joins the WaitGroup so Stop cannot
			// close the queue while a re-enqueue is pending.
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()

				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				case <-time.After(retryDelay):
				}

				if retryErr := s.EnqueueTask(task); retryErr != nil {
					slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
