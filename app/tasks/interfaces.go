package tasks

// TaskSchedulerInterface defines the interface for background task
// scheduling. Used by the main application to manage the worker pool
// and the recurring fetch, digest and cleanup schedules.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
