package tasks

// TaskSchedulerInterface is what the API needs from the scheduler: a
// non-blocking way to queue work.
type TaskSchedulerInterface interface {
	Start() error
	Stop()
	EnqueueTask(task TaskInterface) error
}
