package tasks

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lysyi3m/reader-comb/app/database"
)

var (
	ErrQueueFull   = errors.New("task queue is full")
	ErrTaskPending = errors.New("task of this type is already pending")
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type SchedulerConfig struct {
	Pipeline Pipeline
	Catalog  SourceCatalog
	Sources  database.SourceStore

	WorkerCount         int
	QueueSize           int
	TaskTimeout         time.Duration
	FetchSchedule       string
	BackfillSchedule    string
	MaintenanceSchedule string
}

type Scheduler struct {
	pipeline    Pipeline
	catalog     SourceCatalog
	sources     database.SourceStore
	workerCount int
	taskTimeout time.Duration
	cron        *cron.Cron
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu      sync.Mutex
	pending map[TaskType]bool
}

// NewScheduler validates the cron schedules. An empty schedule disables that trigger.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		pipeline:    cfg.Pipeline,
		catalog:     cfg.Catalog,
		sources:     cfg.Sources,
		workerCount: max(cfg.WorkerCount, 1),
		taskTimeout: cmp.Or(cfg.TaskTimeout, 30*time.Minute),
		cron:        cron.New(),
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, cmp.Or(cfg.QueueSize, 100)),
		pending:     make(map[TaskType]bool),
	}

	triggers := []struct {
		schedule string
		tasks    func() []TaskInterface
	}{
		{cfg.FetchSchedule, func() []TaskInterface {
			return []TaskInterface{NewFetchSourcesTask(s.pipeline)}
		}},
		{cfg.BackfillSchedule, func() []TaskInterface {
			return []TaskInterface{NewBackfillThumbnailsTask(s.pipeline), NewBackfillSummariesTask(s.pipeline)}
		}},
		{cfg.MaintenanceSchedule, func() []TaskInterface {
			tasks := []TaskInterface{NewCleanupDuplicatesTask(s.pipeline), NewCleanupNonEnglishTask(s.pipeline)}
			if s.catalog != nil && s.sources != nil {
				tasks = append(tasks, NewSyncSourcesTask(s.catalog, s.sources))
			}
			return tasks
		}},
	}

	for _, trigger := range triggers {
		if trigger.schedule == "" {
			continue
		}
		build := trigger.tasks
		schedule := trigger.schedule
		if _, err := s.cron.AddFunc(schedule, func() { s.enqueueAll(build()) }); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
		}
	}

	return s, nil
}

func (s *Scheduler) Start() error {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.enqueueStartupTasks()
	s.cron.Start()

	slog.Info("Scheduler started", "workers", s.workerCount, "cron_entries", len(s.cron.Entries()))
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

// EnqueueTask never blocks. Only one task per type may be queued or running.
func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.pending[task.GetType()] && task.GetRetryCount() == 0 {
		s.mu.Unlock()
		return ErrTaskPending
	}
	s.pending[task.GetType()] = true
	s.mu.Unlock()

	select {
	case s.taskQueue <- task:
		return nil
	default:
		s.release(task)
		return ErrQueueFull
	}
}

func (s *Scheduler) release(task TaskInterface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, task.GetType())
}

// enqueueStartupTasks syncs the catalog inline so the first fetch sees every source.
func (s *Scheduler) enqueueStartupTasks() {
	if s.catalog != nil && s.sources != nil {
		syncTask := NewSyncSourcesTask(s.catalog, s.sources)
		syncTask.Start()
		if err := syncTask.Execute(s.ctx); err != nil {
			slog.Error("Startup source sync failed", "id", syncTask.GetID(), "error", err)
		}
	}
	if s.pipeline != nil {
		s.enqueueAll([]TaskInterface{NewFetchSourcesTask(s.pipeline)})
	}
}

func (s *Scheduler) enqueueAll(tasks []TaskInterface) {
	for _, task := range tasks {
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue task", "type", string(task.GetType()), "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		s.release(task)
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		s.release(task)
		if task.GetMaxRetries() > 0 {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
		return
	}

	task.IncrementRetryCount()
	retryDelay := min(time.Duration(1<<uint(task.GetRetryCount()-1))*time.Second, 30*time.Second)

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "name", task.GetName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	go func() {
		select {
		case <-time.After(retryDelay):
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			return
		}
		if retryErr := s.EnqueueTask(task); retryErr != nil {
			s.release(task)
			slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
		}
	}()
}
