package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeSyncSources        TaskType = "sync_sources"
	TaskTypeFetchSources       TaskType = "fetch_sources"
	TaskTypeBackfillThumbnails TaskType = "backfill_thumbnails"
	TaskTypeBackfillSummaries  TaskType = "backfill_summaries"
	TaskTypeCleanupDuplicates  TaskType = "cleanup_duplicates"
	TaskTypeCleanupNonEnglish  TaskType = "cleanup_non_english"
)

const (
	DefaultMaxRetries = 3
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetName() string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	Start()
	GetDuration() time.Duration
}

type Task struct {
	ID         string
	Type       TaskType
	Name       string
	RetryCount int
	MaxRetries int
	StartedAt  *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetName() string {
	return t.Name
}

func (t *Task) GetRetryCount() int {
	return t.RetryCount
}

func (t *Task) GetMaxRetries() int {
	return t.MaxRetries
}

func (t *Task) IncrementRetryCount() {
	t.RetryCount++
}

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

func NewTask(taskType TaskType, name string, maxRetries int) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		Name:       name,
		RetryCount: 0,
		MaxRetries: maxRetries,
	}
}
