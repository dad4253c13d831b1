package tasks

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lysyi3m/reader-comb/app/aggregator"
)

// Pipeline is the set of aggregator runs the scheduler can trigger.
type Pipeline interface {
	FetchAllSources(ctx context.Context) aggregator.Stats
	BackfillThumbnails(ctx context.Context) aggregator.Stats
	BackfillSummaries(ctx context.Context) aggregator.Stats
	CleanupDuplicates(ctx context.Context) aggregator.Stats
	CleanupNonEnglish(ctx context.Context) aggregator.Stats
}

// pipelineTask runs one aggregator pass. Pipeline runs recover per item and
// per source, so they never retry.
type pipelineTask struct {
	Task
	run func(ctx context.Context) aggregator.Stats

	mu    *sync.Mutex
	stats *aggregator.Stats
}

func newPipelineTask(taskType TaskType, run func(ctx context.Context) aggregator.Stats) pipelineTask {
	return pipelineTask{
		Task: NewTask(taskType, string(taskType), 0),
		run:  run,
		mu:   &sync.Mutex{},
	}
}

func (t *pipelineTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	stats := t.run(ctx)

	t.mu.Lock()
	t.stats = &stats
	t.mu.Unlock()

	slog.Info("Task completed",
		"type", t.GetType(),
		"id", t.GetID(),
		"run_id", stats.RunID,
		"duration", t.GetDuration(),
		"processed", stats.Processed,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"errors", stats.Errors)

	return nil
}

// Stats returns the result of the last run, or nil before the task has run.
func (t *pipelineTask) Stats() *aggregator.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

type FetchSourcesTask struct {
	pipelineTask
}

func NewFetchSourcesTask(p Pipeline) *FetchSourcesTask {
	return &FetchSourcesTask{newPipelineTask(TaskTypeFetchSources, p.FetchAllSources)}
}

type BackfillThumbnailsTask struct {
	pipelineTask
}

func NewBackfillThumbnailsTask(p Pipeline) *BackfillThumbnailsTask {
	return &BackfillThumbnailsTask{newPipelineTask(TaskTypeBackfillThumbnails, p.BackfillThumbnails)}
}

type BackfillSummariesTask struct {
	pipelineTask
}

func NewBackfillSummariesTask(p Pipeline) *BackfillSummariesTask {
	return &BackfillSummariesTask{newPipelineTask(TaskTypeBackfillSummaries, p.BackfillSummaries)}
}

type CleanupDuplicatesTask struct {
	pipelineTask
}

func NewCleanupDuplicatesTask(p Pipeline) *CleanupDuplicatesTask {
	return &CleanupDuplicatesTask{newPipelineTask(TaskTypeCleanupDuplicates, p.CleanupDuplicates)}
}

type CleanupNonEnglishTask struct {
	pipelineTask
}

func NewCleanupNonEnglishTask(p Pipeline) *CleanupNonEnglishTask {
	return &CleanupNonEnglishTask{newPipelineTask(TaskTypeCleanupNonEnglish, p.CleanupNonEnglish)}
}
