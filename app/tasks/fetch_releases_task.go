package tasks

import (
	"context"
	"log/slog"

	"github.com/dmtral/aipulse/app/fetcher"
	"github.com/dmtral/aipulse/app/pipeline"
)

type FetchReleasesTask struct {
	Task
	fetcher   *fetcher.ReleasebotFetcher
	processor *pipeline.Processor
	vendors   []string
}

func NewFetchReleasesTask(f *fetcher.ReleasebotFetcher, processor *pipeline.Processor, vendors []string) *FetchReleasesTask {
	return &FetchReleasesTask{
		Task:      NewTask(TaskTypeFetchReleases, "releasebot"),
		fetcher:   f,
		processor: processor,
		vendors:   vendors,
	}
}

func (t *FetchReleasesTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	items := t.fetcher.FetchAll(ctx, t.vendors)
	stats := t.processor.Run(ctx, items)

	slog.Info("Task completed",
		"type", "FetchReleases",
		"duration", t.GetDuration(),
		"vendors", len(t.vendors),
		"fetched", stats.Fetched,
		"duplicates", stats.Duplicates,
		"new", stats.Classified,
		"notified", stats.Notified)

	return nil
}
