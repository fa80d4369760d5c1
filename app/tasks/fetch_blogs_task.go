package tasks

import (
	"context"
	"log/slog"

	"github.com/dmtral/aipulse/app/fetcher"
	"github.com/dmtral/aipulse/app/pipeline"
)

type FetchBlogsTask struct {
	Task
	fetcher   *fetcher.BlogFetcher
	processor *pipeline.Processor
}

func NewFetchBlogsTask(f *fetcher.BlogFetcher, processor *pipeline.Processor) *FetchBlogsTask {
	return &FetchBlogsTask{
		Task:      NewTask(TaskTypeFetchBlogs, "opml"),
		fetcher:   f,
		processor: processor,
	}
}

func (t *FetchBlogsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	items := t.fetcher.FetchAll(ctx)
	stats := t.processor.Run(ctx, items)

	slog.Info("Task completed",
		"type", "FetchBlogs",
		"duration", t.GetDuration(),
		"fetched", stats.Fetched,
		"duplicates", stats.Duplicates,
		"new", stats.Classified,
		"notified", stats.Notified)

	return nil
}
