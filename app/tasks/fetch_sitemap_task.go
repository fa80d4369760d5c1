package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmtral/aipulse/app/fetcher"
	"github.com/dmtral/aipulse/app/pipeline"
)

// FetchSitemapTask covers one configured sitemap source; each source
// gets its own task and schedule.
type FetchSitemapTask struct {
	Task
	fetcher   *fetcher.SitemapFetcher
	processor *pipeline.Processor
	source    fetcher.SitemapSource
}

func NewFetchSitemapTask(f *fetcher.SitemapFetcher, processor *pipeline.Processor, source fetcher.SitemapSource) *FetchSitemapTask {
	return &FetchSitemapTask{
		Task:      NewTask(TaskTypeFetchSitemap, source.Name),
		fetcher:   f,
		processor: processor,
		source:    source,
	}
}

func (t *FetchSitemapTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	items, err := t.fetcher.Fetch(ctx, t.source)
	if err != nil {
		return fmt.Errorf("failed to fetch sitemap %q: %w", t.source.Name, err)
	}

	stats := t.processor.Run(ctx, items)

	slog.Info("Task completed",
		"type", "FetchSitemap",
		"source", t.source.Name,
		"duration", t.GetDuration(),
		"fetched", stats.Fetched,
		"duplicates", stats.Duplicates,
		"new", stats.Classified,
		"notified", stats.Notified)

	return nil
}
