package fetcher

import (
	"cmp"
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/dmtral/aipulse/app/model"
)

// fan-out bound across subscribed feeds
const maxConcurrentFeedFetches = 10

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// BlogFetcher pulls articles from the OPML subscription list. Each
// entry resolves its kind from the feed's notifyAs attribute, so
// downstream processing needs no feed-specific branches.
type BlogFetcher struct {
	opmlPath      string
	maxPerFeed    int
	fetchTimeout  time.Duration
	parserFactory func() *gofeed.Parser
	userAgent     string
}

func NewBlogFetcher(opmlPath, userAgent string, maxPerFeed int) *BlogFetcher {
	if maxPerFeed <= 0 {
		maxPerFeed = 1
	}
	return &BlogFetcher{
		opmlPath:      opmlPath,
		maxPerFeed:    maxPerFeed,
		fetchTimeout:  30 * time.Second,
		userAgent:     userAgent,
		parserFactory: gofeed.NewParser,
	}
}

// FetchAll fetches every subscribed feed with bounded concurrency.
// Per-feed failures are logged and skipped.
func (f *BlogFetcher) FetchAll(ctx context.Context) []model.Item {
	feeds, err := ParseOPML(f.opmlPath)
	if err != nil {
		slog.Error("Failed to load OPML subscriptions", "path", f.opmlPath, "error", err)
		return nil
	}

	slog.Debug("Fetching subscribed feeds", "count", len(feeds))

	var (
		mu    sync.Mutex
		items []model.Item
		wg    sync.WaitGroup
	)
	sem := make(chan struct{}, maxConcurrentFeedFetches)

	for _, feed := range feeds {
		wg.Add(1)
		go func(feed FeedInfo) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			fetched, err := f.fetchFeed(ctx, feed)
			if err != nil {
				slog.Error("Blog feed fetch failed", "feed", feed.Title, "error", err)
				return
			}

			mu.Lock()
			items = append(items, fetched...)
			mu.Unlock()
		}(feed)
	}

	wg.Wait()
	return items
}

func (f *BlogFetcher) fetchFeed(ctx context.Context, feed FeedInfo) ([]model.Item, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	defer cancel()

	parser := f.parserFactory()
	parser.UserAgent = f.userAgent

	parsed, err := parser.ParseURLWithContext(feed.XMLURL, timeoutCtx)
	if err != nil {
		return nil, err
	}

	items := make([]model.Item, 0, f.maxPerFeed)
	for _, entry := range parsed.Items {
		if len(items) >= f.maxPerFeed {
			break
		}
		if entry == nil {
			continue
		}
		items = append(items, f.buildItem(feed, entry))
	}

	return items, nil
}

func (f *BlogFetcher) buildItem(feed FeedInfo, entry *gofeed.Item) model.Item {
	fingerprint := cmp.Or(entry.GUID, entry.Link, entry.Title)

	var publishedAt *time.Time
	if entry.PublishedParsed != nil {
		t := entry.PublishedParsed.UTC()
		publishedAt = &t
	} else if entry.UpdatedParsed != nil {
		t := entry.UpdatedParsed.UTC()
		publishedAt = &t
	}

	summary := stripHTML(cmp.Or(entry.Description, entry.Title))
	content := stripHTML(cmp.Or(entry.Content, entry.Description, entry.Title))

	return model.Item{
		SourceID:     BlogSourceID(feed.Title, fingerprint),
		NotifyAs:     feed.NotifyAs,
		Vendor:       feed.Title,
		Product:      feed.Title,
		FeedCategory: feed.Category,
		Title:        entry.Title,
		URL:          NormalizeURL(entry.Link),
		Summary:      truncateRunes(summary, 500),
		PublishedAt:  publishedAt,
		Content:      content,
	}
}

func stripHTML(s string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(s, ""))
}
