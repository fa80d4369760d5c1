package fetcher

import (
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/dmtral/aipulse/app/model"
)

func TestBuildItem(t *testing.T) {
	f := NewBlogFetcher("unused.opml", "test-agent", 1)

	published := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	feed := FeedInfo{
		Title:    "Simon Willison",
		Category: "AI Blogs",
		NotifyAs: model.KindBlog,
	}
	entry := &gofeed.Item{
		GUID:            "https://simonwillison.net/2026/aug/20/post/",
		Title:           "Prompt injection revisited",
		Link:            "https://simonwillison.net/2026/aug/20/post/?utm_source=rss",
		Description:     "<p>Some <b>HTML</b> description</p>",
		Content:         "<article>Full body</article>",
		PublishedParsed: &published,
	}

	item := f.buildItem(feed, entry)

	if item.SourceID != BlogSourceID("Simon Willison", entry.GUID) {
		t.Errorf("source id = %q", item.SourceID)
	}
	if item.NotifyAs != model.KindBlog {
		t.Errorf("kind = %s", item.NotifyAs)
	}
	if item.URL != "https://simonwillison.net/2026/aug/20/post/" {
		t.Errorf("tracking params not stripped: %q", item.URL)
	}
	if item.Summary != "Some HTML description" {
		t.Errorf("summary = %q", item.Summary)
	}
	if item.Content != "Full body" {
		t.Errorf("content = %q", item.Content)
	}
	if item.PublishedAt == nil || !item.PublishedAt.Equal(published) {
		t.Errorf("published at = %v", item.PublishedAt)
	}
	if item.FeedCategory != "AI Blogs" {
		t.Errorf("category = %q", item.FeedCategory)
	}
}

func TestBuildItem_FingerprintFallsBackToLink(t *testing.T) {
	f := NewBlogFetcher("unused.opml", "test-agent", 1)
	feed := FeedInfo{Title: "Some Blog", NotifyAs: model.KindBlog}

	withGUID := f.buildItem(feed, &gofeed.Item{GUID: "guid-1", Link: "https://example.com/a", Title: "A"})
	withoutGUID := f.buildItem(feed, &gofeed.Item{Link: "https://example.com/a", Title: "A"})

	if withGUID.SourceID == withoutGUID.SourceID {
		t.Error("GUID and link fingerprints should differ")
	}
	if withoutGUID.SourceID != BlogSourceID("Some Blog", "https://example.com/a") {
		t.Errorf("fallback fingerprint wrong: %q", withoutGUID.SourceID)
	}
}

func TestBuildItem_ReleaseNotifyAs(t *testing.T) {
	f := NewBlogFetcher("unused.opml", "test-agent", 1)
	feed := FeedInfo{Title: "Release Feed", NotifyAs: model.KindRelease}

	item := f.buildItem(feed, &gofeed.Item{Title: "v2.0", Link: "https://example.com/v2"})
	if item.NotifyAs != model.KindRelease {
		t.Errorf("notifyAs not propagated, got %s", item.NotifyAs)
	}
}

func TestStripHTML(t *testing.T) {
	if got := stripHTML("<p>hello <b>world</b></p>"); got != "hello world" {
		t.Errorf("stripHTML = %q", got)
	}
	if got := stripHTML("  plain  "); got != "plain" {
		t.Errorf("stripHTML should trim, got %q", got)
	}
}
