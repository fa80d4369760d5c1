package model

import (
	"time"
)

// Kind selects which record store and routing rules apply to an item.
// Sitemap and OPML sources resolve their kind once at ingestion via a
// notify_as flag; downstream code never branches on the item's origin.
type Kind string

const (
	KindRelease Kind = "release"
	KindBlog    Kind = "blog"
)

func (k Kind) Valid() bool {
	return k == KindRelease || k == KindBlog
}

type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// Rank returns the position in the total order high > medium > low.
// Lower rank means more important.
func (i Importance) Rank() int {
	switch i {
	case ImportanceHigh:
		return 0
	case ImportanceMedium:
		return 1
	case ImportanceLow:
		return 2
	default:
		return 3
	}
}

func (i Importance) Valid() bool {
	return i.Rank() < 3
}

// Item is a normalized entry from any fetcher. SourceID is deterministic
// and stable across repeated fetches of the same underlying entry:
// "{vendor}:{release_id}" for releases, "blog:{slug}:{entry_hash}" for
// blog and sitemap entries.
type Item struct {
	SourceID     string
	NotifyAs     Kind   // resolved at ingestion, drives classification and routing
	Vendor       string // vendor key (release) or blog name (blog)
	Product      string
	Version      string
	FeedCategory string // OPML/sitemap category, blog items only
	Title        string
	URL          string
	Summary      string
	PublishedAt  *time.Time
	Content      string // full text for the classifier, never persisted
}

// Classification is produced exactly once per item by the classifier
// gateway and is immutable afterwards. Failed marks the terminal
// fallback after retries were exhausted; such items are persisted as
// irrelevant so they are never re-fetched or re-classified.
type Classification struct {
	Relevant   bool
	Importance Importance
	Category   string
	TitleZh    string
	SummaryZh  string
	Failed     bool
}

// Record is the persisted form of a processed item. At most one record
// exists per (kind, source_id); the store's primary key enforces this.
type Record struct {
	SourceID     string
	Kind         Kind
	Vendor       string
	Product      string
	Version      string
	FeedCategory string
	Title        string
	URL          string
	Summary      string
	PublishedAt  *time.Time

	Relevant   bool
	Importance Importance
	Category   string
	TitleZh    string
	SummaryZh  string
	Failed     bool

	FetchedAt        time.Time
	NotifiedChannels []string
	DigestIncludedAt *time.Time
}

// NewRecord combines a fetched item with its classification.
func NewRecord(item Item, c Classification, fetchedAt time.Time) Record {
	return Record{
		SourceID:     item.SourceID,
		Kind:         item.NotifyAs,
		Vendor:       item.Vendor,
		Product:      item.Product,
		Version:      item.Version,
		FeedCategory: item.FeedCategory,
		Title:        item.Title,
		URL:          item.URL,
		Summary:      item.Summary,
		PublishedAt:  item.PublishedAt,
		Relevant:     c.Relevant,
		Importance:   c.Importance,
		Category:     c.Category,
		TitleZh:      c.TitleZh,
		SummaryZh:    c.SummaryZh,
		Failed:       c.Failed,
		FetchedAt:    fetchedAt.UTC(),
	}
}

// DisplayTitle prefers the translated title when available.
func (r *Record) DisplayTitle() string {
	if r.TitleZh != "" {
		return r.TitleZh
	}
	return r.Title
}

// DisplaySummary prefers the translated summary when available.
func (r *Record) DisplaySummary() string {
	if r.SummaryZh != "" {
		return r.SummaryZh
	}
	return r.Summary
}
