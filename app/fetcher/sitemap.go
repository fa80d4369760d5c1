package fetcher

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	readability "codeberg.org/readeck/go-readability"
	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"

	"github.com/dmtral/aipulse/app/model"
)

// fan-out bound for per-page scrapes within one sitemap
const maxConcurrentPageFetches = 5

// Browser-like User-Agent: some sites 403 obvious bot agents.
const sitemapUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// SitemapSource configures one sitemap-scraped site. NotifyAs selects
// the pipeline its articles are dispatched through.
type SitemapSource struct {
	Name                 string   `yaml:"name"`
	Category             string   `yaml:"category"`
	SitemapURL           string   `yaml:"sitemap_url"`
	PathPrefixes         []string `yaml:"path_prefixes"`
	MaxArticles          int      `yaml:"max_articles"`
	NotifyAs             string   `yaml:"notify_as"`
	FetchIntervalMinutes int      `yaml:"fetch_interval_minutes"`
}

// Kind returns the resolved pipeline kind, defaulting to blog.
func (s *SitemapSource) Kind() model.Kind {
	if model.Kind(s.NotifyAs) == model.KindRelease {
		return model.KindRelease
	}
	return model.KindBlog
}

type sitemapConfig struct {
	Sitemaps []SitemapSource `yaml:"sitemaps"`
}

// LoadSitemapSources parses the sitemap sources YAML. A missing file
// is not an error: sitemap scraping is optional.
func LoadSitemapSources(path string) ([]SitemapSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Sitemap config not found", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sitemap config: %w", err)
	}

	var cfg sitemapConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse sitemap config: %w", err)
	}

	sources := cfg.Sitemaps
	for i := range sources {
		if sources[i].MaxArticles <= 0 {
			sources[i].MaxArticles = 10
		}
	}

	return sources, nil
}

type sitemapURLSet struct {
	URLs []sitemapEntry `xml:"url"`
}

type sitemapEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// SitemapFetcher scrapes article pages discovered via sitemap XML.
type SitemapFetcher struct {
	httpClient   *http.Client
	fetchTimeout time.Duration
}

func NewSitemapFetcher(httpClient *http.Client) *SitemapFetcher {
	return &SitemapFetcher{
		httpClient:   httpClient,
		fetchTimeout: 30 * time.Second,
	}
}

// Fetch lists the sitemap, filters by path prefix, and scrapes the
// newest pages. Per-page failures are logged and skipped.
func (f *SitemapFetcher) Fetch(ctx context.Context, source SitemapSource) ([]model.Item, error) {
	entries, err := f.listEntries(ctx, source)
	if err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		items []model.Item
		wg    sync.WaitGroup
	)
	sem := make(chan struct{}, maxConcurrentPageFetches)

	for _, entry := range entries {
		wg.Add(1)
		go func(entry sitemapEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			item, err := f.fetchPage(ctx, source, entry)
			if err != nil {
				slog.Warn("Sitemap page fetch failed", "source", source.Name, "url", entry.Loc, "error", err)
				return
			}

			mu.Lock()
			items = append(items, item)
			mu.Unlock()
		}(entry)
	}

	wg.Wait()
	return items, nil
}

func (f *SitemapFetcher) listEntries(ctx context.Context, source SitemapSource) ([]sitemapEntry, error) {
	data, err := f.get(ctx, source.SitemapURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sitemap: %w", err)
	}

	var urlSet sitemapURLSet
	if err := xml.Unmarshal(data, &urlSet); err != nil {
		return nil, fmt.Errorf("failed to parse sitemap XML: %w", err)
	}

	entries := make([]sitemapEntry, 0, len(urlSet.URLs))
	for _, entry := range urlSet.URLs {
		if entry.Loc == "" || !matchesPrefix(entry.Loc, source.PathPrefixes) {
			continue
		}
		entries = append(entries, entry)
	}

	// Newest first by lastmod; entries without one sort last.
	sort.SliceStable(entries, func(i, j int) bool {
		return parseLastMod(entries[i].LastMod).After(parseLastMod(entries[j].LastMod))
	})

	if len(entries) > source.MaxArticles {
		entries = entries[:source.MaxArticles]
	}

	return entries, nil
}

func (f *SitemapFetcher) fetchPage(ctx context.Context, source SitemapSource, entry sitemapEntry) (model.Item, error) {
	data, err := f.get(ctx, entry.Loc)
	if err != nil {
		return model.Item{}, err
	}

	title, description := extractMeta(data)
	if title == "" {
		title = entry.Loc
	}

	content := extractArticleText(data, entry.Loc)
	if content == "" {
		content = description
	}

	var publishedAt *time.Time
	if t := parseLastMod(entry.LastMod); !t.IsZero() {
		utc := t.UTC()
		publishedAt = &utc
	}

	normalized := NormalizeURL(entry.Loc)

	return model.Item{
		SourceID:     BlogSourceID(source.Name, normalized),
		NotifyAs:     source.Kind(),
		Vendor:       source.Name,
		Product:      source.Name,
		FeedCategory: source.Category,
		Title:        title,
		URL:          normalized,
		Summary:      truncateRunes(description, 500),
		PublishedAt:  publishedAt,
		Content:      truncateRunes(content, 3000),
	}, nil
}

func (f *SitemapFetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", sitemapUserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

func matchesPrefix(loc string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}

	parsed, err := url.Parse(loc)
	if err != nil {
		return false
	}

	for _, prefix := range prefixes {
		if strings.HasPrefix(parsed.Path, prefix) {
			return true
		}
	}
	return false
}

func parseLastMod(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// extractMeta pulls <title> and the description/og:description meta
// tags from the page head.
func extractMeta(html []byte) (title, description string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", ""
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	for _, selector := range []string{
		`meta[name="description"]`,
		`meta[property="og:description"]`,
	} {
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			description = strings.TrimSpace(content)
			if description != "" {
				break
			}
		}
	}

	return title, description
}

// extractArticleText runs readability extraction to give the
// classifier article body context beyond the meta description.
func extractArticleText(html []byte, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = nil
	}

	article, err := readability.FromReader(bytes.NewReader(html), parsed)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(article.TextContent)
}
