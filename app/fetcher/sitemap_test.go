package fetcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dmtral/aipulse/app/model"
)

const testSitemapYAML = `
sitemaps:
  - name: Anthropic Engineering
    category: engineering
    sitemap_url: https://www.anthropic.com/sitemap.xml
    path_prefixes:
      - /engineering/
    max_articles: 5
  - name: Vendor News
    sitemap_url: https://example.com/sitemap.xml
    notify_as: release
    fetch_interval_minutes: 45
`

func TestLoadSitemapSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitemaps.yaml")
	if err := os.WriteFile(path, []byte(testSitemapYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	sources, err := LoadSitemapSources(path)
	if err != nil {
		t.Fatalf("LoadSitemapSources failed: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}

	first := sources[0]
	if first.Name != "Anthropic Engineering" || first.MaxArticles != 5 {
		t.Errorf("first source = %+v", first)
	}
	if first.Kind() != model.KindBlog {
		t.Errorf("default kind = %s, want blog", first.Kind())
	}

	second := sources[1]
	if second.Kind() != model.KindRelease {
		t.Errorf("notify_as=release not honored, got %s", second.Kind())
	}
	if second.MaxArticles != 10 {
		t.Errorf("missing max_articles should default to 10, got %d", second.MaxArticles)
	}
	if second.FetchIntervalMinutes != 45 {
		t.Errorf("fetch interval = %d, want 45", second.FetchIntervalMinutes)
	}
}

func TestLoadSitemapSources_MissingFileIsNotAnError(t *testing.T) {
	sources, err := LoadSitemapSources(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Errorf("missing config should not error, got %v", err)
	}
	if sources != nil {
		t.Errorf("expected nil sources, got %v", sources)
	}
}

func TestMatchesPrefix(t *testing.T) {
	tests := []struct {
		loc      string
		prefixes []string
		want     bool
	}{
		{"https://example.com/engineering/post", []string{"/engineering/"}, true},
		{"https://example.com/news/post", []string{"/engineering/"}, false},
		{"https://example.com/anything", nil, true},
		{"://bad", []string{"/x/"}, false},
	}

	for _, tt := range tests {
		if got := matchesPrefix(tt.loc, tt.prefixes); got != tt.want {
			t.Errorf("matchesPrefix(%q, %v) = %v, want %v", tt.loc, tt.prefixes, got, tt.want)
		}
	}
}

func TestParseLastMod(t *testing.T) {
	if got := parseLastMod("2026-08-20"); got.IsZero() {
		t.Error("date-only lastmod should parse")
	}
	if got := parseLastMod("2026-08-20T10:00:00Z"); got.IsZero() {
		t.Error("RFC3339 lastmod should parse")
	}
	if got := parseLastMod("last week"); !got.IsZero() {
		t.Errorf("garbage lastmod should be zero, got %v", got)
	}
	if got := parseLastMod(""); !got.IsZero() {
		t.Error("empty lastmod should be zero")
	}
}
