package fetcher

import (
	"encoding/json"
	"testing"
)

// Flat-array SvelteKit payload: element 0 is the shape, objects map
// field names to value indices.
const testReleasebotPayload = `{
  "nodes": [
    {"type": "component"},
    {"type": "data", "data": [
      {"releases": 1},
      [2, 14],
      {"id": 3, "release_details": 4, "product": 7, "source": 9, "release_date": 11, "formatted_content": 12},
      "rel-123",
      {"release_name": 5, "release_summary": 6, "release_number": 13},
      "GPT-5 released",
      "A major capability upgrade",
      {"display_name": 8},
      "ChatGPT",
      {"source_url": 10},
      "https://openai.com/blog/gpt-5",
      "2026-08-20T10:00:00Z",
      "Full announcement content",
      "5.0",
      {"id": 15, "release_details": 16},
      "rel-456",
      {"release_name": 17},
      "Minor patch"
    ]}
  ]
}`

func decodeTestPayload(t *testing.T) *sveltekitPayload {
	t.Helper()
	var payload sveltekitPayload
	if err := json.Unmarshal([]byte(testReleasebotPayload), &payload); err != nil {
		t.Fatalf("bad test payload: %v", err)
	}
	return &payload
}

func TestParseVendorPayload(t *testing.T) {
	items := ParseVendorPayload(decodeTestPayload(t), "openai", 10)

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	item := items[0]
	if item.SourceID != "openai:rel-123" {
		t.Errorf("source id = %q", item.SourceID)
	}
	if item.Title != "GPT-5 released" {
		t.Errorf("title = %q", item.Title)
	}
	if item.Version != "5.0" {
		t.Errorf("version = %q", item.Version)
	}
	if item.Product != "ChatGPT" {
		t.Errorf("product = %q", item.Product)
	}
	if item.URL != "https://openai.com/blog/gpt-5" {
		t.Errorf("url = %q", item.URL)
	}
	if item.Content != "Full announcement content" {
		t.Errorf("content = %q", item.Content)
	}
	if item.PublishedAt == nil || item.PublishedAt.Year() != 2026 {
		t.Errorf("published at = %v", item.PublishedAt)
	}

	second := items[1]
	if second.SourceID != "openai:rel-456" {
		t.Errorf("second source id = %q", second.SourceID)
	}
	if second.Product != "openai" {
		t.Errorf("missing product should fall back to vendor, got %q", second.Product)
	}
}

func TestParseVendorPayload_RespectsLimit(t *testing.T) {
	items := ParseVendorPayload(decodeTestPayload(t), "openai", 1)
	if len(items) != 1 {
		t.Errorf("limit 1 returned %d items", len(items))
	}
}

func TestParseVendorPayload_NoReleasesNode(t *testing.T) {
	var payload sveltekitPayload
	raw := `{"nodes": [{"type": "data", "data": [{"other": 1}, 42, 1, 2, 3, 4]}]}`
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatal(err)
	}

	if items := ParseVendorPayload(&payload, "openai", 10); items != nil {
		t.Errorf("expected nil items, got %v", items)
	}
}
