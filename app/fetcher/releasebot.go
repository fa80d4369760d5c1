package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dmtral/aipulse/app/model"
)

const releasebotBaseURL = "https://releasebot.io/updates"

// fan-out bound across vendor endpoints
const maxConcurrentVendorFetches = 10

// ReleasebotFetcher pulls vendor release feeds from releasebot.io
// SvelteKit __data.json endpoints.
type ReleasebotFetcher struct {
	httpClient   *http.Client
	userAgent    string
	maxPerVendor int
	fetchTimeout time.Duration
}

func NewReleasebotFetcher(httpClient *http.Client, userAgent string, maxPerVendor int) *ReleasebotFetcher {
	if maxPerVendor <= 0 {
		maxPerVendor = 1
	}
	return &ReleasebotFetcher{
		httpClient:   httpClient,
		userAgent:    userAgent,
		maxPerVendor: maxPerVendor,
		fetchTimeout: 30 * time.Second,
	}
}

// FetchAll fetches every vendor with bounded concurrency. A failing
// vendor is logged and skipped; it never aborts the batch.
func (f *ReleasebotFetcher) FetchAll(ctx context.Context, vendors []string) []model.Item {
	var (
		mu    sync.Mutex
		items []model.Item
		wg    sync.WaitGroup
	)
	sem := make(chan struct{}, maxConcurrentVendorFetches)

	for _, vendor := range vendors {
		wg.Add(1)
		go func(vendor string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			fetched, err := f.FetchVendor(ctx, vendor)
			if err != nil {
				slog.Error("Release fetch failed", "vendor", vendor, "error", err)
				return
			}

			mu.Lock()
			items = append(items, fetched...)
			mu.Unlock()
		}(vendor)
	}

	wg.Wait()
	return items
}

func (f *ReleasebotFetcher) FetchVendor(ctx context.Context, vendor string) ([]model.Item, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/__data.json", releasebotBaseURL, vendor)
	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch releases: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var payload sveltekitPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON from %s: %w", vendor, err)
	}

	items := ParseVendorPayload(&payload, vendor, f.maxPerVendor)
	slog.Debug("Fetched releases", "vendor", vendor, "count", len(items))

	return items, nil
}

type sveltekitPayload struct {
	Nodes []sveltekitNode `json:"nodes"`
}

type sveltekitNode struct {
	Type string            `json:"type"`
	Data []json.RawMessage `json:"data"`
}

// ParseVendorPayload decodes the SvelteKit deduped data format: node
// data is a flat array where objects are shapes mapping field names to
// array indices of their values.
func ParseVendorPayload(payload *sveltekitPayload, vendor string, limit int) []model.Item {
	dataArray := findReleasesNode(payload)
	if dataArray == nil {
		slog.Warn("No releases data found", "vendor", vendor)
		return nil
	}

	shape := decodeShape(dataArray[0])
	releasesIdx, ok := shape["releases"]
	if !ok || releasesIdx < 0 || releasesIdx >= len(dataArray) {
		return nil
	}

	var releaseIndices []int
	if err := json.Unmarshal(dataArray[releasesIdx], &releaseIndices); err != nil {
		return nil
	}

	var items []model.Item
	for _, ridx := range releaseIndices {
		if len(items) >= limit {
			break
		}
		if ridx < 0 || ridx >= len(dataArray) {
			continue
		}
		releaseShape := decodeShape(dataArray[ridx])
		if releaseShape == nil {
			continue
		}

		rel := resolveShape(dataArray, releaseShape)
		if item, ok := buildReleaseItem(rel, vendor); ok {
			items = append(items, item)
		}
	}

	return items
}

func findReleasesNode(payload *sveltekitPayload) []json.RawMessage {
	for _, node := range payload.Nodes {
		if node.Type != "data" || len(node.Data) < 6 {
			continue
		}
		if shape := decodeShape(node.Data[0]); shape != nil {
			if _, ok := shape["releases"]; ok {
				return node.Data
			}
		}
	}
	return nil
}

// decodeShape returns the object as a field->index map, or nil when
// the element is not a pure shape object.
func decodeShape(raw json.RawMessage) map[string]int {
	var shape map[string]int
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil
	}
	return shape
}

// resolveShape follows shape indices into the flat data array,
// recursing one level into nested shapes.
func resolveShape(data []json.RawMessage, shape map[string]int) map[string]interface{} {
	result := make(map[string]interface{}, len(shape))
	for key, idx := range shape {
		if idx < 0 || idx >= len(data) {
			continue
		}
		if nested := decodeShape(data[idx]); nested != nil {
			result[key] = resolveShape(data, nested)
			continue
		}
		var value interface{}
		if err := json.Unmarshal(data[idx], &value); err == nil {
			result[key] = value
		}
	}
	return result
}

func buildReleaseItem(rel map[string]interface{}, vendor string) (model.Item, bool) {
	releaseID, ok := asID(rel["id"])
	if !ok {
		return model.Item{}, false
	}

	details := asMap(rel["release_details"])
	productInfo := asMap(rel["product"])
	sourceInfo := asMap(rel["source"])

	title := asString(details["release_name"])
	if title == "" {
		title = asString(rel["slug"])
	}
	summary := asString(details["release_summary"])
	version := asString(details["release_number"])
	product := asString(productInfo["display_name"])
	if product == "" {
		product = vendor
	}
	sourceURL := asString(sourceInfo["source_url"])
	if sourceURL == "" {
		sourceURL = fmt.Sprintf("%s/%s", releasebotBaseURL, vendor)
	}

	var publishedAt *time.Time
	for _, key := range []string{"release_date", "created_at"} {
		if raw := asString(rel[key]); raw != "" {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				utc := t.UTC()
				publishedAt = &utc
				break
			}
		}
	}

	content := asString(rel["formatted_content"])
	if content == "" {
		content = summary
	}
	if summary == "" {
		summary = title
	}

	return model.Item{
		SourceID:    fmt.Sprintf("%s:%s", vendor, releaseID),
		NotifyAs:    model.KindRelease,
		Vendor:      vendor,
		Product:     product,
		Version:     version,
		Title:       title,
		URL:         sourceURL,
		Summary:     truncateRunes(summary, 500),
		PublishedAt: publishedAt,
		Content:     truncateRunes(content, 2000),
	}, true
}

func asID(v interface{}) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case float64:
		return fmt.Sprintf("%.0f", id), true
	default:
		return "", false
	}
}

func asMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return fmt.Sprintf("%v", s)
	default:
		return ""
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
