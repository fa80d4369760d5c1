package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmtral/aipulse/app/model"
)

// Transport issues one structured-output chat completion and returns
// the raw response content.
type Transport interface {
	Complete(ctx context.Context, systemPrompt, userMsg string) (string, error)
}

const (
	DefaultMaxRetries  = 3
	DefaultBackoffBase = 2 * time.Second
	DefaultCallTimeout = 60 * time.Second

	maxReleaseContentChars = 2000
	maxBlogContentChars    = 3000
)

// Gateway wraps the external classifier with schema validation, retry
// with exponential backoff, and a fail-open fallback. A gateway never
// returns an error from Classify: a permanently failing item comes
// back as relevant=false, failed=true, so one bad item cannot stall a
// batch.
type Gateway struct {
	transport   Transport
	maxRetries  int
	backoffBase time.Duration
	callTimeout time.Duration
}

func NewGateway(transport Transport) *Gateway {
	return &Gateway{
		transport:   transport,
		maxRetries:  DefaultMaxRetries,
		backoffBase: DefaultBackoffBase,
		callTimeout: DefaultCallTimeout,
	}
}

// NewGatewayWithPolicy allows tests to shrink the retry policy.
func NewGatewayWithPolicy(transport Transport, maxRetries int, backoffBase, callTimeout time.Duration) *Gateway {
	return &Gateway{
		transport:   transport,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		callTimeout: callTimeout,
	}
}

// Classify produces the classification for one item, choosing the
// prompt by the item's resolved kind. A definitive relevant=false
// answer is a valid terminal result and is never retried.
func (g *Gateway) Classify(ctx context.Context, item *model.Item) model.Classification {
	// A gateway without a transport means classification is disabled:
	// fail open immediately, no calls and no backoff.
	if g.transport == nil {
		return failedClassification()
	}

	systemPrompt := releaseSystemPrompt
	if item.NotifyAs == model.KindBlog {
		systemPrompt = blogSystemPrompt
	}
	userMsg := buildUserMessage(item)

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			delay := g.backoffBase << uint(attempt-1)
			slog.Warn("Classification retry scheduled",
				"source_id", item.SourceID, "attempt", attempt, "delay", delay.String(), "error", lastErr)
			select {
			case <-ctx.Done():
				return failedClassification()
			case <-time.After(delay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
		raw, err := g.transport.Complete(callCtx, systemPrompt, userMsg)
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("transport: %w", err)
			continue
		}

		result, err := parseResponse(raw)
		if err != nil {
			lastErr = fmt.Errorf("schema: %w", err)
			continue
		}

		return result
	}

	slog.Error("Classification failed after retries",
		"source_id", item.SourceID, "max_retries", g.maxRetries, "error", lastErr)

	return failedClassification()
}

// failedClassification is the fail-open terminal result: the item is
// persisted as irrelevant and never notified.
func failedClassification() model.Classification {
	return model.Classification{Relevant: false, Failed: true}
}

func buildUserMessage(item *model.Item) string {
	var b strings.Builder

	if item.NotifyAs == model.KindBlog {
		fmt.Fprintf(&b, "Blog: %s\n", item.Vendor)
		fmt.Fprintf(&b, "Category: %s\n", item.FeedCategory)
		fmt.Fprintf(&b, "Title: %s\n", item.Title)
		fmt.Fprintf(&b, "Summary: %s\n", item.Summary)
		fmt.Fprintf(&b, "Content: %s", truncate(item.Content, maxBlogContentChars))
	} else {
		version := item.Version
		if version == "" {
			version = "N/A"
		}
		fmt.Fprintf(&b, "Vendor: %s\n", item.Vendor)
		fmt.Fprintf(&b, "Product: %s\n", item.Product)
		fmt.Fprintf(&b, "Title: %s\n", item.Title)
		fmt.Fprintf(&b, "Version: %s\n", version)
		fmt.Fprintf(&b, "Summary: %s\n", item.Summary)
		fmt.Fprintf(&b, "Content: %s", truncate(item.Content, maxReleaseContentChars))
	}

	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// responsePayload mirrors the JSON object the system prompt requires.
type responsePayload struct {
	Relevant   *bool  `json:"relevant"`
	Importance string `json:"importance"`
	Category   string `json:"category"`
	TitleZh    string `json:"title_zh"`
	SummaryZh  string `json:"summary_zh"`
}

// parseResponse validates the raw model output against the expected
// schema and returns a classification. Validation failures are
// retryable; a well-formed relevant=false is terminal.
func parseResponse(raw string) (model.Classification, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var payload responsePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return model.Classification{}, fmt.Errorf("invalid JSON: %w", err)
	}

	if payload.Relevant == nil {
		return model.Classification{}, fmt.Errorf("missing required field 'relevant'")
	}

	if !*payload.Relevant {
		return model.Classification{Relevant: false}, nil
	}

	importance := model.Importance(strings.ToLower(payload.Importance))
	if !importance.Valid() {
		return model.Classification{}, fmt.Errorf("invalid importance %q", payload.Importance)
	}

	return model.Classification{
		Relevant:   true,
		Importance: importance,
		Category:   payload.Category,
		TitleZh:    payload.TitleZh,
		SummaryZh:  payload.SummaryZh,
	}, nil
}
