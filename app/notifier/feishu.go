package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmtral/aipulse/app/digest"
	"github.com/dmtral/aipulse/app/model"
	"github.com/dmtral/aipulse/app/routing"
)

var feishuImportanceColor = map[model.Importance]string{
	model.ImportanceHigh:   "red",
	model.ImportanceMedium: "yellow",
	model.ImportanceLow:    "green",
}

var feishuImportanceLabel = map[model.Importance]string{
	model.ImportanceHigh:   "🔥 重要",
	model.ImportanceMedium: "✅ 关注",
	model.ImportanceLow:    "ℹ️ 了解",
}

var _ Notifier = (*Feishu)(nil)

// Feishu delivers interactive cards via incoming webhooks. Release and
// blog topics post to separate webhook URLs; the topic key prefix
// selects which.
type Feishu struct {
	releaseWebhookURL string
	blogWebhookURL    string
	client            *http.Client
}

func NewFeishu(releaseWebhookURL, blogWebhookURL string, client *http.Client) *Feishu {
	return &Feishu{
		releaseWebhookURL: releaseWebhookURL,
		blogWebhookURL:    blogWebhookURL,
		client:            client,
	}
}

func (f *Feishu) Name() string {
	return routing.ChannelFeishu
}

func (f *Feishu) webhookFor(topic string) string {
	if strings.HasPrefix(topic, "blog_") {
		return f.blogWebhookURL
	}
	return f.releaseWebhookURL
}

func (f *Feishu) SendItem(ctx context.Context, topic string, rec *model.Record) error {
	color := feishuImportanceColor[rec.Importance]
	if color == "" {
		color = "yellow"
	}

	label := feishuImportanceLabel[rec.Importance]
	if label == "" {
		label = feishuImportanceLabel[model.ImportanceMedium]
	}

	title := rec.DisplayTitle()
	if rec.Kind == model.KindBlog && rec.Category != "" {
		title = fmt.Sprintf("[%s] %s", rec.Category, title)
	}

	elements := []map[string]interface{}{
		{
			"tag":  "div",
			"text": larkMd(fmt.Sprintf("**%s** | *%s*", label, metaLine(rec))),
		},
		{"tag": "hr"},
		{
			"tag":  "div",
			"text": larkMd(rec.DisplaySummary()),
		},
		{
			"tag": "action",
			"actions": []map[string]interface{}{
				{
					"tag":  "button",
					"text": map[string]interface{}{"tag": "plain_text", "content": "查看原文"},
					"type": "primary",
					"url":  rec.URL,
				},
			},
		},
	}

	return f.sendCard(ctx, f.webhookFor(topic), title, color, elements)
}

func (f *Feishu) SendDigest(ctx context.Context, topic string, dig *digest.Digest) error {
	title := "AI Daily Digest"
	color := "blue"
	if dig.Kind == model.KindBlog {
		title = "📖 AI 编程博客每日精选"
		color = "purple"
	}

	return f.sendCard(ctx, f.webhookFor(topic), title, color, buildDigestElements(dig))
}

func buildDigestElements(dig *digest.Digest) []map[string]interface{} {
	if dig.Empty() {
		return []map[string]interface{}{
			{"tag": "div", "text": larkMd("今日暂无更新")},
		}
	}

	var elements []map[string]interface{}
	for _, group := range dig.Groups {
		elements = append(elements, map[string]interface{}{
			"tag":  "div",
			"text": larkMd(fmt.Sprintf("**%s**", strings.ToUpper(group.Name))),
		})

		lines := make([]string, 0, len(group.Records))
		for _, rec := range group.Records {
			lines = append(lines, fmt.Sprintf("%s [%s](%s)",
				emojiFor(rec.Importance), rec.DisplayTitle(), rec.URL))
		}
		elements = append(elements, map[string]interface{}{
			"tag":  "div",
			"text": larkMd(strings.Join(lines, "\n")),
		})
		elements = append(elements, map[string]interface{}{"tag": "hr"})
	}

	elements = append(elements, map[string]interface{}{
		"tag":  "div",
		"text": larkMd(fmt.Sprintf("共 %d 条更新", dig.Total)),
	})

	return elements
}

func larkMd(content string) map[string]interface{} {
	return map[string]interface{}{"tag": "lark_md", "content": content}
}

func (f *Feishu) sendCard(ctx context.Context, webhookURL, title, headerColor string, elements []map[string]interface{}) error {
	if webhookURL == "" {
		return fmt.Errorf("feishu webhook not configured")
	}

	card := map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"header": map[string]interface{}{
				"title":    map[string]interface{}{"tag": "plain_text", "content": title},
				"template": headerColor,
			},
			"elements": elements,
		},
	}

	body, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal card: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("feishu webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("feishu webhook error %d: %s", resp.StatusCode, string(data))
	}

	return nil
}
