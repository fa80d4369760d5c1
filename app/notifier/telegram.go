package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dmtral/aipulse/app/digest"
	"github.com/dmtral/aipulse/app/model"
	"github.com/dmtral/aipulse/app/routing"
)

// Telegram message length limit
const tgMaxLength = 4096

var _ Notifier = (*Telegram)(nil)

// Telegram delivers HTML messages via the Bot API, routed into forum
// topics by thread id.
type Telegram struct {
	botToken string
	chatID   string
	topics   *TopicManager
	client   *http.Client
}

func NewTelegram(botToken, chatID string, topics *TopicManager, client *http.Client) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		topics:   topics,
		client:   client,
	}
}

func (t *Telegram) Name() string {
	return routing.ChannelTelegram
}

func (t *Telegram) SendItem(ctx context.Context, topic string, rec *model.Record) error {
	return t.sendRaw(ctx, topic, FormatItemHTML(rec))
}

func (t *Telegram) SendDigest(ctx context.Context, topic string, dig *digest.Digest) error {
	return t.sendRaw(ctx, topic, FormatDigestHTML(dig))
}

func (t *Telegram) sendRaw(ctx context.Context, topic, textHTML string) error {
	if t.botToken == "" || t.chatID == "" {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	threadID, hasThread := t.topics.ThreadID(topic)

	for _, chunk := range SplitHTMLMessage(textHTML, tgMaxLength) {
		payload := map[string]interface{}{
			"chat_id":                  t.chatID,
			"text":                     chunk,
			"parse_mode":               "HTML",
			"disable_web_page_preview": true,
		}
		if hasThread {
			payload["message_thread_id"] = threadID
		}

		if err := t.post(ctx, payload); err != nil {
			return err
		}
	}

	return nil
}

func (t *Telegram) post(ctx context.Context, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendMessage request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram API error %d: %s", resp.StatusCode, string(data))
	}

	return nil
}

// SplitHTMLMessage splits a long message at line boundaries so HTML
// tags are never broken, adding page indicators when split.
func SplitHTMLMessage(text string, maxLength int) []string {
	if len(text) <= maxLength {
		return []string{text}
	}

	var (
		chunks  []string
		current []byte
	)

	for _, line := range bytes.Split([]byte(text), []byte("\n")) {
		added := len(line)
		if len(current) > 0 {
			added++ // joining newline
		}
		if len(current) > 0 && len(current)+added > maxLength {
			chunks = append(chunks, string(current))
			current = append([]byte{}, line...)
			continue
		}
		if len(current) > 0 {
			current = append(current, '\n')
		}
		current = append(current, line...)
	}
	if len(current) > 0 {
		chunks = append(chunks, string(current))
	}

	if len(chunks) > 1 {
		total := len(chunks)
		for i := range chunks {
			chunks[i] = fmt.Sprintf("%s\n\n(%d/%d)", chunks[i], i+1, total)
		}
	}

	return chunks
}
