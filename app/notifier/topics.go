package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/dmtral/aipulse/app/database"
	"github.com/dmtral/aipulse/app/routing"
)

// topicDef describes one forum topic: display name and icon color.
// icon colors: 0x6FB9F0 blue, 0xFFD67E yellow, 0xCB86DB purple,
// 0x8EEE98 green, 0xFB6F5F red
type topicDef struct {
	Name      string
	IconColor int
}

var topicDefs = map[string]topicDef{
	routing.TopicReleaseHigh:   {"AI新闻 - 重要", 0xFB6F5F},
	routing.TopicReleaseMedium: {"AI新闻 - 关注", 0x6FB9F0},
	routing.TopicReleaseLow:    {"AI新闻 - 了解", 0x8EEE98},
	routing.TopicReleaseDigest: {"AI新闻 - 每日摘要", 0xFFD67E},
	routing.TopicBlogHigh:      {"AI博客 - 重要", 0xFB6F5F},
	routing.TopicBlogMedium:    {"AI博客 - 关注", 0x6FB9F0},
	routing.TopicBlogDigest:    {"AI博客 - 每日摘要", 0xCB86DB},
}

// TopicManager maps topic keys to Telegram forum thread ids. Thread
// ids are persisted so topics are created at most once across
// restarts; missing topics are created lazily at startup.
type TopicManager struct {
	repo     database.TopicRepository
	botToken string
	chatID   string
	client   *http.Client

	mu    sync.RWMutex
	cache map[string]int64
}

func NewTopicManager(repo database.TopicRepository, botToken, chatID string, client *http.Client) *TopicManager {
	return &TopicManager{
		repo:     repo,
		botToken: botToken,
		chatID:   chatID,
		client:   client,
		cache:    make(map[string]int64),
	}
}

// EnsureTopics loads persisted thread ids and creates any missing
// forum topics. Call once at startup before sends begin.
func (m *TopicManager) EnsureTopics(ctx context.Context) error {
	if m.botToken == "" || m.chatID == "" {
		slog.Warn("Telegram not configured, skipping topic creation")
		return nil
	}

	saved, err := m.repo.GetTopics()
	if err != nil {
		return fmt.Errorf("failed to load chat topics: %w", err)
	}

	created := 0
	for key, def := range topicDefs {
		if _, ok := saved[key]; ok {
			continue
		}

		threadID, err := m.createForumTopic(ctx, def.Name, def.IconColor)
		if err != nil {
			return fmt.Errorf("failed to create topic %q: %w", key, err)
		}
		if err := m.repo.SaveTopic(key, threadID); err != nil {
			return fmt.Errorf("failed to persist topic %q: %w", key, err)
		}

		saved[key] = threadID
		created++
		slog.Info("Created Telegram topic", "key", key, "name", def.Name, "thread_id", threadID)
	}

	m.mu.Lock()
	m.cache = saved
	m.mu.Unlock()

	slog.Info("Telegram topics ready", "total", len(saved), "created", created)
	return nil
}

// ThreadID returns the forum thread for a topic key, or ok=false when
// the topic is unknown.
func (m *TopicManager) ThreadID(topic string) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.cache[topic]
	if !ok {
		slog.Warn("No thread id for topic", "topic", topic)
	}
	return id, ok
}

func (m *TopicManager) createForumTopic(ctx context.Context, name string, iconColor int) (int64, error) {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/createForumTopic", m.botToken)
	payload := map[string]interface{}{
		"chat_id":    m.chatID,
		"name":       name,
		"icon_color": iconColor,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("createForumTopic request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("createForumTopic error %d: %s", resp.StatusCode, string(data))
	}

	var result struct {
		Result struct {
			MessageThreadID int64 `json:"message_thread_id"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode createForumTopic response: %w", err)
	}

	return result.Result.MessageThreadID, nil
}
