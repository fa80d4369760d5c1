package database

import (
	"fmt"
)

var _ TopicRepository = (*SQLTopicRepository)(nil)

// SQLTopicRepository persists chat-platform topic identifiers so forum
// topics are not re-created after a restart.
type SQLTopicRepository struct {
	db *DB
}

func NewTopicRepository(db *DB) *SQLTopicRepository {
	return &SQLTopicRepository{db: db}
}

func (r *SQLTopicRepository) GetTopics() (map[string]int64, error) {
	rows, err := r.db.Query("SELECT topic_key, thread_id FROM chat_topics")
	if err != nil {
		return nil, fmt.Errorf("failed to query chat topics: %w", err)
	}
	defer rows.Close()

	topics := make(map[string]int64)
	for rows.Next() {
		var key string
		var threadID int64
		if err := rows.Scan(&key, &threadID); err != nil {
			return nil, fmt.Errorf("failed to scan topic row: %w", err)
		}
		topics[key] = threadID
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topic rows: %w", err)
	}

	return topics, nil
}

func (r *SQLTopicRepository) SaveTopic(key string, threadID int64) error {
	_, err := r.db.Exec(`
		INSERT INTO chat_topics (topic_key, thread_id)
		VALUES (?, ?)
		ON CONFLICT (topic_key) DO UPDATE SET thread_id = excluded.thread_id
	`, key, threadID)
	if err != nil {
		return fmt.Errorf("failed to save chat topic: %w", err)
	}

	return nil
}
