package database

import "testing"

func TestTopicRepository_SaveAndGet(t *testing.T) {
	repo := NewTopicRepository(setupTestDB(t))

	topics, err := repo.GetTopics()
	if err != nil {
		t.Fatal(err)
	}
	if len(topics) != 0 {
		t.Errorf("fresh database should have no topics, got %v", topics)
	}

	if err := repo.SaveTopic("release_high", 42); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveTopic("blog_digest", 7); err != nil {
		t.Fatal(err)
	}

	topics, err = repo.GetTopics()
	if err != nil {
		t.Fatal(err)
	}
	if topics["release_high"] != 42 || topics["blog_digest"] != 7 {
		t.Errorf("topics = %v", topics)
	}
}

func TestTopicRepository_SaveOverwrites(t *testing.T) {
	repo := NewTopicRepository(setupTestDB(t))

	if err := repo.SaveTopic("release_high", 1); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveTopic("release_high", 2); err != nil {
		t.Fatal(err)
	}

	topics, err := repo.GetTopics()
	if err != nil {
		t.Fatal(err)
	}
	if topics["release_high"] != 2 {
		t.Errorf("thread id = %d, want 2", topics["release_high"])
	}
}
