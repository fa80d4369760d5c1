package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmtral/aipulse/app/database"
	"github.com/dmtral/aipulse/app/model"
)

// CleanupTask deletes records older than the retention window from both
// stores. Deleting by fetched_at only; already-deleted rows make a
// rerun a no-op.
type CleanupTask struct {
	Task
	repo          database.RecordRepository
	retentionDays int
}

func NewCleanupTask(repo database.RecordRepository, retentionDays int) *CleanupTask {
	return &CleanupTask{
		Task:          NewTask(TaskTypeCleanup, "retention"),
		repo:          repo,
		retentionDays: retentionDays,
	}
}

func (t *CleanupTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -t.retentionDays)

	var total int64
	for _, kind := range []model.Kind{model.KindRelease, model.KindBlog} {
		deleted, err := t.repo.DeleteOlderThan(kind, cutoff)
		if err != nil {
			return fmt.Errorf("failed to delete old %s records: %w", kind, err)
		}
		total += deleted
	}

	slog.Info("Task completed",
		"type", "Cleanup",
		"duration", t.GetDuration(),
		"cutoff", cutoff.Format(time.RFC3339),
		"deleted", total)

	return nil
}
