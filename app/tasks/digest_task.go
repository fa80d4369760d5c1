package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmtral/aipulse/app/database"
	"github.com/dmtral/aipulse/app/digest"
	"github.com/dmtral/aipulse/app/model"
	"github.com/dmtral/aipulse/app/notifier"
	"github.com/dmtral/aipulse/app/routing"
)

const digestWindow = 24 * time.Hour

// DigestTask aggregates one kind's relevant records from the last 24
// hours into a grouped digest and delivers it to the digest topic.
// Records are marked digested only after at least one channel accepted
// the send, so a fully failed delivery is retried with a fresh window.
type DigestTask struct {
	Task
	kind      model.Kind
	repo      database.RecordRepository
	table     *routing.Table
	notifiers []notifier.Notifier
}

func NewDigestTask(kind model.Kind, repo database.RecordRepository, table *routing.Table, notifiers []notifier.Notifier) *DigestTask {
	return &DigestTask{
		Task:      NewTask(TaskTypeDigest, string(kind)),
		kind:      kind,
		repo:      repo,
		table:     table,
		notifiers: notifiers,
	}
}

func (t *DigestTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	to := time.Now().UTC()
	from := to.Add(-digestWindow)

	records, err := t.repo.GetUndigested(t.kind, from, to)
	if err != nil {
		return fmt.Errorf("failed to load undigested records: %w", err)
	}

	dig := digest.Build(t.kind, records, from, to, t.table)
	if dig.Empty() {
		slog.Info("Digest window empty, skipping", "kind", string(t.kind))
		return nil
	}

	topic := routing.DigestTopicFor(t.kind)
	delivered := 0
	for _, n := range t.notifiers {
		if err := n.SendDigest(ctx, topic, dig); err != nil {
			slog.Error("Digest delivery failed", "kind", string(t.kind), "channel", n.Name(), "error", err)
			continue
		}
		delivered++
	}

	if delivered == 0 && len(t.notifiers) > 0 {
		return fmt.Errorf("digest delivery failed on all channels")
	}

	if err := t.repo.MarkDigested(t.kind, dig.SourceIDs()); err != nil {
		return fmt.Errorf("failed to mark records digested: %w", err)
	}

	slog.Info("Task completed",
		"type", "Digest",
		"kind", string(t.kind),
		"duration", t.GetDuration(),
		"records", dig.Total,
		"groups", len(dig.Groups),
		"channels", delivered)

	return nil
}
