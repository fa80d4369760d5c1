package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmtral/aipulse/app/classifier"
	"github.com/dmtral/aipulse/app/database"
	"github.com/dmtral/aipulse/app/model"
	"github.com/dmtral/aipulse/app/notifier"
	"github.com/dmtral/aipulse/app/routing"
)

// Stats summarizes one pipeline run.
type Stats struct {
	Fetched    int
	Duplicates int
	Classified int
	Relevant   int
	Notified   int
	Errors     int
}

// Processor runs the shared per-item flow: dedup check, classify,
// persist, route, notify. One processor serves every fetch task; the
// item's resolved kind selects the record store and routing rules.
type Processor struct {
	repo      database.RecordRepository
	gateway   *classifier.Gateway
	table     *routing.Table
	notifiers map[string]notifier.Notifier
}

func NewProcessor(repo database.RecordRepository, gateway *classifier.Gateway, table *routing.Table, notifiers []notifier.Notifier) *Processor {
	byName := make(map[string]notifier.Notifier, len(notifiers))
	for _, n := range notifiers {
		byName[n.Name()] = n
	}
	return &Processor{
		repo:      repo,
		gateway:   gateway,
		table:     table,
		notifiers: byName,
	}
}

// channels lists the configured notifier names, the candidate set for
// routing.
func (p *Processor) channels() []string {
	names := make([]string, 0, len(p.notifiers))
	for name := range p.notifiers {
		names = append(names, name)
	}
	return names
}

// Run processes a fetched batch sequentially. Classification is the
// slow step and runs only for items not yet stored; a persist failure
// skips the item without marking it seen, so it is retried on the next
// fetch.
func (p *Processor) Run(ctx context.Context, items []model.Item) Stats {
	stats := Stats{Fetched: len(items)}
	seen := make(map[string]bool, len(items))

	for i := range items {
		if ctx.Err() != nil {
			slog.Warn("Pipeline run interrupted", "processed", i, "total", len(items))
			break
		}

		item := &items[i]
		if seen[item.SourceID] {
			stats.Duplicates++
			continue
		}
		seen[item.SourceID] = true

		if !item.NotifyAs.Valid() {
			slog.Error("Item with invalid kind skipped", "source_id", item.SourceID, "kind", item.NotifyAs)
			stats.Errors++
			continue
		}

		// Fast path only; the primary key below is the real guard.
		exists, err := p.repo.Exists(item.NotifyAs, item.SourceID)
		if err != nil {
			slog.Error("Dedup check failed", "source_id", item.SourceID, "error", err)
			stats.Errors++
			continue
		}
		if exists {
			stats.Duplicates++
			continue
		}

		c := p.gateway.Classify(ctx, item)
		stats.Classified++

		rec := model.NewRecord(*item, c, time.Now())
		if err := p.repo.Insert(item.NotifyAs, &rec); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				stats.Duplicates++
				continue
			}
			slog.Error("Failed to persist record", "source_id", item.SourceID, "error", err)
			stats.Errors++
			continue
		}

		if !rec.Relevant {
			if rec.Failed {
				slog.Warn("Item stored as classification failure", "source_id", item.SourceID)
			}
			continue
		}
		stats.Relevant++

		if p.notify(ctx, &rec) {
			stats.Notified++
		}
	}

	slog.Info("Pipeline run complete",
		"fetched", stats.Fetched, "duplicates", stats.Duplicates,
		"classified", stats.Classified, "relevant", stats.Relevant,
		"notified", stats.Notified, "errors", stats.Errors)

	return stats
}

// notify sends one record to every routed destination. Each channel is
// recorded individually after its send succeeds, so a partial failure
// is not re-sent to channels that already got the item.
func (p *Processor) notify(ctx context.Context, rec *model.Record) bool {
	dests := p.table.Route(rec.Kind, rec.Vendor, rec.Importance, p.channels())
	if len(dests) == 0 {
		return false
	}

	delivered := false
	for _, dest := range dests {
		n, ok := p.notifiers[dest.Channel]
		if !ok {
			continue
		}

		if err := n.SendItem(ctx, dest.Topic, rec); err != nil {
			slog.Error("Notification failed",
				"source_id", rec.SourceID, "channel", dest.Channel, "topic", dest.Topic, "error", err)
			continue
		}

		delivered = true
		if err := p.repo.AppendNotifiedChannel(rec.Kind, rec.SourceID, dest.Channel); err != nil {
			slog.Error("Failed to record notified channel",
				"source_id", rec.SourceID, "channel", dest.Channel, "error", err)
		}
	}

	return delivered
}
