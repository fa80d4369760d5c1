package tasks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dmtral/aipulse/app/digest"
	"github.com/dmtral/aipulse/app/model"
	"github.com/dmtral/aipulse/app/notifier"
	"github.com/dmtral/aipulse/app/routing"
)

type fakeRecordRepo struct {
	undigested []model.Record
	digested   map[string][]string
	deleted    map[model.Kind]int64
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{
		digested: make(map[string][]string),
		deleted:  make(map[model.Kind]int64),
	}
}

func (r *fakeRecordRepo) Exists(kind model.Kind, sourceID string) (bool, error) { return false, nil }
func (r *fakeRecordRepo) Insert(kind model.Kind, rec *model.Record) error       { return nil }
func (r *fakeRecordRepo) AppendNotifiedChannel(kind model.Kind, sourceID, channel string) error {
	return nil
}

func (r *fakeRecordRepo) QuerySince(kind model.Kind, from, to time.Time) ([]model.Record, error) {
	return nil, nil
}

func (r *fakeRecordRepo) GetUndigested(kind model.Kind, from, to time.Time) ([]model.Record, error) {
	return r.undigested, nil
}

func (r *fakeRecordRepo) MarkDigested(kind model.Kind, sourceIDs []string) error {
	r.digested[string(kind)] = append(r.digested[string(kind)], sourceIDs...)
	return nil
}

func (r *fakeRecordRepo) DeleteOlderThan(kind model.Kind, cutoff time.Time) (int64, error) {
	r.deleted[kind]++
	return 3, nil
}

func (r *fakeRecordRepo) GetRecordStats(kind model.Kind) (int, int, int, error) {
	return 0, 0, 0, nil
}

type fakeDigestNotifier struct {
	name   string
	fail   bool
	topics []string
}

func (n *fakeDigestNotifier) Name() string { return n.name }

func (n *fakeDigestNotifier) SendItem(ctx context.Context, topic string, rec *model.Record) error {
	return nil
}

func (n *fakeDigestNotifier) SendDigest(ctx context.Context, topic string, dig *digest.Digest) error {
	if n.fail {
		return fmt.Errorf("webhook down")
	}
	n.topics = append(n.topics, topic)
	return nil
}

func digestTable() *routing.Table {
	return routing.NewTable([]string{"openai"}, nil, nil)
}

func toNotifiers(ns ...notifier.Notifier) []notifier.Notifier { return ns }

func TestDigestTask_EmptyWindowSkipsDelivery(t *testing.T) {
	repo := newFakeRecordRepo()
	n := &fakeDigestNotifier{name: "telegram"}

	task := NewDigestTask(model.KindRelease, repo, digestTable(), toNotifiers(n))
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("empty digest should not error: %v", err)
	}

	if len(n.topics) != 0 {
		t.Errorf("nothing should be sent for an empty window, got %v", n.topics)
	}
	if len(repo.digested["release"]) != 0 {
		t.Errorf("nothing should be marked digested, got %v", repo.digested)
	}
}

func TestDigestTask_DeliversAndMarksDigested(t *testing.T) {
	repo := newFakeRecordRepo()
	repo.undigested = []model.Record{
		{SourceID: "openai:1", Vendor: "openai", Relevant: true, Importance: model.ImportanceHigh},
		{SourceID: "openai:2", Vendor: "openai", Relevant: true, Importance: model.ImportanceLow},
	}
	n := &fakeDigestNotifier{name: "telegram"}

	task := NewDigestTask(model.KindRelease, repo, digestTable(), toNotifiers(n))
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("digest task failed: %v", err)
	}

	if len(n.topics) != 1 || n.topics[0] != routing.TopicReleaseDigest {
		t.Errorf("sent topics = %v", n.topics)
	}
	if got := repo.digested["release"]; len(got) != 2 {
		t.Errorf("digested ids = %v", got)
	}
}

func TestDigestTask_AllChannelsFailingIsRetryable(t *testing.T) {
	repo := newFakeRecordRepo()
	repo.undigested = []model.Record{
		{SourceID: "openai:1", Vendor: "openai", Relevant: true, Importance: model.ImportanceHigh},
	}
	n := &fakeDigestNotifier{name: "telegram", fail: true}

	task := NewDigestTask(model.KindRelease, repo, digestTable(), toNotifiers(n))
	if err := task.Execute(context.Background()); err == nil {
		t.Error("expected error when every channel fails")
	}

	if len(repo.digested["release"]) != 0 {
		t.Errorf("failed delivery must not mark records digested, got %v", repo.digested)
	}
}

func TestCleanupTask_SweepsBothStores(t *testing.T) {
	repo := newFakeRecordRepo()

	task := NewCleanupTask(repo, 30)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	if repo.deleted[model.KindRelease] != 1 || repo.deleted[model.KindBlog] != 1 {
		t.Errorf("deletes per kind = %v", repo.deleted)
	}
}
