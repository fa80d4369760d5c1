package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dmtral/aipulse/app/classifier"
	"github.com/dmtral/aipulse/app/database"
	"github.com/dmtral/aipulse/app/digest"
	"github.com/dmtral/aipulse/app/model"
	"github.com/dmtral/aipulse/app/notifier"
	"github.com/dmtral/aipulse/app/routing"
)

type fakeRepo struct {
	records   map[string]*model.Record
	insertErr error
	appended  map[string][]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		records:  make(map[string]*model.Record),
		appended: make(map[string][]string),
	}
}

func key(kind model.Kind, sourceID string) string {
	return string(kind) + "/" + sourceID
}

func (r *fakeRepo) Exists(kind model.Kind, sourceID string) (bool, error) {
	_, ok := r.records[key(kind, sourceID)]
	return ok, nil
}

func (r *fakeRepo) Insert(kind model.Kind, rec *model.Record) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	k := key(kind, rec.SourceID)
	if _, ok := r.records[k]; ok {
		return database.ErrDuplicate
	}
	clone := *rec
	r.records[k] = &clone
	return nil
}

func (r *fakeRepo) AppendNotifiedChannel(kind model.Kind, sourceID, channel string) error {
	k := key(kind, sourceID)
	r.appended[k] = append(r.appended[k], channel)
	return nil
}

func (r *fakeRepo) QuerySince(kind model.Kind, from, to time.Time) ([]model.Record, error) {
	return nil, nil
}

func (r *fakeRepo) GetUndigested(kind model.Kind, from, to time.Time) ([]model.Record, error) {
	return nil, nil
}

func (r *fakeRepo) MarkDigested(kind model.Kind, sourceIDs []string) error { return nil }

func (r *fakeRepo) DeleteOlderThan(kind model.Kind, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeRepo) GetRecordStats(kind model.Kind) (int, int, int, error) {
	return len(r.records), 0, 0, nil
}

type staticTransport struct {
	response string
	calls    int
}

func (s *staticTransport) Complete(ctx context.Context, systemPrompt, userMsg string) (string, error) {
	s.calls++
	return s.response, nil
}

type fakeNotifier struct {
	name string
	fail bool
	sent []string
}

func (n *fakeNotifier) Name() string { return n.name }

func (n *fakeNotifier) SendItem(ctx context.Context, topic string, rec *model.Record) error {
	if n.fail {
		return fmt.Errorf("send failed")
	}
	n.sent = append(n.sent, topic+"/"+rec.SourceID)
	return nil
}

func (n *fakeNotifier) SendDigest(ctx context.Context, topic string, dig *digest.Digest) error {
	return nil
}

func testTable() *routing.Table {
	return routing.NewTable([]string{"openai"}, []string{"xai"}, []string{"vercel"})
}

func testProcessor(repo database.RecordRepository, response string, notifiers ...notifier.Notifier) *Processor {
	transport := &staticTransport{response: response}
	gateway := classifier.NewGatewayWithPolicy(transport, 0, time.Millisecond, time.Second)
	return NewProcessor(repo, gateway, testTable(), notifiers)
}

func releaseItem(sourceID string) model.Item {
	return model.Item{
		SourceID: sourceID,
		NotifyAs: model.KindRelease,
		Vendor:   "openai",
		Title:    "Release",
		URL:      "https://example.com",
	}
}

const relevantHigh = `{"relevant": true, "importance": "high", "title_zh": "标题", "summary_zh": "摘要"}`

func TestRun_RelevantItemIsStoredAndNotified(t *testing.T) {
	repo := newFakeRepo()
	tg := &fakeNotifier{name: routing.ChannelTelegram}
	p := testProcessor(repo, relevantHigh, tg)

	stats := p.Run(context.Background(), []model.Item{releaseItem("openai:1")})

	if stats.Relevant != 1 || stats.Notified != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(tg.sent) != 1 || tg.sent[0] != routing.TopicReleaseHigh+"/openai:1" {
		t.Errorf("sent = %v", tg.sent)
	}
	if channels := repo.appended[key(model.KindRelease, "openai:1")]; len(channels) != 1 || channels[0] != routing.ChannelTelegram {
		t.Errorf("appended channels = %v", channels)
	}
}

func TestRun_DuplicateWithinBatchClassifiedOnce(t *testing.T) {
	repo := newFakeRepo()
	transport := &staticTransport{response: relevantHigh}
	gateway := classifier.NewGatewayWithPolicy(transport, 0, time.Millisecond, time.Second)
	p := NewProcessor(repo, gateway, testTable(), nil)

	stats := p.Run(context.Background(), []model.Item{releaseItem("openai:1"), releaseItem("openai:1")})

	if transport.calls != 1 {
		t.Errorf("classifier called %d times, want 1", transport.calls)
	}
	if stats.Duplicates != 1 || stats.Classified != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(repo.records) != 1 {
		t.Errorf("stored %d records", len(repo.records))
	}
}

func TestRun_AlreadyStoredItemSkipped(t *testing.T) {
	repo := newFakeRepo()
	repo.records[key(model.KindRelease, "openai:1")] = &model.Record{SourceID: "openai:1"}

	transport := &staticTransport{response: relevantHigh}
	gateway := classifier.NewGatewayWithPolicy(transport, 0, time.Millisecond, time.Second)
	p := NewProcessor(repo, gateway, testTable(), nil)

	stats := p.Run(context.Background(), []model.Item{releaseItem("openai:1")})

	if transport.calls != 0 {
		t.Errorf("stored item must not be re-classified, transport called %d times", transport.calls)
	}
	if stats.Duplicates != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRun_IrrelevantItemPersistedNotRouted(t *testing.T) {
	repo := newFakeRepo()
	tg := &fakeNotifier{name: routing.ChannelTelegram}
	p := testProcessor(repo, `{"relevant": false}`, tg)

	stats := p.Run(context.Background(), []model.Item{releaseItem("openai:1")})

	if stats.Relevant != 0 || stats.Notified != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(tg.sent) != 0 {
		t.Errorf("irrelevant item was sent: %v", tg.sent)
	}
	// The record still exists so the item is never re-processed.
	if _, ok := repo.records[key(model.KindRelease, "openai:1")]; !ok {
		t.Error("irrelevant item should still be persisted")
	}
}

func TestRun_PersistOnlyWhenTierRejects(t *testing.T) {
	repo := newFakeRepo()
	tg := &fakeNotifier{name: routing.ChannelTelegram}
	p := testProcessor(repo, `{"relevant": true, "importance": "medium"}`, tg)

	item := releaseItem("vercel:1")
	item.Vendor = "vercel"

	stats := p.Run(context.Background(), []model.Item{item})

	if stats.Relevant != 1 || stats.Notified != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(tg.sent) != 0 {
		t.Errorf("tier-rejected item was sent: %v", tg.sent)
	}
}

func TestRun_PartialChannelFailure(t *testing.T) {
	repo := newFakeRepo()
	tg := &fakeNotifier{name: routing.ChannelTelegram, fail: true}
	fs := &fakeNotifier{name: routing.ChannelFeishu}
	p := testProcessor(repo, relevantHigh, tg, fs)

	stats := p.Run(context.Background(), []model.Item{releaseItem("openai:1")})

	if stats.Notified != 1 {
		t.Errorf("stats = %+v", stats)
	}

	channels := repo.appended[key(model.KindRelease, "openai:1")]
	if len(channels) != 1 || channels[0] != routing.ChannelFeishu {
		t.Errorf("only the successful channel should be recorded, got %v", channels)
	}
}

func TestRun_InsertErrorLeavesItemForRetry(t *testing.T) {
	repo := newFakeRepo()
	repo.insertErr = fmt.Errorf("disk full")
	tg := &fakeNotifier{name: routing.ChannelTelegram}
	p := testProcessor(repo, relevantHigh, tg)

	stats := p.Run(context.Background(), []model.Item{releaseItem("openai:1")})

	if stats.Errors != 1 || stats.Notified != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(tg.sent) != 0 {
		t.Errorf("unpersisted item must not be notified: %v", tg.sent)
	}
}
