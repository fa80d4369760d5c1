package routing

import (
	"reflect"
	"testing"

	"github.com/dmtral/aipulse/app/model"
)

func newTestTable() *Table {
	return NewTable(
		[]string{"openai", "anthropic", "google"},
		[]string{"xai", "meta", "deepseek"},
		[]string{"vercel"},
	)
}

func TestAdmits_UpwardClosed(t *testing.T) {
	// If a tier admits some level, it must admit every higher level.
	levels := []model.Importance{model.ImportanceLow, model.ImportanceMedium, model.ImportanceHigh}

	for _, tier := range []Tier{TierT0, TierT1, TierT2} {
		admittedBelow := false
		for _, imp := range levels {
			admitted := Admits(tier, imp)
			if admittedBelow && !admitted {
				t.Errorf("tier %s admits a lower level but rejects %s", tier, imp)
			}
			if admitted {
				admittedBelow = true
			}
		}
	}
}

func TestAdmits_PerTier(t *testing.T) {
	tests := []struct {
		tier       Tier
		importance model.Importance
		want       bool
	}{
		{TierT0, model.ImportanceLow, true},
		{TierT0, model.ImportanceHigh, true},
		{TierT1, model.ImportanceLow, false},
		{TierT1, model.ImportanceMedium, true},
		{TierT2, model.ImportanceMedium, false},
		{TierT2, model.ImportanceHigh, true},
	}

	for _, tt := range tests {
		if got := Admits(tt.tier, tt.importance); got != tt.want {
			t.Errorf("Admits(%s, %s) = %v, want %v", tt.tier, tt.importance, got, tt.want)
		}
	}
}

func TestAdmits_InvalidImportance(t *testing.T) {
	if Admits(TierT0, model.Importance("urgent")) {
		t.Error("unknown importance level should never be admitted")
	}
}

func TestTierFor_UnknownVendorIsMostRestrictive(t *testing.T) {
	table := newTestTable()

	if tier := table.TierFor("mystery-vendor"); tier != TierT2 {
		t.Errorf("unknown vendor resolved to %s, want %s", tier, TierT2)
	}
	if tier := table.TierFor("openai"); tier != TierT0 {
		t.Errorf("openai resolved to %s, want %s", tier, TierT0)
	}
}

func TestTopicFor_BlogHasNoLowTopic(t *testing.T) {
	if _, ok := TopicFor(model.KindBlog, model.ImportanceLow); ok {
		t.Error("blog low should have no individual topic")
	}
	if topic, ok := TopicFor(model.KindBlog, model.ImportanceMedium); !ok || topic != TopicBlogMedium {
		t.Errorf("blog medium topic = %q, %v", topic, ok)
	}
	if topic, ok := TopicFor(model.KindRelease, model.ImportanceLow); !ok || topic != TopicReleaseLow {
		t.Errorf("release low topic = %q, %v", topic, ok)
	}
}

func TestRoute_TierZeroLowGoesToLowTopic(t *testing.T) {
	table := newTestTable()

	dests := table.Route(model.KindRelease, "openai", model.ImportanceLow, []string{ChannelTelegram})

	want := []Destination{{Channel: ChannelTelegram, Topic: TopicReleaseLow}}
	if !reflect.DeepEqual(dests, want) {
		t.Errorf("Route = %v, want %v", dests, want)
	}
}

func TestRoute_TierTwoMediumIsPersistOnly(t *testing.T) {
	table := newTestTable()

	dests := table.Route(model.KindRelease, "vercel", model.ImportanceMedium, []string{ChannelTelegram, ChannelFeishu})
	if len(dests) != 0 {
		t.Errorf("vercel medium should not be pushed, got %v", dests)
	}
}

func TestRoute_BlogIgnoresVendorTier(t *testing.T) {
	table := newTestTable()

	// Blog sources are not in the tier lists; medium must still push.
	dests := table.Route(model.KindBlog, "simon willison", model.ImportanceMedium, []string{ChannelTelegram})
	if len(dests) != 1 || dests[0].Topic != TopicBlogMedium {
		t.Errorf("blog medium route = %v", dests)
	}

	dests = table.Route(model.KindBlog, "simon willison", model.ImportanceLow, []string{ChannelTelegram})
	if len(dests) != 0 {
		t.Errorf("blog low should be digest-only, got %v", dests)
	}
}

func TestRoute_Deterministic(t *testing.T) {
	table := newTestTable()
	channels := []string{ChannelFeishu, ChannelTelegram}

	first := table.Route(model.KindRelease, "anthropic", model.ImportanceHigh, channels)
	for i := 0; i < 10; i++ {
		got := table.Route(model.KindRelease, "anthropic", model.ImportanceHigh, channels)
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("route not deterministic: %v vs %v", got, first)
		}
	}

	if len(first) != 2 || first[0].Channel != ChannelFeishu {
		t.Errorf("destinations should be sorted by channel, got %v", first)
	}
}

func TestDigestTopicFor(t *testing.T) {
	if got := DigestTopicFor(model.KindRelease); got != TopicReleaseDigest {
		t.Errorf("release digest topic = %q", got)
	}
	if got := DigestTopicFor(model.KindBlog); got != TopicBlogDigest {
		t.Errorf("blog digest topic = %q", got)
	}
}
