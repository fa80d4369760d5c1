package routing

import (
	"sort"

	"github.com/dmtral/aipulse/app/model"
)

// Tier controls notification verbosity for a vendor. Tiers are
// upward-closed over importance: if a tier admits some level, it admits
// every higher level too.
type Tier string

const (
	TierT0 Tier = "t0" // all levels pushed
	TierT1 Tier = "t1" // high and medium pushed
	TierT2 Tier = "t2" // high only
)

// Channel identifiers as recorded in notified_channels.
const (
	ChannelTelegram = "telegram"
	ChannelFeishu   = "feishu"
)

// Topic keys, one per (kind, importance-or-digest). Blog has no low
// topic: low-importance blog articles are classified and stored but
// only surface in the daily digest.
const (
	TopicReleaseHigh   = "release_high"
	TopicReleaseMedium = "release_medium"
	TopicReleaseLow    = "release_low"
	TopicReleaseDigest = "release_digest"
	TopicBlogHigh      = "blog_high"
	TopicBlogMedium    = "blog_medium"
	TopicBlogDigest    = "blog_digest"
)

// Destination is one (channel, topic) pair an admitted item is sent to.
type Destination struct {
	Channel string
	Topic   string
}

// minRank is the least important level each tier still admits.
var minRank = map[Tier]int{
	TierT0: model.ImportanceLow.Rank(),
	TierT1: model.ImportanceMedium.Rank(),
	TierT2: model.ImportanceHigh.Rank(),
}

// Admits reports whether a tier pushes items of the given importance.
func Admits(tier Tier, importance model.Importance) bool {
	threshold, ok := minRank[tier]
	if !ok {
		threshold = minRank[TierT2]
	}
	return importance.Valid() && importance.Rank() <= threshold
}

// Table resolves vendors to tiers from the static configuration lists.
// An unknown vendor resolves to the most restrictive tier: an
// unrecognized source is the higher-risk case for noise.
type Table struct {
	tiers map[string]Tier
}

func NewTable(t0, t1, t2 []string) *Table {
	tiers := make(map[string]Tier, len(t0)+len(t1)+len(t2))
	for _, v := range t0 {
		tiers[v] = TierT0
	}
	for _, v := range t1 {
		tiers[v] = TierT1
	}
	for _, v := range t2 {
		tiers[v] = TierT2
	}
	return &Table{tiers: tiers}
}

func (t *Table) TierFor(vendor string) Tier {
	if tier, ok := t.tiers[vendor]; ok {
		return tier
	}
	return TierT2
}

// TierRank orders tiers for digest grouping: t0 before t1 before t2.
func TierRank(tier Tier) int {
	switch tier {
	case TierT0:
		return 0
	case TierT1:
		return 1
	default:
		return 2
	}
}

// TopicFor returns the individual-notification topic key for a kind
// and importance. ok is false when no topic exists (blog low).
func TopicFor(kind model.Kind, importance model.Importance) (string, bool) {
	switch kind {
	case model.KindRelease:
		switch importance {
		case model.ImportanceHigh:
			return TopicReleaseHigh, true
		case model.ImportanceMedium:
			return TopicReleaseMedium, true
		case model.ImportanceLow:
			return TopicReleaseLow, true
		}
	case model.KindBlog:
		switch importance {
		case model.ImportanceHigh:
			return TopicBlogHigh, true
		case model.ImportanceMedium:
			return TopicBlogMedium, true
		}
	}
	return "", false
}

// DigestTopicFor returns the digest topic key for a kind.
func DigestTopicFor(kind model.Kind) string {
	if kind == model.KindBlog {
		return TopicBlogDigest
	}
	return TopicReleaseDigest
}

// Route computes the destination set for an item. Pure: the same
// inputs always produce the same destinations. Blog items are admitted
// at a fixed medium threshold regardless of vendor; release items are
// admitted per the vendor's tier. The empty set means "persist only".
func (t *Table) Route(kind model.Kind, vendor string, importance model.Importance, channels []string) []Destination {
	var admitted bool
	switch kind {
	case model.KindBlog:
		admitted = Admits(TierT1, importance)
	default:
		admitted = Admits(t.TierFor(vendor), importance)
	}
	if !admitted {
		return nil
	}

	topic, ok := TopicFor(kind, importance)
	if !ok {
		return nil
	}

	dests := make([]Destination, 0, len(channels))
	for _, ch := range channels {
		dests = append(dests, Destination{Channel: ch, Topic: topic})
	}
	sort.Slice(dests, func(i, j int) bool { return dests[i].Channel < dests[j].Channel })

	return dests
}
