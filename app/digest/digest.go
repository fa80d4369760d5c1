package digest

import (
	"sort"
	"time"

	"github.com/dmtral/aipulse/app/model"
	"github.com/dmtral/aipulse/app/routing"
)

// Digest is a grouped summary of one kind's records over a window.
// An empty window produces a well-formed digest with Empty() == true,
// never an error.
type Digest struct {
	Kind   model.Kind
	From   time.Time
	To     time.Time
	Groups []Group
	Total  int
}

// Group is one vendor's (or blog source's) slice of the digest,
// ordered by importance then recency.
type Group struct {
	Name    string
	Records []model.Record
}

func (d *Digest) Empty() bool {
	return d.Total == 0
}

// SourceIDs lists every included record for digest bookkeeping.
func (d *Digest) SourceIDs() []string {
	ids := make([]string, 0, d.Total)
	for _, g := range d.Groups {
		for _, r := range g.Records {
			ids = append(ids, r.SourceID)
		}
	}
	return ids
}

// Build groups records by vendor. Release groups are ordered by vendor
// tier then alphabetically; blog groups alphabetically (blog sources
// carry no tier). Input records are expected to be relevant ones.
func Build(kind model.Kind, records []model.Record, from, to time.Time, table *routing.Table) *Digest {
	byVendor := make(map[string][]model.Record)
	for _, r := range records {
		byVendor[r.Vendor] = append(byVendor[r.Vendor], r)
	}

	groups := make([]Group, 0, len(byVendor))
	for vendor, recs := range byVendor {
		sort.SliceStable(recs, func(i, j int) bool {
			if recs[i].Importance.Rank() != recs[j].Importance.Rank() {
				return recs[i].Importance.Rank() < recs[j].Importance.Rank()
			}
			return recs[i].FetchedAt.After(recs[j].FetchedAt)
		})
		groups = append(groups, Group{Name: vendor, Records: recs})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if kind == model.KindRelease && table != nil {
			ri := routing.TierRank(table.TierFor(groups[i].Name))
			rj := routing.TierRank(table.TierFor(groups[j].Name))
			if ri != rj {
				return ri < rj
			}
		}
		return groups[i].Name < groups[j].Name
	})

	return &Digest{
		Kind:   kind,
		From:   from,
		To:     to,
		Groups: groups,
		Total:  len(records),
	}
}
