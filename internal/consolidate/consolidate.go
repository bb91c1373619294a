// Package consolidate merges validated card batches across dated files into
// at most one card per customer. It collapses duplicates by customer id,
// choosing the row with the latest parseable expiration, and then filters
// the survivors against the set of customers that actually exist in the
// destination store.
package consolidate

import (
	"sort"
	"time"

	"cardpipe/internal/records"
	"cardpipe/internal/transformer/builtin"
)

// expLayout parses "YYYY-MM"; the day is pinned to the 1st.
const expLayout = "2006-01"

// Latest collapses the concatenated batches to one row per customer id.
// The row with the maximum parseable expiration wins; rows whose expiration
// does not parse never beat a parseable one, and among equal candidates the
// later input row wins (stable last-wins, matching batch discovery order).
// Output rows come back in the input order of the winning occurrences.
func Latest(in []records.Record) []records.Record {
	type slot struct {
		rec    records.Record
		index  int
		date   time.Time
		parsed bool
	}

	winners := make(map[string]slot, len(in))
	for i, r := range in {
		id, ok := r.Str(builtin.ColCustomerID)
		if !ok || id == "" {
			// No key, no consolidation domain; drop. The validator already
			// rejected these upstream, this is a backstop.
			continue
		}
		cur := slot{rec: r, index: i}
		if s, ok := r.Str(builtin.ColExpiration); ok {
			if d, err := time.Parse(expLayout, s); err == nil {
				cur.date, cur.parsed = d, true
			}
		}

		prev, exists := winners[id]
		if !exists || beats(cur.date, cur.parsed, prev.date, prev.parsed) {
			winners[id] = cur
		}
	}

	indexes := make([]int, 0, len(winners))
	byIndex := make(map[int]records.Record, len(winners))
	for _, s := range winners {
		indexes = append(indexes, s.index)
		byIndex[s.index] = s.rec
	}
	sort.Ints(indexes)

	out := make([]records.Record, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, byIndex[idx])
	}
	return out
}

// beats reports whether the current candidate replaces the previous winner.
// A later date wins; equal dates and the unparseable-vs-unparseable case
// fall back to last-wins.
func beats(curDate time.Time, curParsed bool, prevDate time.Time, prevParsed bool) bool {
	switch {
	case curParsed && !prevParsed:
		return true
	case !curParsed && prevParsed:
		return false
	case curParsed && prevParsed:
		return !curDate.Before(prevDate)
	default:
		return true
	}
}

// FilterExisting drops rows whose customer id is not present in existing and
// returns the survivors plus the drop count. This enforces referential
// integrity before the write instead of relying on the store's FK to reject
// it mid-replace.
func FilterExisting(in []records.Record, existing map[string]struct{}) ([]records.Record, int) {
	out := make([]records.Record, 0, len(in))
	dropped := 0
	for _, r := range in {
		id, _ := r.Str(builtin.ColCustomerID)
		if _, ok := existing[id]; ok {
			out = append(out, r)
		} else {
			dropped++
		}
	}
	return out, dropped
}
