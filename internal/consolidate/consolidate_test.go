package consolidate

import (
	"reflect"
	"testing"

	"cardpipe/internal/records"
	"cardpipe/internal/transformer/builtin"
)

func card(id, exp, hash string) records.Record {
	return records.Record{
		builtin.ColCustomerID: id,
		builtin.ColExpiration: exp,
		builtin.ColCardHash:   hash,
	}
}

func hashes(rows []records.Record) []string {
	var out []string
	for _, r := range rows {
		h, _ := r.Str(builtin.ColCardHash)
		out = append(out, h)
	}
	return out
}

func TestLatestPicksMaxExpiration(t *testing.T) {
	in := []records.Record{
		card("C001", "2025-01", "old"),
		card("C001", "2027-06", "new"),
		card("C001", "2026-03", "mid"),
	}
	got := Latest(in)
	if want := []string{"new"}; !reflect.DeepEqual(hashes(got), want) {
		t.Fatalf("Latest() = %v, want %v", hashes(got), want)
	}
}

func TestLatestTieKeepsLast(t *testing.T) {
	in := []records.Record{
		card("C001", "2027-06", "first"),
		card("C001", "2027-06", "second"),
	}
	got := Latest(in)
	if want := []string{"second"}; !reflect.DeepEqual(hashes(got), want) {
		t.Fatalf("Latest() = %v, want %v", hashes(got), want)
	}
}

func TestLatestUnparseableNeverBeatsParseable(t *testing.T) {
	in := []records.Record{
		card("C001", "2025-01", "parseable"),
		card("C001", "junk", "unparseable"),
	}
	got := Latest(in)
	if want := []string{"parseable"}; !reflect.DeepEqual(hashes(got), want) {
		t.Fatalf("Latest() = %v, want %v", hashes(got), want)
	}

	// When nothing parses, last still wins.
	in = []records.Record{
		card("C002", "junk", "a"),
		card("C002", "more junk", "b"),
	}
	got = Latest(in)
	if want := []string{"b"}; !reflect.DeepEqual(hashes(got), want) {
		t.Fatalf("Latest() = %v, want %v", hashes(got), want)
	}
}

func TestLatestPreservesWinnerOrder(t *testing.T) {
	in := []records.Record{
		card("C002", "2026-01", "c2"),
		card("C001", "2025-01", "c1-old"),
		card("C003", "2027-01", "c3"),
		card("C001", "2028-01", "c1-new"),
	}
	got := Latest(in)
	// Winners come back in the input order of the winning occurrence.
	if want := []string{"c2", "c3", "c1-new"}; !reflect.DeepEqual(hashes(got), want) {
		t.Fatalf("Latest() = %v, want %v", hashes(got), want)
	}
}

func TestLatestDropsMissingKey(t *testing.T) {
	in := []records.Record{
		{builtin.ColExpiration: "2027-06", builtin.ColCardHash: "orphan"},
		card("C001", "2027-06", "kept"),
	}
	got := Latest(in)
	if want := []string{"kept"}; !reflect.DeepEqual(hashes(got), want) {
		t.Fatalf("Latest() = %v, want %v", hashes(got), want)
	}
}

func TestFilterExisting(t *testing.T) {
	in := []records.Record{
		card("C001", "2027-06", "a"),
		card("C002", "2027-06", "b"),
		card("C003", "2027-06", "c"),
	}
	existing := map[string]struct{}{"C001": {}, "C003": {}}

	got, dropped := FilterExisting(in, existing)
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	if want := []string{"a", "c"}; !reflect.DeepEqual(hashes(got), want) {
		t.Fatalf("FilterExisting() = %v, want %v", hashes(got), want)
	}
}
