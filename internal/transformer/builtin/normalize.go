// Package builtin contains the reusable pipeline transformers: generic text
// normalization, entity-specific field cleaning, and rule validation.
package builtin

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"cardpipe/internal/records"
)

// Normalize canonicalizes every string cell: trims, folds accents and other
// combining marks to their ASCII base (dropping what has no base), and
// collapses internal whitespace runs to single spaces. Nil cells and
// non-string values pass through untouched. The operation is idempotent.
type Normalize struct{}

func (Normalize) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		for k, v := range r {
			if s, ok := v.(string); ok {
				if folded := FoldText(s); folded == "" {
					r[k] = nil
				} else {
					r[k] = folded
				}
			}
		}
	}
	return in
}

// foldChain decomposes, strips combining marks, and recomposes. Runes with
// no ASCII base survive decomposition and are removed afterwards.
var foldChain = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldText applies the normalization contract to a single string. It never
// fails; when the fold transform errors the original (trimmed, collapsed)
// string is returned instead.
func FoldText(s string) string {
	folded, _, err := transform.String(foldChain, s)
	if err != nil {
		return collapseSpace(s)
	}
	// Drop anything still outside ASCII (e.g. currency signs, box drawing).
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return collapseSpace(b.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
