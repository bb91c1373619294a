// Package records defines the loosely-typed record model shared by all
// pipeline stages. A Record is one CSV row keyed by canonical column name;
// a missing column is simply an absent key, and an empty cell is stored as
// nil so that "not present" and "present but blank" collapse into the same
// value before validation.
package records

// Record is a single row. Values are strings for text cells, nil for empty
// cells, and occasionally ints for derived fields (e.g. digit counts).
type Record map[string]any

// Str returns the string value under key. The second return is false when
// the key is absent, nil, or holds a non-string value.
func (r Record) Str(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Clone returns a shallow copy of r. Stages that annotate rejected rows use
// it so the valid stream never aliases reject-side mutations.
func Clone(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
