package records

import "testing"

func TestStr(t *testing.T) {
	r := Record{"a": "x", "b": nil, "c": 3}

	if s, ok := r.Str("a"); !ok || s != "x" {
		t.Errorf("Str(a) = %q/%v, want x/true", s, ok)
	}
	if _, ok := r.Str("b"); ok {
		t.Errorf("Str(b) ok for a nil cell")
	}
	if _, ok := r.Str("c"); ok {
		t.Errorf("Str(c) ok for a non-string cell")
	}
	if _, ok := r.Str("missing"); ok {
		t.Errorf("Str(missing) ok for an absent key")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := Record{"a": "x"}
	cp := Clone(orig)
	cp["a"] = "y"
	cp["b"] = "new"

	if orig["a"] != "x" {
		t.Errorf("clone mutation leaked into the original")
	}
	if _, ok := orig["b"]; ok {
		t.Errorf("clone key addition leaked into the original")
	}
}
