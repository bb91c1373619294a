package builtin

import (
	"reflect"
	"testing"

	"cardpipe/internal/records"
)

func TestFoldText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"accents", "José Ñuñez", "Jose Nunez"},
		{"whitespace collapse", "  ana \t maria  ", "ana maria"},
		{"cedilla and grave", "çà", "ca"},
		{"plain ascii unchanged", "C001", "C001"},
		{"only non-ascii", "€", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FoldText(tt.in); got != tt.want {
				t.Fatalf("FoldText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFoldTextIdempotent(t *testing.T) {
	inputs := []string{"José Ñuñez", "  a  b  ", "C001", "müller-lópez"}
	for _, in := range inputs {
		once := FoldText(in)
		if twice := FoldText(once); twice != once {
			t.Fatalf("FoldText not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeApply(t *testing.T) {
	in := []records.Record{
		{"nombre": "José", "telefono": nil, "edad": 30, "vacio": "€"},
	}
	got := Normalize{}.Apply(in)
	want := []records.Record{
		{"nombre": "Jose", "telefono": nil, "edad": 30, "vacio": nil},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Apply() = %v, want %v", got, want)
	}
}
