package builtin

import (
	"testing"

	"cardpipe/internal/records"
)

func cardRow(id, exp string, ndigits int) records.Record {
	return records.Record{
		ColCustomerID: id,
		ColExpiration: exp,
		ColCardMasked: "XXXX-XXXX-XXXX-1111",
		ColCardHash:   "abc",
		ColCardDigits: ndigits,
	}
}

func TestValidateCardsValidRow(t *testing.T) {
	var rejected []records.Record
	v := ValidateCards{Reject: func(r records.Record) { rejected = append(rejected, r) }}

	out := v.Apply([]records.Record{cardRow("C123", "2027-06", 16)})
	if len(out) != 1 || len(rejected) != 0 {
		t.Fatalf("valid=%d rejected=%d, want 1/0", len(out), len(rejected))
	}
	r := out[0]
	for _, f := range []string{"cod_cliente", "fecha_exp", "tarjeta"} {
		if r[f+"_ok"] != "Y" || r[f+"_ko"] != "N" {
			t.Errorf("%s flags = %v/%v, want Y/N", f, r[f+"_ok"], r[f+"_ko"])
		}
	}
	if _, ok := r[ColCardDigits]; ok {
		t.Errorf("internal digit-count column survived validation")
	}
}

func TestValidateCardsRejectDetail(t *testing.T) {
	var rejected []records.Record
	v := ValidateCards{Reject: func(r records.Record) { rejected = append(rejected, r) }}

	tests := []struct {
		name string
		row  records.Record
		want string
	}{
		{"bad id", cardRow("X123", "2027-06", 16), "cod_cliente_invalido"},
		{"bad month", cardRow("C123", "2027-13", 16), "fecha_exp_invalida"},
		{"year too old", cardRow("C123", "1899-12", 16), "fecha_exp_invalida"},
		{"short card", cardRow("C123", "2027-06", 11), "tarjeta_invalida"},
		{"everything wrong", cardRow("C12", "junk", 0),
			"cod_cliente_invalido|fecha_exp_invalida|tarjeta_invalida"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rejected = rejected[:0]
			if out := v.Apply([]records.Record{tt.row}); len(out) != 0 {
				t.Fatalf("row passed validation: %v", out)
			}
			if len(rejected) != 1 {
				t.Fatalf("rejected %d rows, want 1", len(rejected))
			}
			r := rejected[0]
			if r[ColErrorDetail] != tt.want {
				t.Errorf("error_detalle = %v, want %v", r[ColErrorDetail], tt.want)
			}
			if r[ColOrigin] != OriginCards || r[ColError] != ErrCardValidation {
				t.Errorf("annotation = %v/%v, want %s/%s",
					r[ColOrigin], r[ColError], OriginCards, ErrCardValidation)
			}
			if _, ok := r[ColCardDigits]; ok {
				t.Errorf("internal digit-count column leaked into the reject")
			}
		})
	}
}

func TestValidExpiration(t *testing.T) {
	tests := []struct {
		exp  string
		want bool
	}{
		{"2027-06", true},
		{"1900-01", true},
		{"2100-12", true},
		{"2027-00", false},
		{"2027-13", false},
		{"1899-12", false},
		{"2101-01", false},
		{"2027-6", false},
		{"27-06", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := validExpiration(tt.exp); got != tt.want {
			t.Errorf("validExpiration(%q) = %v, want %v", tt.exp, got, tt.want)
		}
	}
}
