package builtin

import (
	"testing"

	"cardpipe/internal/records"
)

func TestCleanCardMaskAndHash(t *testing.T) {
	in := []records.Record{{
		ColCustomerID: "C001",
		ColCardNumber: "4111 1111 1111 1111",
		ColCVV:        "123",
	}}
	got := CleanCard{Salt: "s"}.Apply(in)[0]

	if got[ColCardMasked] != "XXXX-XXXX-XXXX-1111" {
		t.Errorf("masked = %v, want XXXX-XXXX-XXXX-1111", got[ColCardMasked])
	}
	hash, ok := got[ColCardHash].(string)
	if !ok || len(hash) != 64 {
		t.Errorf("hash = %v, want 64 hex characters", got[ColCardHash])
	}
	if got[ColCardDigits] != 16 {
		t.Errorf("digit count = %v, want 16", got[ColCardDigits])
	}
}

func TestCleanCardRemovesSecrets(t *testing.T) {
	// The raw number and CVV must be gone even when cleaning produced nothing.
	in := []records.Record{
		{ColCardNumber: "4111111111111111", ColCVV: "123"},
		{ColCardNumber: "garbage", ColCVV: "999"},
		{ColCVV: "000"},
	}
	for i, r := range (CleanCard{Salt: "s"}).Apply(in) {
		if _, ok := r[ColCardNumber]; ok {
			t.Errorf("row %d: raw card number survived", i)
		}
		if _, ok := r[ColCVV]; ok {
			t.Errorf("row %d: cvv survived", i)
		}
	}
}

func TestCleanCardHashDeterminism(t *testing.T) {
	apply := func(salt, number string) any {
		rs := CleanCard{Salt: salt}.Apply([]records.Record{{ColCardNumber: number}})
		return rs[0][ColCardHash]
	}

	a := apply("salt1", "4111-1111-1111-1111")
	b := apply("salt1", "4111 1111 1111 1111") // same digits, different separators
	if a != b {
		t.Errorf("same digits and salt produced different hashes: %v vs %v", a, b)
	}
	if c := apply("salt2", "4111111111111111"); c == a {
		t.Errorf("different salt produced the same hash")
	}
}

func TestCleanCardShortNumber(t *testing.T) {
	got := CleanCard{Salt: "s"}.Apply([]records.Record{{ColCardNumber: "12"}})[0]
	if got[ColCardMasked] != nil {
		t.Errorf("masked = %v, want nil for fewer than 4 digits", got[ColCardMasked])
	}
	if got[ColCardHash] == nil {
		t.Errorf("hash = nil, want digest of the available digits")
	}
	if got[ColCardDigits] != 2 {
		t.Errorf("digit count = %v, want 2", got[ColCardDigits])
	}
}
