package builtin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"cardpipe/internal/records"
)

// Card column names.
const (
	ColExpiration = "fecha_exp"
	ColCardNumber = "numero_tarjeta"
	ColCVV        = "cvv"
	ColCardMasked = "numero_tarjeta_masked"
	ColCardHash   = "numero_tarjeta_hash"

	// ColCardDigits carries the digit count of the cleaned card number so
	// the validator can check length without the digits themselves
	// surviving past this stage.
	ColCardDigits = "tarjeta_digitos"
)

// CleanCard scrubs the card number, derives the masked form and the salted
// digest, and then removes the raw number and the CVV from the record
// unconditionally. Nothing downstream of this transformer ever sees either
// value, whether or not cleaning succeeded.
type CleanCard struct {
	// Salt keys the card digest. Same salt and digits always produce the
	// same digest; a different salt produces a different one.
	Salt string
}

func (c CleanCard) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		raw, _ := r.Str(ColCardNumber)
		digits := normalizeCard(raw)

		r[ColCardMasked] = strToNil(maskCard(digits))
		r[ColCardHash] = strToNil(c.hashCard(digits))
		r[ColCardDigits] = len(digits)

		delete(r, ColCardNumber)
		delete(r, ColCVV)
	}
	return in
}

// normalizeCard strips every non-digit character.
func normalizeCard(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b = append(b, s[i])
		}
	}
	return string(b)
}

// maskCard emits the fixed masked template ending in the last 4 digits, or
// "" when fewer than 4 digits are available.
func maskCard(digits string) string {
	if len(digits) < 4 {
		return ""
	}
	return "XXXX-XXXX-XXXX-" + digits[len(digits)-4:]
}

// hashCard computes the HMAC-SHA256 digest of the digit string under the
// configured salt, hex-encoded. Returns "" when there are no digits.
func (c CleanCard) hashCard(digits string) string {
	if digits == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(c.Salt))
	mac.Write([]byte(digits))
	return hex.EncodeToString(mac.Sum(nil))
}
