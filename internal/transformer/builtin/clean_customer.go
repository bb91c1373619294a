package builtin

import (
	"strings"

	"cardpipe/internal/records"
)

// Customer column names as they appear in the extracts and the destination
// store.
const (
	ColCustomerID = "cod_cliente"
	ColFirstName  = "nombre"
	ColLastName1  = "apellido1"
	ColLastName2  = "apellido2"
	ColNationalID = "dni"
	ColEmail      = "correo"
	ColPhone      = "telefono"
)

// CleanCustomer applies the customer field rules: hyphen-aware name
// capitalization, national id scrubbing, phone digit extraction, and email
// lowercasing. Columns absent from the batch are left absent; masking of the
// national id happens after validation, not here.
type CleanCustomer struct{}

func (CleanCustomer) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		for _, c := range []string{ColFirstName, ColLastName1, ColLastName2} {
			if s, ok := r.Str(c); ok {
				r[c] = titleName(s)
			}
		}
		if s, ok := r.Str(ColNationalID); ok {
			r[ColNationalID] = strToNil(cleanNationalID(s))
		}
		if s, ok := r.Str(ColEmail); ok {
			r[ColEmail] = strings.ToLower(s)
		}
		if s, ok := r.Str(ColPhone); ok {
			r[ColPhone] = strToNil(cleanPhone(s))
		}
	}
	return in
}

// titleName capitalizes each hyphen segment independently, so "ana-maria"
// becomes "Ana-Maria".
func titleName(s string) string {
	parts := strings.Split(s, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, "-")
}

// cleanNationalID strips whitespace, hyphens, and periods and uppercases the
// remainder. Returns "" when nothing is left.
func cleanNationalID(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '\t', '-', '.':
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// cleanPhone keeps digits only; a "+34" prefix survives as leading digits.
func cleanPhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// maskNationalID replaces all but the last 3 characters with '*'. Values
// shorter than 3 characters collapse to a fixed "***" so the mask length
// never reveals anything about them.
func maskNationalID(s string) string {
	if len(s) >= 3 {
		return strings.Repeat("*", len(s)-3) + s[len(s)-3:]
	}
	return "***"
}

// strToNil converts the empty string to nil so blank results stay null.
func strToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
