// Package rejects routes validation-rejected rows to per-origin outputs.
// Rejected rows from both entities arrive merged; the router canonicalizes
// their columns, classifies each row by origin, and projects every origin
// onto its own fixed column order so neither output is polluted by the
// other's schema.
package rejects

import (
	"strings"

	"cardpipe/internal/records"
	"cardpipe/internal/transformer/builtin"
)

// Origin tags the source entity of a rejected row.
type Origin int

const (
	OriginUnknown Origin = iota
	OriginCustomer
	OriginCard
)

// Fixed output column orders: identifiers first, then domain fields, then
// validity flags, then the joined error reason last.
var (
	customerColumns = []string{
		builtin.ColCustomerID,
		builtin.ColFirstName, builtin.ColLastName1, builtin.ColLastName2,
		builtin.ColNationalID, builtin.ColEmail, builtin.ColPhone,
		"dni_ok", "dni_ko", "telefono_ok", "telefono_ko", "correo_ok", "correo_ko",
		builtin.ColOrigin, builtin.ColError, builtin.ColErrorDetail,
	}
	cardColumns = []string{
		builtin.ColCustomerID,
		builtin.ColExpiration, builtin.ColCardMasked, builtin.ColCardHash,
		"cod_cliente_ok", "cod_cliente_ko", "fecha_exp_ok", "fecha_exp_ko",
		"tarjeta_ok", "tarjeta_ko",
		builtin.ColOrigin, builtin.ColError, builtin.ColErrorDetail,
	}

	// Columns that only one origin can carry; used by the fallback rules.
	cardOnly     = []string{builtin.ColCardMasked, builtin.ColCardHash, builtin.ColExpiration, "tarjeta_ok"}
	customerOnly = []string{builtin.ColNationalID, builtin.ColEmail, builtin.ColPhone, builtin.ColFirstName, builtin.ColLastName1}
)

// NormalizeColumns canonicalizes a rejected row in place: keys are trimmed
// and stripped of a stray BOM, the legacy "cod cliente" header alias is
// folded, and blank string values become nil.
func NormalizeColumns(r records.Record) records.Record {
	out := make(records.Record, len(r))
	for k, v := range r {
		key := strings.TrimPrefix(strings.TrimSpace(k), "\uFEFF")
		if key == "cod cliente" {
			key = builtin.ColCustomerID
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			v = nil
		}
		out[key] = v
	}
	return out
}

// Classify determines the origin of a single row using ordered fallback
// rules:
//
//  1. an origin column whose value mentions clientes/tarjetas
//  2. a non-nil value in an origin-specific column
//  3. the mere presence of an origin-specific column
//
// Rows matching none of the rules are Unknown.
func Classify(r records.Record) Origin {
	if s, ok := r.Str(builtin.ColOrigin); ok {
		low := strings.ToLower(s)
		switch {
		case strings.Contains(low, "clientes"):
			return OriginCustomer
		case strings.Contains(low, "tarjetas"):
			return OriginCard
		}
	}
	for _, c := range cardOnly {
		if v, ok := r[c]; ok && v != nil {
			return OriginCard
		}
	}
	for _, c := range customerOnly {
		if v, ok := r[c]; ok && v != nil {
			return OriginCustomer
		}
	}
	for _, c := range cardOnly {
		if _, ok := r[c]; ok {
			return OriginCard
		}
	}
	for _, c := range customerOnly {
		if _, ok := r[c]; ok {
			return OriginCustomer
		}
	}
	return OriginUnknown
}

// Split normalizes and classifies every rejected row. Unknown rows fall
// into the customer bucket, whose identifier-first schema tolerates sparse
// rows; rejects are never dropped silently.
func Split(in []records.Record) (customers, cards []records.Record) {
	for _, r := range in {
		n := NormalizeColumns(r)
		if Classify(n) == OriginCard {
			cards = append(cards, n)
		} else {
			customers = append(customers, n)
		}
	}
	return customers, cards
}

// Project returns the output header for a group: the origin's fixed column
// order restricted to columns that are non-nil in at least one row. Columns
// that are entirely nil are dropped.
func Project(origin Origin, rows []records.Record) []string {
	order := customerColumns
	if origin == OriginCard {
		order = cardColumns
	}
	if len(rows) == 0 {
		return order
	}
	var cols []string
	for _, c := range order {
		for _, r := range rows {
			if v, ok := r[c]; ok && v != nil {
				cols = append(cols, c)
				break
			}
		}
	}
	return cols
}
