package builtin

import (
	"regexp"
	"strconv"
	"strings"

	"cardpipe/internal/records"
)

const (
	ReasonBadCustomerID = "cod_cliente_invalido"
	ReasonBadExpiration = "fecha_exp_invalida"
	ReasonBadCard       = "tarjeta_invalida"
)

var (
	customerIDPattern = regexp.MustCompile(`^C[0-9]{3}$`)
	expirationPattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}$`)
)

// minCardDigits is the shortest accepted card number.
const minCardDigits = 12

// ValidateCards checks customer id format, expiration range, and card digit
// count, stamping OK/KO flags and routing invalid rows to the Reject sink
// with pipe-joined reasons in customer, expiration, card order. The internal
// digit-count column is removed from every row on the way out.
type ValidateCards struct {
	Reject func(records.Record)
}

func (v ValidateCards) Apply(in []records.Record) []records.Record {
	out := make([]records.Record, 0, len(in))
	for _, r := range in {
		id, _ := r.Str(ColCustomerID)
		exp, _ := r.Str(ColExpiration)
		ndigits, _ := r[ColCardDigits].(int)

		idOK := validCustomerID(id)
		expOK := validExpiration(exp)
		cardOK := ndigits >= minCardDigits

		setFlags(r, ColCustomerID, idOK)
		setFlags(r, ColExpiration, expOK)
		setFlags(r, "tarjeta", cardOK)
		delete(r, ColCardDigits)

		if idOK && expOK && cardOK {
			out = append(out, r)
			continue
		}

		rej := records.Clone(r)
		rej[ColOrigin] = OriginCards
		rej[ColError] = ErrCardValidation
		rej[ColErrorDetail] = cardDetail(idOK, expOK, cardOK)
		if v.Reject != nil {
			v.Reject(rej)
		}
	}
	return out
}

func cardDetail(idOK, expOK, cardOK bool) string {
	var reasons []string
	if !idOK {
		reasons = append(reasons, ReasonBadCustomerID)
	}
	if !expOK {
		reasons = append(reasons, ReasonBadExpiration)
	}
	if !cardOK {
		reasons = append(reasons, ReasonBadCard)
	}
	if len(reasons) == 0 {
		return ReasonUnknown
	}
	return strings.Join(reasons, "|")
}

// validCustomerID accepts "C" followed by exactly 3 digits.
func validCustomerID(s string) bool {
	return customerIDPattern.MatchString(s)
}

// validExpiration accepts "YYYY-MM" with month 01..12 and year 1900..2100.
func validExpiration(s string) bool {
	if !expirationPattern.MatchString(s) {
		return false
	}
	year, _ := strconv.Atoi(s[:4])
	month, _ := strconv.Atoi(s[5:7])
	return month >= 1 && month <= 12 && year >= 1900 && year <= 2100
}
